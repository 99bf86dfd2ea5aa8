package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator confines report and raw-output paths to an approved data
// directory, guarding against a malicious run/task id escaping via path
// traversal. Adapted from the teacher's PathValidator, trimmed to the one
// policy NeoSec needs: everything must resolve inside ApprovedRoot.
type PathValidator struct {
	ApprovedRoot  string
	AllowSymlinks bool
}

// NewPathValidator returns a PathValidator confined to root.
func NewPathValidator(root string) *PathValidator {
	return &PathValidator{ApprovedRoot: root}
}

// ValidateComponent checks that a single path component (a run id or task
// id used to build a filesystem path) contains no traversal sequences and
// resolves inside the validator's approved root once joined.
func (pv *PathValidator) ValidateComponent(component string) (string, error) {
	if component == "" {
		return "", fmt.Errorf("empty path component")
	}
	if containsTraversal(component) {
		return "", fmt.Errorf("path component %q contains traversal sequence", component)
	}

	joined := filepath.Join(pv.ApprovedRoot, component)
	absRoot, err := filepath.Abs(pv.ApprovedRoot)
	if err != nil {
		return "", fmt.Errorf("resolve approved root: %w", err)
	}
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absJoined)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path component %q escapes approved directory %q", component, pv.ApprovedRoot)
	}

	if !pv.AllowSymlinks && containsSymlinks(absJoined) {
		return "", fmt.Errorf("path component %q resolves through a symlink", component)
	}

	return absJoined, nil
}

func containsTraversal(s string) bool {
	for _, pattern := range []string{"..", "%2e%2e", "%252e%252e", "..%2f", "..%5c"} {
		if strings.Contains(strings.ToLower(s), pattern) {
			return true
		}
	}
	return false
}

func containsSymlinks(path string) bool {
	parts := strings.Split(path, string(filepath.Separator))
	current := ""
	for i, part := range parts {
		if i == 0 {
			current = part
			continue
		}
		current = filepath.Join(current, part)
		if info, err := os.Lstat(current); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return true
		}
	}
	return false
}
