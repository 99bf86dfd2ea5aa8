// Package security validates untrusted input before it reaches a
// subprocess command line: scan targets and adapter option values. It is
// adapted from the teacher's InputSanitizer/PathValidator pair, changed
// from a permissive sanitize-and-continue policy to a strict
// reject-on-match policy, since a target or option value here is about to
// become part of an argv, not free text shown to a human.
package security

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/neosec/neosec/internal/model"
)

// shellMetacharacters mirrors the character class the teacher's
// InputSanitizer treats as high risk, narrowed to the characters that are
// actually dangerous once they reach exec.Command's argv (NeoSec never
// invokes a shell, but an adapter-built argument can still smuggle a
// sub-invocation via backticks or $() if later misused by a tool).
var shellMetacharacters = regexp.MustCompile("[;&|$`\\\\'\"<>\n]")

// targetPattern accepts IPv4, IPv6, CIDR, hostnames, and http(s) URLs; it
// is intentionally permissive on shape and relies on shellMetacharacters
// as the hard reject.
var targetPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.:/_-]*$`)

// ErrInvalidTarget is returned by ValidateTarget for malformed or
// dangerous target strings.
type ErrInvalidTarget struct {
	Target string
	Reason string
}

func (e *ErrInvalidTarget) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Target, e.Reason)
}

// ValidateTarget accepts an IPv4/IPv6 address, CIDR, hostname, or
// http(s) URL and rejects shell metacharacters and empty input.
func ValidateTarget(raw string) (model.Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &ErrInvalidTarget{Target: raw, Reason: "empty"}
	}
	if shellMetacharacters.MatchString(trimmed) {
		return "", &ErrInvalidTarget{Target: raw, Reason: "contains shell metacharacters"}
	}

	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		if _, err := url.ParseRequestURI(trimmed); err != nil {
			return "", &ErrInvalidTarget{Target: raw, Reason: "not a valid URL"}
		}
		return model.Target(trimmed), nil
	}

	if ip := net.ParseIP(trimmed); ip != nil {
		return model.Target(trimmed), nil
	}
	if _, _, err := net.ParseCIDR(trimmed); err == nil {
		return model.Target(trimmed), nil
	}
	if !targetPattern.MatchString(trimmed) {
		return "", &ErrInvalidTarget{Target: raw, Reason: "not an IP, CIDR, hostname, or URL"}
	}
	return model.Target(trimmed), nil
}

// RejectShellMetacharacters applies the same hard-reject check ValidateTarget
// uses to a single adapter option value. The orchestrator calls it on every
// string option value and every list item before the adapter's
// BuildCommand runs.
func RejectShellMetacharacters(value string) error {
	if shellMetacharacters.MatchString(value) {
		return fmt.Errorf("option value %q contains shell metacharacters", value)
	}
	return nil
}
