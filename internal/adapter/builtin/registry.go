package builtin

import "github.com/neosec/neosec/internal/adapter"

// Registered returns NeoSec's default adapter set. Registration is
// explicit and code-based, not hot-reloaded at runtime (Non-goal).
func Registered() []adapter.Adapter {
	return []adapter.Adapter{
		NewNmap(),
		NewNuclei(),
	}
}
