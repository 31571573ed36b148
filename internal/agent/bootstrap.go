package agent

import (
	"log/slog"

	"github.com/tycode-run/goclaw-core/internal/providers"
)

// EnsureFallbackProvider guarantees a provider registry is never empty.
// When no provider config resolved to a registered adapter (missing auth,
// unknown name, every register call skipped), callers get a clean
// Terminal chat error from a mock adapter instead of Resolver/loop.go
// failing to construct an agent at all. Mirrors create_default_provider's
// degrade-instead-of-crash fallback.
func EnsureFallbackProvider(reg *providers.Registry) {
	if reg.Count() > 0 {
		return
	}
	slog.Warn("no providers configured, falling back to mock provider (all chat turns will error)")
	reg.Register(providers.NewMockProvider(providers.MockBehavior{Kind: providers.MockAlwaysTerminal}))
}
