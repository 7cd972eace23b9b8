package provider

import (
	"sync"

	bridge "github.com/goliatone/go-auth-bridge"
)

// Selector builds the configured provider once and hands out the same
// instance, or the same error, for the rest of the process.
type Selector struct {
	registry *Registry
	cfg      bridge.Config
	deps     Dependencies

	once     sync.Once
	provider bridge.Provider
	err      error
}

// NewSelector creates a selector. A nil registry uses DefaultRegistry.
func NewSelector(cfg bridge.Config, deps Dependencies, registry *Registry) *Selector {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Selector{
		registry: registry,
		cfg:      cfg,
		deps:     deps,
	}
}

// Provider returns the memoized provider.
func (s *Selector) Provider() (bridge.Provider, error) {
	s.once.Do(func() {
		s.provider, s.err = s.registry.Build(s.cfg, s.deps)
		if s.err != nil && s.deps.Logger != nil {
			s.deps.Logger.Error("auth provider %q unavailable: %s", s.cfg.Provider, s.err)
		}
	})
	return s.provider, s.err
}
