package provider

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	bridge "github.com/goliatone/go-auth-bridge"
	"github.com/goliatone/go-auth-bridge/provider/firebase"
	"github.com/goliatone/go-auth-bridge/provider/remoteapi"
)

// Dependencies are the shared collaborators handed to provider factories.
type Dependencies struct {
	HTTPClient *http.Client
	Cache      bridge.Cache
	Metrics    *bridge.Metrics
	Logger     bridge.Logger
}

// Factory builds a provider from configuration.
type Factory func(cfg bridge.Config, deps Dependencies) (bridge.Provider, error)

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry returns a registry with the firebase and remote_api
// providers registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(firebase.Name, NewFirebase)
	r.Register(remoteapi.Name, NewRemoteAPI)
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	name = normalize(name)
	if name == "" || factory == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the provider named by cfg.Provider.
func (r *Registry) Build(cfg bridge.Config, deps Dependencies) (bridge.Provider, error) {
	name := normalize(cfg.Provider)

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, bridge.ConfigError("unknown auth provider %q, expected one of %s",
			cfg.Provider, strings.Join(r.Names(), ", "))
	}

	return factory(cfg, deps)
}

// Select builds the configured provider from the default registry.
func Select(cfg bridge.Config, deps Dependencies) (bridge.Provider, error) {
	return DefaultRegistry().Build(cfg, deps)
}

// NewFirebase is the factory for the firebase provider.
func NewFirebase(cfg bridge.Config, deps Dependencies) (bridge.Provider, error) {
	fc := firebase.ConfigFromBridge(cfg)
	fc.HTTPClient = deps.HTTPClient
	if fc.HTTPClient == nil {
		fc.HTTPClient = bridge.NewHTTPClient(cfg.RemoteAPI.Timeouts())
	}
	fc.Cache = deps.Cache
	fc.Metrics = deps.Metrics
	fc.Logger = deps.Logger

	p, err := firebase.New(fc)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewRemoteAPI is the factory for the remote_api provider.
func NewRemoteAPI(cfg bridge.Config, deps Dependencies) (bridge.Provider, error) {
	rc := remoteapi.ConfigFromBridge(cfg)
	rc.HTTPClient = deps.HTTPClient
	rc.Logger = deps.Logger

	p, err := remoteapi.New(rc)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
