package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/seenimoa/smartvalue/pkg/models"
)

// Registry is a thread-safe registry of statement providers keyed by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider // name → provider
	def       string              // default provider name
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry. If the provider requires
// credentials, they should be set via Init() before calling Register.
// Duplicate registrations overwrite the previous entry. The first provider
// registered becomes the default.
func (r *Registry) Register(p Provider) error {
	info := p.Info()
	if info.Name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[info.Name] = p
	if r.def == "" {
		r.def = info.Name
	}
	return nil
}

// Unregister removes a provider from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.providers, name)
	if r.def == name {
		r.def = ""
	}
}

// Get returns a provider by name. An empty name selects the default.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.def
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return p, nil
}

// List returns info about all registered providers, sorted by name.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, p.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// DefaultProvider returns the default provider name.
func (r *Registry) DefaultProvider() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.def, r.def != ""
}

// SetDefault sets the default provider.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return &ErrProviderNotFound{Name: name}
	}
	r.def = name
	return nil
}

// FetchStatements fetches ticker from the named provider (or the default if
// name is empty). Unclassified errors are mapped onto the taxonomy.
func (r *Registry) FetchStatements(ctx context.Context, name, ticker string) (*models.Statements, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	st, err := p.FetchStatements(ctx, ticker)
	if err == nil && st == nil {
		err = ErrNoStatements
	}
	if err != nil {
		return nil, Classify(p.Info().Name, ticker, err)
	}
	if st.Source == "" {
		st.Source = p.Info().Name
	}
	return st, nil
}

// Quote prices ticker using the named provider, which must implement
// QuoteProvider.
func (r *Registry) Quote(ctx context.Context, name, ticker string) (*models.Quote, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	qp, ok := p.(QuoteProvider)
	if !ok {
		return nil, &ErrCapabilityNotSupported{Provider: p.Info().Name, Capability: "quotes"}
	}
	q, err := qp.Quote(ctx, ticker)
	if err == nil && q == nil {
		err = ErrNoQuote
	}
	if err != nil {
		return nil, Classify(p.Info().Name, ticker, err)
	}
	return q, nil
}

// global is the default global registry.
var global = NewRegistry()

// Global returns the process-wide registry.
func Global() *Registry { return global }
