package llm

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"resumepilot/internal/errors"
)

// ProviderSpec is the credential and model information for one provider.
// A spec with an empty APIKey is treated as absent.
type ProviderSpec struct {
	Name    string
	Kind    Kind
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Constructor builds a client from a spec. It must not perform network I/O.
type Constructor func(spec ProviderSpec) (Completer, error)

// Constructors maps each kind to its client constructor.
type Constructors map[Kind]Constructor

// Registry is an ordered, immutable set of usable providers.
type Registry struct {
	providers []Provider
	index     map[string]int
}

// NewRegistry builds a registry from specs in the order given. Providers whose
// credential is missing, whose kind has no constructor, or whose constructor
// fails are skipped and logged; construction itself never fails.
func NewRegistry(specs []ProviderSpec, constructors Constructors, logger *errors.Logger) *Registry {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	r := &Registry{index: make(map[string]int, len(specs))}
	for _, spec := range specs {
		if spec.Name == "" {
			spec.Name = string(spec.Kind)
		}
		if strings.TrimSpace(spec.APIKey) == "" {
			logger.Debug("Provider credential not set, skipping", "provider", spec.Name, "kind", spec.Kind)
			continue
		}
		if _, dup := r.index[spec.Name]; dup {
			logger.Warn("Duplicate provider name, skipping", "provider", spec.Name)
			continue
		}
		construct, ok := constructors[spec.Kind]
		if !ok {
			logger.Warn("No client constructor for provider kind, skipping", "provider", spec.Name, "kind", spec.Kind)
			continue
		}
		if spec.Model == "" {
			spec.Model = DefaultModel(spec.Kind)
		}

		client, err := safeConstruct(construct, spec)
		if err != nil {
			logger.Warn("Failed to initialize provider client, skipping",
				"provider", spec.Name,
				"kind", spec.Kind,
				"error", err.Error())
			continue
		}

		r.index[spec.Name] = len(r.providers)
		r.providers = append(r.providers, Provider{
			Name:   spec.Name,
			Kind:   spec.Kind,
			Model:  spec.Model,
			client: client,
		})
		logger.Debug("Provider registered", "provider", spec.Name, "kind", spec.Kind, "model", spec.Model)
	}

	logger.Info("Provider registry built", "providers", r.Names())
	return r
}

func safeConstruct(construct Constructor, spec ProviderSpec) (client Completer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("constructor panicked: %v", rec)
		}
	}()
	client, err = construct(spec)
	if err == nil && client == nil {
		err = fmt.Errorf("constructor returned no client")
	}
	return client, err
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.providers)
}

// Providers returns a copy of the providers in registry order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Names returns provider names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name
	}
	return names
}

// Lookup finds a provider by name.
func (r *Registry) Lookup(name string) (Provider, bool) {
	i, ok := r.index[name]
	if !ok {
		return Provider{}, false
	}
	return r.providers[i], true
}

// Ordered returns the attempt order for a request. A preferred provider that
// is registered moves to the front; everything else keeps registry order.
func (r *Registry) Ordered(preferred string) []Provider {
	out := make([]Provider, 0, len(r.providers))
	i, ok := r.index[preferred]
	if !ok {
		return append(out, r.providers...)
	}
	out = append(out, r.providers[i])
	for j, p := range r.providers {
		if j != i {
			out = append(out, p)
		}
	}
	return out
}

// LazyRegistry builds a Registry on first use and returns the same instance
// afterwards. There is no reset.
type LazyRegistry struct {
	once     sync.Once
	build    func() *Registry
	registry *Registry
}

// NewLazyRegistry wraps a build function. build runs at most once.
func NewLazyRegistry(build func() *Registry) *LazyRegistry {
	return &LazyRegistry{build: build}
}

// StaticRegistry wraps an already built registry.
func StaticRegistry(r *Registry) *LazyRegistry {
	return NewLazyRegistry(func() *Registry { return r })
}

// Get returns the registry, building it if needed.
func (l *LazyRegistry) Get() *Registry {
	l.once.Do(func() {
		l.registry = l.build()
		if l.registry == nil {
			l.registry = &Registry{index: map[string]int{}}
		}
	})
	return l.registry
}
