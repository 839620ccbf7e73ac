// Package registry is a concurrency-safe name to factory map. The scanner
// resolves its reader and deserializer implementations through it instead of
// loading classes by name.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/logger"
	"go.uber.org/zap"
)

// Registry manages factory registration and lookup for one capability.
// Names are matched case-sensitively, aliases are resolved to the canonical name.
type Registry[F any] struct {
	kind      string
	factories map[string]F
	aliases   map[string]string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// New creates an empty registry. kind names the capability ("input format",
// "serde") in errors and logs.
func New[F any](kind string) *Registry[F] {
	return &Registry[F]{
		kind:      kind,
		factories: make(map[string]F),
		aliases:   make(map[string]string),
		logger:    logger.Get().With(zap.String("component", "registry"), zap.String("kind", kind)),
	}
}

// Register adds factory under name and any number of short aliases.
func (r *Registry[F]) Register(name string, factory F, aliases ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return errors.Newf(errors.ErrorTypeConfiguration, "%s name must not be empty", r.kind)
	}
	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrorTypeConfiguration, "%s %s already registered", r.kind, name)
	}
	for _, a := range aliases {
		if _, exists := r.aliases[a]; exists {
			return errors.Newf(errors.ErrorTypeConfiguration, "%s alias %s already registered", r.kind, a)
		}
	}

	r.factories[name] = factory
	for _, a := range aliases {
		r.aliases[a] = name
	}
	r.logger.Debug("factory registered", zap.String("name", name), zap.Strings("aliases", aliases))
	return nil
}

// MustRegister is Register for package init functions.
func (r *Registry[F]) MustRegister(name string, factory F, aliases ...string) {
	if err := r.Register(name, factory, aliases...); err != nil {
		panic(err)
	}
}

// Lookup returns the factory registered under name or one of its aliases.
// A miss is a source error: the scan cannot proceed without the implementation.
func (r *Registry[F]) Lookup(name string) (F, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.TrimSpace(name)
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	factory, exists := r.factories[key]
	if !exists {
		var zero F
		return zero, errors.Newf(errors.ErrorTypeSource, "%s %q not registered", r.kind, name).
			WithDetail("known", r.namesLocked())
	}
	return factory, nil
}

// Has reports whether name or alias is registered.
func (r *Registry[F]) Has(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// List returns the canonical names, sorted.
func (r *Registry[F]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Aliases returns the short names that resolve to name.
func (r *Registry[F]) Aliases(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for a, canonical := range r.aliases {
		if canonical == name {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry[F]) namesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
