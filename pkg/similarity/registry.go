package similarity

import (
	"fmt"
	"sort"

	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
)

// MeasureFactory builds a measure from the comparator configuration.
type MeasureFactory func(cfg Config) (Measure, error)

// Registry maps configuration names to measure factories.
type Registry struct {
	factories map[string]MeasureFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]MeasureFactory)}
}

// DefaultRegistry returns a registry holding the built-in measures.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(MeasureEquality, func(Config) (Measure, error) {
		return NewEqualityMeasure(), nil
	})
	r.Register(MeasureLevenshtein, func(cfg Config) (Measure, error) {
		return NewLevenshteinMeasure(cfg.Levenshtein), nil
	})
	r.Register(MeasureJaroWinkler, func(cfg Config) (Measure, error) {
		return NewJaroWinklerMeasure(cfg.JaroWinkler), nil
	})
	r.Register(MeasureNGram, func(cfg Config) (Measure, error) {
		return NewNGramMeasure(cfg.NGram), nil
	})
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f MeasureFactory) {
	r.factories[name] = f
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build resolves cfg.Measures in order. An empty list yields the equality
// measure. Unknown or repeated names are configuration errors.
func (r *Registry) Build(cfg Config) ([]Measure, error) {
	names := cfg.Measures
	if len(names) == 0 {
		names = []string{MeasureEquality}
	}

	seen := make(map[string]bool, len(names))
	measures := make([]Measure, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%w: measure %q listed twice", tlerrors.ErrInvalidConfig, name)
		}
		seen[name] = true

		f, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %v)", tlerrors.ErrUnknownMeasure, name, r.Names())
		}
		m, err := f(cfg)
		if err != nil {
			return nil, fmt.Errorf("build measure %q: %w", name, err)
		}
		measures = append(measures, m)
	}
	return measures, nil
}
