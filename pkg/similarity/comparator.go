// Package similarity decides whether two words or phrases name the same thing.
//
// A Comparator runs in three steps:
//  1. Abbreviation pre-pass: known meanings are replaced by their abbreviation
//     and, if that changed anything, the rewritten pair is compared once.
//  2. Length check: phrases with a different number of words never match.
//  3. Measures: the configured measures vote and the comparison strategy
//     combines their verdicts.
//
// Measures are resolved from configuration names through a Registry when the
// comparator is built. A Comparator is immutable after construction.
package similarity

import (
	"fmt"

	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
)

// Comparison is one similarity question.
type Comparison struct {
	First     model.Term
	Second    model.Term
	Lemmatize bool

	// CharMatch overrides the comparator's policy when set.
	CharMatch CharMatch
}

// Observer is notified of every decided comparison.
type Observer interface {
	ObserveComparison(similar bool)
}

// Comparator decides similarity of terms using configured measures.
type Comparator struct {
	measures      []Measure
	scorers       []Measure
	strategy      ComparisonStrategy
	scoring       Aggregation
	charMatch     CharMatch
	abbreviations *Abbreviations
	registry      *Registry
	observer      Observer
	logger        logging.Logger
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithAbbreviations sets the dictionary for the abbreviation pre-pass. It is
// consulted only when the configuration enables abbreviations.
func WithAbbreviations(a *Abbreviations) Option {
	return func(c *Comparator) {
		c.abbreviations = a
	}
}

// WithRegistry replaces the default measure registry.
func WithRegistry(r *Registry) Option {
	return func(c *Comparator) {
		c.registry = r
	}
}

// WithObserver sets an observer for comparison outcomes.
func WithObserver(o Observer) Option {
	return func(c *Comparator) {
		c.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Comparator) {
		c.logger = l
	}
}

// New builds a comparator. Invalid configuration fails here rather than on
// first use.
func New(cfg Config, opts ...Option) (*Comparator, error) {
	cfg.Measures = append([]string(nil), cfg.Measures...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Comparator{
		strategy:  cfg.Strategy,
		scoring:   cfg.Scoring,
		charMatch: cfg.CharMatch,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = DefaultRegistry()
	}
	if c.logger == nil {
		c.logger = logging.MustGlobal()
	}
	c.logger = c.logger.With(logging.F("component", "similarity"))
	if !cfg.ConsiderAbbreviations {
		c.abbreviations = nil
	}

	measures, err := c.registry.Build(cfg)
	if err != nil {
		return nil, err
	}
	if len(cfg.Measures) == 0 {
		c.logger.Warn("no similarity measures configured, falling back to equality")
	}
	c.measures = measures
	c.scorers = scoringMeasures(measures)

	names := make([]string, len(measures))
	for i, m := range measures {
		names[i] = m.Name()
	}
	c.logger.Debug("comparator ready",
		logging.F("measures", names),
		logging.F("strategy", string(c.strategy)),
		logging.F("char_match", string(c.charMatch)),
		logging.F("abbreviations", c.abbreviations.Len()),
	)
	return c, nil
}

// scoringMeasures drops the equality measure unless nothing else is left.
func scoringMeasures(measures []Measure) []Measure {
	var out []Measure
	for _, m := range measures {
		if m.Name() != MeasureEquality {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return measures
	}
	return out
}

// Measures returns the names of the configured measures in order.
func (c *Comparator) Measures() []string {
	names := make([]string, len(c.measures))
	for i, m := range c.measures {
		names[i] = m.Name()
	}
	return names
}

// Similar reports whether a and b are similar under the default policy.
func (c *Comparator) Similar(a, b string) bool {
	return c.Compare(Comparison{First: model.NewTerm(a), Second: model.NewTerm(b)})
}

// Compare decides one comparison.
func (c *Comparator) Compare(cmp Comparison) bool {
	policy := cmp.CharMatch
	if policy == "" {
		policy = c.charMatch
	}
	first := cmp.First.Value(cmp.Lemmatize)
	second := cmp.Second.Value(cmp.Lemmatize)

	if c.abbreviations != nil {
		a1 := c.abbreviations.Ambiguate(first)
		a2 := c.abbreviations.Ambiguate(second)
		if (a1 != first || a2 != second) && c.compare(a1, a2, policy) {
			return true
		}
	}
	return c.compare(first, second, policy)
}

func (c *Comparator) compare(first, second string, policy CharMatch) bool {
	p := Pair{First: policy.Fold(first), Second: policy.Fold(second)}

	similar := len(Words(p.First)) == len(Words(p.Second)) && c.strategy.Similar(p, c.measures)
	if c.observer != nil {
		c.observer.ObserveComparison(similar)
	}
	return similar
}

// Score returns the aggregated score of a and b in [0,1]. Equality takes part
// only when it is the sole measure.
func (c *Comparator) Score(a, b string, agg Aggregation) float64 {
	if agg == "" {
		agg = c.scoring
	}
	p := Pair{First: c.charMatch.Fold(a), Second: c.charMatch.Fold(b)}
	scores := make([]float64, len(c.scorers))
	for i, m := range c.scorers {
		scores[i] = m.Score(p)
	}
	return agg.Combine(scores)
}

// MeasureScore is the verdict of one measure on a pair.
type MeasureScore struct {
	Measure string  `json:"measure" yaml:"measure"`
	Similar bool    `json:"similar" yaml:"similar"`
	Score   float64 `json:"score" yaml:"score"`
}

// Explain returns each measure's verdict and score for a and b.
func (c *Comparator) Explain(a, b string) []MeasureScore {
	p := Pair{First: c.charMatch.Fold(a), Second: c.charMatch.Fold(b)}
	out := make([]MeasureScore, len(c.measures))
	for i, m := range c.measures {
		out[i] = MeasureScore{Measure: m.Name(), Similar: m.Similar(p), Score: m.Score(p)}
	}
	return out
}

// String describes the comparator configuration.
func (c *Comparator) String() string {
	return fmt.Sprintf("comparator(measures=%v strategy=%s char_match=%s)", c.Measures(), c.strategy, c.charMatch)
}
