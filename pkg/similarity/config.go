package similarity

import (
	"fmt"
	"math"
	"strings"

	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
)

// Config holds the comparator configuration. It is resolved once, when the
// comparator is built.
type Config struct {
	// Measures lists measure names in evaluation order. Empty means equality only.
	Measures []string `json:"measures" yaml:"measures"`

	// Strategy combines the boolean verdicts of the measures.
	Strategy ComparisonStrategy `json:"strategy" yaml:"strategy"`

	// Scoring is the default aggregation for continuous scores.
	Scoring Aggregation `json:"scoring" yaml:"scoring"`

	// CharMatch is the default character-match policy.
	CharMatch CharMatch `json:"char_match" yaml:"char_match"`

	// ConsiderAbbreviations enables the abbreviation pre-pass.
	ConsiderAbbreviations bool `json:"consider_abbreviations" yaml:"consider_abbreviations"`

	Levenshtein LevenshteinConfig `json:"levenshtein" yaml:"levenshtein"`
	JaroWinkler JaroWinklerConfig `json:"jarowinkler" yaml:"jarowinkler"`
	NGram       NGramConfig       `json:"ngram" yaml:"ngram"`
}

// LevenshteinConfig tunes the levenshtein measure.
type LevenshteinConfig struct {
	// MinLength is the length up to which short words need containment as well
	// as a small distance.
	MinLength int `json:"min_length" yaml:"min_length"`

	// MaxDistance is the absolute edit distance cap.
	MaxDistance int `json:"max_distance" yaml:"max_distance"`

	// Threshold scales the shorter word length into a dynamic distance cap.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// JaroWinklerConfig tunes the jaro-winkler measure.
type JaroWinklerConfig struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// NGramConfig tunes the n-gram measure.
type NGramConfig struct {
	Length    int     `json:"length" yaml:"length"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// DefaultConfig returns the default comparator configuration.
func DefaultConfig() Config {
	return Config{
		Measures:              []string{MeasureEquality, MeasureLevenshtein, MeasureJaroWinkler},
		Strategy:              StrategyAtLeastOne,
		Scoring:               AggregationMax,
		CharMatch:             CharMatchCaseFold,
		ConsiderAbbreviations: true,
		Levenshtein: LevenshteinConfig{
			MinLength:   2,
			MaxDistance: 1,
			Threshold:   0.9,
		},
		JaroWinkler: JaroWinklerConfig{Threshold: 0.9},
		NGram:       NGramConfig{Length: 2, Threshold: 0.9},
	}
}

// Validate fills zero values with defaults and rejects values out of range.
func (c *Config) Validate() error {
	d := DefaultConfig()

	for i, m := range c.Measures {
		c.Measures[i] = strings.ToLower(strings.TrimSpace(m))
	}
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	if c.Scoring == "" {
		c.Scoring = d.Scoring
	}
	if c.CharMatch == "" {
		c.CharMatch = d.CharMatch
	}
	if c.Levenshtein.MinLength == 0 {
		c.Levenshtein.MinLength = d.Levenshtein.MinLength
	}
	if c.Levenshtein.MaxDistance == 0 {
		c.Levenshtein.MaxDistance = d.Levenshtein.MaxDistance
	}
	if c.Levenshtein.Threshold == 0 {
		c.Levenshtein.Threshold = d.Levenshtein.Threshold
	}
	if c.JaroWinkler.Threshold == 0 {
		c.JaroWinkler.Threshold = d.JaroWinkler.Threshold
	}
	if c.NGram.Length == 0 {
		c.NGram.Length = d.NGram.Length
	}
	if c.NGram.Threshold == 0 {
		c.NGram.Threshold = d.NGram.Threshold
	}

	if !c.Strategy.valid() {
		return fmt.Errorf("%w: comparison strategy %q", tlerrors.ErrInvalidConfig, c.Strategy)
	}
	if !c.Scoring.valid() {
		return fmt.Errorf("%w: scoring aggregation %q", tlerrors.ErrInvalidConfig, c.Scoring)
	}
	if !c.CharMatch.valid() {
		return fmt.Errorf("%w: char match policy %q", tlerrors.ErrInvalidConfig, c.CharMatch)
	}
	if c.Levenshtein.MinLength < 0 || c.Levenshtein.MaxDistance < 0 {
		return fmt.Errorf("%w: levenshtein lengths must not be negative", tlerrors.ErrInvalidConfig)
	}
	if c.NGram.Length < 1 {
		return fmt.Errorf("%w: ngram length %d", tlerrors.ErrInvalidConfig, c.NGram.Length)
	}
	if err := checkUnit("levenshtein.threshold", c.Levenshtein.Threshold); err != nil {
		return err
	}
	if err := checkUnit("jarowinkler.threshold", c.JaroWinkler.Threshold); err != nil {
		return err
	}
	return checkUnit("ngram.threshold", c.NGram.Threshold)
}

func checkUnit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s %v outside [0,1]", tlerrors.ErrInvalidConfig, name, v)
	}
	return nil
}
