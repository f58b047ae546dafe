package matching

import (
	"fmt"
	"math"

	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
)

// Config holds the thresholds and probabilities of the matchers.
type Config struct {
	// SelectionProportion is the list-similarity threshold of the coarse
	// candidate filter and of name-based instance linking.
	SelectionProportion float64 `json:"selection_proportion" yaml:"selection_proportion"`

	// MinProportion is the threshold the iterative refinement starts from.
	MinProportion float64 `json:"min_proportion" yaml:"min_proportion"`

	// ProportionIncrease is added to the threshold every refinement round.
	ProportionIncrease float64 `json:"proportion_increase" yaml:"proportion_increase"`

	// InstanceProbability weights links found by the instance matcher.
	InstanceProbability float64 `json:"instance_probability" yaml:"instance_probability"`

	// InstanceProbabilityWithoutType weights links found by name comparison alone.
	InstanceProbabilityWithoutType float64 `json:"instance_probability_without_type" yaml:"instance_probability_without_type"`

	// RelationProbability is split evenly among the candidates linked to one relation.
	RelationProbability float64 `json:"relation_probability" yaml:"relation_probability"`
}

// DefaultConfig returns the default matcher configuration.
func DefaultConfig() Config {
	return Config{
		SelectionProportion:            0.9,
		MinProportion:                  0.7,
		ProportionIncrease:             0.05,
		InstanceProbability:            1.0,
		InstanceProbabilityWithoutType: 0.8,
		RelationProbability:            1.0,
	}
}

// Validate fills zero values with defaults and rejects values outside (0,1].
// Zero always means unset, so every field ends up positive.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.SelectionProportion == 0 {
		c.SelectionProportion = d.SelectionProportion
	}
	if c.MinProportion == 0 {
		c.MinProportion = d.MinProportion
	}
	if c.ProportionIncrease == 0 {
		c.ProportionIncrease = d.ProportionIncrease
	}
	if c.InstanceProbability == 0 {
		c.InstanceProbability = d.InstanceProbability
	}
	if c.InstanceProbabilityWithoutType == 0 {
		c.InstanceProbabilityWithoutType = d.InstanceProbabilityWithoutType
	}
	if c.RelationProbability == 0 {
		c.RelationProbability = d.RelationProbability
	}

	checks := []struct {
		name  string
		value float64
	}{
		{"selection_proportion", c.SelectionProportion},
		{"min_proportion", c.MinProportion},
		{"proportion_increase", c.ProportionIncrease},
		{"instance_probability", c.InstanceProbability},
		{"instance_probability_without_type", c.InstanceProbabilityWithoutType},
		{"relation_probability", c.RelationProbability},
	}
	for _, chk := range checks {
		v := chk.value
		if math.IsNaN(v) || v <= 0 || v > 1 {
			return fmt.Errorf("%w: matching.%s %v outside range", tlerrors.ErrInvalidConfig, chk.name, v)
		}
	}
	return nil
}
