package similarity

// ComparisonStrategy combines the boolean verdicts of several measures.
type ComparisonStrategy string

const (
	// StrategyAtLeastOne accepts when any measure accepts.
	StrategyAtLeastOne ComparisonStrategy = "at_least_one"

	// StrategyMajority accepts when more than half of the measures accept.
	StrategyMajority ComparisonStrategy = "majority"

	// StrategyConsensus accepts when every measure accepts.
	StrategyConsensus ComparisonStrategy = "consensus"
)

func (s ComparisonStrategy) valid() bool {
	switch s {
	case StrategyAtLeastOne, StrategyMajority, StrategyConsensus:
		return true
	}
	return false
}

// Similar evaluates measures in order, stopping as soon as the verdict is fixed.
func (s ComparisonStrategy) Similar(p Pair, measures []Measure) bool {
	if len(measures) == 0 {
		return false
	}

	switch s {
	case StrategyConsensus:
		for _, m := range measures {
			if !m.Similar(p) {
				return false
			}
		}
		return true
	case StrategyMajority:
		need := len(measures)/2 + 1
		yes, remaining := 0, len(measures)
		for _, m := range measures {
			remaining--
			if m.Similar(p) {
				yes++
			}
			if yes >= need {
				return true
			}
			if yes+remaining < need {
				return false
			}
		}
		return false
	default:
		for _, m := range measures {
			if m.Similar(p) {
				return true
			}
		}
		return false
	}
}

// Aggregation combines measure scores into one score.
type Aggregation string

const (
	AggregationMax     Aggregation = "max"
	AggregationMin     Aggregation = "min"
	AggregationAverage Aggregation = "average"
)

func (a Aggregation) valid() bool {
	switch a {
	case AggregationMax, AggregationMin, AggregationAverage:
		return true
	}
	return false
}

// Combine aggregates scores. An empty slice scores 0.
func (a Aggregation) Combine(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	out := scores[0]
	switch a {
	case AggregationMin:
		for _, s := range scores[1:] {
			out = min(out, s)
		}
	case AggregationAverage:
		for _, s := range scores[1:] {
			out += s
		}
		out /= float64(len(scores))
	default:
		for _, s := range scores[1:] {
			out = max(out, s)
		}
	}
	return out
}
