package matching

import (
	"strings"
)

// Similarity decides whether two phrases name the same thing.
type Similarity interface {
	Similar(a, b string) bool
}

// ListAggregator decides whether two lists of name fragments match well
// enough under a proportional threshold.
type ListAggregator struct {
	sim Similarity
}

// NewListAggregator returns an aggregator comparing fragments with sim.
func NewListAggregator(sim Similarity) *ListAggregator {
	return &ListAggregator{sim: sim}
}

// ListsSimilar reports whether at least minProportion of the longer list is
// matched. The joined lists are compared first. Otherwise every original is
// greedily matched to the first similar candidate not yet used. The loop stops
// once the threshold is reached, or once it can no longer be reached even if
// every pair still to evaluate matched.
func (a *ListAggregator) ListsSimilar(originals, candidates []string, minProportion float64) bool {
	if a.sim.Similar(strings.Join(originals, " "), strings.Join(candidates, " ")) {
		return true
	}
	if len(originals) == 0 || len(candidates) == 0 {
		return false
	}

	longest := float64(max(len(originals), len(candidates)))
	totalPairs := len(originals) * len(candidates)
	consumed := make([]bool, len(candidates))
	matches, mismatches := 0, 0

	for _, o := range originals {
		for j, c := range candidates {
			if consumed[j] {
				continue
			}
			if a.sim.Similar(o, c) {
				consumed[j] = true
				matches++
				if float64(matches)/longest >= minProportion {
					return true
				}
				break
			}
			mismatches++
			if float64(totalPairs-mismatches)/longest < minProportion {
				return false
			}
		}
	}
	return float64(matches)/longest >= minProportion
}

// OverlapCount counts entries of list1 that either equal an entry of list2 or
// contain / are contained in exactly one entry of list2, ignoring case. Each
// entry of list2 is counted at most once.
func OverlapCount(list1, list2 []string) int {
	consumed := make([]bool, len(list2))
	lowered := make([]string, len(list2))
	for i, s := range list2 {
		lowered[i] = strings.ToLower(s)
	}

	count := 0
	for _, element := range list1 {
		e := strings.ToLower(element)
		if e == "" {
			continue
		}

		hit := -1
		for j, c := range lowered {
			if !consumed[j] && c == e {
				hit = j
				break
			}
		}
		if hit < 0 {
			containing := 0
			for j, c := range lowered {
				if consumed[j] || c == "" {
					continue
				}
				if strings.Contains(c, e) || strings.Contains(e, c) {
					containing++
					hit = j
				}
			}
			if containing != 1 {
				hit = -1
			}
		}
		if hit >= 0 {
			consumed[hit] = true
			count++
		}
	}
	return count
}

// proportion divides n by the length of the longer list.
func proportion(n, len1, len2 int) float64 {
	longest := max(len1, len2)
	if longest == 0 {
		return 0
	}
	return float64(n) / float64(longest)
}
