package matching

import (
	"strings"

	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
	"github.com/otherjamesbrown/penf-tracelink/pkg/similarity"
)

// InstanceMatcher narrows the candidate instances that may refer to one
// model entity.
type InstanceMatcher struct {
	sim    Similarity
	lists  *ListAggregator
	cfg    Config
	logger logging.Logger
}

// NewInstanceMatcher returns a matcher using sim for phrase comparison.
func NewInstanceMatcher(sim Similarity, cfg Config, opts ...Option) (*InstanceMatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &InstanceMatcher{
		sim:    sim,
		lists:  NewListAggregator(sim),
		cfg:    cfg,
		logger: o.logger.With(logging.F("component", "instance_matcher")),
	}, nil
}

// MostSimilarInstances returns the candidates most similar to entity, in input
// order. A coarse filter keeps every candidate resembling the entity by any of
// several name views. If more than one survives, the threshold is raised
// round by round until one candidate is left, every survivor also matches by
// surface form, or a round would eliminate everyone, in which case the set
// that round started from is returned.
func (m *InstanceMatcher) MostSimilarInstances(entity *model.NamedEntity, candidates []*model.CandidateInstance) []*model.CandidateInstance {
	parts := NameParts(entity)
	longest := strings.Fields(similarity.SplitCases(entity.Name))

	pool := make([]*model.CandidateInstance, 0)
	for _, ri := range candidates {
		if m.coarseMatch(entity, parts, longest, ri) {
			pool = append(pool, ri)
		}
	}
	if len(pool) <= 1 {
		return pool
	}

	survivors := pool
	threshold := m.cfg.MinProportion
	for len(survivors) > 1 && threshold <= 1 {
		previous := survivors
		threshold += m.cfg.ProportionIncrease

		kept := make([]*model.CandidateInstance, 0, len(previous))
		for _, ri := range previous {
			if m.lists.ListsSimilar(parts, []string{ri.Name}, threshold) {
				kept = append(kept, ri)
			}
		}
		if len(kept) == 0 {
			m.logger.Debug("refinement eliminated all candidates",
				logging.F("entity", entity.Name),
				logging.F("threshold", threshold),
				logging.F("kept", len(previous)),
			)
			return previous
		}
		survivors = kept

		if m.allMatchBySurfaceForm(parts, survivors) {
			break
		}
	}
	return survivors
}

// coarseMatch is an unordered disjunction; the first view that accepts wins.
func (m *InstanceMatcher) coarseMatch(entity *model.NamedEntity, parts, longest []string, ri *model.CandidateInstance) bool {
	p := m.cfg.SelectionProportion
	name := []string{ri.Name}

	if m.sim.Similar(entity.Name, ri.Name) ||
		m.lists.ListsSimilar(parts, name, p) ||
		m.lists.ListsSimilar(longest, name, p) ||
		proportion(OverlapCount(parts, name), len(parts), 1) >= p ||
		proportion(OverlapCount(longest, name), len(longest), 1) >= p {
		return true
	}

	for _, sf := range SurfaceForms(ri) {
		words := similarity.SplitAtSeparators(similarity.SplitCases(sf))
		if len(words) == 0 {
			continue
		}
		if m.lists.ListsSimilar(parts, words, p) ||
			m.lists.ListsSimilar(longest, words, p) ||
			proportion(OverlapCount(parts, words), len(parts), len(words)) >= p ||
			proportion(OverlapCount(longest, words), len(longest), len(words)) >= p {
			return true
		}
	}
	return false
}

func (m *InstanceMatcher) allMatchBySurfaceForm(parts []string, candidates []*model.CandidateInstance) bool {
	for _, ri := range candidates {
		if !m.matchesBySurfaceForm(parts, ri) {
			return false
		}
	}
	return true
}

// matchesBySurfaceForm compares the joined name parts with each surface form
// split at separators and case changes.
func (m *InstanceMatcher) matchesBySurfaceForm(parts []string, ri *model.CandidateInstance) bool {
	joined := strings.Join(parts, " ")
	for _, sf := range SurfaceForms(ri) {
		split := similarity.SplitCases(strings.Join(similarity.SplitAtSeparators(sf), " "))
		if m.sim.Similar(joined, split) {
			return true
		}
	}
	return false
}

// NameParts returns entity.NameParts, deriving them from the name when unset.
func NameParts(entity *model.NamedEntity) []string {
	if len(entity.NameParts) > 0 {
		return entity.NameParts
	}
	return strings.Fields(similarity.SplitCases(entity.Name))
}

// SurfaceForms returns ri.SurfaceForms, or the name when none are recorded.
func SurfaceForms(ri *model.CandidateInstance) []string {
	if len(ri.SurfaceForms) > 0 {
		return ri.SurfaceForms
	}
	return []string{ri.Name}
}
