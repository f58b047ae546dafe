package matching

import (
	"github.com/otherjamesbrown/penf-tracelink/pkg/links"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
)

// Outcomes reported to the Recorder for each candidate relation.
const (
	OutcomeArityMismatch = "arity_mismatch"
	OutcomeForward       = "forward"
	OutcomeBackward      = "backward"
	OutcomeNoMatch       = "no_match"
	OutcomeUngated       = "ungated"
)

// RelationMatcher links candidate relations to model relations.
type RelationMatcher struct {
	instances   *InstanceMatcher
	probability float64
	recorder    Recorder
	logger      logging.Logger
}

// NewRelationMatcher returns a matcher resolving endpoints with instances.
func NewRelationMatcher(instances *InstanceMatcher, cfg Config, opts ...Option) (*RelationMatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &RelationMatcher{
		instances:   instances,
		probability: cfg.RelationProbability,
		recorder:    o.recorder,
		logger:      o.logger.With(logging.F("component", "relation_matcher")),
	}, nil
}

// MatchRelations links relation to the candidates whose endpoints correspond
// position by position, read either forwards or backwards. Only candidates
// with at least one endpoint already linked to the model are kept. The
// configured relation probability is split evenly among them. Returned links
// follow candidate order.
func (m *RelationMatcher) MatchRelations(relation *model.Relation, candidates []*model.CandidateRelation, store *links.Store) []*links.RelationLink {
	if relation.Arity() < 2 {
		return nil
	}

	var accepted []*model.CandidateRelation
	for _, rr := range candidates {
		switch {
		case rr.Arity() != relation.Arity():
			m.recorder.RelationCandidate(OutcomeArityMismatch)
		case m.corresponds(relation, rr, false):
			m.recorder.RelationCandidate(OutcomeForward)
			accepted = append(accepted, rr)
		case m.corresponds(relation, rr, true):
			m.recorder.RelationCandidate(OutcomeBackward)
			accepted = append(accepted, rr)
		default:
			m.recorder.RelationCandidate(OutcomeNoMatch)
		}
	}

	var gated []*model.CandidateRelation
	for _, rr := range accepted {
		if hasLinkedEndpoint(rr, store) {
			gated = append(gated, rr)
		} else {
			m.recorder.RelationCandidate(OutcomeUngated)
		}
	}

	k := len(gated)
	if k == 0 {
		return nil
	}

	weight := m.probability / float64(k)
	out := make([]*links.RelationLink, 0, k)
	for _, rr := range gated {
		if l := store.AddRelationLink(rr, relation, weight, ClaimantRelationMatcher); l != nil {
			m.recorder.LinkAdded("relation")
			out = append(out, l)
		}
	}

	m.logger.Debug("relation matched",
		logging.F("relation", relation.String()),
		logging.F("accepted", len(accepted)),
		logging.F("linked", len(out)),
		logging.F("weight", weight),
	)
	return out
}

// corresponds checks every position of relation against the candidate
// endpoint at the same position, or at the mirrored position when backward.
func (m *RelationMatcher) corresponds(relation *model.Relation, rr *model.CandidateRelation, backward bool) bool {
	n := relation.Arity()
	for i, entity := range relation.Endpoints {
		j := i
		if backward {
			j = n - 1 - i
		}
		if len(m.instances.MostSimilarInstances(entity, rr.Endpoints[j:j+1])) == 0 {
			return false
		}
	}
	return true
}

func hasLinkedEndpoint(rr *model.CandidateRelation, store *links.Store) bool {
	for _, c := range rr.Endpoints {
		if store.HasInstanceLinks(c) {
			return true
		}
	}
	return false
}
