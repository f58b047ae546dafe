package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/penf-tracelink/pkg/links"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
)

type outcomeRecorder struct {
	outcomes []string
	links    map[string]int
}

func (r *outcomeRecorder) RelationCandidate(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *outcomeRecorder) LinkAdded(kind string) {
	if r.links == nil {
		r.links = make(map[string]int)
	}
	r.links[kind]++
}

type relationFixture struct {
	order, payment     *model.NamedEntity
	orderRI, paymentRI *model.CandidateInstance
	relation           *model.Relation
	store              *links.Store
	matcher            *RelationMatcher
	recorder           *outcomeRecorder
}

func newRelationFixture(t *testing.T, probability float64) *relationFixture {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RelationProbability = probability

	rec := &outcomeRecorder{}
	instances, err := NewInstanceMatcher(newTestComparator(t), cfg, WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	matcher, err := NewRelationMatcher(instances, cfg, WithLogger(logging.NewNopLogger()), WithRecorder(rec))
	require.NoError(t, err)

	f := &relationFixture{
		order:     entity("e-order", "OrderService"),
		payment:   entity("e-payment", "PaymentService"),
		orderRI:   candidate("ri-order", "order service"),
		paymentRI: candidate("ri-payment", "payment service"),
		store:     links.NewStore("run-test"),
		matcher:   matcher,
		recorder:  rec,
	}
	f.relation = &model.Relation{ID: "r-1", Endpoints: []*model.NamedEntity{f.order, f.payment}}
	return f
}

func TestMatchRelations_Backward(t *testing.T) {
	f := newRelationFixture(t, 0.6)
	f.store.AddInstanceLink(f.orderRI, f.order, 1.0)

	rr := &model.CandidateRelation{ID: "rr-1", Endpoints: []*model.CandidateInstance{f.paymentRI, f.orderRI}}
	got := f.matcher.MatchRelations(f.relation, []*model.CandidateRelation{rr}, f.store)

	require.Len(t, got, 1)
	assert.Equal(t, "rr-1", got[0].Candidate.ID)
	assert.InDelta(t, 0.6, got[0].Weight, 1e-9)
	assert.Equal(t, []string{ClaimantRelationMatcher}, got[0].Claimants)
	assert.Equal(t, []string{OutcomeBackward}, f.recorder.outcomes)
	assert.Len(t, f.store.RelationLinksOfRelation(f.relation), 1)
}

func TestMatchRelations_Forward(t *testing.T) {
	f := newRelationFixture(t, 1.0)
	f.store.AddInstanceLink(f.paymentRI, f.payment, 1.0)

	rr := &model.CandidateRelation{ID: "rr-1", Endpoints: []*model.CandidateInstance{f.orderRI, f.paymentRI}}
	got := f.matcher.MatchRelations(f.relation, []*model.CandidateRelation{rr}, f.store)

	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Weight)
	assert.Equal(t, []string{OutcomeForward}, f.recorder.outcomes)
}

func TestMatchRelations_Gating(t *testing.T) {
	f := newRelationFixture(t, 0.6)
	linkedRI := candidate("ri-order-2", "order service")
	f.store.AddInstanceLink(linkedRI, f.order, 1.0)

	unlinked := &model.CandidateRelation{ID: "rr-unlinked", Endpoints: []*model.CandidateInstance{f.orderRI, f.paymentRI}}
	linked := &model.CandidateRelation{ID: "rr-linked", Endpoints: []*model.CandidateInstance{linkedRI, f.paymentRI}}

	got := f.matcher.MatchRelations(f.relation, []*model.CandidateRelation{unlinked, linked}, f.store)

	require.Len(t, got, 1)
	assert.Equal(t, "rr-linked", got[0].Candidate.ID)
	assert.InDelta(t, 0.6, got[0].Weight, 1e-9)
	assert.Contains(t, f.recorder.outcomes, OutcomeUngated)
}

func TestMatchRelations_NothingGatedEmitsNothing(t *testing.T) {
	f := newRelationFixture(t, 0.6)
	rr := &model.CandidateRelation{ID: "rr-1", Endpoints: []*model.CandidateInstance{f.orderRI, f.paymentRI}}

	assert.Empty(t, f.matcher.MatchRelations(f.relation, []*model.CandidateRelation{rr}, f.store))
	assert.Empty(t, f.store.RelationLinks())
}

func TestMatchRelations_WeightConservation(t *testing.T) {
	f := newRelationFixture(t, 0.6)
	f.store.AddInstanceLink(f.orderRI, f.order, 1.0)

	var candidates []*model.CandidateRelation
	for _, id := range []string{"rr-1", "rr-2", "rr-3"} {
		candidates = append(candidates, &model.CandidateRelation{ID: id, Endpoints: []*model.CandidateInstance{f.orderRI, f.paymentRI}})
	}

	got := f.matcher.MatchRelations(f.relation, candidates, f.store)
	require.Len(t, got, 3)

	sum := 0.0
	for i, l := range got {
		assert.Equal(t, candidates[i].ID, l.Candidate.ID)
		assert.InDelta(t, 0.2, l.Weight, 1e-9)
		sum += l.Weight
	}
	assert.InDelta(t, 0.6, sum, 1e-9)
	assert.Equal(t, 3, f.recorder.links["relation"])
}

func TestMatchRelations_ArityGuard(t *testing.T) {
	f := newRelationFixture(t, 0.6)
	f.store.AddInstanceLink(f.orderRI, f.order, 1.0)

	ternary := &model.CandidateRelation{ID: "rr-3", Endpoints: []*model.CandidateInstance{f.orderRI, f.paymentRI, f.orderRI}}
	got := f.matcher.MatchRelations(f.relation, []*model.CandidateRelation{ternary}, f.store)

	assert.Empty(t, got)
	assert.Equal(t, []string{OutcomeArityMismatch}, f.recorder.outcomes)

	unary := &model.Relation{ID: "r-unary", Endpoints: []*model.NamedEntity{f.order}}
	assert.Empty(t, f.matcher.MatchRelations(unary, []*model.CandidateRelation{ternary}, f.store))
}

func TestMatchRelations_NoCorrespondence(t *testing.T) {
	f := newRelationFixture(t, 0.6)
	cart := candidate("ri-cart", "cart")
	f.store.AddInstanceLink(cart, f.order, 1.0)

	rr := &model.CandidateRelation{ID: "rr-1", Endpoints: []*model.CandidateInstance{cart, f.paymentRI}}
	assert.Empty(t, f.matcher.MatchRelations(f.relation, []*model.CandidateRelation{rr}, f.store))
	assert.Equal(t, []string{OutcomeNoMatch}, f.recorder.outcomes)
}

func TestMatchRelations_Idempotent(t *testing.T) {
	f := newRelationFixture(t, 0.6)
	f.store.AddInstanceLink(f.orderRI, f.order, 1.0)
	rr := &model.CandidateRelation{ID: "rr-1", Endpoints: []*model.CandidateInstance{f.orderRI, f.paymentRI}}

	f.matcher.MatchRelations(f.relation, []*model.CandidateRelation{rr}, f.store)
	f.matcher.MatchRelations(f.relation, []*model.CandidateRelation{rr}, f.store)

	require.Len(t, f.store.RelationLinks(), 1)
	assert.InDelta(t, 0.6, f.store.RelationLinks()[0].Weight, 1e-9)
}
