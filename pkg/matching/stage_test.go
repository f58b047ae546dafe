package matching

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/otherjamesbrown/penf-tracelink/pkg/links"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
	"github.com/otherjamesbrown/penf-tracelink/pkg/observability"
)

func teastoreInput() Input {
	order := entity("e-order", "OrderService")
	payment := entity("e-payment", "PaymentService")
	cart := entity("e-cart", "ShoppingCart")

	orderRI := candidate("ri-order", "order service", "OrderService", "order-service")
	paymentRI := candidate("ri-payment", "payment service")
	cartRI := candidate("ri-cart", "shopping cart", "shopping-cart")
	noise := candidate("ri-noise", "user")

	return Input{
		RunID:    "run-teastore",
		Entities: []*model.NamedEntity{order, payment, cart},
		Relations: []*model.Relation{
			{ID: "r-order-payment", Endpoints: []*model.NamedEntity{order, payment}},
			{ID: "r-cart-order", Endpoints: []*model.NamedEntity{cart, order}},
		},
		Candidates: []*model.CandidateInstance{orderRI, paymentRI, cartRI, noise},
		CandidateRelations: []*model.CandidateRelation{
			{ID: "rr-1", Endpoints: []*model.CandidateInstance{paymentRI, orderRI}},
			{ID: "rr-2", Endpoints: []*model.CandidateInstance{noise, cartRI}},
			{ID: "rr-3", Endpoints: []*model.CandidateInstance{cartRI, orderRI, paymentRI}},
		},
	}
}

func summarize(store *links.Store) []string {
	var out []string
	for _, l := range store.InstanceLinks() {
		out = append(out, fmt.Sprintf("I %s->%s %.4f %v", l.Candidate.ID, l.Entity.ID, l.Weight, l.Claimants))
	}
	for _, l := range store.RelationLinks() {
		out = append(out, fmt.Sprintf("R %s->%s %.4f %v", l.Candidate.ID, l.Relation.ID, l.Weight, l.Claimants))
	}
	return out
}

func newTestStage(t *testing.T, opts ...Option) *Stage {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewNopLogger())}, opts...)
	s, err := NewStage(newTestComparator(t), DefaultConfig(), opts...)
	require.NoError(t, err)
	return s
}

func TestStage_Run(t *testing.T) {
	s := newTestStage(t)
	in := teastoreInput()

	res, err := s.Run(context.Background(), in)
	require.NoError(t, err)

	store := res.Store
	assert.Equal(t, "run-teastore", store.RunID())

	il, ok := store.InstanceLink(in.Candidates[0], in.Entities[0])
	require.True(t, ok)
	assert.Equal(t, 1.0, il.Weight)
	assert.Equal(t, []string{ClaimantInstanceMatcher, ClaimantNameLinker}, il.Claimants)

	assert.Empty(t, store.InstanceLinksOfCandidate(in.Candidates[3]))
	assert.Len(t, store.InstanceLinksOfEntity(in.Entities[2]), 1)
	assert.Empty(t, store.InstanceLinksOfEntity(entity("e-cart", "ShoppingCart")), "lookups go by element, not by id")

	rels := store.RelationLinks()
	require.Len(t, rels, 1)
	assert.Equal(t, "rr-1", rels[0].Candidate.ID)
	assert.Equal(t, "r-order-payment", rels[0].Relation.ID)
	assert.Equal(t, 1.0, rels[0].Weight)

	require.Len(t, res.Events, 2)
	assert.Equal(t, observability.StageInstanceLinking, res.Events[0].Stage)
	assert.Equal(t, observability.StageRelationMatching, res.Events[1].Stage)
	assert.Equal(t, 1, res.Events[1].Links)
}

func TestStage_Deterministic(t *testing.T) {
	s := newTestStage(t)

	first, err := s.Run(context.Background(), teastoreInput())
	require.NoError(t, err)
	want := summarize(first.Store)
	require.NotEmpty(t, want)

	for i := 0; i < 5; i++ {
		again, err := s.Run(context.Background(), teastoreInput())
		require.NoError(t, err)
		assert.Equal(t, want, summarize(again.Store))
	}
}

func TestStage_GeneratesRunID(t *testing.T) {
	s := newTestStage(t)
	in := teastoreInput()
	in.RunID = ""

	a, err := s.Run(context.Background(), in)
	require.NoError(t, err)
	b, err := s.Run(context.Background(), in)
	require.NoError(t, err)

	assert.NotEmpty(t, a.Store.RunID())
	assert.NotEqual(t, a.Store.RunID(), b.Store.RunID())
}

func TestStage_CancelledContext(t *testing.T) {
	s := newTestStage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, teastoreInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStage_EmptyInput(t *testing.T) {
	s := newTestStage(t)
	res, err := s.Run(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, links.Stats{}, res.Store.Stats())
}

func TestStage_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	s := newTestStage(t,
		WithRecorder(metrics),
		WithTracer(observability.NewTracerFromProvider(noop.NewTracerProvider())),
	)

	_, err := s.Run(context.Background(), teastoreInput())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LinksTotal.WithLabelValues("relation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RelationCandidatesTotal.WithLabelValues(OutcomeBackward)))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.StageSeconds))
}

func TestInstanceLinker_NameLinkUsesLowerWeight(t *testing.T) {
	cfg := DefaultConfig()
	instances, err := NewInstanceMatcher(newTestComparator(t), cfg, WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	linker, err := NewInstanceLinker(instances, cfg, WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	// Both candidates survive refinement and both are found again by name,
	// which merges into the existing links without lowering their weight.
	store := links.NewStore("run")
	e := entity("e-cart", "Cart")
	added := linker.LinkInstances(
		[]*model.NamedEntity{e},
		[]*model.CandidateInstance{candidate("c1", "cart"), candidate("c2", "carts")},
		store,
	)

	assert.Equal(t, 4, added)
	require.Len(t, store.InstanceLinksOfEntity(e), 2)
	for _, l := range store.InstanceLinksOfEntity(e) {
		assert.Equal(t, cfg.InstanceProbability, l.Weight)
		assert.Equal(t, []string{ClaimantInstanceMatcher, ClaimantNameLinker}, l.Claimants)
	}
}
