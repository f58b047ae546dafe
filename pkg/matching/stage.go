// Package matching links documentation candidates to architecture model
// elements.
//
// A run has two stages:
//  1. Instance linking: each model entity is linked to the candidate instances
//     that most resemble it, then candidates named like an entity are linked
//     with a lower weight.
//  2. Relation matching: each model relation is linked to the candidate
//     relations whose endpoints correspond forwards or backwards and of which
//     at least one endpoint was linked in stage 1.
//
// Everything runs on one goroutine and preserves input order, so identical
// input yields identical links.
package matching

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/otherjamesbrown/penf-tracelink/pkg/links"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
	"github.com/otherjamesbrown/penf-tracelink/pkg/observability"
)

// Input holds the elements of one run.
type Input struct {
	// RunID identifies the run. A UUID is generated when empty.
	RunID string

	Entities           []*model.NamedEntity
	Relations          []*model.Relation
	Candidates         []*model.CandidateInstance
	CandidateRelations []*model.CandidateRelation
}

// Result is the outcome of a run.
type Result struct {
	Store  *links.Store
	Events []*observability.StageEvent
}

// StageTimer receives stage durations.
type StageTimer interface {
	ObserveStage(stage string, seconds float64)
}

// Stage runs instance linking followed by relation matching.
type Stage struct {
	linker    *InstanceLinker
	relations *RelationMatcher
	tracer    *observability.Tracer
	timer     StageTimer
	logger    logging.Logger
}

// NewStage builds both stages around sim. When the recorder passed with
// WithRecorder also implements StageTimer it receives stage durations.
func NewStage(sim Similarity, cfg Config, opts ...Option) (*Stage, error) {
	instances, err := NewInstanceMatcher(sim, cfg, opts...)
	if err != nil {
		return nil, err
	}
	linker, err := NewInstanceLinker(instances, cfg, opts...)
	if err != nil {
		return nil, err
	}
	relations, err := NewRelationMatcher(instances, cfg, opts...)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	s := &Stage{
		linker:    linker,
		relations: relations,
		tracer:    o.tracer,
		logger:    o.logger.With(logging.F("component", "matching_stage")),
	}
	if timer, ok := o.recorder.(StageTimer); ok {
		s.timer = timer
	}
	return s, nil
}

// Run links in and returns the populated store.
func (s *Stage) Run(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := in.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	ctx = logging.ContextWithRunID(ctx, runID)
	log := s.logger.WithContext(ctx)

	ctx, runSpan := s.tracer.StartRunSpan(ctx, runID)
	store := links.NewStore(runID)
	result := &Result{Store: store}

	start := time.Now()
	_, span := s.tracer.StartStageSpan(ctx, observability.StageInstanceLinking,
		attribute.Int(observability.AttrEntities, len(in.Entities)),
		attribute.Int(observability.AttrCandidates, len(in.Candidates)),
	)
	inserted := s.linker.LinkInstances(in.Entities, in.Candidates, store)
	observability.EndSpan(span, len(store.InstanceLinks()), nil)
	result.Events = append(result.Events, s.finish(runID, observability.StageInstanceLinking, start, len(in.Entities), len(store.InstanceLinks())))
	log.Info("instance linking finished",
		logging.F("entities", len(in.Entities)),
		logging.F("candidates", len(in.Candidates)),
		logging.F("insertions", inserted),
		logging.F("links", len(store.InstanceLinks())),
	)

	start = time.Now()
	_, span = s.tracer.StartStageSpan(ctx, observability.StageRelationMatching,
		attribute.Int(observability.AttrRelations, len(in.Relations)),
		attribute.Int(observability.AttrCandidates, len(in.CandidateRelations)),
	)
	for _, rel := range in.Relations {
		s.relations.MatchRelations(rel, in.CandidateRelations, store)
	}
	observability.EndSpan(span, len(store.RelationLinks()), nil)
	result.Events = append(result.Events, s.finish(runID, observability.StageRelationMatching, start, len(in.Relations), len(store.RelationLinks())))
	log.Info("relation matching finished",
		logging.F("relations", len(in.Relations)),
		logging.F("candidate_relations", len(in.CandidateRelations)),
		logging.F("links", len(store.RelationLinks())),
	)

	observability.EndSpan(runSpan, len(store.InstanceLinks())+len(store.RelationLinks()), nil)
	return result, nil
}

func (s *Stage) finish(runID, stage string, start time.Time, inputs, linkCount int) *observability.StageEvent {
	elapsed := time.Since(start)
	if s.timer != nil {
		s.timer.ObserveStage(stage, elapsed.Seconds())
	}
	return observability.NewStageEvent(runID, stage, observability.StageStatusCompleted, elapsed, inputs, linkCount)
}
