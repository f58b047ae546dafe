// Package observability provides stage events, metrics, and tracing for
// trace-link recovery runs.
package observability

import (
	"time"

	"github.com/google/uuid"
)

// StageStatus values
const (
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
	StageStatusSkipped   = "skipped"
)

// Stage names
const (
	StageInstanceLinking  = "instance_linking"
	StageRelationMatching = "relation_matching"
)

// StageEvent is emitted after each stage of a run.
type StageEvent struct {
	EventID    string    `json:"event_id" yaml:"event_id"`
	RunID      string    `json:"run_id" yaml:"run_id"`
	Stage      string    `json:"stage" yaml:"stage"`
	Status     string    `json:"status" yaml:"status"`
	DurationMs int64     `json:"duration_ms" yaml:"duration_ms"`
	Inputs     int       `json:"inputs" yaml:"inputs"`
	Links      int       `json:"links" yaml:"links"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// NewStageEvent creates a stage event with a generated ID.
func NewStageEvent(runID, stage, status string, duration time.Duration, inputs, links int) *StageEvent {
	return &StageEvent{
		EventID:    uuid.New().String(),
		RunID:      runID,
		Stage:      stage,
		Status:     status,
		DurationMs: duration.Milliseconds(),
		Inputs:     inputs,
		Links:      links,
		Timestamp:  time.Now(),
	}
}
