package matching

import (
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/observability"
)

// Claimants recorded on the links each component creates.
const (
	ClaimantInstanceMatcher = "instance-matcher"
	ClaimantNameLinker      = "name-linker"
	ClaimantRelationMatcher = "relation-matcher"
)

// Recorder receives matching outcomes, e.g. for metrics.
type Recorder interface {
	RelationCandidate(outcome string)
	LinkAdded(kind string)
}

type nopRecorder struct{}

func (nopRecorder) RelationCandidate(string) {}
func (nopRecorder) LinkAdded(string)         {}

type options struct {
	logger   logging.Logger
	recorder Recorder
	tracer   *observability.Tracer
}

// Option configures the matchers and the stage.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithTracer sets the tracer used by the stage.
func WithTracer(t *observability.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.MustGlobal()
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	if o.tracer == nil {
		o.tracer = observability.NewTracer()
	}
	return o
}
