package matching

import (
	"strings"

	"github.com/otherjamesbrown/penf-tracelink/pkg/links"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
)

// InstanceLinker links candidate instances to model entities.
type InstanceLinker struct {
	instances *InstanceMatcher
	lists     *ListAggregator
	cfg       Config
	recorder  Recorder
	logger    logging.Logger
}

// NewInstanceLinker returns a linker built on instances.
func NewInstanceLinker(instances *InstanceMatcher, cfg Config, opts ...Option) (*InstanceLinker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &InstanceLinker{
		instances: instances,
		lists:     instances.lists,
		cfg:       cfg,
		recorder:  o.recorder,
		logger:    o.logger.With(logging.F("component", "instance_linker")),
	}, nil
}

// LinkInstances adds instance links in two passes. First, every entity is
// linked to its most similar candidates with the instance probability. Then
// every candidate whose name equals an entity name, or whose words match the
// entity's name parts, is linked with the probability for links found without
// type information. It returns the number of link insertions.
func (l *InstanceLinker) LinkInstances(entities []*model.NamedEntity, candidates []*model.CandidateInstance, store *links.Store) int {
	added := 0
	for _, entity := range entities {
		for _, ri := range l.instances.MostSimilarInstances(entity, candidates) {
			if store.AddInstanceLink(ri, entity, l.cfg.InstanceProbability, ClaimantInstanceMatcher) != nil {
				l.recorder.LinkAdded("instance")
				added++
			}
		}
	}

	for _, ri := range candidates {
		words := strings.Fields(ri.Name)
		for _, entity := range entities {
			if !strings.EqualFold(entity.Name, ri.Name) &&
				!l.lists.ListsSimilar(NameParts(entity), words, l.cfg.SelectionProportion) {
				continue
			}
			if store.AddInstanceLink(ri, entity, l.cfg.InstanceProbabilityWithoutType, ClaimantNameLinker) != nil {
				l.recorder.LinkAdded("instance")
				added++
			}
		}
	}

	l.logger.Debug("instances linked",
		logging.F("entities", len(entities)),
		logging.F("candidates", len(candidates)),
		logging.F("insertions", added),
	)
	return added
}
