// Package links accumulates weighted trace links for one matching run.
//
// A Store holds two kinds of links: InstanceLinks between a documentation
// candidate and a model entity, and RelationLinks between a candidate relation
// and a model relation. A pair is linked at most once. Adding an existing pair
// again merges it: the weight becomes the larger of the two and the claimant
// lists are unioned in first-seen order.
//
// Weights lie in (0,1]. Non-positive or NaN weights are not stored; weights
// above one are clamped.
//
// A Store is not safe for concurrent writers.
package links

import (
	"math"

	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
)

// InstanceLink links a candidate instance to a model entity.
type InstanceLink struct {
	Candidate *model.CandidateInstance
	Entity    *model.NamedEntity
	Weight    float64
	Claimants []string
}

// RelationLink links a candidate relation to a model relation.
type RelationLink struct {
	Candidate *model.CandidateRelation
	Relation  *model.Relation
	Weight    float64
	Claimants []string
}

type instanceKey struct {
	candidate *model.CandidateInstance
	entity    *model.NamedEntity
}

type relationKey struct {
	candidate *model.CandidateRelation
	relation  *model.Relation
}

// Store is the link accumulator of one run. Links are keyed on the elements
// themselves, so two distinct elements never share a link even when their
// IDs collide.
type Store struct {
	runID string

	instanceLinks []*InstanceLink
	instanceIndex map[instanceKey]*InstanceLink
	byEntity      map[*model.NamedEntity][]*InstanceLink
	byCandidate   map[*model.CandidateInstance][]*InstanceLink

	relationLinks       []*RelationLink
	relationIndex       map[relationKey]*RelationLink
	byRelation          map[*model.Relation][]*RelationLink
	byCandidateRelation map[*model.CandidateRelation][]*RelationLink
}

// NewStore returns an empty store for runID.
func NewStore(runID string) *Store {
	return &Store{
		runID:               runID,
		instanceIndex:       make(map[instanceKey]*InstanceLink),
		byEntity:            make(map[*model.NamedEntity][]*InstanceLink),
		byCandidate:         make(map[*model.CandidateInstance][]*InstanceLink),
		relationIndex:       make(map[relationKey]*RelationLink),
		byRelation:          make(map[*model.Relation][]*RelationLink),
		byCandidateRelation: make(map[*model.CandidateRelation][]*RelationLink),
	}
}

// RunID returns the identifier of the run the store belongs to.
func (s *Store) RunID() string {
	return s.runID
}

// NormalizeWeight clamps w into (0,1]. It reports false for weights that must
// not be stored.
func NormalizeWeight(w float64) (float64, bool) {
	if math.IsNaN(w) || w <= 0 {
		return 0, false
	}
	return math.Min(w, 1), true
}

// AddInstanceLink records a link between candidate and entity, merging with an
// existing link for the same pair. It returns the stored link, or nil when the
// weight was rejected.
func (s *Store) AddInstanceLink(candidate *model.CandidateInstance, entity *model.NamedEntity, weight float64, claimants ...string) *InstanceLink {
	w, ok := NormalizeWeight(weight)
	if !ok || candidate == nil || entity == nil {
		return nil
	}

	key := instanceKey{candidate: candidate, entity: entity}
	if existing, found := s.instanceIndex[key]; found {
		existing.Weight = math.Max(existing.Weight, w)
		existing.Claimants = unionClaimants(existing.Claimants, claimants)
		return existing
	}

	link := &InstanceLink{
		Candidate: candidate,
		Entity:    entity,
		Weight:    w,
		Claimants: unionClaimants(nil, claimants),
	}
	s.instanceLinks = append(s.instanceLinks, link)
	s.instanceIndex[key] = link
	s.byEntity[entity] = append(s.byEntity[entity], link)
	s.byCandidate[candidate] = append(s.byCandidate[candidate], link)
	return link
}

// AddRelationLink records a link between a candidate relation and a model
// relation, merging with an existing link for the same pair.
func (s *Store) AddRelationLink(candidate *model.CandidateRelation, relation *model.Relation, weight float64, claimants ...string) *RelationLink {
	w, ok := NormalizeWeight(weight)
	if !ok || candidate == nil || relation == nil {
		return nil
	}

	key := relationKey{candidate: candidate, relation: relation}
	if existing, found := s.relationIndex[key]; found {
		existing.Weight = math.Max(existing.Weight, w)
		existing.Claimants = unionClaimants(existing.Claimants, claimants)
		return existing
	}

	link := &RelationLink{
		Candidate: candidate,
		Relation:  relation,
		Weight:    w,
		Claimants: unionClaimants(nil, claimants),
	}
	s.relationLinks = append(s.relationLinks, link)
	s.relationIndex[key] = link
	s.byRelation[relation] = append(s.byRelation[relation], link)
	s.byCandidateRelation[candidate] = append(s.byCandidateRelation[candidate], link)
	return link
}

// InstanceLinks returns all instance links in insertion order.
func (s *Store) InstanceLinks() []*InstanceLink {
	return append([]*InstanceLink(nil), s.instanceLinks...)
}

// RelationLinks returns all relation links in insertion order.
func (s *Store) RelationLinks() []*RelationLink {
	return append([]*RelationLink(nil), s.relationLinks...)
}

// InstanceLink returns the link for a pair, if any.
func (s *Store) InstanceLink(candidate *model.CandidateInstance, entity *model.NamedEntity) (*InstanceLink, bool) {
	l, ok := s.instanceIndex[instanceKey{candidate: candidate, entity: entity}]
	return l, ok
}

// RelationLink returns the link for a pair, if any.
func (s *Store) RelationLink(candidate *model.CandidateRelation, relation *model.Relation) (*RelationLink, bool) {
	l, ok := s.relationIndex[relationKey{candidate: candidate, relation: relation}]
	return l, ok
}

// InstanceLinksOfEntity returns the links of entity in insertion order.
func (s *Store) InstanceLinksOfEntity(entity *model.NamedEntity) []*InstanceLink {
	return append([]*InstanceLink(nil), s.byEntity[entity]...)
}

// InstanceLinksOfCandidate returns the links of candidate in insertion order.
func (s *Store) InstanceLinksOfCandidate(candidate *model.CandidateInstance) []*InstanceLink {
	return append([]*InstanceLink(nil), s.byCandidate[candidate]...)
}

// HasInstanceLinks reports whether candidate has at least one instance link.
func (s *Store) HasInstanceLinks(candidate *model.CandidateInstance) bool {
	return len(s.byCandidate[candidate]) > 0
}

// RelationLinksOfRelation returns the links of relation in insertion order.
func (s *Store) RelationLinksOfRelation(relation *model.Relation) []*RelationLink {
	return append([]*RelationLink(nil), s.byRelation[relation]...)
}

// RelationLinksOfCandidate returns the links of a candidate relation in
// insertion order.
func (s *Store) RelationLinksOfCandidate(candidate *model.CandidateRelation) []*RelationLink {
	return append([]*RelationLink(nil), s.byCandidateRelation[candidate]...)
}

// Stats summarises the store.
type Stats struct {
	InstanceLinks int `json:"instance_links" yaml:"instance_links"`
	RelationLinks int `json:"relation_links" yaml:"relation_links"`
	Entities      int `json:"linked_entities" yaml:"linked_entities"`
	Relations     int `json:"linked_relations" yaml:"linked_relations"`
}

// Stats returns link counts.
func (s *Store) Stats() Stats {
	return Stats{
		InstanceLinks: len(s.instanceLinks),
		RelationLinks: len(s.relationLinks),
		Entities:      len(s.byEntity),
		Relations:     len(s.byRelation),
	}
}

func unionClaimants(existing, add []string) []string {
	out := existing
	for _, c := range add {
		if c == "" || contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
