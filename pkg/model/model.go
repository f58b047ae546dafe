// Package model defines the inputs and outputs of trace-link recovery.
//
// Model-side elements (NamedEntity, Relation) come from an architecture or
// code model. Text-side elements (CandidateInstance, CandidateRelation) come
// from documentation analysis. Both sides are produced outside the matching
// engine and are treated as read-only by it.
package model

import "strings"

// Term is a name fragment. Lemma is optional and only consulted when a
// comparison asks for lemmatized matching.
type Term struct {
	Text  string
	Lemma string
}

// NewTerm returns a Term without a lemma.
func NewTerm(text string) Term {
	return Term{Text: text}
}

// Value returns the lemma when requested and present, otherwise the text.
func (t Term) Value(lemmatize bool) string {
	if lemmatize && t.Lemma != "" {
		return t.Lemma
	}
	return t.Text
}

// NamedEntity is an element of the architecture/code model, e.g. a component.
type NamedEntity struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	NameParts []string `json:"name_parts,omitempty" yaml:"name_parts,omitempty"`
	TypeParts []string `json:"type_parts,omitempty" yaml:"type_parts,omitempty"`
}

// CandidateInstance is a cluster of noun phrases from the documentation that
// may refer to a model entity.
type CandidateInstance struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	SurfaceForms []string `json:"surface_forms,omitempty" yaml:"surface_forms,omitempty"`
	Confidence   float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Claimants    []string `json:"claimants,omitempty" yaml:"claimants,omitempty"`
}

// Relation is an ordered relation of arity >= 2 between model entities.
type Relation struct {
	ID        string
	Endpoints []*NamedEntity
}

// Arity returns the number of endpoints.
func (r *Relation) Arity() int {
	if r == nil {
		return 0
	}
	return len(r.Endpoints)
}

// String renders the relation as "A -> B -> C".
func (r *Relation) String() string {
	names := make([]string, 0, r.Arity())
	for _, e := range r.Endpoints {
		names = append(names, e.Name)
	}
	return strings.Join(names, " -> ")
}

// CandidateRelation is a relation mention extracted from a sentence.
type CandidateRelation struct {
	ID        string
	Endpoints []*CandidateInstance
	Sentence  int
}

// Arity returns the number of endpoints.
func (r *CandidateRelation) Arity() int {
	if r == nil {
		return 0
	}
	return len(r.Endpoints)
}

// String renders the candidate relation as "a -> b".
func (r *CandidateRelation) String() string {
	names := make([]string, 0, r.Arity())
	for _, c := range r.Endpoints {
		names = append(names, c.Name)
	}
	return strings.Join(names, " -> ")
}
