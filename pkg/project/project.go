// Package project loads the pre-extracted inputs of a matching run from a
// YAML or JSON project file.
package project

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
	"github.com/otherjamesbrown/penf-tracelink/pkg/matching"
	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
	"github.com/otherjamesbrown/penf-tracelink/pkg/similarity"
)

// File is the on-disk layout of a project.
type File struct {
	Name  string    `yaml:"name"`
	Model ModelSide `yaml:"model"`
	Text  TextSide  `yaml:"text"`
}

// ModelSide holds the architecture model elements.
type ModelSide struct {
	Entities  []*model.NamedEntity `yaml:"entities"`
	Relations []RelationRef        `yaml:"relations"`
}

// TextSide holds the elements extracted from documentation.
type TextSide struct {
	Candidates []*model.CandidateInstance `yaml:"candidates"`
	Relations  []CandidateRelationRef     `yaml:"relations"`
}

// RelationRef references model entities by ID.
type RelationRef struct {
	ID        string   `yaml:"id"`
	Endpoints []string `yaml:"endpoints"`
}

// CandidateRelationRef references candidate instances by ID.
type CandidateRelationRef struct {
	ID        string   `yaml:"id"`
	Endpoints []string `yaml:"endpoints"`
	Sentence  int      `yaml:"sentence"`
}

// Project is a resolved project ready to run.
type Project struct {
	Name  string
	Input matching.Input
}

// LoadFile reads and resolves the project at path.
func LoadFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes data (YAML or JSON) and resolves endpoint references.
func Parse(data []byte) (*Project, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing project: %v", tlerrors.ErrValidation, err)
	}
	return f.Resolve()
}

// Resolve fills defaults and turns ID references into pointers.
func (f *File) Resolve() (*Project, error) {
	p := &Project{Name: f.Name}

	entities := make(map[string]*model.NamedEntity, len(f.Model.Entities))
	for i, e := range f.Model.Entities {
		if e == nil {
			return nil, fmt.Errorf("%w: model entity %d is empty", tlerrors.ErrValidation, i)
		}
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("%w: model entity %q has no name", tlerrors.ErrValidation, e.ID)
		}
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if _, dup := entities[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate model entity id %q", tlerrors.ErrValidation, e.ID)
		}
		if len(e.NameParts) == 0 {
			e.NameParts = strings.Fields(similarity.SplitCases(e.Name))
		}
		entities[e.ID] = e
		p.Input.Entities = append(p.Input.Entities, e)
	}

	candidates := make(map[string]*model.CandidateInstance, len(f.Text.Candidates))
	for i, c := range f.Text.Candidates {
		if c == nil {
			return nil, fmt.Errorf("%w: candidate %d is empty", tlerrors.ErrValidation, i)
		}
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("%w: candidate %q has no name", tlerrors.ErrValidation, c.ID)
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if _, dup := candidates[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate candidate id %q", tlerrors.ErrValidation, c.ID)
		}
		if len(c.SurfaceForms) == 0 {
			c.SurfaceForms = []string{c.Name}
		}
		candidates[c.ID] = c
		p.Input.Candidates = append(p.Input.Candidates, c)
	}

	for _, ref := range f.Model.Relations {
		id := ref.ID
		if id == "" {
			id = uuid.New().String()
		}
		if len(ref.Endpoints) < 2 {
			return nil, fmt.Errorf("%w: model relation %q has %d endpoints, need at least 2",
				tlerrors.ErrValidation, id, len(ref.Endpoints))
		}
		rel := &model.Relation{ID: id}
		for _, eid := range ref.Endpoints {
			e, ok := entities[eid]
			if !ok {
				return nil, fmt.Errorf("%w: model relation %q references unknown entity %q",
					tlerrors.ErrValidation, id, eid)
			}
			rel.Endpoints = append(rel.Endpoints, e)
		}
		p.Input.Relations = append(p.Input.Relations, rel)
	}

	for _, ref := range f.Text.Relations {
		id := ref.ID
		if id == "" {
			id = uuid.New().String()
		}
		if len(ref.Endpoints) < 2 {
			return nil, fmt.Errorf("%w: candidate relation %q has %d endpoints, need at least 2",
				tlerrors.ErrValidation, id, len(ref.Endpoints))
		}
		rel := &model.CandidateRelation{ID: id, Sentence: ref.Sentence}
		for _, cid := range ref.Endpoints {
			c, ok := candidates[cid]
			if !ok {
				return nil, fmt.Errorf("%w: candidate relation %q references unknown candidate %q",
					tlerrors.ErrValidation, id, cid)
			}
			rel.Endpoints = append(rel.Endpoints, c)
		}
		p.Input.CandidateRelations = append(p.Input.CandidateRelations, rel)
	}

	return p, nil
}
