package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
)

const teastoreYAML = `
name: teastore
model:
  entities:
    - id: e-order
      name: OrderService
    - id: e-payment
      name: payment_service
      name_parts: [payment, service]
  relations:
    - id: r-1
      endpoints: [e-order, e-payment]
text:
  candidates:
    - id: c-order
      name: order service
      type: component
    - id: c-payment
      name: payment service
      surface_forms: [payment service, payment]
  relations:
    - endpoints: [c-payment, c-order]
      sentence: 3
`

func TestParse_Teastore(t *testing.T) {
	p, err := Parse([]byte(teastoreYAML))
	require.NoError(t, err)

	assert.Equal(t, "teastore", p.Name)
	require.Len(t, p.Input.Entities, 2)
	assert.Equal(t, []string{"Order", "Service"}, p.Input.Entities[0].NameParts)
	assert.Equal(t, []string{"payment", "service"}, p.Input.Entities[1].NameParts)

	require.Len(t, p.Input.Candidates, 2)
	assert.Equal(t, []string{"order service"}, p.Input.Candidates[0].SurfaceForms)
	assert.Equal(t, []string{"payment service", "payment"}, p.Input.Candidates[1].SurfaceForms)

	require.Len(t, p.Input.Relations, 1)
	assert.Same(t, p.Input.Entities[0], p.Input.Relations[0].Endpoints[0])
	assert.Same(t, p.Input.Entities[1], p.Input.Relations[0].Endpoints[1])

	require.Len(t, p.Input.CandidateRelations, 1)
	rr := p.Input.CandidateRelations[0]
	assert.Equal(t, 3, rr.Sentence)
	assert.Equal(t, "payment service -> order service", rr.String())
	_, err = uuid.Parse(rr.ID)
	assert.NoError(t, err, "missing ids are generated")
}

func TestParse_JSON(t *testing.T) {
	data := `{"name":"tiny","model":{"entities":[{"id":"a","name":"Cart"}]},"text":{"candidates":[{"name":"cart"}]}}`

	p, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, p.Input.Candidates, 1)
	assert.NotEmpty(t, p.Input.Candidates[0].ID)
	assert.Equal(t, []string{"Cart"}, p.Input.Entities[0].NameParts)
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name: "unknown entity endpoint",
			data: `
model:
  entities: [{id: a, name: A}]
  relations: [{id: r, endpoints: [a, missing]}]`,
			wantErr: `unknown entity "missing"`,
		},
		{
			name: "unary relation",
			data: `
model:
  entities: [{id: a, name: A}]
  relations: [{id: r, endpoints: [a]}]`,
			wantErr: `model relation "r" has 1 endpoints`,
		},
		{
			name: "unknown candidate endpoint",
			data: `
text:
  candidates: [{id: c, name: c}]
  relations: [{id: rr, endpoints: [c, x]}]`,
			wantErr: `unknown candidate "x"`,
		},
		{
			name: "duplicate entity",
			data: `
model:
  entities: [{id: a, name: A}, {id: a, name: B}]`,
			wantErr: `duplicate model entity id "a"`,
		},
		{
			name:    "nameless candidate",
			data:    `text: {candidates: [{id: c}]}`,
			wantErr: `candidate "c" has no name`,
		},
		{
			name:    "malformed",
			data:    `model: [`,
			wantErr: "parsing project",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, tlerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teastore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(teastoreYAML), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "teastore", p.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
