package interview

import (
	"testing"

	"estate_crm/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScript(t *testing.T) {
	s, err := DefaultScript()
	require.NoError(t, err)
	require.Len(t, s.Phases, entities.InterviewPhases)
	for i, p := range s.Phases {
		assert.Equal(t, i+1, p.Number)
		assert.NotEmpty(t, p.Questions)
	}
	assert.Equal(t, 12, s.TotalQuestions())
}

func TestParseScript_Invalid(t *testing.T) {
	tests := map[string]string{
		"too few phases": `
phases:
  - {number: 1, name: a, weight: 1, questions: [{text: q}]}
`,
		"bad numbering": `
phases:
  - {number: 1, name: a, weight: 1, questions: [{text: q}]}
  - {number: 3, name: a, weight: 1, questions: [{text: q}]}
  - {number: 2, name: a, weight: 1, questions: [{text: q}]}
  - {number: 4, name: a, weight: 1, questions: [{text: q}]}
  - {number: 5, name: a, weight: 1, questions: [{text: q}]}
  - {number: 6, name: a, weight: 1, questions: [{text: q}]}
`,
		"zero weight": `
phases:
  - {number: 1, name: a, weight: 0, questions: [{text: q}]}
  - {number: 2, name: a, weight: 1, questions: [{text: q}]}
  - {number: 3, name: a, weight: 1, questions: [{text: q}]}
  - {number: 4, name: a, weight: 1, questions: [{text: q}]}
  - {number: 5, name: a, weight: 1, questions: [{text: q}]}
  - {number: 6, name: a, weight: 1, questions: [{text: q}]}
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScript([]byte(doc))
			assert.ErrorIs(t, err, entities.ErrInvalidInput)
		})
	}
}

func TestLoadScript_MissingFile(t *testing.T) {
	_, err := LoadScript("/nonexistent/script.yaml")
	assert.Error(t, err)
}
