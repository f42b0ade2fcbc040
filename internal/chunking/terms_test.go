package chunking

import (
	"errors"
	"testing"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `Ada Lovelace worked with Charles Babbage on the Analytical Engine.
Later, Ada Lovelace wrote notes. Nobody built the Analytical Engine. See RFC-1234 and RFC-42.`

func TestExtractTermsCapitalizedRuns(t *testing.T) {
	terms, err := ExtractTerms(sample, TermOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, terms)

	assert.Equal(t, "Ada Lovelace", terms[0].Term)
	assert.Equal(t, 2, terms[0].Frequency)
	assert.Equal(t, "Analytical Engine", terms[1].Term)
	assert.Equal(t, 2, terms[1].Frequency)

	var names []string
	for _, term := range terms {
		names = append(names, term.Term)
	}
	assert.Contains(t, names, "Charles Babbage")
}

func TestExtractTermsPatternAndMinLength(t *testing.T) {
	terms, err := ExtractTerms(sample, TermOptions{Pattern: `RFC-(\d+)`, MinLength: 3})
	require.NoError(t, err)

	var fromPattern []string
	for _, term := range terms {
		if term.Source == "pattern" {
			fromPattern = append(fromPattern, term.Term)
		}
	}
	assert.Equal(t, []string{"1234"}, fromPattern)
}

func TestExtractTermsLimitAndInvalidPattern(t *testing.T) {
	terms, err := ExtractTerms(sample, TermOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, terms, 1)

	_, err = ExtractTerms(sample, TermOptions{Pattern: "("})
	assert.True(t, errors.Is(err, errs.ErrValidation))
}
