package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStartDuration(t *testing.T) {
	rec, err := Parse("R5/2024-01-01T00:00:00Z/P7D")
	require.NoError(t, err)

	assert.Equal(t, 5, rec.Count)
	require.NotNil(t, rec.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *rec.Start)
	require.NotNil(t, rec.Period)
}

func TestParseUnboundedDurationOnly(t *testing.T) {
	rec, err := Parse("R/P1M")
	require.NoError(t, err)

	assert.Equal(t, 0, rec.Count)
	assert.Nil(t, rec.Start)
	require.NotNil(t, rec.Period)
}

func TestParseStartEnd(t *testing.T) {
	rec, err := Parse("R2/2024-01-01T00:00:00Z/2024-06-01T00:00:00Z")
	require.NoError(t, err)

	assert.Equal(t, 2, rec.Count)
	require.NotNil(t, rec.Start)
	require.NotNil(t, rec.End)
	assert.Nil(t, rec.Period)
}

func TestParseDurationEnd(t *testing.T) {
	rec, err := Parse("R/P1D/2024-06-01T00:00:00Z")
	require.NoError(t, err)

	require.NotNil(t, rec.Period)
	require.NotNil(t, rec.End)
}

func TestParseRejectsInvalid(t *testing.T) {
	invalid := []string{
		"",
		"P1D",
		"R",
		"R5",
		"Rx/P1D",
		"R-1/P1D",
		"R5/notadate/P1D",
		"R5/2024-01-01T00:00:00Z/Q7D",
		"R5/2024-06-01T00:00:00Z/2024-01-01T00:00:00Z",
		"R5/2024-01-01T00:00:00Z/P1D/extra",
	}

	for _, statement := range invalid {
		_, err := Parse(statement)
		assert.ErrorIs(t, err, ErrInvalidStatement, "statement %q", statement)
	}
}

func TestOccurrencesStepsByPeriod(t *testing.T) {
	rec, err := Parse("R3/2024-01-01T00:00:00Z/P1D")
	require.NoError(t, err)

	occurrences := rec.Occurrences(10)
	require.Len(t, occurrences, 3)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), occurrences[0])
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), occurrences[1])
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), occurrences[2])
}

func TestOccurrencesRespectsEnd(t *testing.T) {
	rec, err := Parse("R/2024-01-01T00:00:00Z/P1D")
	require.NoError(t, err)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	rec.End = &end

	occurrences := rec.Occurrences(10)
	assert.Len(t, occurrences, 3)
}

func TestOccurrencesNilWithoutAnchor(t *testing.T) {
	rec, err := Parse("R/P1D")
	require.NoError(t, err)

	assert.Nil(t, rec.Occurrences(10))
}
