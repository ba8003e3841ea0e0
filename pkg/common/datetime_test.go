package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryParseDT(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{
			name:     "RFC3339",
			input:    "2020-02-01T10:11:12Z",
			expected: time.Date(2020, 2, 1, 10, 11, 12, 0, time.UTC),
		},
		{
			name:     "space separated",
			input:    "2020-02-01 10:11:12",
			expected: time.Date(2020, 2, 1, 10, 11, 12, 0, time.UTC),
		},
		{
			name:     "date only",
			input:    "2021-01-03",
			expected: time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "day first",
			input:    "03/01/2021",
			expected: time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TryParseDT(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %v, want %v", got, tt.expected)
		})
	}
}

func TestTryParseDTInvalid(t *testing.T) {
	_, err := TryParseDT("not a date")
	assert.Error(t, err)
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("query_error", "Error executing query", assert.AnError)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "query_error", resp.Error.Code)
	assert.Equal(t, assert.AnError.Error(), resp.Error.Detail)

	resp = NewErrorResponse("not_found", "missing", nil)
	assert.Empty(t, resp.Error.Detail)
}
