package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesCause(t *testing.T) {
	// Given: an original error
	cause := errors.New("open scenes.jsonl: no such file or directory")

	// When: wrapping it as a corpus error
	err := CorpusError(ErrCodeCorpusNotFound, "corpus file not found", cause)

	// Then: the chain reaches the cause
	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestError_Error_Format(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "no cause",
			err:      New(ErrCodeConfigInvalid, "bad topk", nil),
			expected: "[ERR_102_CONFIG_INVALID] bad topk",
		},
		{
			name:     "cause appended",
			err:      New(ErrCodeCorpusMalformed, "line 3", errors.New("unexpected EOF")),
			expected: "[ERR_202_CORPUS_MALFORMED] line 3: unexpected EOF",
		},
		{
			name:     "wrapped cause not repeated",
			err:      Wrap(ErrCodeSearchFailed, errors.New("boom")),
			expected: "[ERR_503_SEARCH_FAILED] boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with the same code and one with another code
	a := New(ErrCodeDimensionMismatch, "want 384 got 768", nil)
	b := New(ErrCodeDimensionMismatch, "want 3 got 4", nil)
	c := New(ErrCodeSearchFailed, "other", nil)

	// Then: matching is by code
	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestError_Is_ThroughFmtWrapping(t *testing.T) {
	// Given: an *Error wrapped with fmt.Errorf
	inner := New(ErrCodeDimensionMismatch, "mismatch", nil)
	outer := fmt.Errorf("semantic lookup: %w", inner)

	// Then: helpers see through the wrapping
	assert.Equal(t, ErrCodeDimensionMismatch, GetCode(outer))
	assert.True(t, errors.Is(outer, New(ErrCodeDimensionMismatch, "", nil)))
}

func TestWrap(t *testing.T) {
	// Given: nil, a plain error and an existing *Error
	plain := errors.New("plain")
	existing := New(ErrCodeDimensionMismatch, "dims", nil)

	// Then: nil stays nil, plain errors get the code, *Error keeps its own code
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
	assert.Equal(t, ErrCodeSearchFailed, Wrap(ErrCodeSearchFailed, plain).Code)
	assert.Same(t, existing, Wrap(ErrCodeSearchFailed, existing))
}

func TestCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeCorpusNotFound, CategoryIO, SeverityFatal, false},
		{ErrCodeCorpusEmpty, CategoryIO, SeverityFatal, false},
		{ErrCodeNetworkTimeout, CategoryNetwork, SeverityWarning, true},
		{ErrCodeDimensionMismatch, CategoryValidation, SeverityError, false},
		{ErrCodeSearchFailed, CategoryInternal, SeverityError, false},
		{"bogus", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestHelpers_NonStructuredError(t *testing.T) {
	err := errors.New("plain")

	assert.Empty(t, GetCode(err))
	assert.False(t, IsRetryable(err))
	assert.False(t, IsRetryable(nil))
}

func TestFormatForCLI(t *testing.T) {
	// Given: a corpus error with a suggestion
	err := CorpusError(ErrCodeCorpusMalformed, "line 7 is not valid JSON", errors.New("invalid character"))

	// When: formatting for the terminal
	out := FormatForCLI(err)

	// Then: message, cause, hint and code are all present
	assert.Contains(t, out, "Error: line 7 is not valid JSON")
	assert.Contains(t, out, "Cause: invalid character")
	assert.Contains(t, out, "Hint: check corpus.path")
	assert.Contains(t, out, "Code: ERR_202_CORPUS_MALFORMED")
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON(t *testing.T) {
	err := New(ErrCodeDimensionMismatch, "query has 4 dims, index has 3", nil).
		WithDetail("expected", "3")

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeDimensionMismatch, decoded["code"])
	assert.Equal(t, "VALIDATION", decoded["category"])
	assert.Equal(t, map[string]any{"expected": "3"}, decoded["details"])
}

func TestLogAttrs(t *testing.T) {
	err := New(ErrCodeSearchFailed, "lexical failed", errors.New("closed")).
		WithDetail("backend", "sqlite")

	attrs := LogAttrs(err)

	keys := make([]string, len(attrs))
	for i, a := range attrs {
		keys[i] = a.Key
	}
	assert.Equal(t, []string{"error_code", "error", "category", "severity", "cause", "detail_backend"}, keys)
	assert.Nil(t, LogAttrs(nil))
	assert.Len(t, LogAttrs(errors.New("x")), 1)
}
