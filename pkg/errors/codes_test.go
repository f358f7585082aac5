// Package errors_test provides comprehensive table-driven unit tests for the
// error code definitions in pkg/errors/codes.go.
package errors_test

import (
	"net/http"
	"testing"

	"github.com/dissolveproject/dissolve/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test data — exhaustive table of every declared ErrorCode
// ─────────────────────────────────────────────────────────────────────────────

type codeEntry struct {
	code           errors.ErrorCode
	expectedString string
	expectedHTTP   int
}

// allCodes enumerates every ErrorCode constant defined in codes.go together
// with its expected String() output and expected HTTPStatus() mapping.
// The table is the single source of truth for both test functions below.
var allCodes = []codeEntry{
	// ── General ──────────────────────────────────────────────────────────────
	{errors.CodeOK, "OK", http.StatusOK},
	{errors.CodeUnknown, "UNKNOWN", http.StatusInternalServerError},
	{errors.CodeInvalidParam, "INVALID_PARAM", http.StatusBadRequest},
	{errors.CodeNotFound, "NOT_FOUND", http.StatusNotFound},
	{errors.CodeConflict, "CONFLICT", http.StatusConflict},
	{errors.CodeInternal, "INTERNAL_ERROR", http.StatusInternalServerError},
	{errors.CodeNotImplemented, "NOT_IMPLEMENTED", http.StatusNotImplemented},

	// ── InputParse / InputReference ─────────────────────────────────────────
	{errors.CodeInputParse, "INPUT_PARSE", http.StatusBadRequest},
	{errors.CodeInputReference, "INPUT_REFERENCE", http.StatusBadRequest},
	{errors.CodeRestartParse, "RESTART_PARSE", http.StatusBadRequest},

	// ── DomainRange / NumericalDegeneracy ────────────────────────────────────
	{errors.CodeDomainRange, "DOMAIN_RANGE", http.StatusBadRequest},
	{errors.CodeNumericalDegeneracy, "NUMERICAL_DEGENERACY", http.StatusInternalServerError},

	// ── Collective ────────────────────────────────────────────────────────────
	{errors.CodeCollectiveDivergence, "COLLECTIVE_DIVERGENCE", http.StatusConflict},

	// ── IO / infrastructure backends ─────────────────────────────────────────
	{errors.CodeIO, "IO", http.StatusInternalServerError},
	{errors.CodeDBConnectionError, "DB_CONNECTION_ERROR", http.StatusServiceUnavailable},
	{errors.CodeDBQueryError, "DB_QUERY_ERROR", http.StatusInternalServerError},
	{errors.CodeCacheError, "CACHE_ERROR", http.StatusInternalServerError},
	{errors.CodeSearchError, "SEARCH_ERROR", http.StatusInternalServerError},
	{errors.CodeMessageQueueError, "MESSAGE_QUEUE_ERROR", http.StatusServiceUnavailable},
	{errors.CodeStorageError, "STORAGE_ERROR", http.StatusServiceUnavailable},
}

// ─────────────────────────────────────────────────────────────────────────────
// TestErrorCode_String
// ─────────────────────────────────────────────────────────────────────────────

func TestErrorCode_String(t *testing.T) {
	t.Parallel()

	for _, tc := range allCodes {
		tc := tc
		t.Run(tc.expectedString, func(t *testing.T) {
			t.Parallel()
			got := tc.code.String()
			assert.NotEmpty(t, got, "String() for code %d must not be empty", int(tc.code))
			assert.Equal(t, tc.expectedString, got, "String() for code %d returned unexpected value", int(tc.code))
		})
	}
}

func TestErrorCode_String_Unknown(t *testing.T) {
	t.Parallel()

	unknownCodes := []errors.ErrorCode{
		errors.ErrorCode(99999),
		errors.ErrorCode(-1),
		errors.ErrorCode(1),
		errors.ErrorCode(12345),
	}

	for _, code := range unknownCodes {
		code := code
		t.Run("", func(t *testing.T) {
			t.Parallel()
			got := code.String()
			assert.Equal(t, "UNKNOWN_CODE", got, "String() for undeclared code %d should return UNKNOWN_CODE", int(code))
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// TestErrorCode_HTTPStatus
// ─────────────────────────────────────────────────────────────────────────────

func TestErrorCode_HTTPStatus(t *testing.T) {
	t.Parallel()

	for _, tc := range allCodes {
		tc := tc
		t.Run(tc.expectedString, func(t *testing.T) {
			t.Parallel()
			got := tc.code.HTTPStatus()
			assert.Equal(t, tc.expectedHTTP, got,
				"HTTPStatus() for %s (code %d) returned %d, want %d",
				tc.expectedString, int(tc.code), got, tc.expectedHTTP)
		})
	}
}

// TestErrorCode_HTTPStatus_SpecificMappings names the mappings most relied
// upon by the status service so failures produce maximally descriptive
// output.
func TestErrorCode_HTTPStatus_SpecificMappings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		code errors.ErrorCode
		want int
	}{
		{"NotFound→404", errors.CodeNotFound, http.StatusNotFound},
		{"InputParse→400", errors.CodeInputParse, http.StatusBadRequest},
		{"InputReference→400", errors.CodeInputReference, http.StatusBadRequest},
		{"DomainRange→400", errors.CodeDomainRange, http.StatusBadRequest},
		{"NumericalDegeneracy→500", errors.CodeNumericalDegeneracy, http.StatusInternalServerError},
		{"CollectiveDivergence→409", errors.CodeCollectiveDivergence, http.StatusConflict},
		{"Internal→500", errors.CodeInternal, http.StatusInternalServerError},
		{"NotImplemented→501", errors.CodeNotImplemented, http.StatusNotImplemented},
		{"DBConnectionError→503", errors.CodeDBConnectionError, http.StatusServiceUnavailable},
		{"MessageQueueError→503", errors.CodeMessageQueueError, http.StatusServiceUnavailable},
		{"StorageError→503", errors.CodeStorageError, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.code.HTTPStatus(), "HTTPStatus() mismatch for %s", tc.name)
		})
	}
}

func TestErrorCode_HTTPStatus_Unknown(t *testing.T) {
	t.Parallel()

	unknownCodes := []errors.ErrorCode{
		errors.ErrorCode(99999),
		errors.ErrorCode(-1),
		errors.ErrorCode(1),
	}

	for _, code := range unknownCodes {
		code := code
		t.Run("", func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, http.StatusInternalServerError, code.HTTPStatus(),
				"HTTPStatus() for undeclared code %d should default to 500", int(code))
		})
	}
}

// TestErrorCode_AllCodesHaveValidHTTPStatus guards against typos such as
// returning 40 instead of 400.
func TestErrorCode_AllCodesHaveValidHTTPStatus(t *testing.T) {
	t.Parallel()

	validStatuses := map[int]bool{
		http.StatusOK:                  true,
		http.StatusBadRequest:          true,
		http.StatusNotFound:            true,
		http.StatusConflict:            true,
		http.StatusInternalServerError: true,
		http.StatusServiceUnavailable:  true,
		http.StatusNotImplemented:      true,
	}

	for _, tc := range allCodes {
		tc := tc
		t.Run(tc.expectedString, func(t *testing.T) {
			t.Parallel()
			status := tc.code.HTTPStatus()
			assert.True(t, validStatuses[status],
				"HTTPStatus() for %s returned unexpected status code %d", tc.expectedString, status)
		})
	}
}

// TestErrorCode_DomainRanges validates that each error code integer value
// falls within the expected numeric range for its error kind, preventing
// accidental cross-kind code collisions as the codebase grows.
func TestErrorCode_DomainRanges(t *testing.T) {
	t.Parallel()

	type rangeEntry struct {
		code errors.ErrorCode
		low  int
		high int
		name string
	}

	ranges := []rangeEntry{
		{errors.CodeOK, 0, 0, "CodeOK"},
		{errors.CodeUnknown, 10000, 10999, "CodeUnknown"},
		{errors.CodeInvalidParam, 10000, 10999, "CodeInvalidParam"},
		{errors.CodeNotFound, 10000, 10999, "CodeNotFound"},
		{errors.CodeConflict, 10000, 10999, "CodeConflict"},
		{errors.CodeInternal, 10000, 10999, "CodeInternal"},
		{errors.CodeNotImplemented, 10000, 10999, "CodeNotImplemented"},

		{errors.CodeInputParse, 20000, 29999, "CodeInputParse"},
		{errors.CodeInputReference, 20000, 29999, "CodeInputReference"},
		{errors.CodeRestartParse, 20000, 29999, "CodeRestartParse"},

		{errors.CodeDomainRange, 30000, 39999, "CodeDomainRange"},
		{errors.CodeNumericalDegeneracy, 30000, 39999, "CodeNumericalDegeneracy"},

		{errors.CodeCollectiveDivergence, 40000, 49999, "CodeCollectiveDivergence"},

		{errors.CodeIO, 50000, 59999, "CodeIO"},
		{errors.CodeDBConnectionError, 50000, 59999, "CodeDBConnectionError"},
		{errors.CodeDBQueryError, 50000, 59999, "CodeDBQueryError"},
		{errors.CodeCacheError, 50000, 59999, "CodeCacheError"},
		{errors.CodeSearchError, 50000, 59999, "CodeSearchError"},
		{errors.CodeMessageQueueError, 50000, 59999, "CodeMessageQueueError"},
		{errors.CodeStorageError, 50000, 59999, "CodeStorageError"},
	}

	for _, r := range ranges {
		r := r
		t.Run(r.name, func(t *testing.T) {
			t.Parallel()
			v := int(r.code)
			assert.GreaterOrEqual(t, v, r.low, "%s value %d is below lower bound %d", r.name, v, r.low)
			assert.LessOrEqual(t, v, r.high, "%s value %d is above upper bound %d", r.name, v, r.high)
		})
	}
}
