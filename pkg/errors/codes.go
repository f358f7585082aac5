// Package errors provides centralized error code definitions for the
// Dissolve simulation core. All error codes are grouped by the error kinds
// of the spec (InputParse, InputReference, DomainRange, NumericalDegeneracy,
// Collective, IO, NotImplemented) and mapped to HTTP status codes for the
// status service.
package errors

import "net/http"

// ErrorCode represents a typed error code used throughout Dissolve.
// Codes are partitioned by kind to avoid conflicts and simplify maintenance.
type ErrorCode int

// ─────────────────────────────────────────────────────────────────────────────
// General / cross-cutting error codes  (1xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeOK indicates no error.
	CodeOK ErrorCode = 0

	// CodeUnknown is a catch-all for errors that have not been categorised.
	CodeUnknown ErrorCode = 10000

	// CodeInvalidParam is returned when one or more parameters fail
	// validation (missing required fields, type mismatch, out-of-range values).
	CodeInvalidParam ErrorCode = 10001

	// CodeNotFound is returned when the requested resource does not exist.
	CodeNotFound ErrorCode = 10004

	// CodeConflict is returned when an operation violates a uniqueness or
	// state constraint (e.g. a contents-version mismatch on re-analysis).
	CodeConflict ErrorCode = 10005

	// CodeInternal is returned for unexpected failures not attributable to
	// the caller.
	CodeInternal ErrorCode = 10007

	// CodeNotImplemented marks a placeholder in an under-construction node;
	// fatal at parse time per spec.md §7.
	CodeNotImplemented ErrorCode = 10008
)

// ─────────────────────────────────────────────────────────────────────────────
// InputParse / InputReference  (2xxxx) — malformed or unresolved input
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeInputParse is returned for a malformed input deck; never
	// recovered, surfaced directly to the CLI.
	CodeInputParse ErrorCode = 20001

	// CodeInputReference is returned when a named species, atom type,
	// isotopologue, or site cannot be found.
	CodeInputReference ErrorCode = 20002

	// CodeRestartParse is returned for a malformed or unreadable restart
	// file.
	CodeRestartParse ErrorCode = 20003
)

// ─────────────────────────────────────────────────────────────────────────────
// DomainRange / NumericalDegeneracy  (3xxxx) — geometry and table bounds
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeDomainRange is returned when an index or value is out of its
	// permitted range. In debug builds the caller should assert instead;
	// release builds return this code and a zero/empty result.
	CodeDomainRange ErrorCode = 30001

	// CodeNumericalDegeneracy is returned for a zero-volume box, a
	// zero-length bond vector, or similar degenerate geometry. The module
	// result is marked invalid but the run continues.
	CodeNumericalDegeneracy ErrorCode = 30002
)

// ─────────────────────────────────────────────────────────────────────────────
// Collective  (4xxxx) — process-pool divergence
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeCollectiveDivergence is returned when replicas disagree on an
	// equality check. Fatal: all ranks must unwind together.
	CodeCollectiveDivergence ErrorCode = 40001
)

// ─────────────────────────────────────────────────────────────────────────────
// IO  (5xxxx) — file and backend access
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeIO is returned when an input/output file cannot be opened.
	CodeIO ErrorCode = 50001

	// CodeDBConnectionError is returned when the checkpoint catalog
	// (Postgres) or topology store (Neo4j) cannot be reached.
	CodeDBConnectionError ErrorCode = 50002

	// CodeDBQueryError is returned when a checkpoint catalog or topology
	// store query fails after a successful connection.
	CodeDBQueryError ErrorCode = 50003

	// CodeCacheError is returned when the Redis fast-cache accelerator
	// fails; callers must fall back to the authoritative in-memory store.
	CodeCacheError ErrorCode = 50004

	// CodeSearchError is returned when the OpenSearch run-log index fails
	// to accept a document or a query.
	CodeSearchError ErrorCode = 50005

	// CodeMessageQueueError is returned when publishing to or consuming
	// from a Kafka pool-coordination topic fails.
	CodeMessageQueueError ErrorCode = 50006

	// CodeStorageError is returned when a MinIO restart-object-store
	// operation (put, get, stat) fails.
	CodeStorageError ErrorCode = 50007
)

// ─────────────────────────────────────────────────────────────────────────────
// String — human-readable name of the error code
// ─────────────────────────────────────────────────────────────────────────────

// String returns the human-readable name associated with an ErrorCode.
// It is safe to call on any value, including unknown codes.
func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeUnknown:
		return "UNKNOWN"
	case CodeInvalidParam:
		return "INVALID_PARAM"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeConflict:
		return "CONFLICT"
	case CodeInternal:
		return "INTERNAL_ERROR"
	case CodeNotImplemented:
		return "NOT_IMPLEMENTED"
	case CodeInputParse:
		return "INPUT_PARSE"
	case CodeInputReference:
		return "INPUT_REFERENCE"
	case CodeRestartParse:
		return "RESTART_PARSE"
	case CodeDomainRange:
		return "DOMAIN_RANGE"
	case CodeNumericalDegeneracy:
		return "NUMERICAL_DEGENERACY"
	case CodeCollectiveDivergence:
		return "COLLECTIVE_DIVERGENCE"
	case CodeIO:
		return "IO"
	case CodeDBConnectionError:
		return "DB_CONNECTION_ERROR"
	case CodeDBQueryError:
		return "DB_QUERY_ERROR"
	case CodeCacheError:
		return "CACHE_ERROR"
	case CodeSearchError:
		return "SEARCH_ERROR"
	case CodeMessageQueueError:
		return "MESSAGE_QUEUE_ERROR"
	case CodeStorageError:
		return "STORAGE_ERROR"
	default:
		return "UNKNOWN_CODE"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTPStatus — mapping from domain error codes to HTTP status codes
// ─────────────────────────────────────────────────────────────────────────────

// HTTPStatus returns the most appropriate HTTP status code for the given
// ErrorCode. Used by the status service (C21) to translate errors returned
// from the checkpoint catalog / topology store into HTTP responses.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam, CodeInputParse, CodeInputReference, CodeRestartParse, CodeDomainRange:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeCollectiveDivergence:
		return http.StatusConflict
	case CodeDBConnectionError, CodeMessageQueueError, CodeStorageError:
		return http.StatusServiceUnavailable
	case CodeNotImplemented:
		return http.StatusNotImplemented
	default:
		// CodeUnknown, CodeInternal, CodeNumericalDegeneracy, CodeDBQueryError,
		// CodeCacheError, CodeSearchError, and all unrecognised codes.
		return http.StatusInternalServerError
	}
}
