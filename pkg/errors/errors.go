// Package errors provides the unified error type and factory functions for
// the Dissolve simulation core. Every layer (pool, box, energy, procedure,
// the ambient backends) uses AppError as the single carrier for structured
// error information, enabling consistent status-service responses, logging,
// and metrics.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Stack capture
//
// Stack traces are captured on every New/Wrap call and by every
// convenience factory. No build option disables the capture.
// ─────────────────────────────────────────────────────────────────────────────

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		// Trim standard-library noise to keep traces readable.
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError — the canonical platform error type
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout Dissolve.
// It satisfies the standard error interface and supports Go 1.13+ error
// wrapping so that errors.Is / errors.As / errors.Unwrap work transparently
// across all layers.
//
// Usage:
//
//	return errors.New(errors.CodeInputReference, "species \"water\" not defined")
//	return errors.Wrap(catalogErr, errors.CodeDBConnectionError, "checkpoint catalog query failed")
//	return errors.InputParse("unexpected token").WithDetail("line 42")
type AppError struct {
	// Code is the typed error code that uniquely identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description of the error.
	Message string

	// Detail carries supplementary context (file names, indices, atom
	// counts) that aids debugging without being required for the message
	// itself.
	Detail string

	// Cause is the underlying error that triggered this AppError, enabling
	// errors.Is / errors.As traversal of the full error chain.
	Cause error

	// Stack contains the formatted call-stack captured at the point of error
	// creation.  It is populated by New, Wrap and the convenience
	// factories.  Stack is intentionally not included in
	// Error() output to keep messages clean; callers that need it (e.g. the
	// Messenger) inspect the field directly.
	Stack string
}

// ─────────────────────────────────────────────────────────────────────────────
// error interface implementation
// ─────────────────────────────────────────────────────────────────────────────

// Error implements the standard error interface.
// Format: "[<code_name>(<code_int>)] <message>: <detail>"
// The detail segment is omitted when Detail is empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s(%d)] %s: %s", e.Code.String(), int(e.Code), e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s(%d)] %s", e.Code.String(), int(e.Code), e.Message)
}

// Unwrap returns the underlying cause error, enabling errors.Is and errors.As
// to traverse the full error chain without any additional boilerplate at call sites.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// ─────────────────────────────────────────────────────────────────────────────
// Fluent builder methods
// ─────────────────────────────────────────────────────────────────────────────

// WithDetail returns a shallow copy of the receiver with Detail set to the
// supplied string.  It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
// Use this when you want to attach a lower-level error to an already
// constructed AppError without going through Wrap.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Primary factory functions
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
// A call-stack snapshot is captured automatically.
//
// New is the preferred factory for errors that originate in the current
// layer without an underlying cause from a lower layer.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error.
// If err is nil, Wrap returns nil so it can be used inline:
//
//	return errors.Wrap(catalog.Lookup(ctx, id), errors.CodeDBConnectionError, "lookup failed")
//
// When err is already an *AppError and code is CodeUnknown the original code
// is preserved, preventing loss of the original classification during
// cross-layer propagation.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	// Preserve original code when the caller is just adding context.
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code. It is the idiomatic way to check for a specific error kind:
//
//	if errors.IsCode(err, errors.CodeInputReference) { ... }
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether any error in err's chain is an *AppError with
// CodeNotFound or CodeInputReference.
func IsNotFound(err error) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			switch ae.Code {
			case CodeNotFound, CodeInputReference:
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError found in err's
// chain. If no *AppError is present, CodeUnknown is returned.
//
// This is useful in the Messenger and the status service, which need a
// single code to emit as a metric label without coupling to a specific
// error kind.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience factory functions, one per error kind
// ─────────────────────────────────────────────────────────────────────────────
// Each function mirrors the pattern used in well-known Go HTTP frameworks so
// that call sites read naturally:
//
//   return errors.InputReference("species \"water\" not defined")
//   return errors.DomainRange("cell index out of range")

// NotFound constructs a generic CodeNotFound AppError. Prefer InputReference
// for a named species/atom-type/site lookup failure; this generic form is
// appropriate in catalog/store adapters.
func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, Stack: captureStack(1)}
}

// InvalidParam constructs a CodeInvalidParam AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: CodeInvalidParam, Message: message, Stack: captureStack(1)}
}

// Conflict constructs a CodeConflict AppError, used for contents-version
// mismatches and other state violations.
func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, Stack: captureStack(1)}
}

// Internal constructs a CodeInternal AppError.
// Use this for unexpected failures where no more specific code applies.
// Always log the underlying cause before or after calling Internal.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

// NotImplemented constructs a CodeNotImplemented AppError, returned by a
// procedure node left under construction. Fatal at prepare time.
func NotImplemented(message string) *AppError {
	return &AppError{Code: CodeNotImplemented, Message: message, Stack: captureStack(1)}
}

// InputParse constructs a CodeInputParse AppError for a malformed input
// deck. Never recovered; surfaced directly to the CLI.
func InputParse(message string) *AppError {
	return &AppError{Code: CodeInputParse, Message: message, Stack: captureStack(1)}
}

// InputReference constructs a CodeInputReference AppError for a named
// species, atom type, isotopologue, or site that cannot be resolved.
func InputReference(message string) *AppError {
	return &AppError{Code: CodeInputReference, Message: message, Stack: captureStack(1)}
}

// RestartParse constructs a CodeRestartParse AppError for a malformed or
// unreadable restart file.
func RestartParse(message string) *AppError {
	return &AppError{Code: CodeRestartParse, Message: message, Stack: captureStack(1)}
}

// DomainRange constructs a CodeDomainRange AppError for an out-of-range
// index or value. Release builds return this and a zero/empty result;
// debug builds should assert instead of calling this factory.
func DomainRange(message string) *AppError {
	return &AppError{Code: CodeDomainRange, Message: message, Stack: captureStack(1)}
}

// NumericalDegeneracy constructs a CodeNumericalDegeneracy AppError for a
// zero-volume box, zero-length bond vector, or similar degenerate geometry.
// The affected module's result is marked invalid but the run continues.
func NumericalDegeneracy(message string) *AppError {
	return &AppError{Code: CodeNumericalDegeneracy, Message: message, Stack: captureStack(1)}
}

// CollectiveDivergence constructs a CodeCollectiveDivergence AppError for a
// process-pool equality check that failed. Fatal: every rank must unwind
// together rather than let one rank continue alone.
func CollectiveDivergence(message string) *AppError {
	return &AppError{Code: CodeCollectiveDivergence, Message: message, Stack: captureStack(1)}
}

// IO constructs a CodeIO AppError for a file that cannot be opened or
// written.
func IO(message string) *AppError {
	return &AppError{Code: CodeIO, Message: message, Stack: captureStack(1)}
}
