// Package errors provides a lightweight structured error type (PipelineError)
// for failure classification across the release pipeline and CLI.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindUnsupportedPlatform means the host OS is not one of the supported
	// platforms. There is no fallback; guessing a platform would silently
	// mis-target compilation.
	KindUnsupportedPlatform Kind = "unsupported_platform"

	// KindCompilerOutputMissing means the compiler toolchain's expected
	// output binary was not found at its conventional path.
	KindCompilerOutputMissing Kind = "compiler_output_missing"

	// KindToolNotFound means a required external tool (signing tool, lipo)
	// could not be located on the host.
	KindToolNotFound Kind = "tool_not_found"

	// KindToolExecFailed means an external tool ran but exited non-zero.
	KindToolExecFailed Kind = "tool_exec_failed"

	// KindSignatureVerification means signing completed but the subsequent
	// verification pass rejected the result. Distinct from execution
	// failure: a signed-but-unverifiable binary must not ship.
	KindSignatureVerification Kind = "signature_verification_failed"

	// KindArchiveWrite means the archive or checksum sidecar could not be
	// written (disk or permission problems).
	KindArchiveWrite Kind = "archive_write_failed"

	// KindConfig covers invalid or unreadable configuration.
	KindConfig Kind = "config"

	// KindInternal is the fallback for unclassified failures.
	KindInternal Kind = "internal"
)

// ContextFields carries structured context for a PipelineError.
type ContextFields map[string]any

// PipelineError is a structured error with kind, failing stage, and context.
type PipelineError struct {
	Kind    Kind          `json:"kind"`
	Stage   string        `json:"stage,omitempty"`
	Message string        `json:"message"`
	Cause   error         `json:"cause,omitempty"`
	Context ContextFields `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", msg, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Kind)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// WithStage annotates the error with the pipeline stage it surfaced in.
// The first stage annotation wins; re-wrapping at outer layers must not
// repaint where the failure happened.
func (e *PipelineError) WithStage(stage string) *PipelineError {
	if e.Stage == "" {
		e.Stage = stage
	}
	return e
}

// WithContext adds context information to the error.
func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new PipelineError.
func New(kind Kind, message string) *PipelineError {
	return &PipelineError{Kind: kind, Message: message}
}

// Newf creates a new PipelineError with a formatted message.
func Newf(kind Kind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new PipelineError that wraps an existing error.
func Wrap(err error, kind Kind, message string) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Cause: err}
}

// Wrapf creates a new PipelineError wrapping err with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Is and As re-export the standard library helpers so callers do not need a
// second errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// IsKind reports whether err (or anything it wraps) is a PipelineError of
// the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// GetKind extracts the kind from an error, or KindInternal if it is not a
// PipelineError.
func GetKind(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}
