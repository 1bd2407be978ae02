package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so callers can tell a bad URL from a
// bad video from a full disk. Kinds map to HTTP statuses at the API boundary:
// KindInvalidRequest is a 400, everything else a 500.
type ErrorKind string

const (
	// KindSourceUnavailable: the frame source could not be acquired at all
	// (missing file, busy or absent camera, estimator never started). No
	// output is produced.
	KindSourceUnavailable ErrorKind = "source_unavailable"
	// KindReadFailure: the stream broke mid-run. Fatal for file sources;
	// device sources soft-stop and keep the partial capture.
	KindReadFailure ErrorKind = "read_failure"
	// KindAcquisitionFailure: the remote download failed before extraction.
	KindAcquisitionFailure ErrorKind = "acquisition_failure"
	// KindSerializationFailure: the output artifact could not be written.
	KindSerializationFailure ErrorKind = "serialization_failure"
	// KindInvalidRequest: the request was rejected before any file I/O.
	KindInvalidRequest ErrorKind = "invalid_request"
)

// PipelineError carries the failure kind alongside the wrapped cause.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// NewPipelineError wraps cause with a failure kind. Cause may be nil.
func NewPipelineError(kind ErrorKind, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the failure kind from err, or empty if err carries none.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
