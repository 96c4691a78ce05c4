package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers. Fatal kinds abort the whole
// recommendation run; KindCatalogLookupFailed is handled per title and never
// escapes the resolver.
type Kind string

const (
	KindInvalidInput          Kind = "invalid_input"
	KindUpstreamUnavailable   Kind = "upstream_unavailable"
	KindMalformedUpstreamData Kind = "malformed_upstream_data"
	KindTruncated             Kind = "truncated"
	KindCatalogLookupFailed   Kind = "catalog_lookup_failed"
)

// Error is a kind-classified error produced at an adapter or domain boundary.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a failure kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf is NewError with fmt.Errorf semantics.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from err, unwrapping as needed.
// Returns "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// StageError tags a failure with the pipeline stage it originated from.
// The stage name and kind surface to the caller verbatim.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
