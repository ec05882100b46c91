/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package engineerr defines the sentinel error taxonomy extract/solve report to a caller,
// checked with errors.Is rather than type switches so a wrapped chain still classifies
// correctly.
package engineerr

/*****************************************************************************************************************/

import (
	"errors"
	"fmt"
)

/*****************************************************************************************************************/

var (
	// ErrInvalidInput: malformed pixel buffer, empty conv filter, zero dimensions, a
	// nonsensical scale band.
	ErrInvalidInput = errors.New("engine: invalid input")

	// ErrNoIndexes: no index files discoverable in any configured path.
	ErrNoIndexes = errors.New("engine: no indexes available")

	// ErrExtractionFailed: the background estimator or extractor returned a non-zero
	// internal status.
	ErrExtractionFailed = errors.New("engine: extraction failed")

	// ErrNoSolution: the full depth/scale ladder was exhausted without any candidate
	// crossing logratio_tosolve.
	ErrNoSolution = errors.New("engine: no solution found")

	// ErrCancelled: a cancel signal was observed before a solution crossed threshold.
	ErrCancelled = errors.New("engine: job was cancelled")

	// ErrTimedOut: the solve deadline elapsed.
	ErrTimedOut = errors.New("engine: job timed out")

	// ErrInternal: a violated invariant - a bug, not a caller mistake. Always wrapped in
	// an InternalError carrying a location string.
	ErrInternal = errors.New("engine: internal error")
)

/*****************************************************************************************************************/

// InternalError wraps ErrInternal with the location at which the invariant was violated,
// so a log line or bug report can point straight at the offending component.
type InternalError struct {
	Location string
	Err      error
}

/*****************************************************************************************************************/

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine: internal error at %s: %v", e.Location, e.Err)
	}

	return fmt.Sprintf("engine: internal error at %s", e.Location)
}

/*****************************************************************************************************************/

func (e *InternalError) Unwrap() error {
	return ErrInternal
}

/*****************************************************************************************************************/

// Internal constructs an InternalError for the given location, optionally wrapping a
// lower-level cause.
func Internal(location string, cause error) error {
	return &InternalError{Location: location, Err: cause}
}

/*****************************************************************************************************************/
