package reader

import (
	"errors"
	"fmt"
)

// ErrNotImplemented signals a missing required source capability, a
// programming error in the concrete source rather than a remote failure.
var ErrNotImplemented = errors.New("not implemented by source")

// RemoteDataError reports a request that exhausted its retries, a batch
// with zero successes, or a failed combination step.
type RemoteDataError struct {
	// URL is the fully-encoded request URL, set on per-request failures.
	URL string
	// LastResponse holds the last non-success response body, when one was
	// captured.
	LastResponse string
	// Source names the source, set on batch-level failures.
	Source string
	// Err is the underlying cause, if any.
	Err error
}

func (e *RemoteDataError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("no data fetched using %s", e.Source)
	}
	msg := "unable to read URL: " + e.URL
	if e.LastResponse != "" {
		msg += "\nresponse text:\n" + e.LastResponse
	}
	return msg
}

func (e *RemoteDataError) Unwrap() error { return e.Err }

// NoDataError reports a response whose sanitized body was empty.
type NoDataError struct {
	Source string
	URL    string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s request returned no data; check URL for invalid inputs: %s", e.Source, e.URL)
}

// SymbolFailure records one symbol a batch read could not fetch.
type SymbolFailure struct {
	Symbol string
	Err    error
}

func (f SymbolFailure) Error() string {
	return fmt.Sprintf("failed to read symbol %q: %v", f.Symbol, f.Err)
}

func (f SymbolFailure) Unwrap() error { return f.Err }
