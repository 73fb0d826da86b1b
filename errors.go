package obsdb

import "github.com/nimbuswx/obsdb/internal/obserr"

// Sentinel errors returned (wrapped with fmt.Errorf's %w) by this package
// and its sub-packages. Callers classify failures with errors.Is.
var (
	// ErrCacheUnavailable means the local cache file or its containing
	// directory could not be opened or created.
	ErrCacheUnavailable = obserr.ErrCacheUnavailable

	// ErrCacheIoError means an operation against an already-open cache
	// failed (a query, an insert, a transaction commit/rollback).
	ErrCacheIoError = obserr.ErrCacheIoError

	// ErrUpstreamFetchFailed means the remote HTTP feed could not be
	// reached, or returned a non-2xx status.
	ErrUpstreamFetchFailed = obserr.ErrUpstreamFetchFailed

	// ErrCsvParseFatal means the CSV body from the upstream feed could
	// not be tokenized at all (as opposed to a single malformed row,
	// which is skipped rather than treated as fatal).
	ErrCsvParseFatal = obserr.ErrCsvParseFatal

	// ErrWindowExplosion means the requested time range and window
	// parameters would require materializing an unreasonably large
	// number of aggregation windows.
	ErrWindowExplosion = obserr.ErrWindowExplosion
)

// PreconditionError reports a violated precondition on a function's
// arguments: a programmer error, not a runtime condition to recover
// from. Functions that detect one panic with a *PreconditionError
// rather than returning it as an error.
type PreconditionError struct {
	Func string
	Msg  string
}

func (e *PreconditionError) Error() string {
	return "obsdb: precondition violated in " + e.Func + ": " + e.Msg
}

func badArgument(fn, msg string) {
	panic(&PreconditionError{Func: fn, Msg: msg})
}
