// Package obserr holds the sentinel errors shared between the obsdb
// root package and its sub-packages, so that store, fetch, ingest and
// aggregate can all wrap the same error values the caller-facing
// obsdb package re-exports. It exists only to avoid an import cycle
// between those sub-packages and the root package.
package obserr

import "errors"

var (
	// ErrCacheUnavailable means the local cache file or its containing
	// directory could not be opened or created.
	ErrCacheUnavailable = errors.New("obsdb: cache unavailable")

	// ErrCacheIoError means an operation against an already-open cache
	// failed (a query, an insert, a transaction commit/rollback).
	ErrCacheIoError = errors.New("obsdb: cache io error")

	// ErrUpstreamFetchFailed means the remote HTTP feed could not be
	// reached, or returned a non-2xx status.
	ErrUpstreamFetchFailed = errors.New("obsdb: upstream fetch failed")

	// ErrCsvParseFatal means the CSV body from the upstream feed could
	// not be tokenized at all.
	ErrCsvParseFatal = errors.New("obsdb: csv parse fatal")

	// ErrWindowExplosion means the requested time range and window
	// parameters would require an unreasonable number of windows.
	ErrWindowExplosion = errors.New("obsdb: window explosion")
)
