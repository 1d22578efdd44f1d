// Package source supplies snapshots of the order event log to the stats
// pipeline. Every implementation returns the full log; an empty log is a
// valid snapshot, while a log that cannot be read at all is reported with
// ErrSourceUnavailable.
package source

import (
	"context"
	"errors"

	"deliverystats/internal/stats"
)

var (
	// ErrSourceUnavailable wraps every failure to obtain a snapshot.
	ErrSourceUnavailable = errors.New("event source unavailable")
	// ErrSchemaMismatch marks input whose columns cannot be mapped to RawEvent.
	ErrSchemaMismatch = errors.New("event log schema mismatch")
)

// Source loads the whole event log.
type Source interface {
	Load(ctx context.Context) ([]stats.RawEvent, error)
}

// Func adapts a plain function to Source.
type Func func(ctx context.Context) ([]stats.RawEvent, error)

func (f Func) Load(ctx context.Context) ([]stats.RawEvent, error) { return f(ctx) }
