// Package ledger defines the processed-set ledger: the durable record of
// which article ids have completed tagging.
package ledger

import (
	"context"
	"time"
)

// Ledger is a durable set keyed by article id. It is the single source of
// truth for whether an article is skipped or processed.
type Ledger interface {
	// Contains reports whether a prior run recorded id.
	Contains(ctx context.Context, id string) (bool, error)
	// Get returns the completion time recorded for id.
	Get(ctx context.Context, id string) (time.Time, bool, error)
	// Put records completion. The write is committed before Put returns.
	Put(ctx context.Context, id string, at time.Time) error
	// Remove un-marks id and forgets its failed attempts. Removing an id
	// with neither returns internalerr.ErrNotFound.
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// Entries enumerates every recorded id ordered by key.
	Entries(ctx context.Context) ([]Entry, error)
	// Reset deletes every entry.
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Entry is one ledger row.
type Entry struct {
	ID          string    `json:"id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// FailureTracker counts failed tagging attempts per article. Ledgers that
// implement it enable dead-lettering of articles that keep failing.
type FailureTracker interface {
	// RecordFailure increments the attempt counter for id and returns the new count.
	RecordFailure(ctx context.Context, id, reason string) (int, error)
	Failures(ctx context.Context, id string) (int, error)
}
