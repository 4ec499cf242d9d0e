// Package memledger is an in-memory ledger for tests and dry runs.
package memledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
	"github.com/cognicore/matchtag/pkg/matchtag/ledger"
)

// Ledger is an in-memory implementation of ledger.Ledger and
// ledger.FailureTracker.
type Ledger struct {
	mu       sync.RWMutex
	entries  map[string]time.Time
	failures map[string]int
	// PutErr, when set, is returned by every Put. Used to simulate a
	// durability failure.
	PutErr error
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		entries:  make(map[string]time.Time),
		failures: make(map[string]int),
	}
}

func (l *Ledger) Contains(_ context.Context, id string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[id]
	return ok, nil
}

func (l *Ledger) Get(_ context.Context, id string) (time.Time, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	at, ok := l.entries[id]
	return at, ok, nil
}

func (l *Ledger) Put(_ context.Context, id string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.PutErr != nil {
		return l.PutErr
	}
	l.entries[id] = at
	return nil
}

func (l *Ledger) Remove(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, marked := l.entries[id]
	_, failed := l.failures[id]
	if !marked && !failed {
		return internalerr.ErrNotFound
	}
	delete(l.entries, id)
	delete(l.failures, id)
	return nil
}

func (l *Ledger) Count(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

func (l *Ledger) Entries(_ context.Context) ([]ledger.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ledger.Entry, 0, len(l.entries))
	for id, at := range l.entries {
		out = append(out, ledger.Entry{ID: id, ProcessedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *Ledger) Reset(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]time.Time)
	l.failures = make(map[string]int)
	return nil
}

func (l *Ledger) Ping(context.Context) error { return nil }

func (l *Ledger) Close() error { return nil }

func (l *Ledger) RecordFailure(_ context.Context, id, _ string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[id]++
	return l.failures[id], nil
}

func (l *Ledger) Failures(_ context.Context, id string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.failures[id], nil
}
