package memledger

import (
	"context"
	"testing"
	"time"

	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

func TestLedgerBasic(t *testing.T) {
	ctx := context.Background()
	l := New()

	ok, err := l.Contains(ctx, "a")
	if err != nil || ok {
		t.Fatalf("Contains on empty ledger = %v, %v", ok, err)
	}

	at := time.Date(2021, 5, 25, 12, 0, 0, 0, time.UTC)
	if err := l.Put(ctx, "b", at); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := l.Put(ctx, "a", at); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if n, _ := l.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
	entries, _ := l.Entries(ctx)
	if len(entries) != 2 || entries[0].ID != "a" || entries[1].ID != "b" {
		t.Errorf("Entries not ordered by id: %+v", entries)
	}

	got, found, _ := l.Get(ctx, "a")
	if !found || !got.Equal(at) {
		t.Errorf("Get = %v, %v", got, found)
	}

	if err := l.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := l.Remove(ctx, "a"); err != internalerr.ErrNotFound {
		t.Errorf("second Remove = %v, want ErrNotFound", err)
	}
}

func TestLedgerFailures(t *testing.T) {
	ctx := context.Background()
	l := New()

	for want := 1; want <= 3; want++ {
		n, err := l.RecordFailure(ctx, "x", "missing text")
		if err != nil || n != want {
			t.Fatalf("RecordFailure = %d, %v; want %d", n, err, want)
		}
	}
	if err := l.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := l.Failures(ctx, "x"); n != 0 {
		t.Errorf("Failures after Reset = %d", n)
	}
}

func TestRemoveForgetsFailures(t *testing.T) {
	ctx := context.Background()
	l := New()
	if _, err := l.RecordFailure(ctx, "dead", "timeout"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if err := l.Remove(ctx, "dead"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if n, _ := l.Failures(ctx, "dead"); n != 0 {
		t.Errorf("Failures after Remove = %d, want 0", n)
	}
}
