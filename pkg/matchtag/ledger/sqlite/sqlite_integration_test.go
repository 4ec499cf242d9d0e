package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "processed.db")
	st, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, path
}

func TestLedgerContainsBeforeWrite(t *testing.T) {
	st, _ := openTemp(t)

	ok, err := st.Contains(context.Background(), "never-written")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLedgerPutGetRemove(t *testing.T) {
	ctx := context.Background()
	st, _ := openTemp(t)

	cph, err := time.LoadLocation("Europe/Copenhagen")
	require.NoError(t, err)
	at := time.Date(2021, 5, 25, 14, 3, 7, 500, cph)

	require.NoError(t, st.Put(ctx, "7959b857", at))

	ok, err := st.Contains(ctx, "7959b857")
	require.NoError(t, err)
	assert.True(t, ok)

	got, found, err := st.Get(ctx, "7959b857")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Equal(at), "got %v want %v", got, at)

	// Upsert replaces the timestamp, never duplicates the key.
	later := at.Add(time.Hour)
	require.NoError(t, st.Put(ctx, "7959b857", later))
	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, st.Remove(ctx, "7959b857"))
	assert.ErrorIs(t, st.Remove(ctx, "7959b857"), internalerr.ErrNotFound)
}

func TestLedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed.db")

	st, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, "a", time.Now()))
	require.NoError(t, st.Put(ctx, "b", time.Now()))
	require.NoError(t, st.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
	assert.False(t, entries[0].ProcessedAt.IsZero())
}

func TestLedgerReset(t *testing.T) {
	ctx := context.Background()
	st, _ := openTemp(t)

	require.NoError(t, st.Put(ctx, "a", time.Now()))
	_, err := st.RecordFailure(ctx, "b", "missing text")
	require.NoError(t, err)

	require.NoError(t, st.Reset(ctx))

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	f, err := st.Failures(ctx, "b")
	require.NoError(t, err)
	assert.Zero(t, f)
}

func TestLedgerFailureCounting(t *testing.T) {
	ctx := context.Background()
	st, _ := openTemp(t)

	for want := 1; want <= 3; want++ {
		got, err := st.RecordFailure(ctx, "x", "missing field \"text\"")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Success clears the failure history.
	require.NoError(t, st.Put(ctx, "x", time.Now()))
	f, err := st.Failures(ctx, "x")
	require.NoError(t, err)
	assert.Zero(t, f)
}

func TestLedgerRemoveForgetsFailures(t *testing.T) {
	ctx := context.Background()
	st, _ := openTemp(t)

	_, err := st.RecordFailure(ctx, "dead", "timeout")
	require.NoError(t, err)
	require.NoError(t, st.Remove(ctx, "dead"))

	f, err := st.Failures(ctx, "dead")
	require.NoError(t, err)
	assert.Zero(t, f)
	assert.ErrorIs(t, st.Remove(ctx, "dead"), internalerr.ErrNotFound)
}

func TestLedgerConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed.db")

	first, err := Open(ctx, path)
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	var wg sync.WaitGroup
	for _, st := range []*Store{first, second} {
		wg.Add(1)
		go func(st *Store) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				assert.NoError(t, st.Put(ctx, "shared", time.Now()))
			}
		}(st)
	}
	wg.Wait()

	n, err := first.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
