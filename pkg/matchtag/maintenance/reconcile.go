// Package maintenance checks and repairs agreement between the processed-set
// ledger and the output log.
package maintenance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cognicore/matchtag/internal/logger"
	"github.com/cognicore/matchtag/pkg/matchtag/ledger"
	"github.com/cognicore/matchtag/pkg/matchtag/outlog"
)

// Reconciler compares a ledger with an output log.
type Reconciler struct {
	Ledger     ledger.Ledger
	OutputPath string
	Logger     logger.Logger
	// Now stamps ledger entries written by Repair. Defaults to time.Now.
	Now func() time.Time
}

// Report describes the disagreement between ledger and output log.
type Report struct {
	LedgerEntries  int `json:"ledger_entries"`
	OutputArticles int `json:"output_articles"`
	OutputLines    int `json:"output_lines"`
	// MarkedNotPersisted ids are in the ledger but missing from the output
	// log. They will never be redone unless un-marked.
	MarkedNotPersisted []string `json:"marked_not_persisted"`
	// PersistedNotMarked ids reached the output log but not the ledger,
	// typically after a crash between the two writes. The next run tags
	// them again and appends a duplicate.
	PersistedNotMarked []string `json:"persisted_not_marked"`
	// Unidentified counts output lines and ledger entries with an empty id.
	// They are reported but never repaired.
	Unidentified int `json:"unidentified,omitempty"`
	// Unmarked and Marked count the changes made by Repair.
	Unmarked int `json:"unmarked"`
	Marked   int `json:"marked"`
}

// Consistent reports whether every ledger entry has an output log entry and
// vice versa.
func (r Report) Consistent() bool {
	return len(r.MarkedNotPersisted) == 0 && len(r.PersistedNotMarked) == 0
}

// Check compares both stores without changing either.
func (c *Reconciler) Check(ctx context.Context) (Report, error) {
	var rep Report
	if c.Ledger == nil || c.OutputPath == "" {
		return rep, errors.New("reconciler: invalid configuration")
	}

	entries, err := c.Ledger.Entries(ctx)
	if err != nil {
		return rep, fmt.Errorf("read ledger: %w", err)
	}
	logged, err := outlog.Read(c.OutputPath)
	if err != nil {
		return rep, fmt.Errorf("read output log: %w", err)
	}

	persisted := make(map[string]struct{}, len(logged))
	for _, a := range logged {
		if a.ID() == "" {
			rep.Unidentified++
			continue
		}
		persisted[a.ID()] = struct{}{}
	}
	marked := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			rep.Unidentified++
			continue
		}
		marked[e.ID] = struct{}{}
		if _, ok := persisted[e.ID]; !ok {
			rep.MarkedNotPersisted = append(rep.MarkedNotPersisted, e.ID)
		}
	}
	for id := range persisted {
		if _, ok := marked[id]; !ok {
			rep.PersistedNotMarked = append(rep.PersistedNotMarked, id)
		}
	}
	sort.Strings(rep.PersistedNotMarked)

	rep.LedgerEntries = len(entries)
	rep.OutputArticles = len(persisted)
	rep.OutputLines = len(logged)
	return rep, nil
}

// Repair un-marks ledger entries missing from the output log, so the next
// run redoes them, and marks articles that are already in the output log,
// so the next run does not duplicate them. Entries without an id are left
// alone.
//
// Repair is an operator action. It edits the ledger outside a run and must
// not be called while a driver is processing the same ledger.
func (c *Reconciler) Repair(ctx context.Context) (Report, error) {
	rep, err := c.Check(ctx)
	if err != nil {
		return rep, err
	}
	for _, id := range rep.MarkedNotPersisted {
		if err := c.Ledger.Remove(ctx, id); err != nil {
			return rep, fmt.Errorf("unmark %s: %w", id, err)
		}
		rep.Unmarked++
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	for _, id := range rep.PersistedNotMarked {
		if err := c.Ledger.Put(ctx, id, now()); err != nil {
			return rep, fmt.Errorf("mark %s: %w", id, err)
		}
		rep.Marked++
	}
	c.log().Info("Ledger reconciled",
		logger.Int("unmarked", rep.Unmarked),
		logger.Int("marked", rep.Marked))
	return rep, nil
}

func (c *Reconciler) log() logger.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logger.NewNop()
}

// CompactOutput rewrites the output log keeping the last entry per article
// and returns the number of lines dropped. No writer may have the log open.
func CompactOutput(path string) (int, error) {
	entries, err := outlog.Read(path)
	if err != nil {
		return 0, err
	}
	kept := outlog.Dedup(entries)
	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, a := range kept {
		line, err := a.MarshalJSON()
		if err != nil {
			tmp.Close()
			return 0, err
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return removed, nil
}
