// Package matchtag drives idempotent tagging runs over a corpus of match
// reports: every unseen article is tagged, appended to the output log and
// then marked in the processed-set ledger.
package matchtag

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/matchtag/internal/logger"
	"github.com/cognicore/matchtag/internal/telemetry"
	"github.com/cognicore/matchtag/pkg/matchtag/article"
	"github.com/cognicore/matchtag/pkg/matchtag/corpus"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
	"github.com/cognicore/matchtag/pkg/matchtag/ledger"
	"github.com/cognicore/matchtag/pkg/matchtag/tagger"
)

// OutputLog is the durable destination of tagged articles.
type OutputLog interface {
	// Append writes a and flushes it to stable storage before returning.
	Append(a article.Tagged) error
	Path() string
}

// Syncer refreshes the local corpus before a run.
type Syncer interface {
	Sync(ctx context.Context) (corpus.SyncResult, error)
}

// Uploader ships the output log to remote storage.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteKey string) error
}

// Options configures a Driver.
type Options struct {
	Ledger ledger.Ledger
	Output OutputLog
	Tagger tagger.Tagger
	// CorpusPath is a corpus file or a directory of *.jl files.
	CorpusPath string

	// Syncer and Uploader are optional.
	Syncer    Syncer
	Uploader  Uploader
	UploadKey string

	Logger  logger.Logger
	Metrics *telemetry.Provider
	// Location is the zone ledger timestamps are recorded in.
	Location *time.Location
	Now      func() time.Time
	// MaxAttempts dead-letters an article after that many failed tagging
	// attempts. Zero retries failing articles on every run. Requires a
	// ledger that implements ledger.FailureTracker.
	MaxAttempts int
}

// Driver runs tagging batches. Concurrent calls to Run on one Driver are
// serialized; runs in other processes are serialized by the ledger.
type Driver struct {
	mu      sync.Mutex
	opts    Options
	log     logger.Logger
	entropy *ulid.MonotonicEntropy
}

// New creates a Driver.
func New(opts Options) (*Driver, error) {
	if opts.Ledger == nil || opts.Output == nil || opts.Tagger == nil {
		return nil, fmt.Errorf("driver: ledger, output log and tagger are required: %w", internalerr.ErrInvalidConfig)
	}
	if opts.CorpusPath == "" {
		return nil, fmt.Errorf("driver: corpus path is required: %w", internalerr.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.UploadKey == "" {
		opts.UploadKey = opts.Output.Path()
	}
	return &Driver{
		opts:    opts,
		log:     opts.Logger,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// ArticleFailure is an article left unprocessed by a run.
type ArticleFailure struct {
	ID       string `json:"id"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts,omitempty"`
}

// Result summarizes a run.
type Result struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Refreshed bool          `json:"refreshed"`
	SyncError string        `json:"sync_error,omitempty"`

	Seen         int              `json:"seen"`
	Skipped      int              `json:"skipped"`
	Processed    int              `json:"processed"`
	Failed       []ArticleFailure `json:"failed"`
	DeadLettered []string         `json:"dead_lettered,omitempty"`

	Uploaded    bool   `json:"uploaded"`
	UploadError string `json:"upload_error,omitempty"`
}

// Run processes every unseen article of the corpus once. Per-article
// tagging failures are isolated and reported in the result; ledger, output
// log and alignment failures abort the run and are returned.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := Result{
		RunID:     ulid.MustNew(ulid.Now(), d.entropy).String(),
		StartedAt: d.opts.Now(),
		Failed:    []ArticleFailure{},
	}
	log := d.log.With(logger.String("run_id", res.RunID))
	log.Info("Run started", logger.String("corpus", d.opts.CorpusPath))

	err := d.run(ctx, log, &res)
	res.Duration = d.opts.Now().Sub(res.StartedAt)

	count, cerr := d.opts.Ledger.Count(ctx)
	if cerr != nil {
		count = -1
	}
	d.opts.Metrics.RecordRun(err, res.Duration, count)

	if err != nil {
		log.Error("Run aborted",
			logger.Error(err),
			logger.Int("processed", res.Processed),
			logger.Int("skipped", res.Skipped))
		return res, err
	}
	log.Info("Run finished",
		logger.Int("seen", res.Seen),
		logger.Int("skipped", res.Skipped),
		logger.Int("processed", res.Processed),
		logger.Int("failed", len(res.Failed)),
		logger.Bool("uploaded", res.Uploaded),
		logger.Duration("duration", res.Duration))
	return res, nil
}

func (d *Driver) run(ctx context.Context, log logger.Logger, res *Result) error {
	if d.opts.Syncer != nil {
		sr, err := d.opts.Syncer.Sync(ctx)
		if err != nil {
			// A failed refresh leaves the local corpus as it was.
			res.SyncError = err.Error()
			log.Warn("Corpus refresh failed, using local corpus", logger.Error(err))
		} else if sr.Refreshed {
			res.Refreshed = true
			d.opts.Metrics.RecordRefresh()
		}
	}

	records, err := corpus.Load(d.opts.CorpusPath)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.process(ctx, log, records[i], res); err != nil {
			return err
		}
	}

	if d.opts.Uploader != nil {
		uploaded, err := d.upload(ctx, log)
		if err != nil {
			res.UploadError = err.Error()
		}
		res.Uploaded = uploaded
	}
	return nil
}

// process moves one article through Unseen, Tagging, Persisted and Marked.
func (d *Driver) process(ctx context.Context, log logger.Logger, rec article.Record, res *Result) error {
	res.Seen++
	if _, err := article.Prepare(&rec); err != nil {
		return fmt.Errorf("article %d: %w", res.Seen, err)
	}
	id := rec.ID()

	done, err := d.opts.Ledger.Contains(ctx, id)
	if err != nil {
		return fmt.Errorf("ledger lookup %s: %w", id, err)
	}
	if done {
		res.Skipped++
		d.opts.Metrics.RecordArticle(telemetry.OutcomeSkipped, 0)
		return nil
	}

	tracker, tracked := d.opts.Ledger.(ledger.FailureTracker)
	if d.opts.MaxAttempts > 0 && tracked {
		attempts, err := tracker.Failures(ctx, id)
		if err != nil {
			return fmt.Errorf("ledger failures %s: %w", id, err)
		}
		if attempts >= d.opts.MaxAttempts {
			res.DeadLettered = append(res.DeadLettered, id)
			d.opts.Metrics.RecordArticle(telemetry.OutcomeDeadLettered, 0)
			log.Debug("Skipping dead-lettered article",
				logger.String("article_id", id),
				logger.Int("attempts", attempts))
			return nil
		}
	}

	start := d.opts.Now()
	tagged, err := d.opts.Tagger.Tag(ctx, rec)
	if err != nil {
		if errors.Is(err, internalerr.ErrAlignment) {
			return fmt.Errorf("tag %s: %w", id, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		failure := ArticleFailure{ID: id, Error: err.Error()}
		if tracked {
			n, terr := tracker.RecordFailure(ctx, id, err.Error())
			if terr != nil {
				return fmt.Errorf("record failure %s: %w", id, terr)
			}
			failure.Attempts = n
		}
		res.Failed = append(res.Failed, failure)
		d.opts.Metrics.RecordArticle(telemetry.OutcomeFailed, 0)
		log.Warn("Article not tagged",
			logger.String("article_id", id),
			logger.Error(err))
		return nil
	}
	elapsed := d.opts.Now().Sub(start)

	if err := d.opts.Output.Append(tagged); err != nil {
		return fmt.Errorf("persist %s: %w", id, err)
	}
	if err := d.opts.Ledger.Put(ctx, id, d.opts.Now().In(d.opts.Location)); err != nil {
		log.Error("Ledger write failed",
			logger.String("article_id", id),
			logger.Error(err))
		return fmt.Errorf("mark %s: %w", id, err)
	}

	res.Processed++
	d.opts.Metrics.RecordArticle(telemetry.OutcomeProcessed, elapsed)
	log.Debug("Article tagged",
		logger.String("article_id", id),
		logger.Int("sentences", len(tagged.Sentences)))
	return nil
}

// Upload ships the output log without processing anything. It is the
// recovery path for runs whose upload failed.
func (d *Driver) Upload(ctx context.Context) error {
	if d.opts.Uploader == nil {
		return fmt.Errorf("driver: no uploader configured: %w", internalerr.ErrInvalidConfig)
	}
	_, err := d.upload(ctx, d.log)
	return err
}

func (d *Driver) upload(ctx context.Context, log logger.Logger) (bool, error) {
	path := d.opts.Output.Path()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			log.Debug("No output log to upload", logger.String("path", path))
			return false, nil
		}
		return false, err
	}
	err := d.opts.Uploader.Upload(ctx, path, d.opts.UploadKey)
	d.opts.Metrics.RecordUpload(err)
	if err != nil {
		log.Warn("Output log upload failed",
			logger.String("key", d.opts.UploadKey),
			logger.Error(err))
		return false, err
	}
	log.Info("Output log uploaded", logger.String("key", d.opts.UploadKey))
	return true, nil
}
