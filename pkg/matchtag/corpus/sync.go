package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cognicore/matchtag/internal/logger"
)

// RemoteStore is the object store the corpus is mirrored from.
type RemoteStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, key, localPath string) error
	Upload(ctx context.Context, localPath, remoteKey string) error
}

// Syncer refreshes the local corpus folder from a remote prefix.
type Syncer struct {
	Store     RemoteStore
	Prefix    string
	Dir       string
	Freshness time.Duration
	Logger    logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// SyncResult describes one Sync call.
type SyncResult struct {
	Refreshed  bool
	Downloaded int
	Formatted  int
}

// Stale reports whether the local folder is missing, empty, or older than
// the freshness interval.
func (s *Syncer) Stale() (bool, error) {
	info, err := os.Stat(s.Dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	files, err := Files(s.Dir)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return true, nil
	}
	return s.now().Sub(info.ModTime()) > s.Freshness, nil
}

// Sync downloads the remote prefix when the local folder is stale and then
// formats the downloaded files. A fresh folder is left untouched.
func (s *Syncer) Sync(ctx context.Context) (SyncResult, error) {
	stale, err := s.Stale()
	if err != nil {
		return SyncResult{}, err
	}
	if !stale {
		s.log().Debug("Corpus is fresh", logger.String("dir", s.Dir))
		return SyncResult{}, nil
	}
	return s.Refresh(ctx)
}

// Refresh downloads and formats unconditionally.
func (s *Syncer) Refresh(ctx context.Context) (SyncResult, error) {
	start := s.now()
	n, err := DownloadDir(ctx, s.Store, s.Prefix, s.Dir)
	if err != nil {
		return SyncResult{}, err
	}
	formatted, err := FormatDir(s.Dir)
	if err != nil {
		return SyncResult{Refreshed: true, Downloaded: n}, err
	}
	now := s.now()
	if err := os.Chtimes(s.Dir, now, now); err != nil {
		return SyncResult{}, err
	}
	s.log().Info("Corpus refreshed",
		logger.String("prefix", s.Prefix),
		logger.Int("downloaded", n),
		logger.Int("formatted", formatted),
		logger.Duration("duration", now.Sub(start)))
	return SyncResult{Refreshed: true, Downloaded: n, Formatted: formatted}, nil
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Syncer) log() logger.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logger.NewNop()
}

// DownloadDir copies every object under the folder prefix into dir, keyed by
// the object key with the prefix removed. An empty prefix copies the whole
// bucket. It returns the number of objects fetched.
func DownloadDir(ctx context.Context, store RemoteStore, prefix, dir string) (int, error) {
	folder := strings.TrimSuffix(prefix, "/")
	if folder != "" {
		folder += "/"
	}
	keys, err := store.List(ctx, folder)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	n := 0
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			continue
		}
		rel := strings.TrimPrefix(key, folder)
		local := filepath.Join(dir, filepath.FromSlash(rel))
		if !strings.HasPrefix(local, filepath.Clean(dir)+string(filepath.Separator)) {
			return n, fmt.Errorf("object key %q escapes %s", key, dir)
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := store.Download(ctx, key, local); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
