// Package backup keeps point-in-time copies of the journal document.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"example.com/fitjournal/internal/domain"
	"example.com/fitjournal/internal/observability"
	"example.com/fitjournal/internal/persistence/jsonfile"
)

const (
	snapshotPrefix = "snapshot_"
	snapshotSuffix = ".json"
	runTimeout     = 30 * time.Second
)

// Loader reads the current document. The record store satisfies it, so snapshots never touch
// the document file directly.
type Loader interface {
	Load(ctx context.Context) (domain.Database, error)
}

// Snapshot is a stored copy of the document.
type Snapshot struct {
	Path     string
	TakenAt  time.Time
	Document domain.Database
}

// Snapshotter writes snapshots into dir and keeps the newest keep of them.
type Snapshotter struct {
	loader Loader
	dir    string
	keep   int
	logger *zap.Logger
	now    func() time.Time
}

// NewSnapshotter constructs a Snapshotter. keep values below one are treated as one.
func NewSnapshotter(loader Loader, dir string, keep int, logger *zap.Logger) *Snapshotter {
	if keep < 1 {
		keep = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{loader: loader, dir: dir, keep: keep, logger: logger, now: time.Now}
}

// RunOnce snapshots the current document and prunes old snapshots. It returns the new
// snapshot's path.
func (s *Snapshotter) RunOnce(ctx context.Context) (path string, err error) {
	takenAt := s.now().UTC()
	defer func() { observability.RecordBackup(takenAt, err) }()

	db, err := s.loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	data, err := jsonfile.Encode(db)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path = filepath.Join(s.dir, fmt.Sprintf("%s%d%s", snapshotPrefix, takenAt.UnixNano(), snapshotSuffix))
	if err := jsonfile.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	s.logger.Info("snapshot saved",
		zap.String("path", path),
		zap.Int("participants", db.Challenge.Participants),
	)

	if err := s.Cleanup(); err != nil {
		s.logger.Warn("snapshot cleanup failed", zap.Error(err))
	}
	return path, nil
}

// LoadLatest returns the newest snapshot, or nil when none exists.
func (s *Snapshotter) LoadLatest() (*Snapshot, error) {
	files, err := s.list()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	latest := files[0]
	data, err := os.ReadFile(latest.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	db, err := jsonfile.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", latest.path, err)
	}
	return &Snapshot{Path: latest.path, TakenAt: latest.takenAt, Document: db}, nil
}

// Cleanup removes all but the newest keep snapshots.
func (s *Snapshotter) Cleanup() error {
	files, err := s.list()
	if err != nil {
		return err
	}
	for _, file := range files[min(s.keep, len(files)):] {
		if err := os.Remove(file.path); err != nil {
			s.logger.Warn("failed to remove old snapshot", zap.String("path", file.path), zap.Error(err))
			continue
		}
		s.logger.Debug("removed old snapshot", zap.String("path", file.path))
	}
	return nil
}

// Schedule registers RunOnce on c with the given cron spec.
func (s *Snapshotter) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("scheduled snapshot failed", zap.Error(err))
		}
	})
}

type snapshotFile struct {
	path    string
	takenAt time.Time
}

// list returns snapshot files newest first.
func (s *Snapshotter) list() ([]snapshotFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	files := make([]snapshotFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		nanos, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, snapshotFile{
			path:    filepath.Join(s.dir, name),
			takenAt: time.Unix(0, nanos).UTC(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].takenAt.After(files[j].takenAt)
	})
	return files, nil
}
