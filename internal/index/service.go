package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"lunio/internal/fileid"
	"lunio/internal/logger"
)

// Service owns a Store and its Persistence, and is the only component that
// mutates the index: watcher ingestion and scan jobs both go through it so
// every mutation is journaled.
type Service struct {
	store *Store
	pers  *Persistence
	log   *logger.Logger

	scanSem *semaphore.Weighted
}

// Open loads or creates the index under dataDir and returns a ready Service.
func Open(dataDir string, log *logger.Logger, scanConcurrency int64) (*Service, error) {
	pers, store, err := OpenPersistence(dataDir)
	if err != nil {
		return nil, err
	}
	if scanConcurrency <= 0 {
		scanConcurrency = 4
	}
	return &Service{store: store, pers: pers, log: log, scanSem: semaphore.NewWeighted(scanConcurrency)}, nil
}

// Store exposes the underlying catalog for read-only query evaluation.
func (s *Service) Store() *Store { return s.store }

// Upsert ingests fresh filesystem metadata for path: derives its FileId,
// builds a FileRecord, upserts it into the store, and journals the change.
func (s *Service) Upsert(path string, info fs.FileInfo) (FileRecord, error) {
	isSymlink := info.Mode()&os.ModeSymlink != 0
	id, err := fileid.Derive(path, info)
	if err != nil {
		return FileRecord{}, err
	}
	record := NewRecord(id, path, info.IsDir(), isSymlink, info.Size(), info.ModTime().Unix())
	record = s.store.Upsert(record)
	if err := s.pers.RecordUpsert(record); err != nil {
		return record, err
	}
	return record, nil
}

// Remove tombstones path, if present.
func (s *Service) Remove(path string) (FileRecord, bool, error) {
	record, ok := s.store.RemoveByPath(path)
	if !ok {
		return FileRecord{}, false, nil
	}
	if err := s.pers.RecordDelete(record.ID); err != nil {
		return record, true, err
	}
	return record, true, nil
}

// Compact re-saves the snapshot and truncates the journal.
func (s *Service) Compact() error {
	return s.pers.Compact(s.store)
}

// Close releases the journal handle.
func (s *Service) Close() error {
	return s.pers.Close()
}

// Scan walks root and upserts every entry it finds. Immediate subtrees of
// root are walked concurrently, bounded by the Service's scan semaphore, so
// a root with many top-level directories doesn't serialize on disk I/O.
func (s *Service) Scan(ctx context.Context, root string) (int, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return 0, err
	}
	var count int64
	if _, err := s.Upsert(root, info); err != nil {
		return 0, err
	}
	count++

	entries, err := os.ReadDir(root)
	if err != nil {
		return int(count), err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		entry := entry
		child := filepath.Join(root, entry.Name())
		if err := s.scanSem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer s.scanSem.Release(1)
			n, err := s.walkSubtree(gctx, child)
			atomic.AddInt64(&count, int64(n))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return int(count), err
	}
	return int(count), nil
}

func (s *Service) walkSubtree(ctx context.Context, root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if s.log != nil {
				s.log.Warn("index scan: skipping %s: %v", path, err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if _, err := s.Upsert(path, info); err != nil {
			if s.log != nil {
				s.log.Warn("index scan: upsert %s: %v", path, err)
			}
			return nil
		}
		count++
		return nil
	})
	return count, err
}
