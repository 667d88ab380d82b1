package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/bep/debounce"

	"lunio/internal/index"
	"lunio/internal/logger"
)

// Service runs a Backend, debounces its raw events through a per-path pump,
// and ingests the result into an index.Service: on Created/Modified it
// re-stats the path and upserts; on Deleted it removes. New directories
// discovered via Created are added to the backend so fsnotify's
// non-recursive watch still covers the whole subtree.
type Service struct {
	backend Backend
	idx     *index.Service
	log     *logger.Logger
	window  time.Duration

	compactDebounced func(func())
	onEvent          func(WatchEvent)
}

// Option customizes a Service at construction.
type Option func(*Service)

// WithEventHook registers a callback invoked for every debounced event
// after it has been ingested, e.g. to broadcast a wire FileChangeEvent.
func WithEventHook(fn func(WatchEvent)) Option {
	return func(s *Service) { s.onEvent = fn }
}

func NewService(backend Backend, idx *index.Service, log *logger.Logger, debounceWindow time.Duration, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		idx:     idx,
		log:     log,
		window:  debounceWindow,
	}
	// Index compaction is expensive relative to a single upsert, so bursts
	// of watch activity coalesce into one compaction 5s after they quiet
	// down rather than one per event.
	s.compactDebounced = debounce.New(5 * time.Second)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddRoot starts watching root and every existing subdirectory beneath it.
func (s *Service) AddRoot(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if werr := s.backend.Watch(path); werr != nil && s.log != nil {
				s.log.Warn("watch: failed to watch %s: %v", path, werr)
			}
		}
		return nil
	})
}

// Run drives the backend and the debounce pump until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	raw := make(chan RawEvent, 256)
	pump := newPump(s.window)

	errc := make(chan error, 1)
	go func() { errc <- s.backend.Run(ctx, raw) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errc:
			return err

		case ev := <-raw:
			if len(ev.Paths) == 0 {
				continue
			}
			path := ev.Paths[0]
			kind, ok := rawKindToWatchKind(ev.Kind)
			if !ok {
				continue
			}
			if !pump.admit(path, time.Now()) {
				continue
			}
			s.ingest(WatchEvent{Kind: kind, Path: path})
		}
	}
}

func (s *Service) ingest(ev WatchEvent) {
	switch ev.Kind {
	case Created, Modified:
		info, err := os.Lstat(ev.Path)
		if err != nil {
			// Raced with a fast delete; treat as removal.
			s.idx.Remove(ev.Path)
			return
		}
		if info.IsDir() {
			if err := s.backend.Watch(ev.Path); err != nil && s.log != nil {
				s.log.Warn("watch: failed to watch new dir %s: %v", ev.Path, err)
			}
		}
		if _, err := s.idx.Upsert(ev.Path, info); err != nil && s.log != nil {
			s.log.Warn("watch: upsert %s: %v", ev.Path, err)
		}

	case Deleted:
		s.backend.Unwatch(ev.Path)
		s.idx.Remove(ev.Path)
	}

	s.compactDebounced(func() {
		if err := s.idx.Compact(); err != nil && s.log != nil {
			s.log.Warn("watch: index compaction failed: %v", err)
		}
	})

	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
