package thumbs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lunio/internal/logger"
)

// Canceller mirrors internal/fsops.Canceller so internal/jobs.CancelRegistry
// can drive thumbnail cancellation too, without thumbs importing jobs.
type Canceller interface {
	IsCancelled(jobID string) bool
}

// Service coordinates the cache index, the priority scheduler, and a fixed
// worker pool (default 4) that renders thumbnails and maintains eviction.
type Service struct {
	log      *logger.Logger
	root     string
	index    *Index
	sched    *Scheduler
	renderer Renderer
	policy   EvictionPolicy
	cancel   Canceller
	nowUnix  func() int64

	results chan Result
}

// Open loads/creates the cache index under dataDir/runtime/thumbs and
// returns a Service ready to have Run started for it.
func Open(dataDir string, log *logger.Logger, renderer Renderer, policy EvictionPolicy, cancel Canceller, nowUnix func() int64) (*Service, error) {
	root := filepath.Join(dataDir, "runtime", "thumbs")
	idx, err := OpenIndex(root)
	if err != nil {
		return nil, err
	}
	return &Service{
		log:      log,
		root:     root,
		index:    idx,
		sched:    NewScheduler(),
		renderer: renderer,
		policy:   policy,
		cancel:   cancel,
		nowUnix:  nowUnix,
		results:  make(chan Result, 256),
	}, nil
}

// Results returns the channel every render outcome (including immediate
// cache hits) is published on.
func (s *Service) Results() <-chan Result { return s.results }

func (s *Service) publish(r Result) {
	select {
	case s.results <- r:
	default:
		s.log.Warn("thumbs: result channel full, dropping result for %s", r.SpecID)
	}
}

// Submit consults the cache index first: a valid hit (source mtime/size
// unchanged and the PNG still present) touches last_accessed and reports
// Completed immediately with no worker involvement. Otherwise the spec is
// enqueued and Queued is reported.
func (s *Service) Submit(spec Spec) {
	key := CacheKey(spec.Source.Path, spec.Size)

	if meta, ok := s.index.Get(key); ok {
		if s.validLocked(meta, spec.Source.Path) {
			s.index.Touch(key, s.nowUnix())
			s.publish(Result{SpecID: spec.ID, Status: StatusCompleted, PngPath: meta.PngPath})
			return
		}
	}

	s.sched.Push(spec)
	s.publish(Result{SpecID: spec.ID, Status: StatusQueued})
}

func (s *Service) validLocked(meta Meta, sourcePath string) bool {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return false
	}
	if info.ModTime().Unix() != meta.SourceMtime || info.Size() != meta.SourceSize {
		return false
	}
	if _, err := os.Stat(meta.PngPath); err != nil {
		return false
	}
	return true
}

// Run starts the fixed worker pool; each worker loops popping a spec
// (idling 25ms when the scheduler is empty) until ctx is cancelled.
func (s *Service) Run(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 4
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.workerLoop(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()
}

func (s *Service) workerLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		spec, ok := s.sched.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(25 * time.Millisecond):
			}
			continue
		}
		s.render(ctx, spec)
	}
}

func (s *Service) render(ctx context.Context, spec Spec) {
	if s.cancel != nil && s.cancel.IsCancelled(spec.ID) {
		s.publish(Result{SpecID: spec.ID, Status: StatusCancelled})
		return
	}

	s.publish(Result{SpecID: spec.ID, Status: StatusRunning})

	key := CacheKey(spec.Source.Path, spec.Size)
	pngPath := filepath.Join(s.root, key+".png")

	if _, err := os.Stat(pngPath); err == nil {
		s.finishExisting(spec, key, pngPath)
		return
	}

	if err := s.renderer.Render(ctx, spec.Source, spec.Size, pngPath); err != nil {
		if s.cancel != nil && s.cancel.IsCancelled(spec.ID) {
			s.publish(Result{SpecID: spec.ID, Status: StatusCancelled})
			return
		}
		s.publish(Result{SpecID: spec.ID, Status: StatusFailed, Reason: err.Error()})
		return
	}

	s.finishExisting(spec, key, pngPath)
}

func (s *Service) finishExisting(spec Spec, key, pngPath string) {
	info, err := os.Stat(spec.Source.Path)
	var mtime, size int64
	if err == nil {
		mtime, size = info.ModTime().Unix(), info.Size()
	}
	now := s.nowUnix()
	meta := Meta{
		SourcePath:   spec.Source.Path,
		SourceMtime:  mtime,
		SourceSize:   size,
		Size:         spec.Size,
		CacheKey:     key,
		PngPath:      pngPath,
		CreatedAt:    now,
		LastAccessed: now,
	}
	if err := s.index.Insert(meta); err != nil {
		s.log.Error("thumbs: failed to persist metadata for %s: %v", key, err)
	}
	if err := Evict(s.index, s.policy); err != nil {
		s.log.Error("thumbs: eviction pass failed: %v", err)
	}
	s.publish(Result{SpecID: spec.ID, Status: StatusCompleted, PngPath: pngPath})
}

// Close flushes and releases the cache index.
func (s *Service) Close() error {
	if err := s.index.Compact(); err != nil {
		return err
	}
	return s.index.Close()
}
