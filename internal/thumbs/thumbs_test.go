package thumbs

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"lunio/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{
		Level: logger.ERROR, LogDir: t.TempDir(), FileName: "thumbs.log",
		AsyncBufferSize: 16, BatchSize: 1, FlushInterval: 10,
	})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

type countingRenderer struct{ calls int32 }

func (r *countingRenderer) Render(ctx context.Context, source Source, size uint32, destPath string) error {
	atomic.AddInt32(&r.calls, 1)
	writePNGSized(destPath, int(size))
	return nil
}

func writePNGSized(path string, size int) {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	f, _ := os.Create(path)
	defer f.Close()
	png.Encode(f, img)
}

func drainResult(t *testing.T, s *Service, wantStatus StatusTag) Result {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-s.Results():
			if r.Status == wantStatus {
				return r
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", wantStatus)
		}
	}
}

func TestCacheKeyDeterministic(t *testing.T) {
	a := CacheKey("/a/b.png", 256)
	b := CacheKey("/a/b.png", 256)
	c := CacheKey("/a/b.png", 128)
	if a != b {
		t.Fatalf("expected same key for same inputs")
	}
	if a == c {
		t.Fatalf("expected different key for different size")
	}
}

func TestServiceCacheWarmth(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "img.png")
	writePNG(t, src, 512, 512)

	renderer := &countingRenderer{}
	clock := int64(1000)
	nowFn := func() int64 { return clock }

	svc, err := Open(dataDir, testLogger(t), renderer, DefaultEvictionPolicy(), nil, nowFn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx, 2)

	svc.Submit(Spec{ID: "job1", Source: Source{Kind: SourceImage, Path: src}, Size: 256})
	drainResult(t, svc, StatusQueued)
	r1 := drainResult(t, svc, StatusCompleted)
	if r1.PngPath == "" {
		t.Fatalf("expected png path on first completion")
	}
	if atomic.LoadInt32(&renderer.calls) != 1 {
		t.Fatalf("expected renderer called once, got %d", renderer.calls)
	}

	clock += 60
	svc.Submit(Spec{ID: "job2", Source: Source{Kind: SourceImage, Path: src}, Size: 256})
	r2 := drainResult(t, svc, StatusCompleted)
	if r2.PngPath != r1.PngPath {
		t.Fatalf("expected cache hit to reuse path %s, got %s", r1.PngPath, r2.PngPath)
	}
	if atomic.LoadInt32(&renderer.calls) != 1 {
		t.Fatalf("expected renderer NOT called again on cache hit, got %d calls", renderer.calls)
	}

	key := CacheKey(src, 256)
	meta, ok := svc.index.Get(key)
	if !ok {
		t.Fatalf("expected metadata entry for cache hit")
	}
	if meta.LastAccessed != clock {
		t.Fatalf("expected last_accessed advanced to %d, got %d", clock, meta.LastAccessed)
	}
}

func TestEvictionRemovesOldestFirst(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndex(dir)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer idx.Close()

	for i, key := range []string{"old", "mid", "new"} {
		path := filepath.Join(dir, key+".png")
		writePNGSized(path, 8)
		idx.Insert(Meta{CacheKey: key, PngPath: path, LastAccessed: int64(i)})
	}

	if err := Evict(idx, EvictionPolicy{MaxBytes: 1 << 30, MaxEntries: 2}); err != nil {
		t.Fatalf("Evict: %v", err)
	}

	if _, ok := idx.Get("old"); ok {
		t.Fatalf("expected oldest entry evicted")
	}
	if _, ok := idx.Get("new"); !ok {
		t.Fatalf("expected newest entry retained")
	}
}
