package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lunio/internal/index"
)

type fakeBackend struct {
	events chan RawEvent
}

func newFakeBackend() *fakeBackend { return &fakeBackend{events: make(chan RawEvent, 64)} }

func (f *fakeBackend) Watch(string) error   { return nil }
func (f *fakeBackend) Unwatch(string) error { return nil }
func (f *fakeBackend) Run(ctx context.Context, out chan<- RawEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-f.events:
			out <- ev
		}
	}
}

func TestPumpThrottlesWithinWindow(t *testing.T) {
	p := newPump(250 * time.Millisecond)
	now := time.Now()
	if !p.admit("/r/x.txt", now) {
		t.Fatalf("first event should be admitted")
	}
	if p.admit("/r/x.txt", now.Add(100*time.Millisecond)) {
		t.Fatalf("event within window should be throttled")
	}
	if !p.admit("/r/x.txt", now.Add(300*time.Millisecond)) {
		t.Fatalf("event after window should be admitted")
	}
}

func TestServiceIngestsCreateModifyDelete(t *testing.T) {
	root := t.TempDir()
	dataDir := t.TempDir()

	idx, err := index.Open(dataDir, nil, 2)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	defer idx.Close()

	backend := newFakeBackend()
	svc := NewService(backend, idx, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	path := filepath.Join(root, "x.txt")
	os.WriteFile(path, []byte("hello"), 0644)
	backend.events <- RawEvent{Kind: RawCreate, Paths: []string{path}}

	deadline := time.After(2 * time.Second)
	for {
		if r, ok := idx.Store().GetByPath(path); ok && r.Name == "x.txt" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for create ingestion")
		case <-time.After(10 * time.Millisecond):
		}
	}

	time.Sleep(20 * time.Millisecond) // clear debounce window
	os.WriteFile(path, []byte("hello world"), 0644)
	backend.events <- RawEvent{Kind: RawModify, Paths: []string{path}}

	deadline = time.After(2 * time.Second)
	for {
		if r, ok := idx.Store().GetByPath(path); ok && r.Generation == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for modify ingestion")
		case <-time.After(10 * time.Millisecond):
		}
	}

	time.Sleep(20 * time.Millisecond)
	os.Remove(path)
	backend.events <- RawEvent{Kind: RawDelete, Paths: []string{path}}

	deadline = time.After(2 * time.Second)
	for {
		if _, ok := idx.Store().GetByPath(path); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for delete ingestion")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
