package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lunio/internal/index"
	"lunio/internal/jobs"
	"lunio/internal/logger"
	"lunio/internal/wire"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{
		Level: logger.ERROR, LogDir: t.TempDir(), FileName: "admin.log",
		AsyncBufferSize: 16, BatchSize: 1, FlushInterval: 10,
	})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	log := testLogger(t)

	idxSvc, err := index.Open(t.TempDir(), log, 2)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { idxSvc.Close() })

	jobStore, err := jobs.OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("jobs.OpenStore: %v", err)
	}
	sched := jobs.New(log, jobStore, 1, time.Millisecond, func() int64 { return 1000 })

	s := New(log, "127.0.0.1:0", idxSvc, sched, func() int { return 3 })

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/events", s.handleEvents)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHealthzReportsOK(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStatsReportsClientCount(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer resp.Body.Close()

	var stats Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Clients != 3 {
		t.Fatalf("expected clients=3, got %d", stats.Clients)
	}
}

func TestTailWithNoConnectedClientsIsNoop(t *testing.T) {
	s, _ := newTestServer(t)
	// Must not panic or block when nobody is tailing events.
	done := make(chan struct{})
	go func() {
		s.Tail(wire.Event{Type: wire.EvtWelcome})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Tail blocked with no subscribers")
	}
}
