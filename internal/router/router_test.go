package router

import (
	"context"
	"net"
	"testing"
	"time"

	"lunio/internal/index"
	"lunio/internal/jobs"
	"lunio/internal/logger"
	"lunio/internal/registry"
	"lunio/internal/thumbs"
	"lunio/internal/wire"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{
		Level: logger.ERROR, LogDir: t.TempDir(), FileName: "router.log",
		AsyncBufferSize: 16, BatchSize: 1, FlushInterval: 10,
	})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

type fakeRenderer struct{}

func (fakeRenderer) Render(ctx context.Context, source thumbs.Source, size uint32, destPath string) error {
	return nil
}

func newTestRouter(t *testing.T) *Router {
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
	sched := jobs.New(log, jobStore, 2, time.Millisecond, func() int64 { return 1000 })
	sched.RegisterHandler(jobs.KindIndexScan, func(ctx context.Context, spec jobs.JobSpec, progress jobs.Progress, c *jobs.CancelRegistry) error {
		return nil
	})

	thumbSvc, err := thumbs.Open(t.TempDir(), log, fakeRenderer{}, thumbs.DefaultEvictionPolicy(), nil, func() int64 { return 1000 })
	if err != nil {
		t.Fatalf("thumbs.Open: %v", err)
	}
	t.Cleanup(func() { thumbSvc.Close() })

	reg := registry.New(log)
	return New(log, reg, idxSvc, sched, thumbSvc, jobs.NewCancelRegistry(), func() int64 { return 1000 })
}

func TestHelloRejectsMismatchedProtocol(t *testing.T) {
	r := newTestRouter(t)
	_, ev, ok := r.Hello(wire.HelloCommand{Protocol: 99})
	if ok {
		t.Fatalf("expected handshake to fail on protocol mismatch")
	}
	if ev.Type != wire.EvtIncompatible {
		t.Fatalf("expected Incompatible event, got %s", ev.Type)
	}
}

func TestHelloAcceptsMatchingProtocol(t *testing.T) {
	r := newTestRouter(t)
	sessionID, ev, ok := r.Hello(wire.HelloCommand{Protocol: wire.ProtocolVersion})
	if !ok || ev.Type != wire.EvtWelcome {
		t.Fatalf("expected successful handshake, got %+v ok=%v", ev, ok)
	}
	if sessionID == "" {
		t.Fatalf("expected non-empty session id")
	}
}

func TestDispatchSearchRepliesWithResults(t *testing.T) {
	r := newTestRouter(t)
	sessionID, _, _ := r.Hello(wire.HelloCommand{Protocol: wire.ProtocolVersion})
	r.registry.Subscribe(sessionID, wire.TopicSearch)

	r.Dispatch(sessionID, wire.Command{Type: wire.CmdSearch, Search: &wire.SearchCommand{Query: wire.QueryNode{Name: "nope.txt"}}})

	cs, _ := r.registry.Get(sessionID)
	select {
	case env := <-cs.Outbound:
		if env.Payload.Type != wire.EvtSearchResults {
			t.Fatalf("expected SearchResults event, got %s", env.Payload.Type)
		}
		if len(env.Payload.SearchResults.Results) != 0 {
			t.Fatalf("expected no results against an empty index")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for search reply")
	}
}

func TestDispatchCopySubmitsJob(t *testing.T) {
	r := newTestRouter(t)
	sessionID, _, _ := r.Hello(wire.HelloCommand{Protocol: wire.ProtocolVersion})

	r.Dispatch(sessionID, wire.Command{Type: wire.CmdCopy, Copy: &wire.CopyCommand{From: "a", To: "b", Conflict: wire.ConflictOverwrite}})

	deadline := time.After(time.Second)
	for {
		summaries := r.scheduler.ListAll()
		if len(summaries) == 1 && summaries[0].Spec.Kind.Tag == jobs.KindCopy {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("expected a copy job to be submitted")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestServeConnectionHandshakeOverPipe(t *testing.T) {
	r := newTestRouter(t)
	client, server := net.Pipe()
	defer client.Close()

	go r.ServeConnection(server)

	fw := wire.NewFrameWriter(client)
	fr := wire.NewFrameReader(client)

	hello := wire.Envelope[wire.Command]{
		Protocol: wire.ProtocolVersion,
		Payload:  wire.Command{Type: wire.CmdHello, Hello: &wire.HelloCommand{Protocol: wire.ProtocolVersion}},
	}
	if err := wire.WriteEnvelope(fw, hello); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	frame, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	raw, err := wire.UnmarshalRaw(frame)
	if err != nil {
		t.Fatalf("UnmarshalRaw: %v", err)
	}
	var ev wire.Event
	if err := wire.UnmarshalPayload(raw.Payload, &ev); err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if ev.Type != wire.EvtWelcome {
		t.Fatalf("expected Welcome event, got %s", ev.Type)
	}
}
