package registry

import (
	"testing"

	"lunio/internal/logger"
	"lunio/internal/wire"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{
		Level: logger.ERROR, LogDir: t.TempDir(), FileName: "registry.log",
		AsyncBufferSize: 16, BatchSize: 1, FlushInterval: 10,
	})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

func TestBroadcastOnlyReachesSubscribers(t *testing.T) {
	r := New(testLogger(t))
	a := r.Register("a")
	r.Register("b")

	r.Subscribe("a", wire.TopicJobs)

	r.Broadcast(wire.TopicJobs, wire.Event{Type: wire.EvtJobFailed})

	select {
	case <-a.Outbound:
	default:
		t.Fatalf("expected subscribed client to receive broadcast")
	}
}

func TestRemoveClearsSubscriptionsAndClosesChannel(t *testing.T) {
	r := New(testLogger(t))
	cs := r.Register("a")
	r.Subscribe("a", wire.TopicJobs)

	r.Remove("a")

	if _, ok := <-cs.Outbound; ok {
		t.Fatalf("expected outbound channel closed after removal")
	}
	if r.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after removal")
	}

	// Broadcasting after removal must not panic even though "a" was a
	// subscriber moments ago.
	r.Broadcast(wire.TopicJobs, wire.Event{Type: wire.EvtJobFailed})
}

func TestSendToUnknownSessionIsNoop(t *testing.T) {
	r := New(testLogger(t))
	r.SendTo("ghost", wire.Event{Type: wire.EvtError})
}

func TestFullChannelDropsSilently(t *testing.T) {
	r := New(testLogger(t))
	cs := r.Register("a")
	r.Subscribe("a", wire.TopicJobs)

	for i := 0; i < OutboundCapacity+10; i++ {
		r.Broadcast(wire.TopicJobs, wire.Event{Type: wire.EvtJobFailed})
	}

	if len(cs.Outbound) != OutboundCapacity {
		t.Fatalf("expected channel to stay at capacity %d, got %d", OutboundCapacity, len(cs.Outbound))
	}
}
