package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Level:           INFO,
		LogDir:          t.TempDir(),
		FileName:        "lunio.log",
		AsyncBufferSize: 16,
		BatchSize:       1,
		FlushInterval:   10,
	}
}

func TestNewRespectsLevel(t *testing.T) {
	l, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Debug("dropped below threshold")
	l.Info("recorded")
	l.Close()

	data, err := os.ReadFile(filepath.Join(l.writer.config.LogDir, l.writer.config.FileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := string(data); !contains(got, "recorded") || contains(got, "dropped below threshold") {
		t.Fatalf("unexpected log contents: %q", got)
	}
}

func TestSetLevelIsDynamic(t *testing.T) {
	l, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.SetLevel(DEBUG)
	if l.GetLevel() != DEBUG {
		t.Fatalf("expected DEBUG, got %v", l.GetLevel())
	}
}

func TestMetricsTrackTotal(t *testing.T) {
	l, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Info("one")
	l.Info("two")
	time.Sleep(20 * time.Millisecond)

	snap := l.GetMetrics()
	if snap.TotalLogs < 2 {
		t.Fatalf("expected at least 2 total logs, got %d", snap.TotalLogs)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
