package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func mustID(t *testing.T, n byte) FileID {
	t.Helper()
	var id FileID
	id[15] = n
	return id
}

func TestUpsertIncrementsGeneration(t *testing.T) {
	s := NewStore()
	r1 := NewRecord(mustID(t, 1), "/R/x.txt", false, false, 10, 1000)
	got1 := s.Upsert(r1)
	if got1.Generation != 0 {
		t.Fatalf("expected generation 0, got %d", got1.Generation)
	}

	r2 := NewRecord(mustID(t, 1), "/R/x.txt", false, false, 20, 2000)
	got2 := s.Upsert(r2)
	if got2.Generation != 1 {
		t.Fatalf("expected generation 1, got %d", got2.Generation)
	}
}

func TestRemoveByPathTombstones(t *testing.T) {
	s := NewStore()
	id := mustID(t, 1)
	s.Upsert(NewRecord(id, "/R/x.txt", false, false, 10, 1000))

	removed, ok := s.RemoveByPath("/R/x.txt")
	if !ok || removed.ID != id {
		t.Fatalf("expected removal of %v, got ok=%v removed=%v", id, ok, removed)
	}
	if !s.IsDeleted(id) {
		t.Fatalf("expected tombstone for %v", id)
	}
	if _, ok := s.GetByPath("/R/x.txt"); ok {
		t.Fatalf("expected path gone after removal")
	}
}

func TestQueryExtAndTokensAndSize(t *testing.T) {
	s := NewStore()
	s.Upsert(NewRecord(mustID(t, 1), "/A/foo.txt", false, false, 5, 1000))
	s.Upsert(NewRecord(mustID(t, 2), "/A/bar.md", false, false, 7, 1000))
	s.Upsert(NewRecord(mustID(t, 3), "/B/baz.pdf", false, false, 9, 1000))

	extResults := Evaluate(s, Query{Ext: "pdf"})
	if len(extResults) != 1 || extResults[0].Record.Name != "baz.pdf" {
		t.Fatalf("expected baz.pdf, got %+v", extResults)
	}

	tokenResults := Evaluate(s, Query{Tokens: []string{"foo"}})
	if len(tokenResults) != 1 || tokenResults[0].Record.Name != "foo.txt" {
		t.Fatalf("expected foo.txt, got %+v", tokenResults)
	}

	zero := int64(0)
	sizeResults := Evaluate(s, Query{SizeGreater: &zero})
	if len(sizeResults) != 3 {
		t.Fatalf("expected all 3 files, got %d", len(sizeResults))
	}
}

func TestTokenizeNFCLowercaseSplit(t *testing.T) {
	got := Tokenize("Résumé_v2.final.PDF")
	want := []string{"résumé", "v2", "final", "pdf"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestPersistenceSnapshotJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()

	pers, store, err := OpenPersistence(dir)
	if err != nil {
		t.Fatalf("OpenPersistence: %v", err)
	}
	r := NewRecord(mustID(t, 1), "/R/x.txt", false, false, 10, 1000)
	store.Upsert(r)
	if err := pers.RecordUpsert(r); err != nil {
		t.Fatalf("RecordUpsert: %v", err)
	}
	if err := pers.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, reloaded, err := OpenPersistence(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reloaded.GetByPath("/R/x.txt")
	if !ok || got.Size != 10 {
		t.Fatalf("expected replayed record, got ok=%v got=%+v", ok, got)
	}
}

func TestServiceScanFindsFiles(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "A"), 0755)
	os.MkdirAll(filepath.Join(root, "B"), 0755)
	os.WriteFile(filepath.Join(root, "A", "foo.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(root, "A", "bar.md"), []byte("yy"), 0644)
	os.WriteFile(filepath.Join(root, "B", "baz.pdf"), []byte("zzz"), 0644)

	dataDir := t.TempDir()
	svc, err := Open(dataDir, nil, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()

	n, err := svc.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n < 6 { // root + A + B + 3 files
		t.Fatalf("expected at least 6 entries scanned, got %d", n)
	}

	results := Evaluate(svc.Store(), Query{Ext: "pdf"})
	if len(results) != 1 {
		t.Fatalf("expected 1 pdf, got %d", len(results))
	}
}
