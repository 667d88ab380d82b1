package fileid

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDeriveStableAcrossRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hi"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	before, err := Derive(src, nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if before.IsZero() {
		t.Fatalf("expected non-zero id")
	}

	dst := filepath.Join(dir, "b.txt")
	if err := os.Rename(src, dst); err != nil {
		t.Fatalf("rename: %v", err)
	}

	after, err := Derive(dst, nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if after != before {
		t.Fatalf("id changed across rename: %x != %x", before, after)
	}
}

func TestDeriveDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	os.WriteFile(a, []byte("a"), 0644)
	os.WriteFile(b, []byte("b"), 0644)

	idA, err := Derive(a, nil)
	if err != nil {
		t.Fatalf("Derive a: %v", err)
	}
	idB, err := Derive(b, nil)
	if err != nil {
		t.Fatalf("Derive b: %v", err)
	}
	if idA == idB {
		t.Fatalf("distinct files got same id")
	}
}
