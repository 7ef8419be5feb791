package spool

import (
	"io"
	"strings"
	"testing"
)

func TestDirStoreRoundTrip(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore failed: %v", err)
	}

	id, err := store.Save("koinly.csv", strings.NewReader("date,amount\n2024-01-01,5\n"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty spool ID")
	}

	rc, err := store.Open(id)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading spooled file failed: %v", err)
	}
	if string(data) != "date,amount\n2024-01-01,5\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestDirStoreDistinctIDs(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore failed: %v", err)
	}

	// Same filename twice must not collide.
	id1, _ := store.Save("koinly.csv", strings.NewReader("first"))
	id2, _ := store.Save("koinly.csv", strings.NewReader("second"))
	if id1 == id2 {
		t.Fatal("expected distinct spool IDs for repeated names")
	}

	rc, _ := store.Open(id1)
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "first" {
		t.Errorf("spool entries crossed wires: %q", data)
	}
}

func TestDirStoreDelete(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore failed: %v", err)
	}

	id, _ := store.Save("koinly.csv", strings.NewReader("x"))
	if err := store.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Open(id); err == nil {
		t.Error("expected Open to fail after Delete")
	}

	// A second delete is a no-op, not an error.
	if err := store.Delete(id); err != nil {
		t.Errorf("repeated Delete should be tolerated: %v", err)
	}
}
