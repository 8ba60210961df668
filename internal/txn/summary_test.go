package txn

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestSummaryRanksLargestFilesFirst(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.txt")
	big := filepath.Join(dir, "big.txt")
	writeTestFile(t, small, bytes.Repeat([]byte("s"), 100))
	writeTestFile(t, big, bytes.Repeat([]byte("b"), 100000))

	archive := filepath.Join(dir, "arc")
	if _, err := Add(Options{Archive: archive, Paths: []string{small, big}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries, err := Summary(Options{Archive: archive}, 5)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want 2", entries)
	}
	if entries[0].Name != "big.txt" {
		t.Fatalf("largest entry = %q, want big.txt", entries[0].Name)
	}
	if entries[0].Size < entries[1].Size {
		t.Fatalf("entries not sorted descending: %+v", entries)
	}
}

func TestSummaryDefaultsToTen(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f.txt")
	writeTestFile(t, src, []byte("x"))
	archive := filepath.Join(dir, "arc")
	if _, err := Add(Options{Archive: archive, Paths: []string{src}}); err != nil {
		t.Fatal(err)
	}

	entries, err := Summary(Options{Archive: archive}, 0)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want 1", entries)
	}
}
