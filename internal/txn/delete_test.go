package txn

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDeleteThenExtractReportsAbsent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "gone.txt")
	writeTestFile(t, src, []byte("will be deleted"))

	archive := filepath.Join(dir, "arc")
	if _, err := Add(Options{Archive: archive, Paths: []string{src}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	delRes, err := Delete(Options{Archive: archive, Paths: []string{"gone.txt"}})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if delRes.Deletes != 1 {
		t.Fatalf("deletes = %d, want 1", delRes.Deletes)
	}

	entries, err := List(Options{Archive: archive})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, e := range entries {
		if e.Name == "gone.txt" && !e.Deleted {
			t.Fatalf("gone.txt still present in latest version: %+v", e)
		}
	}

	// I4: -until the version before the delete still reproduces the file.
	out := filepath.Join(dir, "out")
	res, err := Extract(Options{Archive: archive, To: out, Until: 1})
	if err != nil {
		t.Fatalf("Extract -until 1: %v", err)
	}
	if !res.AllGood {
		t.Fatalf("extract -until 1 incomplete: %+v", res.Files)
	}
	if _, err := os.Stat(filepath.Join(out, "gone.txt")); err != nil {
		t.Fatalf("gone.txt missing from -until 1 extraction: %v", err)
	}
}

func TestDeleteOnEmptyArchiveFails(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "arc")
	if _, err := Delete(Options{Archive: archive, Paths: []string{"x"}}); err == nil {
		t.Fatal("expected an error deleting from an empty archive")
	}
}
