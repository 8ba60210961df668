package txn

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestAddSingleSmallFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "h.txt")
	writeTestFile(t, src, []byte("hello\n"))

	archive := filepath.Join(dir, "arc")
	res, err := Add(Options{Archive: archive, Paths: []string{src}, Method: "1"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Version != 1 {
		t.Fatalf("version = %d, want 1", res.Version)
	}
	if res.Updates != 1 {
		t.Fatalf("updates = %d, want 1", res.Updates)
	}
	if res.USize != 6 {
		t.Fatalf("usize = %d, want 6", res.USize)
	}
}

func TestAddSkipsUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	writeTestFile(t, src, []byte("unchanged content"))
	mtime := time.Now().Add(-time.Hour)
	os.Chtimes(src, mtime, mtime)

	archive := filepath.Join(dir, "arc")
	opts := Options{Archive: archive, Paths: []string{src}}
	if _, err := Add(opts); err != nil {
		t.Fatalf("first add: %v", err)
	}

	res, err := Add(opts)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if res.Updates != 0 {
		t.Fatalf("second add updates = %d, want 0 (I2: unchanged mtime+size skip)", res.Updates)
	}
}

func TestAddDedupesDuplicateContent(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 64*1024)
	for i := range data {
		data[i] = byte(i % 251)
	}
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	writeTestFile(t, a, data)
	writeTestFile(t, b, data)

	archive := filepath.Join(dir, "arc")
	res, err := Add(Options{Archive: archive, Paths: []string{a, b}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Updates != 2 {
		t.Fatalf("updates = %d, want 2", res.Updates)
	}

	m, err := scanArchive(Options{Archive: archive})
	if err != nil {
		t.Fatalf("scanArchive: %v", err)
	}
	fa := m.DT["a.bin"].Latest()
	fb := m.DT["b.bin"].Latest()
	if len(fa.Ptr) == 0 || len(fa.Ptr) != len(fb.Ptr) {
		t.Fatalf("fragment counts differ: %d vs %d", len(fa.Ptr), len(fb.Ptr))
	}
	for i := range fa.Ptr {
		if fa.Ptr[i] != fb.Ptr[i] {
			t.Fatalf("I2: duplicate file's ptr[%d] = %d, want shared id %d", i, fb.Ptr[i], fa.Ptr[i])
		}
	}
}
