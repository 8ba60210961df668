package txn

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestAddExtractRoundtrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.bin")
	content := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 4000)
	writeTestFile(t, src, content)

	archive := filepath.Join(dir, "arc")
	if _, err := Add(Options{Archive: archive, Paths: []string{src}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	out := filepath.Join(dir, "out")
	res, err := Extract(Options{Archive: archive, To: out})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.AllGood {
		t.Fatalf("extract reported incomplete files: %+v", res.Files)
	}

	got, err := os.ReadFile(filepath.Join(out, "data.bin"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("extracted content mismatch: got %d bytes, want %d", len(got), len(content))
	}
}

func TestExtractDoesNotOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f.txt")
	writeTestFile(t, src, []byte("archive content"))

	archive := filepath.Join(dir, "arc")
	if _, err := Add(Options{Archive: archive, Paths: []string{src}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	out := filepath.Join(dir, "out")
	writeTestFile(t, filepath.Join(out, "f.txt"), []byte("pre-existing"))

	if _, err := Extract(Options{Archive: archive, To: out}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(out, "f.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "pre-existing" {
		t.Fatalf("file was overwritten without -force: %q", got)
	}

	if _, err := Extract(Options{Archive: archive, To: out, Force: true}); err != nil {
		t.Fatalf("Extract -force: %v", err)
	}
	got, err = os.ReadFile(filepath.Join(out, "f.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "archive content" {
		t.Fatalf("-force did not overwrite: %q", got)
	}
}

func TestTestCommandPassesOnCleanArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f.txt")
	writeTestFile(t, src, []byte("clean archive content"))

	archive := filepath.Join(dir, "arc")
	if _, err := Add(Options{Archive: archive, Paths: []string{src}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	res, err := Test(Options{Archive: archive})
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if !res.AllGood {
		t.Fatalf("test failed on clean archive: %+v", res)
	}
	if res.Integrity == nil || !res.Integrity.OK {
		t.Fatalf("integrity report should be clean: %+v", res.Integrity)
	}
}

func TestTestCBORRoundtrips(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f.txt")
	writeTestFile(t, src, []byte("clean archive content"))

	archive := filepath.Join(dir, "arc")
	if _, err := Add(Options{Archive: archive, Paths: []string{src}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	data, err := TestCBOR(Options{Archive: archive})
	if err != nil {
		t.Fatalf("TestCBOR: %v", err)
	}
	var rep cborTestReport
	if err := cbor.Unmarshal(data, &rep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !rep.AllGood || !rep.IntegrityOK {
		t.Fatalf("report = %+v, want AllGood and IntegrityOK", rep)
	}
	if len(rep.Files) != 1 || rep.Files[0].Name != "f.txt" || !rep.Files[0].Complete {
		t.Fatalf("report.Files = %+v, want one complete entry f.txt", rep.Files)
	}
}
