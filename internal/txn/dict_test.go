package txn

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestAddExtractTextIshRoundtrip exercises the fragment-table dictionary
// path end to end: prose content classifies as TextIsh, so writeFragTableBlock
// embeds an order-1 dictionary ahead of the h block's zstd payload, and
// decodeFragTableSegment on the scan side must strip that dictionary back
// off before decompressing. A corrupted offset here would desync the
// fragment sizes and break extraction, not just fail silently.
func TestAddExtractTextIshRoundtrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prose.txt")
	content := bytes.Repeat([]byte("the rain in spain falls mainly on the plain. "), 2000)
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

	got, err := os.ReadFile(filepath.Join(out, "prose.txt"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("extracted content mismatch: got %d bytes, want %d", len(got), len(content))
	}
}
