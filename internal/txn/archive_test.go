package txn

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/method"
)

// TestWriteDataBlockCarriesRecipeArgsAndProgram guards level 6's
// distance-context model: the period and block-size exponent the method
// compiler computes, plus the ZPAQL program text built around that period,
// must reach the written header rather than being silently dropped in
// favor of just the winning candidate's preprocessor/codec encoding.
func TestWriteDataBlockCarriesRecipeArgsAndProgram(t *testing.T) {
	record := make([]byte, 16)
	for i := range record {
		record[i] = byte(i)
	}
	var block []byte
	for i := 0; i < 300; i++ {
		block = append(block, record...)
	}
	rec := method.Compile(6, 4, block)
	if rec.ZPAQLProgram == "" {
		t.Fatal("expected level 6 to emit a ZPAQL program for this periodic input")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "arc")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	cand := rec.Candidates[0]
	if _, err := writeDataBlock(f, archfmt.DecimalDate(20260806120000), 1, rec, cand, []byte("encoded payload")); err != nil {
		t.Fatalf("writeDataBlock: %v", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	hdr, _, err := archfmt.ReadBlock(f)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if hdr.ZPAQLProgram != rec.ZPAQLProgram {
		t.Errorf("ZPAQLProgram = %q, want %q", hdr.ZPAQLProgram, rec.ZPAQLProgram)
	}
	if hdr.Args[0] != rec.Args[0] {
		t.Errorf("Args[0] (block-size exponent) = %d, want %d", hdr.Args[0], rec.Args[0])
	}
	if hdr.Args[2] != rec.Args[2] {
		t.Errorf("Args[2] (period) = %d, want %d", hdr.Args[2], rec.Args[2])
	}
	if got := method.DecodeArgs(hdr.Args); got != cand {
		t.Errorf("decoded candidate = %+v, want %+v", got, cand)
	}
}
