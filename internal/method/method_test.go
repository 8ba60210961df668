package method

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestByteAlignedLZ77Roundtrip(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("abababababababababababab"),
		[]byte(bytesRepeat("the quick brown fox jumps over the lazy dog. ", 40)),
		randomBytes(2048, 1),
	}
	c := ByteAlignedLZ77{MinMatch: 4}
	for i, in := range cases {
		enc := c.Encode(in)
		out, err := c.Decode(enc)
		if err != nil {
			t.Fatalf("case %d: decode error: %v\nenc=%s", i, err, spew.Sdump(enc))
		}
		if !bytes.Equal(out, in) {
			t.Fatalf("case %d: roundtrip mismatch\nin=%q\nout=%q", i, in, out)
		}
	}
}

func TestVarLenLZ77Roundtrip(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("abababababababababababab"),
		[]byte(bytesRepeat("mississippi river rises in minnesota. ", 50)),
		randomBytes(4096, 2),
	}
	c := VarLenLZ77{MinMatch: 4, LogBlockSize: 20}
	for i, in := range cases {
		enc := c.Encode(in)
		out, err := c.Decode(enc)
		if err != nil {
			t.Fatalf("case %d: decode error: %v", i, err)
		}
		if !bytes.Equal(out, in) {
			t.Fatalf("case %d: roundtrip mismatch\nin=%q\nout=%q", i, in, out)
		}
	}
}

func TestBWTRoundtrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("a"),
		[]byte("banana"),
		[]byte("the quick brown fox jumps over the lazy dog"),
		randomBytes(1024, 3),
	}
	for i, in := range cases {
		enc := BWTEncode(in)
		out, err := BWTDecode(enc)
		if err != nil {
			t.Fatalf("case %d: decode error: %v", i, err)
		}
		if !bytes.Equal(out, in) {
			t.Fatalf("case %d: roundtrip mismatch\nin=%q\nout=%q", i, in, out)
		}
	}
}

func TestBWTBananaKnownEncoding(t *testing.T) {
	enc := BWTEncode([]byte("banana"))
	want := []byte("nnb\xffaaa\x03\x00\x00\x00")
	if !bytes.Equal(enc, want) {
		t.Fatalf("BWTEncode(banana) = %q, want %q", enc, want)
	}
	out, err := BWTDecode(enc)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "banana" {
		t.Fatalf("got %q, want %q", out, "banana")
	}
}

func TestE8E9Invertible(t *testing.T) {
	data := make([]byte, 256)
	rng := rand.New(rand.NewSource(4))
	rng.Read(data)
	for _, i := range []int{0, 10, 50, 100, 200} {
		if i+5 <= len(data) {
			data[i] = 0xE8
		}
	}
	fwd := E8E9Forward(data)
	inv := E8E9Inverse(fwd)
	if !bytes.Equal(inv, data) {
		t.Fatalf("E8E9 roundtrip mismatch")
	}
}

func TestClassifyTextIsh(t *testing.T) {
	text := []byte(bytesRepeat("the rain in spain falls mainly on the plain. ", 30))
	bt := Classify(text, nil)
	if !bt.TextIsh {
		t.Errorf("expected TextIsh for prose input, got %+v", bt)
	}
}

func TestClassifyRedundancyHighForRepetitive(t *testing.T) {
	repetitive := bytes.Repeat([]byte{0x41, 0x42}, 2000)
	random := randomBytes(4000, 9)
	rep := Classify(repetitive, nil)
	rnd := Classify(random, nil)
	if rep.Redundancy <= rnd.Redundancy {
		t.Errorf("expected repetitive data to score higher redundancy: rep=%d random=%d", rep.Redundancy, rnd.Redundancy)
	}
}

func TestDetectPeriodFindsRepeatingRecord(t *testing.T) {
	record := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	var data []byte
	for i := 0; i < 500; i++ {
		data = append(data, record...)
	}
	period, _, found := DetectPeriod(data)
	if !found {
		t.Fatal("expected periodic structure to be detected")
	}
	if period != len(record) {
		t.Errorf("got period %d, want %d", period, len(record))
	}
}

func TestDetectPeriodNoneForRandom(t *testing.T) {
	_, _, found := DetectPeriod(randomBytes(8192, 5))
	if found {
		t.Error("did not expect periodic structure in random data")
	}
}

func TestCompileLevelsProduceCandidates(t *testing.T) {
	block := []byte(bytesRepeat("sample block data ", 20))
	for level := 0; level <= 6; level++ {
		rec := Compile(level, 4, block)
		if len(rec.Candidates) == 0 {
			t.Errorf("level %d: expected at least one candidate", level)
		}
		if rec.Level != level {
			t.Errorf("level %d: recipe reports level %d", level, rec.Level)
		}
	}
}

func TestCompileLevelSixAddsDistanceModelWhenPeriodic(t *testing.T) {
	record := make([]byte, 16)
	for i := range record {
		record[i] = byte(i)
	}
	var block []byte
	for i := 0; i < 300; i++ {
		block = append(block, record...)
	}
	rec := Compile(6, 4, block)
	if rec.ZPAQLProgram == "" {
		t.Error("expected level 6 to emit a ZPAQL program for periodic input")
	}
}

func TestParseRecipeDigit(t *testing.T) {
	rec, err := ParseRecipe("3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.HasCandidate(CodecZstd) {
		t.Errorf("level 3 should candidate zstd, got %+v", rec.Candidates)
	}
}

func TestParseRecipeExplicit(t *testing.T) {
	rec, err := ParseRecipe("wb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.Candidates) != 1 || rec.Candidates[0].Preprocessor != PreprocessBWT || rec.Candidates[0].Codec != CodecBrotli {
		t.Errorf("got %+v", rec.Candidates)
	}
}

func TestParseRecipeRejectsUnknown(t *testing.T) {
	if _, err := ParseRecipe("q"); err == nil {
		t.Error("expected error for unknown codec letter")
	}
}

func bytesRepeat(s string, n int) string {
	var b []byte
	for i := 0; i < n; i++ {
		b = append(b, s...)
	}
	return string(b)
}

func randomBytes(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	rng.Read(b)
	return b
}
