package codec

import (
	"bytes"
	"testing"

	"github.com/jidac/jidac/internal/method"
)

func sampleText() []byte {
	var b []byte
	for i := 0; i < 200; i++ {
		b = append(b, "the quick brown fox jumps over the lazy dog. "...)
	}
	return b
}

func TestEncodeDecodeEachCodec(t *testing.T) {
	codecs := []method.Codec{
		method.CodecStore,
		method.CodecLZ77Byte,
		method.CodecLZ77Var,
		method.CodecZstd,
		method.CodecBrotli,
	}
	data := sampleText()
	for _, c := range codecs {
		cand := method.Candidate{Codec: c}
		enc, err := EncodeCandidate(data, cand, nil)
		if err != nil {
			t.Fatalf("%v: encode error: %v", c, err)
		}
		dec, err := DecodeCandidate(enc, cand, nil)
		if err != nil {
			t.Fatalf("%v: decode error: %v", c, err)
		}
		if !bytes.Equal(dec, data) {
			t.Fatalf("%v: roundtrip mismatch", c)
		}
	}
}

func TestEncodeDecodeWithBWTPreprocessor(t *testing.T) {
	data := sampleText()
	cand := method.Candidate{Preprocessor: method.PreprocessBWT, Codec: method.CodecZstd}
	enc, err := EncodeCandidate(data, cand, nil)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	dec, err := DecodeCandidate(enc, cand, nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Fatalf("roundtrip mismatch")
	}
}

func TestEncodeDecodeWithE8E9Preprocessor(t *testing.T) {
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}
	cand := method.Candidate{Preprocessor: method.PreprocessE8E9, Codec: method.CodecBrotli}
	enc, err := EncodeCandidate(data, cand, nil)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	dec, err := DecodeCandidate(enc, cand, nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Fatalf("roundtrip mismatch")
	}
}

func TestRacePicksSmallest(t *testing.T) {
	rec := method.Compile(5, 4, sampleText())
	data := sampleText()
	result, err := Race(data, rec, nil)
	if err != nil {
		t.Fatalf("race error: %v", err)
	}
	if len(result.Encoded) == 0 {
		t.Fatal("expected non-empty encoding")
	}
	for _, cand := range rec.Candidates {
		enc, err := EncodeCandidate(data, cand, nil)
		if err != nil {
			continue
		}
		if len(enc) < len(result.Encoded) {
			t.Fatalf("candidate %+v encodes to %d bytes, smaller than the winner's %d", cand, len(enc), len(result.Encoded))
		}
	}
	dec, err := DecodeCandidate(result.Encoded, result.Candidate, nil)
	if err != nil {
		t.Fatalf("decode winning candidate: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Fatalf("winning candidate roundtrip mismatch")
	}
}

func TestRaceLevelZeroStoresVerbatim(t *testing.T) {
	rec := method.Compile(0, 4, nil)
	data := []byte("hello world")
	result, err := Race(data, rec, nil)
	if err != nil {
		t.Fatalf("race error: %v", err)
	}
	if !bytes.Equal(result.Encoded, data) {
		t.Fatalf("level 0 should store verbatim, got %q", result.Encoded)
	}
}
