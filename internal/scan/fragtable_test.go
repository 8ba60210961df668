package scan

import (
	"bytes"
	"testing"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/codec"
	"github.com/jidac/jidac/internal/method"
)

// TestDecodeFragTableSegmentStripsInlineDict guards the read side of the
// fragment-table dictionary reuse: when args[2] carries
// method.FragTableDictFlag, the leading method.Order1TableSize bytes of the
// payload are the dictionary, not part of the compressed body.
func TestDecodeFragTableSegmentStripsInlineDict(t *testing.T) {
	payload := []byte("fragment table body with some repeated repeated repeated text")
	dict := make([]byte, method.Order1TableSize)
	for i := range dict {
		dict[i] = byte(i)
	}

	cand := method.Candidate{Codec: method.CodecZstd}
	compressed, err := codec.EncodeCandidate(payload, cand, codec.Dict(dict))
	if err != nil {
		t.Fatalf("EncodeCandidate: %v", err)
	}

	var args [9]int32
	cand.EncodeArgs(&args)
	args[2] = method.FragTableDictFlag

	seg := archfmt.Segment{Payload: append(append([]byte{}, dict...), compressed...)}
	hdr := archfmt.BlockHeader{Args: args}

	got, err := decodeFragTableSegment(hdr, seg)
	if err != nil {
		t.Fatalf("decodeFragTableSegment: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decoded payload mismatch: got %q, want %q", got, payload)
	}
}

// TestDecodeFragTableSegmentWithoutDictFlag exercises the plain Store/zstd
// path still used for non-textish blocks, where args[2] is left at 0.
func TestDecodeFragTableSegmentWithoutDictFlag(t *testing.T) {
	payload := []byte("small binary fragment table")
	cand := method.Candidate{Codec: method.CodecStore}
	encoded, err := codec.EncodeCandidate(payload, cand, nil)
	if err != nil {
		t.Fatalf("EncodeCandidate: %v", err)
	}

	var args [9]int32
	cand.EncodeArgs(&args)

	seg := archfmt.Segment{Payload: encoded}
	hdr := archfmt.BlockHeader{Args: args}

	got, err := decodeFragTableSegment(hdr, seg)
	if err != nil {
		t.Fatalf("decodeFragTableSegment: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decoded payload mismatch: got %q, want %q", got, payload)
	}
}
