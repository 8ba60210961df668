package method

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// DistanceContextProgram builds the opaque ZPAQL program string for a
// distance-context model tuned to period, per §4.4's closing paragraph:
// once a periodic structure is detected, the compiler adds a model that
// predicts each byte from the byte `period` positions back. The program
// text itself is opaque data handed to the compressor library in a real
// ZPAQL-backed build; this implementation only carries it through the
// recipe into the data block's header, so it is built as a plain string
// rather than parsed.
func DistanceContextProgram(period int, density float64) string {
	return fmt.Sprintf("comp 0 0 0 0 1 (distance model)\n  0 icm 16\nhcomp\n  c++ *c=a a=0 d= %d\n  b=c b-=d a=*b\n  hash *d=a halt\nend (density=%.3f)", period, density)
}

// ParseRecipe implements the `-method` supplemented feature (§4.4's level
// table generalized to an explicit recipe string, matching zpaq.cpp's
// `-method x|s...` syntax): a bare digit 0-6 delegates straight to
// Compile, and anything else is read as a compact explicit spelling —
// an optional preprocessor letter ('w' for BWT, 'e' for E8E9) followed by
// a codec letter ('x' store, 'l' byte-aligned LZ77, 'v' variable-length
// LZ77, 'z' zstd, 'b' brotli).
func ParseRecipe(s string) (Recipe, error) {
	if s == "" {
		return Recipe{}, errors.New("method: empty recipe string")
	}
	if level, err := strconv.Atoi(s); err == nil {
		return Compile(level, 4, nil), nil
	}

	i := 0
	var pre Preprocessor
	switch s[i] {
	case 'w':
		pre = PreprocessBWT
		i++
	case 'e':
		pre = PreprocessE8E9
		i++
	}
	if i >= len(s) {
		return Recipe{}, errors.Errorf("method: recipe %q has no codec letter", s)
	}

	var codec Codec
	switch s[i] {
	case 'x':
		codec = CodecStore
	case 'l':
		codec = CodecLZ77Byte
	case 'v':
		codec = CodecLZ77Var
	case 'z':
		codec = CodecZstd
	case 'b':
		codec = CodecBrotli
	default:
		return Recipe{}, errors.Errorf("method: recipe %q has unknown codec letter %q", s, s[i])
	}

	return Recipe{
		Candidates: []Candidate{{Preprocessor: pre, Codec: codec}},
	}, nil
}
