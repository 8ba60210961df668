package method

// Codec names the post-preprocessing compressor a candidate uses. The
// actual zstd/brotli encoders live in internal/codec; this package only
// names which ones a recipe wants raced against each other.
type Codec int

const (
	CodecStore Codec = iota
	CodecLZ77Byte
	CodecLZ77Var
	CodecZstd
	CodecBrotli
)

func (c Codec) String() string {
	switch c {
	case CodecStore:
		return "store"
	case CodecLZ77Byte:
		return "lz77b"
	case CodecLZ77Var:
		return "lz77v"
	case CodecZstd:
		return "zstd"
	case CodecBrotli:
		return "brotli"
	default:
		return "unknown"
	}
}

// Preprocessor names a reversible transform applied to a block before it
// reaches its candidate codecs.
type Preprocessor int

const (
	PreprocessNone Preprocessor = iota
	PreprocessBWT
	PreprocessE8E9
)

// Candidate is one compressor a recipe wants raced against its siblings;
// the caller keeps whichever candidate's output is smallest, per §4.4's
// "race and keep the smallest" rule for levels 4 and up.
type Candidate struct {
	Preprocessor Preprocessor
	Codec        Codec
}

// Recipe is the compiled method string's semantic content: which
// preprocessors and codecs a block of a given level should be run
// through, plus the opaque per-component arguments a real ZPAQL-backed
// implementation would pass to its compressor. args[0] mirrors the real
// format's block-size exponent (log2(MB) as used by BWT's block cap).
type Recipe struct {
	Level        int
	BlockType    BlockType
	Candidates   []Candidate
	Args         [9]int32
	ZPAQLProgram string
}

// HasCandidate reports whether codec appears among the recipe's race
// candidates, regardless of which preprocessor precedes it.
func (r Recipe) HasCandidate(codec Codec) bool {
	for _, c := range r.Candidates {
		if c.Codec == codec {
			return true
		}
	}
	return false
}

// EncodeArgs packs c into the args[1] (preprocessor)/args[8] (codec)
// fields of a block header, so a block can be decoded later without
// re-running the method compiler. Spec §4.4 reserves args[1] for the
// preprocessor code; this rendition has no ZPAQL VM to carry the codec
// choice implicitly inside the program, so args[8] (unused by §4.4's
// table) names it explicitly.
func (c Candidate) EncodeArgs(args *[9]int32) {
	args[1] = int32(c.Preprocessor)
	args[8] = int32(c.Codec)
}

// DecodeArgs reverses EncodeArgs.
func DecodeArgs(args [9]int32) Candidate {
	return Candidate{
		Preprocessor: Preprocessor(args[1]),
		Codec:        Codec(args[8]),
	}
}
