package method

// Compile implements the level 0-6 strategy table of §4.4: level 0 stores
// blocks verbatim, levels 1-2 are LZ77-only, level 3 adds a single context
// model (zstd), levels 4-6 race LZ77/BWT preprocessing against zstd and
// brotli and keep whichever candidate compresses smallest, and level 6
// additionally scans for periodic structure to decide whether a
// distance-context model is worth adding to the ZPAQL program.
//
// block is a sample of the data the recipe will compress — typically the
// first segment's worth of a fragment run — used only to drive the
// block-type and periodicity heuristics; it is never required to be the
// full block.
func Compile(level int, blockSizeMB int, block []byte) Recipe {
	if level < 0 {
		level = 0
	}
	if level > 6 {
		level = 6
	}

	rec := Recipe{
		Level:     level,
		BlockType: Classify(block, nil),
	}
	rec.Args[0] = blockSizeExponent(blockSizeMB)

	switch level {
	case 0:
		rec.Candidates = []Candidate{{Codec: CodecStore}}
	case 1:
		rec.Candidates = []Candidate{{Codec: CodecLZ77Byte}}
	case 2:
		rec.Candidates = []Candidate{{Codec: CodecLZ77Var}}
	case 3:
		rec.Candidates = []Candidate{{Codec: CodecZstd}}
	case 4:
		rec.Candidates = []Candidate{
			{Codec: CodecLZ77Var},
			{Codec: CodecZstd},
			{Preprocessor: PreprocessBWT, Codec: CodecZstd},
		}
	case 5:
		rec.Candidates = []Candidate{
			{Codec: CodecZstd},
			{Codec: CodecBrotli},
			{Preprocessor: PreprocessBWT, Codec: CodecBrotli},
		}
	case 6:
		rec.Candidates = []Candidate{
			{Codec: CodecBrotli},
			{Preprocessor: PreprocessBWT, Codec: CodecBrotli},
		}
	}

	if level >= 4 && rec.BlockType.X86ish {
		for i := range rec.Candidates {
			if rec.Candidates[i].Preprocessor == PreprocessNone {
				rec.Candidates[i].Preprocessor = PreprocessE8E9
			}
		}
	}

	if level == 6 {
		if period, density, found := DetectPeriod(block); found {
			// args[2] is one of the LZ77 parameter slots per §4.4's table,
			// but level 6's candidates never include an LZ77 codec, so it
			// is free here to carry the period the emitted ZPAQLProgram's
			// distance-context model is built around.
			rec.Args[2] = int32(period)
			rec.ZPAQLProgram = DistanceContextProgram(period, density)
		}
	}

	return rec
}

// blockSizeExponent clamps log2(blockSizeMB) to the [0,4] range BWT's
// MaxBWTBlock cap allows (2^24 bytes = 16MB).
func blockSizeExponent(blockSizeMB int) int32 {
	e := 0
	for (1 << e) < blockSizeMB {
		e++
	}
	if e > 4 {
		e = 4
	}
	return int32(e)
}
