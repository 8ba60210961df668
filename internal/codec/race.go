package codec

import (
	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/method"
)

// RaceResult is the winning candidate from Race: the smallest encoding
// among a Recipe's candidates, along with which one it came from so the
// block header can record it (§4.4's "race and keep the smallest").
type RaceResult struct {
	Candidate method.Candidate
	Encoded   []byte
}

// Race encodes data with every candidate in rec and returns the smallest
// result. A recipe with a single candidate (levels 0-3) still goes
// through this path so callers never need to special-case it.
func Race(data []byte, rec method.Recipe, dict Dict) (RaceResult, error) {
	var best RaceResult
	haveBest := false

	for _, cand := range rec.Candidates {
		enc, err := EncodeCandidate(data, cand, dict)
		if err != nil {
			continue
		}
		if !haveBest || len(enc) < len(best.Encoded) {
			best = RaceResult{Candidate: cand, Encoded: enc}
			haveBest = true
		}
	}

	if !haveBest {
		return RaceResult{}, errors.Errorf("codec: no candidate in recipe (level %d) encoded successfully", rec.Level)
	}
	return best, nil
}
