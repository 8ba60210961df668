package method

// maxPeriod bounds the distance histogram used by the level-6 periodic-
// structure scan (§4.4): "tallies distances between equal bytes into
// histogram r[1..4095]".
const maxPeriod = 4095

// minPeriod is the smallest period the scan considers; §4.4 requires
// p > 4.
const minPeriod = 5

// periodDensityThreshold is the density score §4.4 requires before the
// compiler adds a distance-context model for the detected period.
const periodDensityThreshold = 0.1

// DetectPeriod scans data for periodic structure by tallying distances
// between equal bytes (§4.4's level-6 heuristic) and returns the period
// with the highest density score, if any period exceeds the threshold.
func DetectPeriod(data []byte) (period int, density float64, found bool) {
	if len(data) < minPeriod*2 {
		return 0, 0, false
	}

	var last [256]int
	for i := range last {
		last[i] = -1
	}

	var hist [maxPeriod + 1]int
	for i, c := range data {
		if last[c] >= 0 {
			d := i - last[c]
			if d >= 1 && d <= maxPeriod {
				hist[d]++
			}
		}
		last[c] = i
	}

	bestP, bestScore := 0, 0.0
	for p := minPeriod; p <= maxPeriod; p++ {
		score := float64(hist[p]) / float64(len(data))
		if score > bestScore {
			bestScore, bestP = score, p
		}
	}

	if bestScore > periodDensityThreshold {
		return bestP, bestScore, true
	}
	return 0, bestScore, false
}
