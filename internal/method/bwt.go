package method

import (
	"sort"

	"github.com/jidac/jidac/internal/archfmt"
)

// MaxBWTBlock is the largest block BWT can preprocess (args[0] <= 4, i.e.
// 2^24 bytes), per §4.6.
const MaxBWTBlock = 1 << 24

// bwtSentinel is the marker byte §4.6 says is inserted at the computed
// index. It carries no information used by the inverse transform — that
// uses the stored index directly — it exists purely so the encoded stream
// visually marks the split point, matching the documented wire format.
const bwtSentinel = 0xFF

// BWTEncode runs a suffix sort over data (via cyclic rotation comparison —
// no corpus repo ships a suffix-sort library, so this is implemented
// directly; see DESIGN.md) and returns the Burrows-Wheeler transform with
// the sentinel inserted at the computed index, followed by the 4-byte
// index LSB-first, per §4.6/§6.3.
func BWTEncode(data []byte) []byte {
	n := len(data)
	if n == 0 {
		out := make([]byte, 4)
		return out
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return lessCyclicRotation(data, order[a], order[b])
	})

	bwt := make([]byte, n)
	idx := -1
	for row, start := range order {
		bwt[row] = data[(start-1+n)%n]
		if start == 0 {
			idx = row
		}
	}

	out := make([]byte, 0, n+1+4)
	out = append(out, bwt[:idx]...)
	out = append(out, bwtSentinel)
	out = append(out, bwt[idx:]...)

	trailer := make([]byte, 4)
	archfmt.PutUint32(trailer, uint32(idx))
	out = append(out, trailer...)
	return out
}

// BWTDecode reverses BWTEncode.
func BWTDecode(encoded []byte) ([]byte, error) {
	if len(encoded) < 4 {
		return nil, errTruncatedStream
	}
	trailer := encoded[len(encoded)-4:]
	idx := int(archfmt.GetUint32(trailer))
	body := encoded[:len(encoded)-4]

	if len(body) == 0 {
		return nil, nil
	}
	if idx < 0 || idx >= len(body) {
		return nil, errTruncatedStream
	}
	bwt := make([]byte, 0, len(body)-1)
	bwt = append(bwt, body[:idx]...)
	bwt = append(bwt, body[idx+1:]...)

	return inverseCyclicBWT(bwt, idx), nil
}

// lessCyclicRotation reports whether the cyclic rotation of data starting
// at a sorts before the one starting at b.
func lessCyclicRotation(data []byte, a, b int) bool {
	n := len(data)
	for k := 0; k < n; k++ {
		ca := data[(a+k)%n]
		cb := data[(b+k)%n]
		if ca != cb {
			return ca < cb
		}
	}
	return a < b
}

// inverseCyclicBWT rebuilds the original n-byte string from its cyclic BWT
// and the row index corresponding to the rotation that starts at the
// original string's position 0 — the standard counting-sort LF-mapping
// inversion described structurally in §4.6's design note.
func inverseCyclicBWT(bwt []byte, idx int) []byte {
	n := len(bwt)
	type pair struct {
		b byte
		i int
	}
	pairs := make([]pair, n)
	for i, b := range bwt {
		pairs[i] = pair{b, i}
	}
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].b < pairs[b].b })

	next := make([]int, n)
	for k, p := range pairs {
		next[k] = p.i
	}

	out := make([]byte, n)
	row := idx
	for i := 0; i < n; i++ {
		out[i] = pairs[row].b
		row = next[row]
	}
	return out
}
