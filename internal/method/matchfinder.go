package method

import "math/bits"

// matchFinder implements the two-context-order bucketed hash search of
// §4.5, shared by both LZ77 encoders. Each context order has its own hash
// table of recent positions; candidates from both tables are scored and
// the best wins.
type matchFinder struct {
	data     []byte
	order1   map[uint32][]int // args[3]-byte context
	order2   map[uint32][]int // args[2]-byte context
	ctx1Len  int
	ctx2Len  int
	maxCand  int
	minMatch int
}

func newMatchFinder(data []byte, ctx1Len, ctx2Len, minMatch int) *matchFinder {
	return &matchFinder{
		data:     data,
		order1:   map[uint32][]int{},
		order2:   map[uint32][]int{},
		ctx1Len:  ctx1Len,
		ctx2Len:  ctx2Len,
		maxCand:  32,
		minMatch: minMatch,
	}
}

func hashAt(data []byte, pos, n int) (uint32, bool) {
	if pos+n > len(data) {
		return 0, false
	}
	var h uint32 = 2166136261
	for i := 0; i < n; i++ {
		h ^= uint32(data[pos+i])
		h *= 16777619
	}
	return h, true
}

func (mf *matchFinder) insert(pos int) {
	if h, ok := hashAt(mf.data, pos, mf.ctx1Len); ok {
		mf.order1[h] = appendBounded(mf.order1[h], pos, mf.maxCand)
	}
	if h, ok := hashAt(mf.data, pos, mf.ctx2Len); ok {
		mf.order2[h] = appendBounded(mf.order2[h], pos, mf.maxCand)
	}
}

func appendBounded(list []int, v, max int) []int {
	list = append(list, v)
	if len(list) > max {
		list = list[len(list)-max:]
	}
	return list
}

// matchLen returns how many bytes data[a:] and data[b:] share in common.
func matchLen(data []byte, a, b, limit int) int {
	n := 0
	for a+n < len(data) && b+n < len(data) && n < limit && data[a+n] == data[b+n] {
		n++
	}
	return n
}

// score implements §4.5's candidate scoring: 8*len - log2(offset) - 11,
// the pending-literal and literal-mismatch penalty terms folded in by the
// caller since they depend on encoder state this package keeps separate.
func score(length, offset int) int {
	if offset <= 0 {
		offset = 1
	}
	return 8*length - bits.Len(uint(offset)) - 11
}

// best returns the best candidate match at pos: (offset, length), or
// (0, 0) if no match of at least minMatch bytes was found.
func (mf *matchFinder) best(pos int) (int, int) {
	bestOff, bestLen, bestScore := 0, 0, -1<<30

	consider := func(cands []int) {
		for _, cand := range cands {
			if cand >= pos {
				continue
			}
			l := matchLen(mf.data, cand, pos, len(mf.data)-pos)
			if l < mf.minMatch {
				continue
			}
			off := pos - cand
			s := score(l, off)
			if s > bestScore || (s == bestScore && off < bestOff) {
				bestScore, bestOff, bestLen = s, off, l
			}
		}
	}

	if h, ok := hashAt(mf.data, pos, mf.ctx2Len); ok {
		consider(mf.order2[h])
	}
	if h, ok := hashAt(mf.data, pos, mf.ctx1Len); ok {
		consider(mf.order1[h])
	}
	return bestOff, bestLen
}
