package method

// Order1TableSize is the width of an Order1Table.Table: one slot per
// possible byte value.
const Order1TableSize = 256

// FragTableDictFlag marks args[2] of an `h` block's header to say its
// payload carries an inline order-1 dictionary ahead of its compressed
// body (internal/txn's writeFragTableBlock and internal/scan's reader
// agree on this through this shared constant): the scanner has no access
// to the owning `d` block's decompressed bytes by the time it reaches the
// `h` block, so the dictionary travels with the fragment table itself.
const FragTableDictFlag = 1

// Order1Table is the "last observed successor" predictor described in
// §4.1 and reused here for block-type classification (§4.4): Table[p] is
// the most recent byte observed immediately after byte value p.
type Order1Table struct {
	Table [Order1TableSize]byte
	Hits  int
	Total int
}

// BuildOrder1Table scans data once, building its order-1 prediction table
// and counting how often the table's standing prediction was correct —
// the "order-1 hit rate" predictor of §4.4.
func BuildOrder1Table(data []byte) Order1Table {
	var t Order1Table
	var prev byte
	for i, c := range data {
		if i > 0 {
			t.Total++
			if c == t.Table[prev] {
				t.Hits++
			}
		}
		t.Table[prev] = c
		prev = c
	}
	return t
}

// BlockType is the §4.4 compressibility fingerprint: bit 0 text-ish,
// bit 1 x86-ish, bits 2..9 a redundancy score. The two flags are kept as
// bools and the score as a separate uint8; Pack() folds them into one byte.
type BlockType struct {
	TextIsh     bool
	X86ish      bool
	Redundancy  uint8 // in [0,255]
}

// Pack folds BlockType into a single byte: the two flag bits in bits 0-1
// and the redundancy score, with its low two bits dropped, in bits 2-7.
func (t BlockType) Pack() byte {
	var b byte
	if t.TextIsh {
		b |= 1
	}
	if t.X86ish {
		b |= 2
	}
	b |= t.Redundancy &^ 0x3
	return b
}

// Classify computes the block type fingerprint of §4.4 from data's order-1
// table, optionally comparing against a previous block's table for the
// "match rate against previous blocks" predictor.
func Classify(data []byte, prevTable *Order1Table) BlockType {
	t := BuildOrder1Table(data)

	textIsh := textLikePredictor(t) > 0.1
	x86ish := countByteValue(t.Table, 0x8B) > 2

	p1 := scaleRate(t.Hits, t.Total)
	p2 := nonUniformity(t.Table)
	p3 := scaleRate(countByteValue(t.Table, 0), 256)
	p4 := uint8(0)
	if prevTable != nil {
		p4 = matchRate(t.Table, prevTable.Table)
	}

	redundancy := p1
	for _, p := range []uint8{p2, p3, p4} {
		if p > redundancy {
			redundancy = p
		}
	}

	return BlockType{TextIsh: textIsh, X86ish: x86ish, Redundancy: redundancy}
}

// textLikePredictor is the fraction of the letters/digits present in the
// table (nonzero successor entry) whose last observed successor is a space.
func textLikePredictor(t Order1Table) float64 {
	var alnum, spaceAfter int
	for i := 0; i < 256; i++ {
		if isAlnum(byte(i)) && t.Table[i] != 0 {
			alnum++
			if t.Table[i] == ' ' {
				spaceAfter++
			}
		}
	}
	if alnum == 0 {
		return 0
	}
	return float64(spaceAfter) / float64(alnum)
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func countByteValue(table [256]byte, v byte) int {
	n := 0
	for _, b := range table {
		if b == v {
			n++
		}
	}
	return n
}

func scaleRate(n, total int) uint8 {
	if total <= 0 {
		return 0
	}
	v := n * 255 / total
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// nonUniformity scores how concentrated the order-1 table's value
// distribution is: a table dominated by a handful of successor values
// (as happens with highly redundant data) scores high.
func nonUniformity(table [256]byte) uint8 {
	var hist [256]int
	for _, b := range table {
		hist[b]++
	}
	maxFreq := 0
	for _, c := range hist {
		if c > maxFreq {
			maxFreq = c
		}
	}
	return scaleRate(maxFreq, 256)
}

func matchRate(a, b [256]byte) uint8 {
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return scaleRate(matches, 256)
}
