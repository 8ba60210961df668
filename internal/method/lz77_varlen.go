package method

// VarLenLZ77 implements §4.5's bit-packed variable-length LZ77 encoder.
// A literal run is `00` followed by an Elias-Gamma length and the raw
// bytes; a match is a leading 1 bit, a 5-bit field giving the bit-width of
// the encoded offset, an Elias-Gamma length (split into a low 2-bit
// remainder `ll` and a gamma-coded quotient), and the offset itself split
// into `r` low bits (r = LogBlockSize-24, floored at 0) stored raw and the
// remaining high bits gamma-free (stored as plain bits, since their count
// is already known from the 5-bit width field).
type VarLenLZ77 struct {
	MinMatch    int
	LogBlockSize int // args[0]: log2(blocksize in MB) + 20, i.e. log2(bytes)
}

func (c VarLenLZ77) minMatch() int {
	if c.MinMatch < 4 {
		return 4
	}
	return c.MinMatch
}

func (c VarLenLZ77) rBits() uint {
	r := c.LogBlockSize - 24
	if r < 0 {
		r = 0
	}
	return uint(r)
}

// Encode compresses data with the variable-length LZ77 scheme.
func (c VarLenLZ77) Encode(data []byte) []byte {
	minMatch := c.minMatch()
	r := c.rBits()
	mf := newMatchFinder(data, minMatch, minMatch+4, minMatch)

	w := newBitWriter()
	var lit []byte

	flushLiterals := func() {
		if len(lit) == 0 {
			return
		}
		w.WriteBit(0)
		w.WriteBit(0)
		writeGamma(w, uint64(len(lit)))
		for _, b := range lit {
			w.WriteBits(uint64(b), 8)
		}
		lit = nil
	}

	pos := 0
	for pos < len(data) {
		off, length := mf.best(pos)
		if length >= minMatch {
			flushLiterals()

			ll := uint64(length&3) & 3
			n := uint64(length) / 4
			offBits := bitLen(uint64(off))
			if offBits < 2 {
				offBits = 2
			}

			w.WriteBit(1)
			w.WriteBits(uint64(offBits-2), 5)
			w.WriteBits(ll, 2)
			writeGamma(w, n)

			low := uint64(off) & ((uint64(1) << r) - 1)
			w.WriteBits(low, r)

			high := uint64(off) >> r
			highBits := uint(offBits) - r
			if int(highBits) < 0 {
				highBits = 0
			}
			w.WriteBits(high, highBits)

			for i := 0; i < length; i++ {
				mf.insert(pos)
				pos++
			}
			continue
		}
		lit = append(lit, data[pos])
		mf.insert(pos)
		pos++
	}
	flushLiterals()
	return w.Bytes()
}

// Decode reverses Encode.
func (c VarLenLZ77) Decode(encoded []byte) ([]byte, error) {
	r := c.rBits()
	rdr := newBitReader(encoded)
	var out []byte

	for {
		// Encode pads the final byte with zero bits. Every code is longer
		// than 8 bits, so an all-zero tail inside the last byte is padding.
		if rdr.pos == len(encoded)-1 && encoded[rdr.pos]>>rdr.nbit == 0 {
			break
		}
		flag, ok := rdr.ReadBit()
		if !ok {
			break
		}
		if flag == 0 {
			second, ok := rdr.ReadBit()
			if !ok {
				return nil, errTruncatedStream
			}
			_ = second // always 0 by construction; kept for format fidelity
			n, ok := readGamma(rdr)
			if !ok {
				return nil, errTruncatedStream
			}
			for i := uint64(0); i < n; i++ {
				b, ok := rdr.ReadBits(8)
				if !ok {
					return nil, errTruncatedStream
				}
				out = append(out, byte(b))
			}
			continue
		}

		offBitsMinus2, ok := rdr.ReadBits(5)
		if !ok {
			return nil, errTruncatedStream
		}
		offBits := uint(offBitsMinus2) + 2
		ll, ok := rdr.ReadBits(2)
		if !ok {
			return nil, errTruncatedStream
		}
		n, ok := readGamma(rdr)
		if !ok {
			return nil, errTruncatedStream
		}
		length := int(n*4 + ll)

		low, ok := rdr.ReadBits(r)
		if !ok {
			return nil, errTruncatedStream
		}
		highBits := offBits - r
		if int(highBits) < 0 {
			highBits = 0
		}
		high, ok := rdr.ReadBits(highBits)
		if !ok {
			return nil, errTruncatedStream
		}
		off := int(high<<r | low)

		start := len(out) - off
		if start < 0 || off <= 0 {
			return nil, errTruncatedStream
		}
		for k := 0; k < length; k++ {
			out = append(out, out[start+k])
		}
	}
	return out, nil
}
