package method

import "github.com/pkg/errors"

// ByteAlignedLZ77 implements §4.5's byte-aligned LZ77 encoder: a literal
// chunk is `00xxxxxx` = x+1 literals; a match chunk is `yyxxxxxx` with
// y in {1,2,3}, match length = x + minMatch, and the offset-1 following in
// y+1 bytes MSB-first. Matches longer than minMatch+63 are split into
// several chunks.
type ByteAlignedLZ77 struct {
	MinMatch int
}

var errTruncatedStream = errors.New("method: truncated LZ77 stream")

// Encode compresses data with the byte-aligned LZ77 scheme.
func (c ByteAlignedLZ77) Encode(data []byte) []byte {
	minMatch := c.MinMatch
	if minMatch < 4 {
		minMatch = 4
	}
	mf := newMatchFinder(data, minMatch, minMatch+4, minMatch)

	var out []byte
	var lit []byte

	flushLiterals := func() {
		for len(lit) > 0 {
			n := len(lit)
			if n > 64 {
				n = 64
			}
			out = append(out, byte(n-1))
			out = append(out, lit[:n]...)
			lit = lit[n:]
		}
	}

	pos := 0
	for pos < len(data) {
		off, length := mf.best(pos)
		if length >= minMatch {
			flushLiterals()
			remaining := length
			for remaining > 0 {
				chunkLen := remaining
				if chunkLen > minMatch+63 {
					chunkLen = minMatch + 63
				}
				if chunkLen < minMatch {
					// Too short to encode as its own chunk; fall back to a
					// literal for this tail instead of emitting a bad match.
					break
				}
				offBytes := offsetByteLen(off)
				tag := byte(offBytes-1)<<6 | byte(chunkLen-minMatch)
				out = append(out, tag)
				out = appendOffsetMSB(out, off-1, offBytes)
				for i := 0; i < chunkLen; i++ {
					mf.insert(pos)
					pos++
				}
				remaining -= chunkLen
				if remaining > 0 && remaining < minMatch {
					for i := 0; i < remaining; i++ {
						lit = append(lit, data[pos])
						mf.insert(pos)
						pos++
					}
					remaining = 0
				}
			}
			continue
		}
		lit = append(lit, data[pos])
		mf.insert(pos)
		pos++
	}
	flushLiterals()
	return out
}

// Decode reverses Encode.
func (c ByteAlignedLZ77) Decode(encoded []byte) ([]byte, error) {
	minMatch := c.MinMatch
	if minMatch < 4 {
		minMatch = 4
	}
	var out []byte
	i := 0
	for i < len(encoded) {
		tag := encoded[i]
		i++
		if tag&0xC0 == 0 {
			n := int(tag) + 1
			if i+n > len(encoded) {
				return nil, errTruncatedStream
			}
			out = append(out, encoded[i:i+n]...)
			i += n
			continue
		}
		y := int(tag >> 6)
		length := int(tag&0x3F) + minMatch
		offBytes := y + 1
		if i+offBytes > len(encoded) {
			return nil, errTruncatedStream
		}
		off := int(readOffsetMSB(encoded[i:i+offBytes])) + 1
		i += offBytes
		start := len(out) - off
		if start < 0 {
			return nil, errTruncatedStream
		}
		for k := 0; k < length; k++ {
			out = append(out, out[start+k])
		}
	}
	return out, nil
}

// offsetByteLen returns the number of MSB-first bytes needed to encode
// off-1, in the range [2,4] — the tag's "yy" field (y in {1,2,3}) leaves
// "00" reserved for literal chunks, so two bytes is the floor.
func offsetByteLen(off int) int {
	v := off - 1
	n := 2
	for n < 4 && v >= 1<<(8*uint(n)) {
		n++
	}
	return n
}

func appendOffsetMSB(out []byte, v int, n int) []byte {
	for i := n - 1; i >= 0; i-- {
		out = append(out, byte(v>>(8*uint(i))))
	}
	return out
}

func readOffsetMSB(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}
