package method

import "github.com/jidac/jidac/internal/archfmt"

// E8E9Forward implements the x86 relative-call preprocessor of §4.6: every
// CALL (0xE8) or JMP (0xE9) opcode is followed by a 4-byte little-endian
// relative displacement, which is rewritten as an absolute position so
// that repeated calls to the same target compress better.
//
// The transform always rewrites every E8/E9 occurrence (rather than only
// those whose resulting address looks plausible, as production x86 BCJ
// filters do) and always advances 5 bytes past a rewritten opcode before
// resuming the scan. That keeps the set of rewritten positions identical
// between forward and inverse scans, which is what makes the simplified
// filter exactly invertible.
func E8E9Forward(data []byte) []byte {
	return e8e9Transform(data, true)
}

// E8E9Inverse reverses E8E9Forward.
func E8E9Inverse(data []byte) []byte {
	return e8e9Transform(data, false)
}

func e8e9Transform(data []byte, forward bool) []byte {
	out := append([]byte{}, data...)
	n := len(out)
	for i := 0; i+5 <= n; {
		if out[i] == 0xE8 || out[i] == 0xE9 {
			v := int32(archfmt.GetUint32(out[i+1 : i+5]))
			var nv int32
			if forward {
				nv = v + int32(i) + 5
			} else {
				nv = v - int32(i) - 5
			}
			archfmt.PutUint32(out[i+1:i+5], uint32(nv))
			i += 5
			continue
		}
		i++
	}
	return out
}
