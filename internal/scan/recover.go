package scan

import (
	"crypto/sha1"
	"io"

	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/index"
)

// Recover implements §4.9's RECOVER pass: re-reads every `d` block,
// parses its §4.3 trailer (usize[k], firstId, count), and reconstructs
// the HT rows a missing or corrupted `h` block would otherwise have
// supplied. Fragile blocks (whose trailer has a zero count) cannot be
// recovered and are skipped, matching the documented limitation in §8
// scenario 5.
func (s *Scanner) Recover(r io.ReadSeeker, m *index.Model) error {
	for {
		blockStart, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		hdr, segs, err := archfmt.ReadBlock(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "scan: recover read block")
		}

		for _, seg := range segs {
			parsed, perr := archfmt.ParseSegmentName(seg.Filename)
			if perr != nil || parsed.Type != archfmt.BlockData || !archfmt.HasJournalTag(seg.Comment) {
				continue
			}
			data, err := decodeSegment(hdr, seg)
			if err != nil {
				continue
			}
			trailer, ok := parseDataTrailer(data)
			if !ok || trailer.count == 0 {
				continue // fragile block, or no trailer: not recoverable
			}

			m.EnsureFragmentCapacity(trailer.firstID + int64(trailer.count) - 1)
			offset := 0
			for j := 0; j < trailer.count; j++ {
				id := trailer.firstID + int64(j)
				size := int(trailer.usizes[j])
				if offset+size > len(data) {
					break
				}
				chunk := data[offset : offset+size]
				sum := sha1.Sum(chunk)
				m.HT[id].SHA1 = sum
				m.HT[id].USize = int64(size)
				if j == 0 {
					m.HT[id].CSize = blockStart
				} else {
					m.HT[id].CSize = -int64(j)
				}
				offset += size
			}
		}
	}
}

type dataTrailer struct {
	usizes  []int32
	firstID int64
	count   int
}

// parseDataTrailer reads the §4.3 block trailer from the tail of a
// decompressed `d` block's bytes: usize[0..k-1] (4 bytes each), then
// firstFragmentId (4 bytes), then k (4 bytes).
func parseDataTrailer(data []byte) (dataTrailer, bool) {
	if len(data) < 8 {
		return dataTrailer{}, false
	}
	count := int(archfmt.GetInt32(data[len(data)-4:]))
	if count < 0 || len(data) < 8+count*4 {
		return dataTrailer{}, false
	}
	firstID := int64(archfmt.GetInt32(data[len(data)-8 : len(data)-4]))
	usizesStart := len(data) - 8 - count*4
	usizes := make([]int32, count)
	for i := 0; i < count; i++ {
		usizes[i] = archfmt.GetInt32(data[usizesStart+i*4 : usizesStart+i*4+4])
	}
	return dataTrailer{usizes: usizes, firstID: firstID, count: count}, true
}
