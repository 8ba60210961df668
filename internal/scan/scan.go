// Package scan implements the archive scanner of §4.9: a single-pass
// read of the archive that rebuilds HT/DT/VER, falling back to a RECOVER
// pass when a fragment table fails to decode, is out of order, or is
// duplicated.
package scan

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/codec"
	"github.com/jidac/jidac/internal/index"
	"github.com/jidac/jidac/internal/method"
)

// Scanner rebuilds an archive's Model by reading its blocks in order.
type Scanner struct {
	// UntilOffset stops the NORMAL pass at the first transaction header
	// block starting at or after this archive offset, per §6.5's -until.
	// Zero means no limit.
	UntilOffset int64

	// NeedsRecover is set once the NORMAL pass observes an out-of-order
	// or duplicate fragment table, per §7's "Recoverable Format" kind, or
	// a fragment table whose payload fails to decode or parse.
	NeedsRecover bool

	// FormatErrors counts per-block Format errors encountered; the scan
	// continues past them (§7), but a caller running `test` should treat
	// a nonzero count as failure.
	FormatErrors int

	pendingOffsets map[int64]int64
	seenFragTable  map[int64]bool
	lastFragFirst  int64
}

// New returns a Scanner ready to run the NORMAL pass.
func New() *Scanner {
	return &Scanner{
		pendingOffsets: map[int64]int64{},
		seenFragTable:  map[int64]bool{},
		lastFragFirst:  -1,
	}
}

// Scan reads r block by block (r must support Seek so the scanner can
// record each block's starting offset into HT/VER) and returns the
// reconstructed Model.
func (s *Scanner) Scan(r io.ReadSeeker) (*index.Model, error) {
	m := index.NewModel()
	var curVersion uint32

	for {
		blockStart, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return m, err
		}
		hdr, segs, err := archfmt.ReadBlock(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return m, errors.Wrap(err, "scan: read block")
		}

		for _, seg := range segs {
			parsed, perr := archfmt.ParseSegmentName(seg.Filename)
			if perr != nil || !archfmt.HasJournalTag(seg.Comment) {
				s.scanStreamingSegment(m, seg)
				continue
			}

			switch parsed.Type {
			case archfmt.BlockTransaction:
				if s.UntilOffset > 0 && blockStart >= s.UntilOffset {
					return m, nil
				}
				var jump int64
				if len(seg.Payload) >= 8 {
					jump = archfmt.GetInt64(seg.Payload)
				}
				if jump <= 0 {
					// 0 = unknown, negative = aborted (§5's Cancellation
					// design): the transaction never finished writing, so
					// its blocks must not be folded into HT/DT/VER.
					return m, nil
				}
				curVersion = m.AppendVersion(index.Version{
					Date:          parsed.Date,
					Offset:        blockStart,
					FirstFragment: int64(len(m.HT)),
				})

			case archfmt.BlockData:
				s.pendingOffsets[int64(parsed.ID)] = blockStart

			case archfmt.BlockFragTable:
				if err := s.applyFragTable(m, hdr, seg, int64(parsed.ID)); err != nil {
					s.FormatErrors++
				}

			case archfmt.BlockIndex:
				if err := s.applyIndexBlock(m, hdr, seg, curVersion); err != nil {
					s.FormatErrors++
				}
			}
		}
	}
	return m, nil
}

func (s *Scanner) applyFragTable(m *index.Model, hdr archfmt.BlockHeader, seg archfmt.Segment, firstID int64) error {
	if firstID < s.lastFragFirst || s.seenFragTable[firstID] {
		s.NeedsRecover = true
		return errors.Errorf("scan: out-of-order or duplicate fragment table at id %d", firstID)
	}
	s.seenFragTable[firstID] = true
	s.lastFragFirst = firstID

	data, err := decodeFragTableSegment(hdr, seg)
	if err != nil {
		// A corrupted `h` block payload leaves fragments [firstID, ...)
		// unresolved in HT, the same state RECOVER exists to repair
		// (I7): trigger it here too, not just on ordering violations.
		s.NeedsRecover = true
		return err
	}
	recs, err := parseFragTable(data)
	if err != nil {
		s.NeedsRecover = true
		return err
	}

	m.EnsureFragmentCapacity(firstID + int64(len(recs)) - 1)
	blockOffset, haveOffset := s.pendingOffsets[firstID]
	for j, rec := range recs {
		id := firstID + int64(j)
		m.HT[id].SHA1 = rec.sha1
		m.HT[id].USize = rec.usize
		switch {
		case j == 0 && haveOffset:
			m.HT[id].CSize = blockOffset
		case j > 0:
			m.HT[id].CSize = -int64(j)
		}
	}
	delete(s.pendingOffsets, firstID)
	return nil
}

func (s *Scanner) applyIndexBlock(m *index.Model, hdr archfmt.BlockHeader, seg archfmt.Segment, version uint32) error {
	data, err := decodeSegment(hdr, seg)
	if err != nil {
		return err
	}
	return parseIndexBlock(data, m, version)
}

func decodeSegment(hdr archfmt.BlockHeader, seg archfmt.Segment) ([]byte, error) {
	cand := method.DecodeArgs(hdr.Args)
	return codec.DecodeCandidate(seg.Payload, cand, nil)
}

// decodeFragTableSegment decodes an `h` block's payload, honoring the
// inline order-1 dictionary internal/txn's writeFragTableBlock prepends
// when the block was classified textish ("Fragment-table dictionary
// reuse", SUPPLEMENTED FEATURES): args[2] == method.FragTableDictFlag
// says the first method.Order1TableSize bytes of the payload are the raw
// dictionary, with the zstd-compressed fragment records following.
func decodeFragTableSegment(hdr archfmt.BlockHeader, seg archfmt.Segment) ([]byte, error) {
	cand := method.DecodeArgs(hdr.Args)
	if hdr.Args[2] != method.FragTableDictFlag || len(seg.Payload) < method.Order1TableSize {
		return codec.DecodeCandidate(seg.Payload, cand, nil)
	}
	dict := codec.Dict(seg.Payload[:method.Order1TableSize])
	return codec.DecodeCandidate(seg.Payload[method.Order1TableSize:], cand, dict)
}

// scanStreamingSegment handles a non-JIDAC segment per §4.9's streaming
// fallback: one fragment per segment, attributes parsed from the
// comment "<usize> YYYYMMDDHHMMSS [wN|uN]".
func (s *Scanner) scanStreamingSegment(m *index.Model, seg archfmt.Segment) {
	usize, date, attr, ok := parseStreamingComment(string(seg.Comment))
	if !ok {
		return
	}
	name := seg.Filename
	if name == "" {
		name = "(streaming)"
	}
	id := m.AppendFragment(index.Fragment{USize: usize, CSize: archfmt.HTBad})
	if seg.SHA1 != nil {
		m.HT[id].SHA1 = *seg.SHA1
	}
	fe := m.FileEntryFor(name)
	fe.DTV = append(fe.DTV, index.DTV{
		Date: date,
		Size: usize,
		Attr: attr,
		Ptr:  []int64{id},
	})
}

func parseStreamingComment(comment string) (usize int64, date archfmt.DecimalDate, attr archfmt.Attr, ok bool) {
	fields := strings.Fields(comment)
	if len(fields) < 2 {
		return 0, 0, archfmt.NoAttr, false
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, archfmt.NoAttr, false
	}
	d, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, 0, archfmt.NoAttr, false
	}
	attr = archfmt.NoAttr
	if len(fields) >= 3 && len(fields[2]) > 1 {
		switch fields[2][0] {
		case 'w':
			if flags, err := strconv.ParseUint(fields[2][1:], 10, 32); err == nil {
				attr = archfmt.WindowsAttr(uint32(flags))
			}
		case 'u':
			if mode, err := strconv.ParseUint(fields[2][1:], 10, 32); err == nil {
				attr = archfmt.PosixAttr(uint32(mode))
			}
		}
	}
	return n, archfmt.DecimalDate(d), attr, true
}
