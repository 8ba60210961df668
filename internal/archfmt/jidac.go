package archfmt

import (
	"fmt"
	"regexp"
	"strconv"
)

// Block/segment type characters used in JIDAC segment names, §6.2.
const (
	BlockTransaction = 'c' // transaction header
	BlockData        = 'd' // fragment content
	BlockFragTable   = 'h' // fragment table
	BlockIndex       = 'i' // filename/version index
)

// JournalTag is the 4-byte suffix every journaling segment's comment must
// end with (§4.9, §6.2).
var JournalTag = []byte("jDC\x01")

var segmentNameRe = regexp.MustCompile(`^jDC(\d{14})([cdhi])(\d{10})$`)

// SegmentName builds the JIDAC filename for a segment: "jDC" + 14-digit
// date + type char + 10-digit id (§6.2).
func SegmentName(date DecimalDate, typ byte, id uint64) string {
	return fmt.Sprintf("jDC%014d%c%010d", uint64(date), typ, id)
}

// ParsedSegmentName is the decoded form of a JIDAC segment filename.
type ParsedSegmentName struct {
	Date DecimalDate
	Type byte
	ID   uint64
}

// ParseSegmentName parses a JIDAC filename of the form produced by
// SegmentName. It returns ErrBadSegmentName if name does not match.
func ParseSegmentName(name string) (ParsedSegmentName, error) {
	m := segmentNameRe.FindStringSubmatch(name)
	if m == nil {
		return ParsedSegmentName{}, ErrBadSegmentName
	}
	dateVal, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return ParsedSegmentName{}, ErrBadSegmentName
	}
	id, err := strconv.ParseUint(m[3], 10, 64)
	if err != nil {
		return ParsedSegmentName{}, ErrBadSegmentName
	}
	return ParsedSegmentName{
		Date: DecimalDate(dateVal),
		Type: m[2][0],
		ID:   id,
	}, nil
}

// HasJournalTag reports whether comment ends in the journaling tag
// required of every journaling segment (§4.9, §6.2).
func HasJournalTag(comment []byte) bool {
	if len(comment) < len(JournalTag) {
		return false
	}
	tail := comment[len(comment)-len(JournalTag):]
	for i, b := range JournalTag {
		if tail[i] != b {
			return false
		}
	}
	return true
}

// Sentinel fragment-id/csize values, §3.
const (
	// HTBad marks "no such fragment".
	HTBad int64 = -0x7FFFFFFFFFFFFFFF

	// Extracted marks a fragment verified during the current extract/test
	// run. It is distinct from HTBad and from any valid absolute offset or
	// negative in-block index.
	Extracted int64 = -0x7FFFFFFFFFFFFFFE
)

// ArchiveExtension is auto-appended to archive names lacking it, per §6.5.
const ArchiveExtension = ".zpaq"

// WithExtension appends ArchiveExtension if name doesn't already carry it.
func WithExtension(name string) string {
	if len(name) >= len(ArchiveExtension) && name[len(name)-len(ArchiveExtension):] == ArchiveExtension {
		return name
	}
	return name + ArchiveExtension
}
