package scan

import (
	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/index"
)

// parseIndexBlock decodes an `i` block payload: a repeating sequence of
// (date[8] LE, name, 0x00, [na[4] attr[na] ni[4] ptr[ni]*4]) records,
// appending one DTV per record to the matching DT entry, per §6.3.
// date == 0 marks a deletion and carries no attr/ptr fields.
func parseIndexBlock(data []byte, m *index.Model, version uint32) error {
	pos := 0
	for pos < len(data) {
		if pos+8 > len(data) {
			return errors.New("scan: truncated index record date")
		}
		date := archfmt.DecimalDate(archfmt.GetUint64(data[pos : pos+8]))
		pos += 8

		nameEnd := pos
		for nameEnd < len(data) && data[nameEnd] != 0 {
			nameEnd++
		}
		if nameEnd >= len(data) {
			return errors.New("scan: unterminated index record name")
		}
		name := string(data[pos:nameEnd])
		pos = nameEnd + 1

		fe := m.FileEntryFor(name)

		if date == 0 {
			fe.DTV = append(fe.DTV, index.DTV{Version: version, Date: 0})
			continue
		}

		if pos+4 > len(data) {
			return errors.New("scan: truncated index record attr length")
		}
		na := int(archfmt.GetUint32(data[pos : pos+4]))
		pos += 4
		if pos+na > len(data) {
			return errors.New("scan: truncated index record attr bytes")
		}
		attr, err := archfmt.DecodeAttr(data[pos : pos+na])
		if err != nil {
			return err
		}
		pos += na

		if pos+4 > len(data) {
			return errors.New("scan: truncated index record fragment count")
		}
		ni := int(archfmt.GetUint32(data[pos : pos+4]))
		pos += 4
		if pos+ni*4 > len(data) {
			return errors.New("scan: truncated index record fragment list")
		}
		ptr := make([]int64, ni)
		var size int64
		for i := 0; i < ni; i++ {
			id := int64(archfmt.GetUint32(data[pos+i*4 : pos+i*4+4]))
			ptr[i] = id
			if id >= 0 && int(id) < len(m.HT) {
				size += m.HT[id].USize
			}
		}
		pos += ni * 4

		fe.DTV = append(fe.DTV, index.DTV{
			Version: version,
			Date:    date,
			Size:    size,
			Attr:    attr,
			Ptr:     ptr,
		})
	}
	return nil
}
