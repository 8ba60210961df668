package scan

import (
	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/archfmt"
)

type fragRecord struct {
	sha1  [20]byte
	usize int64
}

// parseFragTable decodes an `h` block payload: bsize[4] then k records of
// (sha1[20], usize[4]), per §6.3.
func parseFragTable(data []byte) ([]fragRecord, error) {
	if len(data) < 4 {
		return nil, errors.New("scan: fragment table too short")
	}
	body := data[4:]
	const recSize = 24
	if len(body)%recSize != 0 {
		return nil, errors.New("scan: fragment table payload not a multiple of record size")
	}
	k := len(body) / recSize
	recs := make([]fragRecord, k)
	for i := 0; i < k; i++ {
		off := i * recSize
		copy(recs[i].sha1[:], body[off:off+20])
		recs[i].usize = int64(archfmt.GetInt32(body[off+20 : off+24]))
	}
	return recs, nil
}
