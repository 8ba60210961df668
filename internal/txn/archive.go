package txn

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/archfmt"
	"github.com/jidac/jidac/internal/codec"
	"github.com/jidac/jidac/internal/method"
)

// openArchive opens path for read+write, creating it if absent, and
// returns it positioned at EOF along with its size at open time.
func openArchive(path string) (*os.File, int64, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "txn: open %s", path)
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, size, nil
}

// writeTransactionHeader writes a `c` block with a placeholder jump field
// and returns the byte offset of that field so it can be backpatched
// once the transaction's other blocks are known, per §5's ordering rule
// (d): "the transaction-header block is written first with a placeholder
// jump and back-patched ... after all other blocks ... are written."
func writeTransactionHeader(f *os.File, date archfmt.DecimalDate) (blockStart, jumpFieldOffset int64, err error) {
	seg := archfmt.Segment{
		Filename: archfmt.SegmentName(date, archfmt.BlockTransaction, 0),
		Comment:  archfmt.JournalTag,
		Payload:  make([]byte, 8),
	}
	blockStart, err = f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, err
	}
	if err := archfmt.WriteBlock(f, archfmt.BlockHeader{}, []archfmt.Segment{seg}); err != nil {
		return 0, 0, err
	}
	// The jump field sits right after: 3-byte magic, 36-byte header args,
	// 4-byte header program length, then the segment's filename
	// (len+1) and comment (4-byte length prefix + bytes) and the
	// payload's own 4-byte length prefix.
	offset := blockStart + 3 + 36 + 4
	offset += int64(len(seg.Filename)) + 1
	offset += 4 + int64(len(seg.Comment))
	offset += 4 // payload length prefix
	return blockStart, offset, nil
}

// backpatchJump overwrites the jump field written by writeTransactionHeader
// once the transaction's true length is known.
func backpatchJump(f *os.File, jumpFieldOffset, jump int64) error {
	buf := make([]byte, 8)
	archfmt.PutInt64(buf, jump)
	if _, err := f.WriteAt(buf, jumpFieldOffset); err != nil {
		return errors.Wrap(err, "txn: backpatch transaction jump")
	}
	return nil
}

// writeDataBlock writes one `d` segment and returns the block's starting
// offset (the csize recorded for the block's first fragment). rec is the
// compiled recipe the winning cand came from: its Args[0] (block-size
// exponent) and, for level 6, Args[2] (periodicity) plus ZPAQLProgram (the
// distance-context model §4.4 describes) travel into the written header
// alongside cand's preprocessor/codec encoding.
func writeDataBlock(f *os.File, date archfmt.DecimalDate, firstID int64, rec method.Recipe, cand method.Candidate, encoded []byte) (int64, error) {
	blockStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	args := rec.Args
	cand.EncodeArgs(&args)
	seg := archfmt.Segment{
		Filename: archfmt.SegmentName(date, archfmt.BlockData, uint64(firstID)),
		Comment:  archfmt.JournalTag,
		Payload:  encoded,
	}
	hdr := archfmt.BlockHeader{Args: args, ZPAQLProgram: rec.ZPAQLProgram}
	if err := archfmt.WriteBlock(f, hdr, []archfmt.Segment{seg}); err != nil {
		return 0, err
	}
	return blockStart, nil
}

// metaCodec is the candidate used for `i` blocks and for `h` blocks of
// non-textish data: these payloads are already compact structured records,
// so they are stored verbatim rather than raced against the data-block
// codecs.
var metaCodec = method.Candidate{Codec: method.CodecStore}

// fragTableCodec is the candidate used for `h` blocks whose block was
// classified textish (§4.4): zstd seeded with the block's own order-1
// dictionary, the "Fragment-table dictionary reuse" supplemented feature.
var fragTableCodec = method.Candidate{Codec: method.CodecZstd}

// writeFragTableBlock writes the `h` block recording (sha1, usize) for
// fragments [firstID, firstID+len(sha1s)), per §6.3. textIsh blocks reuse
// dict (the owning data block's order-1 successor table) as a rolling
// zstd dictionary so the fragment table's sha1/usize records, which
// repeat a lot of structure across fragments of the same filetype,
// compress instead of being stored verbatim. The raw dict bytes are
// written ahead of the compressed payload so a later scan can recover
// them without having decompressed the `d` block.
func writeFragTableBlock(f *os.File, date archfmt.DecimalDate, firstID int64, bsize int32, sha1s [][20]byte, usizes []int64, textIsh bool, dict codec.Dict) error {
	payload := make([]byte, 4)
	archfmt.PutInt32(payload, bsize)
	for i, sum := range sha1s {
		payload = append(payload, sum[:]...)
		sz := make([]byte, 4)
		archfmt.PutInt32(sz, int32(usizes[i]))
		payload = append(payload, sz...)
	}

	var args [9]int32
	var encoded []byte
	if textIsh && len(dict) > 0 {
		compressed, err := codec.EncodeCandidate(payload, fragTableCodec, dict)
		if err != nil {
			return err
		}
		encoded = make([]byte, 0, len(dict)+len(compressed))
		encoded = append(encoded, dict...)
		encoded = append(encoded, compressed...)
		fragTableCodec.EncodeArgs(&args)
		args[2] = method.FragTableDictFlag
	} else {
		var err error
		encoded, err = codec.EncodeCandidate(payload, metaCodec, nil)
		if err != nil {
			return err
		}
		metaCodec.EncodeArgs(&args)
	}

	seg := archfmt.Segment{
		Filename: archfmt.SegmentName(date, archfmt.BlockFragTable, uint64(firstID)),
		Comment:  archfmt.JournalTag,
		Payload:  encoded,
	}
	return archfmt.WriteBlock(f, archfmt.BlockHeader{Args: args}, []archfmt.Segment{seg})
}

// writeIndexBlock writes one `i` block per §6.3: a repeating sequence of
// index records for the files that changed in this transaction.
func writeIndexBlock(f *os.File, date archfmt.DecimalDate, records []indexRecord) error {
	var payload []byte
	for _, rec := range records {
		dateBuf := make([]byte, 8)
		archfmt.PutUint64(dateBuf, uint64(rec.Date))
		payload = append(payload, dateBuf...)
		payload = append(payload, []byte(rec.Name)...)
		payload = append(payload, 0)
		if rec.Date == 0 {
			continue // deletion marker: no attr/ptr fields
		}
		attrBytes := rec.Attr.Encode()
		naBuf := make([]byte, 4)
		archfmt.PutUint32(naBuf, uint32(len(attrBytes)))
		payload = append(payload, naBuf...)
		payload = append(payload, attrBytes...)
		niBuf := make([]byte, 4)
		archfmt.PutUint32(niBuf, uint32(len(rec.Ptr)))
		payload = append(payload, niBuf...)
		for _, id := range rec.Ptr {
			idBuf := make([]byte, 4)
			archfmt.PutUint32(idBuf, uint32(id))
			payload = append(payload, idBuf...)
		}
	}
	encoded, err := codec.EncodeCandidate(payload, metaCodec, nil)
	if err != nil {
		return err
	}
	var args [9]int32
	metaCodec.EncodeArgs(&args)
	seg := archfmt.Segment{
		Filename: archfmt.SegmentName(date, archfmt.BlockIndex, 0),
		Comment:  archfmt.JournalTag,
		Payload:  encoded,
	}
	return archfmt.WriteBlock(f, archfmt.BlockHeader{Args: args}, []archfmt.Segment{seg})
}

type indexRecord struct {
	Name string
	Date archfmt.DecimalDate
	Attr archfmt.Attr
	Ptr  []int64
}

// truncateArchive drops everything from offset onward, implementing
// "add -until N first truncates the archive to the transaction header
// boundary of version N before appending" (§3).
func truncateArchive(f *os.File, offset int64) error {
	if err := f.Truncate(offset); err != nil {
		return err
	}
	_, err := f.Seek(offset, io.SeekStart)
	return err
}
