package archfmt

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// blockMagic opens every block: the self-describing header §6.1 hands off
// to the streaming compressor/decompressor is out of scope for this
// package (it is the library's own business), but the block container
// that carries segments is the wire contract this package owns.
var blockMagic = [3]byte{'j', 'D', '1'}

// BlockHeader carries the method compiler's output (§4.4) that the block's
// segments were compressed with: the ZPAQL program text (opaque, per §9's
// design note) and its numeric arguments.
type BlockHeader struct {
	Args         [9]int32
	ZPAQLProgram string
}

// Segment is one §6.1 segment: filename, comment, compressed payload, and
// an optional 21-byte SHA-1 trailer (0x01 followed by 20 bytes).
type Segment struct {
	Filename string
	Comment  []byte
	Payload  []byte
	SHA1     *[20]byte
}

var ErrBadBlockMagic = errors.New("archfmt: bad block magic")

// WriteBlock writes one block: magic, header, then each segment, then a
// zero-length filename to mark the block's end.
func WriteBlock(w io.Writer, hdr BlockHeader, segs []Segment) error {
	if _, err := w.Write(blockMagic[:]); err != nil {
		return err
	}
	if err := writeBlockHeader(w, hdr); err != nil {
		return err
	}
	for _, seg := range segs {
		if err := writeSegment(w, seg); err != nil {
			return err
		}
	}
	// End-of-block marker: zero-length filename, no comment, no payload.
	return writeSegment(w, Segment{})
}

// ReadBlock reads one block written by WriteBlock.
func ReadBlock(r io.Reader) (BlockHeader, []Segment, error) {
	var magic [3]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return BlockHeader{}, nil, err
	}
	if magic != blockMagic {
		return BlockHeader{}, nil, ErrBadBlockMagic
	}
	hdr, err := readBlockHeader(r)
	if err != nil {
		return BlockHeader{}, nil, err
	}
	var segs []Segment
	for {
		seg, err := readSegment(r)
		if err != nil {
			return hdr, segs, err
		}
		if seg.Filename == "" && len(seg.Comment) == 0 && len(seg.Payload) == 0 {
			break
		}
		segs = append(segs, seg)
	}
	return hdr, segs, nil
}

func writeBlockHeader(w io.Writer, hdr BlockHeader) error {
	var argBuf [36]byte
	for i, a := range hdr.Args {
		binary.LittleEndian.PutUint32(argBuf[i*4:], uint32(a))
	}
	if _, err := w.Write(argBuf[:]); err != nil {
		return err
	}
	return writeLenPrefixed(w, []byte(hdr.ZPAQLProgram))
}

func readBlockHeader(r io.Reader) (BlockHeader, error) {
	var hdr BlockHeader
	var argBuf [36]byte
	if _, err := io.ReadFull(r, argBuf[:]); err != nil {
		return hdr, err
	}
	for i := range hdr.Args {
		hdr.Args[i] = int32(binary.LittleEndian.Uint32(argBuf[i*4:]))
	}
	prog, err := readLenPrefixed(r)
	if err != nil {
		return hdr, err
	}
	hdr.ZPAQLProgram = string(prog)
	return hdr, nil
}

func writeSegment(w io.Writer, seg Segment) error {
	if err := writeCString(w, seg.Filename); err != nil {
		return err
	}
	if err := writeLenPrefixed(w, seg.Comment); err != nil {
		return err
	}
	if err := writeLenPrefixed(w, seg.Payload); err != nil {
		return err
	}
	if seg.SHA1 != nil {
		if _, err := w.Write([]byte{0x01}); err != nil {
			return err
		}
		if _, err := w.Write(seg.SHA1[:]); err != nil {
			return err
		}
		return nil
	}
	_, err := w.Write([]byte{0x00})
	return err
}

func readSegment(r io.Reader) (Segment, error) {
	var seg Segment
	name, err := readCString(r)
	if err != nil {
		return seg, err
	}
	comment, err := readLenPrefixed(r)
	if err != nil {
		return seg, err
	}
	payload, err := readLenPrefixed(r)
	if err != nil {
		return seg, err
	}
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return seg, err
	}
	seg.Filename = name
	seg.Comment = comment
	seg.Payload = payload
	if tag[0] == 0x01 {
		var sha [20]byte
		if _, err := io.ReadFull(r, sha[:]); err != nil {
			return seg, err
		}
		seg.SHA1 = &sha
	}
	return seg, nil
}

func writeCString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}

func readCString(r io.Reader) (string, error) {
	var buf []byte
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
}

func writeLenPrefixed(w io.Writer, data []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
