// Package codec wraps the concrete compressors a method.Recipe can pick
// from into a uniform Encode/Decode pair, the way ponzu/writer/compress.go
// and ponzu/reader/decompress.go switch on a format.CompressionType.
package codec

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/method"
)

// ErrUnknownCodec mirrors reader.errUnknownCompressionType's role in the
// teacher: a Candidate naming a Codec this package doesn't implement.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// Dict is an optional zstd dictionary, reused across many small fragments
// of the same filetype the way ponzu's ZstdWriter.Dictionary and
// archive.zstdDict do.
type Dict []byte

// EncodeCandidate runs data through one Candidate's preprocessor and codec,
// in that order.
func EncodeCandidate(data []byte, c method.Candidate, dict Dict) ([]byte, error) {
	pre, err := applyPreprocessor(data, c.Preprocessor, true)
	if err != nil {
		return nil, err
	}
	return encode(pre, c.Codec, dict)
}

// DecodeCandidate reverses EncodeCandidate.
func DecodeCandidate(data []byte, c method.Candidate, dict Dict) ([]byte, error) {
	dec, err := decode(data, c.Codec, dict)
	if err != nil {
		return nil, err
	}
	return applyPreprocessor(dec, c.Preprocessor, false)
}

func applyPreprocessor(data []byte, p method.Preprocessor, forward bool) ([]byte, error) {
	switch p {
	case method.PreprocessNone:
		return data, nil
	case method.PreprocessE8E9:
		if forward {
			return method.E8E9Forward(data), nil
		}
		return method.E8E9Inverse(data), nil
	case method.PreprocessBWT:
		if forward {
			return method.BWTEncode(data), nil
		}
		return method.BWTDecode(data)
	default:
		return nil, errors.Errorf("codec: unknown preprocessor %d", p)
	}
}

func encode(data []byte, c method.Codec, dict Dict) ([]byte, error) {
	switch c {
	case method.CodecStore:
		return data, nil
	case method.CodecLZ77Byte:
		return (method.ByteAlignedLZ77{}).Encode(data), nil
	case method.CodecLZ77Var:
		return (method.VarLenLZ77{LogBlockSize: 20}).Encode(data), nil
	case method.CodecZstd:
		return encodeZstd(data, dict)
	case method.CodecBrotli:
		return encodeBrotli(data)
	default:
		return nil, ErrUnknownCodec
	}
}

func decode(data []byte, c method.Codec, dict Dict) ([]byte, error) {
	switch c {
	case method.CodecStore:
		return data, nil
	case method.CodecLZ77Byte:
		return (method.ByteAlignedLZ77{}).Decode(data)
	case method.CodecLZ77Var:
		return (method.VarLenLZ77{LogBlockSize: 20}).Decode(data)
	case method.CodecZstd:
		return decodeZstd(data, dict)
	case method.CodecBrotli:
		return decodeBrotli(data)
	default:
		return nil, ErrUnknownCodec
	}
}

func encodeZstd(data []byte, dict Dict) ([]byte, error) {
	buf := new(bytes.Buffer)
	var zw *zstd.Encoder
	var err error
	if dict == nil {
		zw, err = zstd.NewWriter(buf)
	} else {
		zw, err = zstd.NewWriter(buf, zstd.WithEncoderDict(dict))
	}
	if err != nil {
		return nil, errors.Wrap(err, "codec: zstd encoder")
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, errors.Wrap(err, "codec: zstd write")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "codec: zstd close")
	}
	return buf.Bytes(), nil
}

func decodeZstd(data []byte, dict Dict) ([]byte, error) {
	var zr *zstd.Decoder
	var err error
	if dict == nil {
		zr, err = zstd.NewReader(bytes.NewReader(data))
	} else {
		zr, err = zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderDicts(dict))
	}
	if err != nil {
		return nil, errors.Wrap(err, "codec: zstd decoder")
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "codec: zstd read")
	}
	return out, nil
}

func encodeBrotli(data []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	bw := brotli.NewWriter(buf)
	if _, err := bw.Write(data); err != nil {
		bw.Close()
		return nil, errors.Wrap(err, "codec: brotli write")
	}
	if err := bw.Close(); err != nil {
		return nil, errors.Wrap(err, "codec: brotli close")
	}
	return buf.Bytes(), nil
}

func decodeBrotli(data []byte) ([]byte, error) {
	br := brotli.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(br)
	if err != nil {
		return nil, errors.Wrap(err, "codec: brotli read")
	}
	return out, nil
}
