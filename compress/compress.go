// Package compress implements the block compression used for archived envelopes.
//
// A block is self-describing:
//
//	[Type uint8][UncompressedSize uint32][CompressedSize uint32][Data...]
//
// Integers are little-endian. When compression does not pay off the block is
// stored with Type None and the original bytes.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores data uncompressed.
	None Type = 0
	// LZ4 is LZ4 block compression (fast).
	LZ4 Type = 1
	// ZSTD is Zstandard compression (better ratio).
	ZSTD Type = 2
)

// HeaderSize is the size of the block header in bytes.
const HeaderSize = 9

// maxRatio is the compressed/uncompressed ratio above which data is stored raw.
const maxRatio = 0.9

var (
	// ErrUnknownType is returned for an unsupported compression type.
	ErrUnknownType = errors.New("unknown compression type")
	// ErrCorrupt is returned when a block is truncated or inconsistent.
	ErrCorrupt = errors.New("corrupt compressed block")
)

// String returns the stable name of the type.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseType parses a compression name ("none", "lz4", "zstd"). The empty string means None.
func ParseType(name string) (Type, error) {
	switch name {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Compress compresses data into a block of the given type.
func Compress(data []byte, t Type) ([]byte, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("compress: block of %d bytes exceeds 4GiB", len(data))
	}

	var (
		compressed []byte
		err        error
	)
	switch t {
	case None:
	case LZ4:
		compressed, err = compressLZ4(data)
	case ZSTD:
		compressed, err = compressZSTD(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*maxRatio {
		return frame(None, data, data), nil
	}
	return frame(t, data, compressed), nil
}

func frame(t Type, original, payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	out[0] = byte(t)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(original)))
	binary.LittleEndian.PutUint32(out[5:], uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out
}

func compressLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return buf[:n], nil
}

func compressZSTD(data []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

// BlockType returns the compression type recorded in a block header.
func BlockType(block []byte) (Type, error) {
	if len(block) < HeaderSize {
		return None, ErrCorrupt
	}
	return Type(block[0]), nil
}

// Decompress decodes a block produced by Compress.
func Decompress(block []byte) ([]byte, error) {
	if len(block) < HeaderSize {
		return nil, fmt.Errorf("%w: block too small for header", ErrCorrupt)
	}

	t := Type(block[0])
	uncompressedSize := binary.LittleEndian.Uint32(block[1:])
	payloadSize := binary.LittleEndian.Uint32(block[5:])

	if uint64(len(block)) < uint64(HeaderSize)+uint64(payloadSize) {
		return nil, fmt.Errorf("%w: payload truncated", ErrCorrupt)
	}
	payload := block[HeaderSize : HeaderSize+int(payloadSize)]

	switch t {
	case None:
		if payloadSize != uncompressedSize {
			return nil, fmt.Errorf("%w: raw size mismatch", ErrCorrupt)
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil

	case LZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil

	case ZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, err
		}
		if uint32(len(out)) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}
