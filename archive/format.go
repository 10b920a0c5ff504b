package archive

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hupe1980/ragfmt/codec"
	"github.com/hupe1980/ragfmt/compress"
)

var magic = [4]byte{'R', 'G', 'F', 'E'}

const formatVersion uint8 = 1

// ErrCorrupt is returned when a blob is not a readable archived envelope.
var ErrCorrupt = errors.New("archive: corrupt envelope blob")

// encodeBlob frames an encoded envelope.
func encodeBlob(payload []byte, c codec.Codec, t compress.Type) ([]byte, error) {
	name := c.Name()
	if len(name) == 0 || len(name) > 255 {
		return nil, fmt.Errorf("archive: invalid codec name %q", name)
	}

	block, err := compress.Compress(payload, t)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(magic)+2+len(name)+len(block)))
	buf.Write(magic[:])
	buf.WriteByte(formatVersion)
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.Write(block)
	return buf.Bytes(), nil
}

// decodeBlob validates the frame and returns the codec and decompressed payload.
func decodeBlob(blob []byte) (codec.Codec, []byte, error) {
	if len(blob) < len(magic)+2 || !bytes.Equal(blob[:len(magic)], magic[:]) {
		return nil, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	blob = blob[len(magic):]

	if v := blob[0]; v != formatVersion {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	n := int(blob[1])
	blob = blob[2:]
	if len(blob) < n {
		return nil, nil, fmt.Errorf("%w: truncated codec name", ErrCorrupt)
	}

	name := string(blob[:n])
	c, ok := codec.ByName(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, name)
	}

	payload, err := compress.Decompress(blob[n:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return c, payload, nil
}
