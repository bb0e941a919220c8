package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Scheme selects the compression algorithm of a Compressed codec.
type Scheme uint8

const (
	Zstd Scheme = iota
	LZ4
)

func (s Scheme) String() string {
	switch s {
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// frameHeaderSize prefixes every compressed payload with the uncompressed
// and compressed lengths. compressed length 0 marks a frame stored raw
// because compression did not help.
const frameHeaderSize = 8

// Compressed wraps an inner codec with frame compression. Incompressible
// payloads are stored raw behind the same header, so wrapping never
// inflates a payload by more than the header.
func Compressed(inner Codec, scheme Scheme) Codec {
	return &compressed{inner: inner, scheme: scheme}
}

type compressed struct {
	inner  Codec
	scheme Scheme
}

func (c *compressed) Name() string {
	return c.inner.Name() + "+" + c.scheme.String()
}

func (c *compressed) Marshal(v any) ([]byte, error) {
	plain, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}

	packed, err := c.compress(plain)
	if err != nil {
		return nil, err
	}

	// If compression doesn't help, store raw
	if packed == nil || len(packed) >= len(plain) {
		out := make([]byte, frameHeaderSize+len(plain))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(plain)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[frameHeaderSize:], plain)
		return out, nil
	}

	out := make([]byte, frameHeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(plain)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	copy(out[frameHeaderSize:], packed)
	return out, nil
}

func (c *compressed) Unmarshal(data []byte, v any) error {
	if len(data) < frameHeaderSize {
		return errors.New("payload too small for frame header")
	}
	plainSize := binary.LittleEndian.Uint32(data[0:])
	packedSize := binary.LittleEndian.Uint32(data[4:])

	if packedSize == 0 {
		if uint32(len(data)) < frameHeaderSize+plainSize {
			return errors.New("raw frame truncated")
		}
		return c.inner.Unmarshal(data[frameHeaderSize:frameHeaderSize+plainSize], v)
	}

	if uint32(len(data)) < frameHeaderSize+packedSize {
		return errors.New("compressed frame truncated")
	}
	plain, err := c.decompress(data[frameHeaderSize:frameHeaderSize+packedSize], int(plainSize))
	if err != nil {
		return err
	}
	return c.inner.Unmarshal(plain, v)
}

func (c *compressed) compress(plain []byte) ([]byte, error) {
	switch c.scheme {
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(plain, nil), nil
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(plain)))
		n, err := lz4.CompressBlock(plain, buf, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil // incompressible
		}
		return buf[:n], nil
	default:
		return nil, fmt.Errorf("unknown compression scheme %d", uint8(c.scheme))
	}
}

func (c *compressed) decompress(packed []byte, plainSize int) ([]byte, error) {
	switch c.scheme {
	case Zstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		plain, err := dec.DecodeAll(packed, nil)
		if err != nil {
			return nil, err
		}
		if len(plain) != plainSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return plain, nil
	case LZ4:
		plain := make([]byte, plainSize)
		n, err := lz4.UncompressBlock(packed, plain)
		if err != nil {
			return nil, err
		}
		if n != plainSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return plain, nil
	default:
		return nil, fmt.Errorf("unknown compression scheme %d", uint8(c.scheme))
	}
}
