// Package codec centralizes statistic payload encoding.
//
// Codec selection is a compatibility boundary between ranks: every rank of
// a pool must decode what the master published, so runs that share a remote
// store record the codec name alongside their configuration.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name. Compressed variants
// are named "<inner>+<scheme>", e.g. "json+zstd".
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "json+zstd":
		return Compressed(JSON{}, Zstd), true
	case "json+lz4":
		return Compressed(JSON{}, LZ4), true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
