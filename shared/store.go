// Package shared defines the rendezvous protocol ranks use to exchange
// per-bootstrap results. A Store holds immutable byte payloads under
// string keys: exactly one rank publishes a key, any number of ranks
// await it, and the master retires it once every rank has consumed it.
// Keys are never reused across bootstraps.
package shared

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`.
var ErrNotFound = errors.New("shared: key not found")

// ErrAlreadyPublished is returned when a key is published twice. Values
// are immutable once written.
var ErrAlreadyPublished = errors.New("shared: key already published")

// Store is the key-value exchange backing the bootstrap protocol.
type Store interface {
	// Publish writes an immutable value under key. Publishing an
	// existing key returns ErrAlreadyPublished.
	Publish(ctx context.Context, key string, value []byte) error

	// Await blocks until key exists and returns its value. It is the
	// protocol's only suspension point; cancellation of ctx unblocks it.
	Await(ctx context.Context, key string) ([]byte, error)

	// Clear retires a key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error
}

// StatisticKey names the shared statistic of one bootstrap.
func StatisticKey(ordinal int) string {
	return fmt.Sprintf("stat/%d", ordinal)
}

// AckKey names one rank's receipt of a bootstrap's statistic. The master
// awaits every rank's ack before retiring the bootstrap's keys, so no
// rank can observe a key vanish before it has read it. When several
// pools share one store each pool passes its own id so rank r of pool A
// never collides with rank r of pool B; a lone pool passes "".
func AckKey(pool string, ordinal, rank int) string {
	if pool == "" {
		return fmt.Sprintf("ack/%d/%d", ordinal, rank)
	}
	return fmt.Sprintf("ack/%s/%d/%d", pool, ordinal, rank)
}
