// Package bootstrap implements the per-bootstrap distributed protocol:
// deterministic with-replacement resampling, communication-free work
// partitioning, and the master/worker coordinator that exchanges one
// shared statistic per bootstrap through a shared.Store.
package bootstrap

import (
	"fmt"
	"math/rand/v2"
)

// Index is one bootstrap's sample draw: length n, entries in [0, n),
// drawn with replacement. It is a pure function of (seed, ordinal) and is
// recomputed wherever needed, never persisted or transmitted.
type Index []int

// Sample draws the bootstrap index for one ordinal. Every rank calling
// with the same (seed, ordinal, n) obtains the identical draw, which is
// what lets ranks slice the same bootstrap without exchanging it.
func Sample(seed int64, ordinal, n int) (Index, error) {
	if ordinal < 0 {
		return nil, fmt.Errorf("ordinal must be non-negative, got %d", ordinal)
	}
	if n <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", n)
	}

	r := rand.New(rand.NewPCG(uint64(seed), uint64(ordinal)))
	idx := make(Index, n)
	for i := range idx {
		idx[i] = r.IntN(n)
	}
	return idx, nil
}
