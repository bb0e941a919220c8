package bootstrap

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Chunk is a half-open range [Start, End) of gene indices.
type Chunk struct {
	Start int
	End   int
}

// Len returns the number of genes in the chunk.
func (c Chunk) Len() int { return c.End - c.Start }

// Partitioner assigns work chunks to ranks without communication: chunk k
// belongs to rank k mod rankCount. Every rank computes the same complete,
// pairwise-disjoint assignment locally.
type Partitioner struct {
	chunkSize int
	rankCount int
}

// NewPartitioner creates a partitioner for a pool of rankCount ranks
// working in chunks of chunkSize genes.
func NewPartitioner(chunkSize, rankCount int) (*Partitioner, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if rankCount <= 0 {
		return nil, fmt.Errorf("rank count must be positive, got %d", rankCount)
	}
	return &Partitioner{chunkSize: chunkSize, rankCount: rankCount}, nil
}

// ChunkCount returns the number of chunks covering totalUnits genes.
func (p *Partitioner) ChunkCount(totalUnits int) int {
	if totalUnits <= 0 {
		return 0
	}
	return (totalUnits + p.chunkSize - 1) / p.chunkSize
}

// Owned returns the set of chunk indices rank is responsible for.
func (p *Partitioner) Owned(totalUnits, rank int) (*roaring.Bitmap, error) {
	if rank < 0 || rank >= p.rankCount {
		return nil, fmt.Errorf("rank %d out of range [0,%d)", rank, p.rankCount)
	}
	owned := roaring.New()
	for k := rank; k < p.ChunkCount(totalUnits); k += p.rankCount {
		owned.Add(uint32(k))
	}
	return owned, nil
}

// Bounds returns chunk k's gene range, clamped to totalUnits. The final
// chunk may be short.
func (p *Partitioner) Bounds(k, totalUnits int) Chunk {
	start := k * p.chunkSize
	end := start + p.chunkSize
	if end > totalUnits {
		end = totalUnits
	}
	return Chunk{Start: start, End: end}
}
