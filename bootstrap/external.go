package bootstrap

import (
	"context"
	"log/slog"

	"github.com/hupe1980/regnet/expression"
)

// Statistic is the shared per-bootstrap result the master publishes and
// every worker consumes: the CLR matrix and the background mutual
// information it was derived from. Immutable once published.
type Statistic struct {
	Ordinal      int         `json:"ordinal"`
	CLR          [][]float64 `json:"clr"`
	BackgroundMI [][]float64 `json:"background_mi"`
}

// MIKernel computes the mutual-information-derived CLR statistic for one
// bootstrap's design and response slices. Only the master rank runs it.
type MIKernel func(ctx context.Context, design, response *expression.Matrix) (clr, backgroundMI [][]float64, err error)

// ChunkResult is one owned chunk's regression output.
type ChunkResult struct {
	Ordinal       int
	Chunk         Chunk
	Betas         [][]float64
	RescaledBetas [][]float64
}

// Solver regresses one chunk of response genes against the design slice
// under the shared statistic. Implementations are external (BBSR,
// elastic-net, ...); the coordinator only schedules them.
type Solver interface {
	Regress(ctx context.Context, design, response *expression.Matrix, chunk Chunk, stat *Statistic, priors *Priors) (*ChunkResult, error)
}

// Clusterer re-aggregates single-cell bootstrap slices to pseudobulk
// before the MI kernel and solver run. Optional.
type Clusterer interface {
	Pseudobulk(ctx context.Context, design, response *expression.Matrix) (*expression.Matrix, *expression.Matrix, error)
}

// Priors is the prior-knowledge network: one row per target gene, one
// column per regulator.
type Priors struct {
	Genes      []string
	Regulators []string
	Weights    [][]float64
}

// NewPriors builds a prior network. Duplicate labels are tolerated and
// logged (first occurrence wins downstream); the run is not aborted for
// them.
func NewPriors(genes, regulators []string, weights [][]float64, logger *slog.Logger) *Priors {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	warnDuplicates(logger, "gene", genes)
	warnDuplicates(logger, "regulator", regulators)
	return &Priors{Genes: genes, Regulators: regulators, Weights: weights}
}

func warnDuplicates(logger *slog.Logger, axis string, labels []string) {
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		if _, dup := seen[label]; dup {
			logger.Warn("duplicate prior label", "axis", axis, "label", label)
			continue
		}
		seen[label] = struct{}{}
	}
}
