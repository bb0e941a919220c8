package regnet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/regnet/bootstrap"
	"github.com/hupe1980/regnet/codec"
	"github.com/hupe1980/regnet/expression"
)

func poolStores(t *testing.T, samples, regulators, genes int) (*expression.Store, *expression.Store) {
	t.Helper()

	dd := make([]float64, samples*regulators)
	for i := range dd {
		dd[i] = float64(i + 1)
	}
	dm, err := expression.NewDense(samples, regulators, dd)
	require.NoError(t, err)
	design, err := expression.New(dm)
	require.NoError(t, err)

	rd := make([]float64, samples*genes)
	for i := range rd {
		rd[i] = float64(3 * i)
	}
	rm, err := expression.NewDense(samples, genes, rd)
	require.NoError(t, err)
	response, err := expression.New(rm)
	require.NoError(t, err)

	return design, response
}

func poolKernel(_ context.Context, design, response *expression.Matrix) ([][]float64, [][]float64, error) {
	clr := make([][]float64, response.Cols())
	mi := make([][]float64, response.Cols())
	for i := range clr {
		clr[i] = make([]float64, design.Cols())
		mi[i] = make([]float64, design.Cols())
		for j := range clr[i] {
			clr[i][j] = float64(i) + 0.5*float64(j)
		}
	}
	return clr, mi, nil
}

type poolSolver struct {
	rank int

	mu     sync.Mutex
	chunks []bootstrap.Chunk
}

func (s *poolSolver) Regress(_ context.Context, _, _ *expression.Matrix, chunk bootstrap.Chunk, stat *bootstrap.Statistic, _ *bootstrap.Priors) (*bootstrap.ChunkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
	return &bootstrap.ChunkResult{Ordinal: stat.Ordinal, Chunk: chunk}, nil
}

func TestLocalPool_TwoRanksTwoBootstraps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RankCount = 2
	cfg.NumBootstraps = 2
	cfg.ChunkSize = 3

	design, response := poolStores(t, 8, 4, 10)

	solvers := make([]*poolSolver, cfg.RankCount)
	metrics := &BasicMetricsCollector{}
	pool, err := NewLocalPool(cfg, poolKernel, func(rank int) RegressionStrategy {
		solvers[rank] = &poolSolver{rank: rank}
		return solvers[rank]
	}, WithMetricsCollector(metrics), WithCodec(codec.Compressed(codec.JSON{}, codec.Zstd)))
	require.NoError(t, err)

	results, err := pool.Run(context.Background(), design, response, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Each rank completed both bootstraps in order.
	for rank, ranked := range results {
		require.Len(t, ranked, cfg.NumBootstraps, "rank %d", rank)
		for ordinal, br := range ranked {
			assert.Equal(t, ordinal, br.Ordinal)
			for _, chunk := range br.Chunks {
				assert.Equal(t, ordinal, chunk.Ordinal)
			}
		}
	}

	// 10 genes in chunks of 3 is 4 chunks per bootstrap; rank 0 owns
	// chunks 0 and 2, rank 1 owns 1 and 3. Both bootstraps double that.
	assert.ElementsMatch(t, []bootstrap.Chunk{
		{Start: 0, End: 3}, {Start: 6, End: 9},
		{Start: 0, End: 3}, {Start: 6, End: 9},
	}, solvers[0].chunks)
	assert.ElementsMatch(t, []bootstrap.Chunk{
		{Start: 3, End: 6}, {Start: 9, End: 10},
		{Start: 3, End: 6}, {Start: 9, End: 10},
	}, solvers[1].chunks)

	stats := metrics.GetStats()
	assert.Equal(t, int64(4), stats.BootstrapCount, "2 ranks x 2 bootstraps")
	assert.Equal(t, int64(0), stats.BootstrapErrors)
	assert.Equal(t, int64(8), stats.ChunksRegressed)
	assert.Equal(t, int64(2), stats.RunCount)
}

func TestLocalPool_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RankCount = 1
	cfg.NumBootstraps = 2

	design, response := poolStores(t, 5, 2, 4)

	run := func() []BootstrapResult {
		pool, err := NewLocalPool(cfg, poolKernel, func(int) RegressionStrategy {
			return &poolSolver{}
		})
		require.NoError(t, err)
		results, err := pool.Run(context.Background(), design, response, nil)
		require.NoError(t, err)
		return results[0]
	}

	assert.Equal(t, run(), run())
}

type abortSolver struct{}

func (abortSolver) Regress(context.Context, *expression.Matrix, *expression.Matrix, bootstrap.Chunk, *bootstrap.Statistic, *bootstrap.Priors) (*bootstrap.ChunkResult, error) {
	return nil, errors.New("solver blew up")
}

func TestLocalPool_SolverFailureAbortsRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RankCount = 2
	cfg.NumBootstraps = 3
	// Two chunks over 4 genes, so rank 1 owns chunk 1 and its failing
	// solver is actually reached.
	cfg.ChunkSize = 2

	design, response := poolStores(t, 6, 2, 4)

	pool, err := NewLocalPool(cfg, poolKernel, func(rank int) RegressionStrategy {
		if rank == 1 {
			return abortSolver{}
		}
		return &poolSolver{}
	})
	require.NoError(t, err)

	_, err = pool.Run(context.Background(), design, response, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunAborted)
	assert.ErrorContains(t, err, "solver blew up")
}

func TestNewWorkflow_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RankCount = 0

	_, err := NewLocalPool(cfg, poolKernel, func(int) RegressionStrategy { return &poolSolver{} })
	assert.ErrorIs(t, err, expression.ErrConfiguration)

	_, err = NewLocalPool(DefaultConfig(), poolKernel, nil)
	assert.Error(t, err, "strategy factory required")
}
