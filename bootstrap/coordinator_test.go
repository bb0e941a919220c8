package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/regnet/expression"
	"github.com/hupe1980/regnet/shared"
)

func testStores(t *testing.T, samples, regulators, genes int) (*expression.Store, *expression.Store) {
	t.Helper()

	design := make([]float64, samples*regulators)
	for i := range design {
		design[i] = float64(i + 1)
	}
	dm, err := expression.NewDense(samples, regulators, design)
	require.NoError(t, err)
	d, err := expression.New(dm)
	require.NoError(t, err)

	response := make([]float64, samples*genes)
	for i := range response {
		response[i] = float64(2 * i)
	}
	rm, err := expression.NewDense(samples, genes, response)
	require.NoError(t, err)
	r, err := expression.New(rm)
	require.NoError(t, err)

	return d, r
}

func testKernel(ctx context.Context, design, response *expression.Matrix) ([][]float64, [][]float64, error) {
	clr := make([][]float64, response.Cols())
	mi := make([][]float64, response.Cols())
	for i := range clr {
		clr[i] = make([]float64, design.Cols())
		mi[i] = make([]float64, design.Cols())
		for j := range clr[i] {
			clr[i][j] = float64(i + j)
			mi[i][j] = float64(i * j)
		}
	}
	return clr, mi, nil
}

type recordingSolver struct {
	mu      sync.Mutex
	chunks  []Chunk
	stats   []*Statistic
	samples []int
}

func (s *recordingSolver) Regress(_ context.Context, design, response *expression.Matrix, chunk Chunk, stat *Statistic, _ *Priors) (*ChunkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
	s.stats = append(s.stats, stat)
	s.samples = append(s.samples, design.Rows())
	return &ChunkResult{Ordinal: stat.Ordinal, Chunk: chunk}, nil
}

func TestCoordinator_TwoRankBootstrap(t *testing.T) {
	ctx := context.Background()
	store := shared.NewMemoryStore()
	design, response := testStores(t, 6, 3, 5)

	p, err := NewPartitioner(2, 2)
	require.NoError(t, err)

	solvers := make([]*recordingSolver, 2)
	coords := make([]*Coordinator, 2)
	for rank := 0; rank < 2; rank++ {
		solvers[rank] = &recordingSolver{}
		kernel := MIKernel(nil)
		if rank == MasterRank {
			kernel = testKernel
		}
		coords[rank], err = NewCoordinator(rank, p, store, 7, kernel, solvers[rank])
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make([][]*ChunkResult, 2)
	errs := make([]error, 2)
	for rank := 0; rank < 2; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			results[rank], errs[rank] = coords[rank].RunBootstrap(ctx, 0, design, response, nil)
		}(rank)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Chunks of 2 over 5 genes: {0,1},{2,3},{4}. Rank 0 owns chunks 0
	// and 2, rank 1 owns chunk 1.
	assert.ElementsMatch(t, []Chunk{{0, 2}, {4, 5}}, solvers[0].chunks)
	assert.ElementsMatch(t, []Chunk{{2, 4}}, solvers[1].chunks)
	assert.Len(t, results[0], 2)
	assert.Len(t, results[1], 1)

	// Worker decoded exactly what the master computed.
	require.NotEmpty(t, solvers[0].stats)
	require.NotEmpty(t, solvers[1].stats)
	assert.Equal(t, solvers[0].stats[0].CLR, solvers[1].stats[0].CLR)
	assert.Equal(t, solvers[0].stats[0].BackgroundMI, solvers[1].stats[0].BackgroundMI)

	// Every regression saw the resampled slice, not the original store.
	for _, s := range solvers {
		for _, n := range s.samples {
			assert.Equal(t, 6, n)
		}
	}

	// CLEANUP retired the statistic and ack keys.
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = store.Await(waitCtx, shared.StatisticKey(0))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCoordinator_SequentialBootstrapsDiffer(t *testing.T) {
	ctx := context.Background()
	store := shared.NewMemoryStore()
	design, response := testStores(t, 6, 3, 4)

	p, err := NewPartitioner(2, 1)
	require.NoError(t, err)

	solver := &recordingSolver{}
	coord, err := NewCoordinator(0, p, store, 7, testKernel, solver)
	require.NoError(t, err)

	for ordinal := 0; ordinal < 2; ordinal++ {
		_, err := coord.RunBootstrap(ctx, ordinal, design, response, nil)
		require.NoError(t, err)
	}

	require.Len(t, solver.stats, 4)
	assert.Equal(t, 0, solver.stats[0].Ordinal)
	assert.Equal(t, 1, solver.stats[2].Ordinal)
}

func TestCoordinator_MisalignedSamples(t *testing.T) {
	store := shared.NewMemoryStore()
	design, _ := testStores(t, 6, 3, 5)
	_, response := testStores(t, 4, 3, 5)

	p, err := NewPartitioner(2, 1)
	require.NoError(t, err)
	coord, err := NewCoordinator(0, p, store, 7, testKernel, &recordingSolver{})
	require.NoError(t, err)

	_, err = coord.RunBootstrap(context.Background(), 0, design, response, nil)
	var align *expression.AlignmentError
	assert.ErrorAs(t, err, &align)
}

type failingKernel struct{}

func (failingKernel) kernel(context.Context, *expression.Matrix, *expression.Matrix) ([][]float64, [][]float64, error) {
	return nil, nil, errors.New("kernel exploded")
}

func TestCoordinator_KernelFailureAborts(t *testing.T) {
	store := shared.NewMemoryStore()
	design, response := testStores(t, 6, 3, 5)

	p, err := NewPartitioner(2, 1)
	require.NoError(t, err)
	solver := &recordingSolver{}
	coord, err := NewCoordinator(0, p, store, 7, failingKernel{}.kernel, solver)
	require.NoError(t, err)

	_, err = coord.RunBootstrap(context.Background(), 0, design, response, nil)
	require.ErrorContains(t, err, "kernel exploded")
	assert.Empty(t, solver.chunks, "fail-fast: no regression after a failed statistic")
}

func TestCoordinator_WorkerCancellation(t *testing.T) {
	store := shared.NewMemoryStore()
	design, response := testStores(t, 6, 3, 5)

	p, err := NewPartitioner(2, 2)
	require.NoError(t, err)
	coord, err := NewCoordinator(1, p, store, 7, nil, &recordingSolver{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// No master ever publishes; the worker must not hang.
	_, err = coord.RunBootstrap(ctx, 0, design, response, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fixedLedger struct{ won bool }

func (l fixedLedger) Claim(context.Context, int) (bool, error) { return l.won, nil }

// claimOnceLedger elects the first claimant of each ordinal, like the
// dynamo conditional put.
type claimOnceLedger struct {
	mu      sync.Mutex
	claimed map[int]bool
}

func (l *claimOnceLedger) Claim(_ context.Context, ordinal int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed == nil {
		l.claimed = make(map[int]bool)
	}
	if l.claimed[ordinal] {
		return false, nil
	}
	l.claimed[ordinal] = true
	return true, nil
}

func TestCoordinator_LedgerLoserAwaits(t *testing.T) {
	ctx := context.Background()
	store := shared.NewMemoryStore()
	design, response := testStores(t, 6, 3, 4)

	p1, err := NewPartitioner(2, 1)
	require.NoError(t, err)

	winnerSolver := &recordingSolver{}
	winner, err := NewCoordinator(0, p1, store, 7, testKernel, winnerSolver,
		WithLedger(fixedLedger{won: true}), WithPool("a"))
	require.NoError(t, err)

	_, err = winner.RunBootstrap(ctx, 0, design, response, nil)
	require.NoError(t, err)

	// With a ledger the statistic outlives the winner's cleanup, so a
	// pool that arrives later can still read it.
	payload, err := store.Await(ctx, shared.StatisticKey(0))
	require.NoError(t, err)

	loserSolver := &recordingSolver{}
	loser, err := NewCoordinator(0, p1, store, 7, testKernel, loserSolver,
		WithLedger(fixedLedger{won: false}), WithPool("b"))
	require.NoError(t, err)

	_, err = loser.RunBootstrap(ctx, 0, design, response, nil)
	require.NoError(t, err)

	// The loser consumed the published statistic instead of computing
	// its own, and left the key in place.
	require.NotEmpty(t, loserSolver.stats)
	assert.Equal(t, winnerSolver.stats[0].CLR, loserSolver.stats[0].CLR)

	got, err := store.Await(ctx, shared.StatisticKey(0))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestCoordinator_TwoPoolsSharedStore(t *testing.T) {
	ctx := context.Background()
	store := shared.NewMemoryStore()
	ledger := &claimOnceLedger{}
	design, response := testStores(t, 6, 3, 5)

	p, err := NewPartitioner(2, 2)
	require.NoError(t, err)

	// Two 2-rank pools share one store; the ledger elects one publisher
	// per ordinal across both.
	pools := []string{"a", "b"}
	solvers := make(map[string][]*recordingSolver, len(pools))
	coords := make(map[string][]*Coordinator, len(pools))
	for _, pool := range pools {
		solvers[pool] = make([]*recordingSolver, 2)
		coords[pool] = make([]*Coordinator, 2)
		for rank := 0; rank < 2; rank++ {
			solvers[pool][rank] = &recordingSolver{}
			kernel := MIKernel(nil)
			if rank == MasterRank {
				kernel = testKernel
			}
			coords[pool][rank], err = NewCoordinator(rank, p, store, 7, kernel, solvers[pool][rank],
				WithLedger(ledger), WithPool(pool))
			require.NoError(t, err)
		}
	}

	var wg sync.WaitGroup
	errs := make(map[string][]error, len(pools))
	for _, pool := range pools {
		errs[pool] = make([]error, 2)
		for rank := 0; rank < 2; rank++ {
			wg.Add(1)
			go func(pool string, rank int) {
				defer wg.Done()
				_, errs[pool][rank] = coords[pool][rank].RunBootstrap(ctx, 0, design, response, nil)
			}(pool, rank)
		}
	}
	wg.Wait()

	for _, pool := range pools {
		for rank, err := range errs[pool] {
			require.NoError(t, err, "pool %s rank %d", pool, rank)
		}
	}

	// All four ranks decoded the one elected statistic.
	master := solvers["a"][MasterRank].stats[0]
	for _, pool := range pools {
		for _, s := range solvers[pool] {
			require.NotEmpty(t, s.stats)
			assert.Equal(t, master.CLR, s.stats[0].CLR)
		}
	}

	// Both pools' ack keys are retired; the statistic stays until the
	// run's prefix is.
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	for _, pool := range pools {
		for rank := 0; rank < 2; rank++ {
			_, err := store.Await(waitCtx, shared.AckKey(pool, 0, rank))
			assert.ErrorIs(t, err, context.DeadlineExceeded, "pool %s rank %d ack", pool, rank)
		}
	}
	_, err = store.Await(ctx, shared.StatisticKey(0))
	assert.NoError(t, err)
}

func TestNewCoordinator_Validation(t *testing.T) {
	store := shared.NewMemoryStore()
	p, err := NewPartitioner(2, 2)
	require.NoError(t, err)

	_, err = NewCoordinator(2, p, store, 0, testKernel, &recordingSolver{})
	assert.Error(t, err, "rank out of range")

	_, err = NewCoordinator(0, p, store, 0, nil, &recordingSolver{})
	assert.Error(t, err, "master needs a kernel")

	_, err = NewCoordinator(1, p, store, 0, nil, nil)
	assert.Error(t, err, "solver required")

	_, err = NewCoordinator(1, p, nil, 0, nil, &recordingSolver{})
	assert.Error(t, err, "store required")

	_, err = NewCoordinator(1, nil, store, 0, nil, &recordingSolver{})
	assert.Error(t, err, "partitioner required")
}
