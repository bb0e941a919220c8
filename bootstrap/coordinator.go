package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/regnet/codec"
	"github.com/hupe1980/regnet/expression"
	"github.com/hupe1980/regnet/shared"
)

// MasterRank is the rank that computes and publishes the shared
// statistic and retires it after every rank has acknowledged receipt.
const MasterRank = 0

// Ledger guards statistic publication when several pools share one
// remote store: Claim returns true for exactly one caller per ordinal.
// A master whose claim fails awaits the statistic like a worker.
type Ledger interface {
	Claim(ctx context.Context, ordinal int) (bool, error)
}

type coordinatorOptions struct {
	codec     codec.Codec
	clusterer Clusterer
	ledger    Ledger
	pool      string
	logger    *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*coordinatorOptions)

// WithCodec sets the statistic payload codec. Defaults to codec.Default.
func WithCodec(c codec.Codec) CoordinatorOption {
	return func(o *coordinatorOptions) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithClusterer enables the single-cell path: bootstrap slices are
// re-aggregated to pseudobulk before the statistic and regressions run.
func WithClusterer(c Clusterer) CoordinatorOption {
	return func(o *coordinatorOptions) { o.clusterer = c }
}

// WithLedger installs a publish ledger for stores shared across pools.
func WithLedger(l Ledger) CoordinatorOption {
	return func(o *coordinatorOptions) { o.ledger = l }
}

// WithPool names this pool on the shared store. Pools sharing one store
// must carry distinct ids so their ack keys stay disjoint; a lone pool
// can leave it empty.
func WithPool(id string) CoordinatorOption {
	return func(o *coordinatorOptions) { o.pool = id }
}

// WithLogger sets the coordinator's logger. Defaults to discard.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(o *coordinatorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Coordinator drives one rank through the per-bootstrap state machine:
//
//	SAMPLE -> STAT_READY -> PARTITION -> REGRESS_LOCAL -> CLEANUP
//
// The master computes and publishes the statistic; workers await it. Any
// error aborts the run immediately: no retries, no partial-bootstrap
// recovery. The only cross-rank channel is the shared.Store.
type Coordinator struct {
	rank        int
	seed        int64
	store       shared.Store
	partitioner *Partitioner
	kernel      MIKernel
	solver      Solver
	rankCount   int

	codec     codec.Codec
	clusterer Clusterer
	ledger    Ledger
	pool      string
	logger    *slog.Logger
}

// NewCoordinator creates the coordinator for one rank of a pool.
func NewCoordinator(rank int, p *Partitioner, store shared.Store, seed int64, kernel MIKernel, solver Solver, optFns ...CoordinatorOption) (*Coordinator, error) {
	if p == nil {
		return nil, fmt.Errorf("partitioner must not be nil")
	}
	if rank < 0 || rank >= p.rankCount {
		return nil, fmt.Errorf("rank %d out of range [0,%d)", rank, p.rankCount)
	}
	if store == nil {
		return nil, fmt.Errorf("shared store must not be nil")
	}
	if solver == nil {
		return nil, fmt.Errorf("solver must not be nil")
	}
	if rank == MasterRank && kernel == nil {
		return nil, fmt.Errorf("master rank needs a statistic kernel")
	}

	opts := coordinatorOptions{
		codec:  codec.Default,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Coordinator{
		rank:        rank,
		seed:        seed,
		store:       store,
		partitioner: p,
		kernel:      kernel,
		solver:      solver,
		rankCount:   p.rankCount,
		codec:       opts.codec,
		clusterer:   opts.clusterer,
		ledger:      opts.ledger,
		pool:        opts.pool,
		logger:      opts.logger.With("rank", rank),
	}, nil
}

// IsMaster reports whether this rank publishes statistics.
func (c *Coordinator) IsMaster() bool { return c.rank == MasterRank }

// RunBootstrap executes one full bootstrap for this rank and returns the
// regression results of its owned chunks. Design and response must agree
// on sample labels.
func (c *Coordinator) RunBootstrap(ctx context.Context, ordinal int, design, response *expression.Store, priors *Priors) ([]*ChunkResult, error) {
	if err := expression.AlignedSamples(design, response); err != nil {
		return nil, fmt.Errorf("bootstrap %d: %w", ordinal, err)
	}

	log := c.logger.With("ordinal", ordinal)
	log.Debug("bootstrap started")

	// SAMPLE: every rank recomputes the identical draw locally.
	idx, err := Sample(c.seed, ordinal, design.NumSamples())
	if err != nil {
		return nil, fmt.Errorf("bootstrap %d: %w", ordinal, err)
	}
	d, err := design.SampleSlice(idx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap %d: design slice: %w", ordinal, err)
	}
	r, err := response.SampleSlice(idx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap %d: response slice: %w", ordinal, err)
	}

	if c.clusterer != nil {
		if d, r, err = c.clusterer.Pseudobulk(ctx, d, r); err != nil {
			return nil, fmt.Errorf("bootstrap %d: pseudobulk: %w", ordinal, err)
		}
	}

	// STAT_READY
	stat, err := c.obtainStatistic(ctx, ordinal, d, r)
	if err != nil {
		return nil, fmt.Errorf("bootstrap %d: %w", ordinal, err)
	}

	// PARTITION: ownership is arithmetic, no messages.
	owned, err := c.partitioner.Owned(response.NumGenes(), c.rank)
	if err != nil {
		return nil, fmt.Errorf("bootstrap %d: %w", ordinal, err)
	}

	// REGRESS_LOCAL
	results := make([]*ChunkResult, 0, owned.GetCardinality())
	it := owned.Iterator()
	for it.HasNext() {
		k := int(it.Next())
		chunk := c.partitioner.Bounds(k, response.NumGenes())
		res, err := c.solver.Regress(ctx, d, r, chunk, stat, priors)
		if err != nil {
			return nil, fmt.Errorf("bootstrap %d: chunk %d: %w", ordinal, k, err)
		}
		results = append(results, res)
	}
	log.Debug("regression finished", "chunks", len(results))

	// CLEANUP: each pool's master retires its pool's keys once every local
	// rank has acknowledged the statistic; large intermediates die with
	// this frame.
	if c.IsMaster() {
		if err := c.cleanup(ctx, ordinal); err != nil {
			return nil, fmt.Errorf("bootstrap %d: cleanup: %w", ordinal, err)
		}
	}

	log.Debug("bootstrap finished")
	return results, nil
}

// obtainStatistic runs the STAT_READY phase: the master (or the ledger
// winner) computes and publishes, everyone else awaits the published
// payload. Every rank acknowledges receipt before returning, so no
// master can retire a statistic some local rank has yet to read.
func (c *Coordinator) obtainStatistic(ctx context.Context, ordinal int, d, r *expression.Matrix) (*Statistic, error) {
	publish := c.IsMaster()
	if publish && c.ledger != nil {
		won, err := c.ledger.Claim(ctx, ordinal)
		if err != nil {
			return nil, fmt.Errorf("claim: %w", err)
		}
		publish = won
	}

	key := shared.StatisticKey(ordinal)

	var stat *Statistic
	if publish {
		clr, mi, err := c.kernel(ctx, d, r)
		if err != nil {
			return nil, fmt.Errorf("statistic kernel: %w", err)
		}
		stat = &Statistic{Ordinal: ordinal, CLR: clr, BackgroundMI: mi}
		payload, err := c.codec.Marshal(stat)
		if err != nil {
			return nil, fmt.Errorf("encode statistic: %w", err)
		}
		if err := c.store.Publish(ctx, key, payload); err != nil {
			return nil, fmt.Errorf("publish statistic: %w", err)
		}
		c.logger.Debug("statistic published", "ordinal", ordinal, "bytes", len(payload))
	} else {
		payload, err := c.store.Await(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("await statistic: %w", err)
		}
		stat = &Statistic{}
		if err := c.codec.Unmarshal(payload, stat); err != nil {
			return nil, fmt.Errorf("decode statistic: %w", err)
		}
	}

	if err := c.store.Publish(ctx, shared.AckKey(c.pool, ordinal, c.rank), []byte{1}); err != nil {
		return nil, fmt.Errorf("ack statistic: %w", err)
	}
	return stat, nil
}

// cleanup retires the keys this pool is accountable for: the master
// waits for every local rank's ack, then clears them. The statistic key
// is cleared only when no ledger is configured; with a ledger several
// pools read one published statistic and no pool can know when the
// others are done, so the key stays until the run's prefix is retired.
func (c *Coordinator) cleanup(ctx context.Context, ordinal int) error {
	for rank := 0; rank < c.rankCount; rank++ {
		if _, err := c.store.Await(ctx, shared.AckKey(c.pool, ordinal, rank)); err != nil {
			return fmt.Errorf("await ack of rank %d: %w", rank, err)
		}
	}
	if c.ledger == nil {
		if err := c.store.Clear(ctx, shared.StatisticKey(ordinal)); err != nil {
			return fmt.Errorf("clear statistic: %w", err)
		}
	}
	for rank := 0; rank < c.rankCount; rank++ {
		if err := c.store.Clear(ctx, shared.AckKey(c.pool, ordinal, rank)); err != nil {
			return fmt.Errorf("clear ack of rank %d: %w", rank, err)
		}
	}
	return nil
}
