package regnet

import (
	"context"
	"time"

	"github.com/hupe1980/regnet/bootstrap"
	"github.com/hupe1980/regnet/expression"
	"github.com/hupe1980/regnet/shared"
)

// RegressionStrategy is the injected per-chunk regression. The workflow
// composes with a strategy instead of subclassing it: swapping BBSR for
// elastic-net is a constructor argument, not a different workflow type.
type RegressionStrategy = bootstrap.Solver

// BootstrapResult collects one bootstrap's regression output on this
// rank. The chunks of other ranks live on those ranks; combining them is
// the caller's collector, not the protocol's.
type BootstrapResult struct {
	Ordinal int
	Chunks  []*bootstrap.ChunkResult
}

// Workflow drives one rank through a full run of bootstraps. It owns no
// cross-rank state; everything shared flows through the shared.Store the
// coordinator was built on.
type Workflow struct {
	cfg         Config
	coordinator *bootstrap.Coordinator
	logger      *Logger
	metrics     MetricsCollector
}

// NewWorkflow wires a workflow for one rank of a pool.
func NewWorkflow(cfg Config, store shared.Store, kernel bootstrap.MIKernel, strategy RegressionStrategy, optFns ...Option) (*Workflow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	partitioner, err := bootstrap.NewPartitioner(cfg.ChunkSize, cfg.RankCount)
	if err != nil {
		return nil, err
	}

	coordOpts := []bootstrap.CoordinatorOption{
		bootstrap.WithLogger(opts.logger.Logger),
	}
	if opts.codec != nil {
		coordOpts = append(coordOpts, bootstrap.WithCodec(opts.codec))
	}
	if opts.clusterer != nil {
		coordOpts = append(coordOpts, bootstrap.WithClusterer(opts.clusterer))
	}
	if opts.ledger != nil {
		coordOpts = append(coordOpts, bootstrap.WithLedger(opts.ledger))
	}
	if opts.pool != "" {
		coordOpts = append(coordOpts, bootstrap.WithPool(opts.pool))
	}

	coordinator, err := bootstrap.NewCoordinator(cfg.Rank, partitioner, store, cfg.Seed, kernel, strategy, coordOpts...)
	if err != nil {
		return nil, err
	}

	return &Workflow{
		cfg:         cfg,
		coordinator: coordinator,
		logger:      opts.logger.WithRank(cfg.Rank),
		metrics:     opts.metricsCollector,
	}, nil
}

// IsMaster reports whether this rank publishes statistics.
func (w *Workflow) IsMaster() bool { return w.coordinator.IsMaster() }

// Run executes every bootstrap of the configured run in order and
// returns this rank's results. The first error aborts the run.
func (w *Workflow) Run(ctx context.Context, design, response *expression.Store, priors *bootstrap.Priors) ([]BootstrapResult, error) {
	runStart := time.Now()

	out := make([]BootstrapResult, 0, w.cfg.NumBootstraps)
	for ordinal := 0; ordinal < w.cfg.NumBootstraps; ordinal++ {
		start := time.Now()
		chunks, err := w.coordinator.RunBootstrap(ctx, ordinal, design, response, priors)
		w.metrics.RecordBootstrap(ordinal, len(chunks), time.Since(start), err)
		w.logger.LogBootstrap(ctx, ordinal, len(chunks), time.Since(start), err)
		if err != nil {
			err = translateError(err)
			w.metrics.RecordRun(ordinal, time.Since(runStart), err)
			w.logger.LogRun(ctx, ordinal, time.Since(runStart), err)
			return nil, err
		}
		out = append(out, BootstrapResult{Ordinal: ordinal, Chunks: chunks})
	}

	w.metrics.RecordRun(w.cfg.NumBootstraps, time.Since(runStart), nil)
	w.logger.LogRun(ctx, w.cfg.NumBootstraps, time.Since(runStart), nil)
	return out, nil
}
