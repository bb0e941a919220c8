package regnet

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/regnet/bootstrap"
	"github.com/hupe1980/regnet/expression"
	"github.com/hupe1980/regnet/shared"
)

// LocalPool runs a whole pool of ranks inside one process, each rank a
// goroutine over a single in-memory store. It is a deployment
// convenience for single-node runs and tests; the per-rank protocol is
// exactly the distributed one.
type LocalPool struct {
	cfg         Config
	kernel      bootstrap.MIKernel
	strategyFor func(rank int) RegressionStrategy
	optFns      []Option
}

// NewLocalPool creates an in-process pool. cfg.Rank is ignored; every
// rank in [0, cfg.RankCount) is spawned. strategyFor supplies each
// rank's solver so stateful strategies are not shared across goroutines.
func NewLocalPool(cfg Config, kernel bootstrap.MIKernel, strategyFor func(rank int) RegressionStrategy, optFns ...Option) (*LocalPool, error) {
	cfg.Rank = 0
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strategyFor == nil {
		return nil, fmt.Errorf("strategy factory must not be nil")
	}
	return &LocalPool{
		cfg:         cfg,
		kernel:      kernel,
		strategyFor: strategyFor,
		optFns:      optFns,
	}, nil
}

// Run executes the full run on every rank concurrently and returns the
// per-rank results, indexed by rank. The first rank error cancels the
// rest of the pool.
func (p *LocalPool) Run(ctx context.Context, design, response *expression.Store, priors *bootstrap.Priors) ([][]BootstrapResult, error) {
	store := shared.NewMemoryStore()

	workflows := make([]*Workflow, p.cfg.RankCount)
	for rank := 0; rank < p.cfg.RankCount; rank++ {
		cfg := p.cfg
		cfg.Rank = rank
		kernel := p.kernel
		if rank != bootstrap.MasterRank {
			kernel = nil
		}
		wf, err := NewWorkflow(cfg, store, kernel, p.strategyFor(rank), p.optFns...)
		if err != nil {
			return nil, err
		}
		workflows[rank] = wf
	}

	results := make([][]BootstrapResult, p.cfg.RankCount)
	g, ctx := errgroup.WithContext(ctx)
	for rank, wf := range workflows {
		g.Go(func() error {
			res, err := wf.Run(ctx, design, response, priors)
			if err != nil {
				return err
			}
			results[rank] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
