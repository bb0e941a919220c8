// Package regnet provides the distributed computation core for
// bootstrapped gene-regulatory-network inference.
//
// A run resamples an expression dataset NumBootstraps times and infers a
// network from each resample. Work is spread over a fixed pool of ranks:
// rank 0 (the master) computes the per-bootstrap shared statistic (CLR
// over mutual information) and publishes it through a shared key-value
// store; every rank then regresses its arithmetically owned chunks of
// target genes against the statistic. The only cross-rank communication
// is the statistic exchange.
//
// # Quick Start
//
// Single-node pool:
//
//	cfg := regnet.DefaultConfig()
//	cfg.RankCount = 4
//	cfg.NumBootstraps = 10
//
//	pool, _ := regnet.NewLocalPool(cfg, kernel, func(rank int) regnet.RegressionStrategy {
//	    return myBBSR()
//	})
//	results, _ := pool.Run(ctx, design, response, priors)
//
// Cluster mode, one process per rank (rank/size from SLURM):
//
//	cfg, _ := regnet.FromEnv(envMap)
//	store, _ := s3.NewDefault(ctx, "my-bucket", "run-7/")
//	wf, _ := regnet.NewWorkflow(cfg, store, kernel, myBBSR())
//	results, _ := wf.Run(ctx, design, response, priors)
//
// # Data Model
//
// Expression data lives in an expression.Store: a samples-by-genes
// matrix over a dense, CSR or CSC backing, with aligned string-labeled
// sample and gene metadata. Loaders, the MI/CLR kernel and the
// regression solvers are consumed through narrow interfaces; this module
// owns the data plumbing and the protocol, not the statistics.
//
// # Determinism
//
// Bootstrap draws are pure functions of (seed, ordinal), so every rank
// recomputes the identical resample locally and chunk ownership is plain
// modular arithmetic. Two runs with the same configuration produce the
// same draws on any pool size.
package regnet
