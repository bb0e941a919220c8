package regnet

import (
	"github.com/hupe1980/regnet/bootstrap"
	"github.com/hupe1980/regnet/codec"
)

type options struct {
	codec            codec.Codec
	clusterer        bootstrap.Clusterer
	ledger           bootstrap.Ledger
	pool             string
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Workflow construction.
type Option func(*options)

// WithCodec configures the codec used for statistic payloads.
//
// If nil is passed, codec.Default is used. Every rank of a pool must use
// the same codec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithClusterer enables the single-cell path: bootstrap slices are
// re-aggregated to pseudobulk before the statistic kernel and solvers
// run.
func WithClusterer(c bootstrap.Clusterer) Option {
	return func(o *options) {
		o.clusterer = c
	}
}

// WithLedger installs a publish ledger for remote stores shared across
// pools, such as a dynamo.Ledger.
func WithLedger(l bootstrap.Ledger) Option {
	return func(o *options) {
		o.ledger = l
	}
}

// WithPool names this pool on the shared store. Every pool sharing one
// store (the deployment a ledger exists for) must carry a distinct id so
// the pools' acknowledgement keys stay disjoint. A lone pool can leave
// it unset.
func WithPool(id string) Option {
	return func(o *options) {
		o.pool = id
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &regnet.BasicMetricsCollector{}
//	wf, _ := regnet.NewWorkflow(cfg, store, kernel, solver, regnet.WithMetricsCollector(metrics))
//	// ... run ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := regnet.NewJSONLogger(slog.LevelInfo)
//	wf, _ := regnet.NewWorkflow(cfg, store, kernel, solver, regnet.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
