package regnet

import (
	"fmt"
	"strconv"

	"github.com/hupe1980/regnet/expression"
)

// Defaults applied by DefaultConfig.
const (
	DefaultSeed          = 42
	DefaultChunkSize     = 25
	DefaultNumBootstraps = 2
)

// Environment variables recognized by FromEnv. Rank and rank count
// follow the SLURM convention used by cluster schedulers.
const (
	EnvRank          = "SLURM_PROCID"
	EnvRankCount     = "SLURM_NTASKS"
	EnvSeed          = "REGNET_SEED"
	EnvNumBootstraps = "REGNET_BOOTSTRAPS"
	EnvChunkSize     = "REGNET_CHUNK_SIZE"
)

// Config is one rank's view of a run. All ranks of a pool must agree on
// Seed, NumBootstraps, ChunkSize and RankCount, since chunk ownership
// and bootstrap draws are derived from them without communication.
type Config struct {
	// Rank identifies this process within the pool; rank 0 is master.
	Rank int
	// RankCount is the fixed pool size.
	RankCount int
	// Seed drives every bootstrap draw of the run.
	Seed int64
	// NumBootstraps is the number of resampled network inferences.
	NumBootstraps int
	// ChunkSize is the number of response genes per work chunk.
	ChunkSize int
}

// DefaultConfig returns a single-rank configuration with the standard
// defaults.
func DefaultConfig() Config {
	return Config{
		Rank:          0,
		RankCount:     1,
		Seed:          DefaultSeed,
		ChunkSize:     DefaultChunkSize,
		NumBootstraps: DefaultNumBootstraps,
	}
}

// FromEnv overlays recognized environment variables onto the defaults.
// The mapping is injected rather than read ambiently so schedulers and
// tests can supply their own view. Unset variables keep their defaults;
// malformed values are configuration errors.
func FromEnv(env map[string]string) (Config, error) {
	cfg := DefaultConfig()

	if v, ok := env[EnvRank]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q: %v", expression.ErrConfiguration, EnvRank, v, err)
		}
		cfg.Rank = n
	}
	if v, ok := env[EnvRankCount]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q: %v", expression.ErrConfiguration, EnvRankCount, v, err)
		}
		cfg.RankCount = n
	}
	if v, ok := env[EnvSeed]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q: %v", expression.ErrConfiguration, EnvSeed, v, err)
		}
		cfg.Seed = n
	}
	if v, ok := env[EnvNumBootstraps]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q: %v", expression.ErrConfiguration, EnvNumBootstraps, v, err)
		}
		cfg.NumBootstraps = n
	}
	if v, ok := env[EnvChunkSize]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q: %v", expression.ErrConfiguration, EnvChunkSize, v, err)
		}
		cfg.ChunkSize = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration's internal consistency.
func (c Config) Validate() error {
	if c.RankCount <= 0 {
		return fmt.Errorf("%w: rank count must be positive, got %d", expression.ErrConfiguration, c.RankCount)
	}
	if c.Rank < 0 || c.Rank >= c.RankCount {
		return fmt.Errorf("%w: rank %d out of range [0,%d)", expression.ErrConfiguration, c.Rank, c.RankCount)
	}
	if c.NumBootstraps <= 0 {
		return fmt.Errorf("%w: bootstrap count must be positive, got %d", expression.ErrConfiguration, c.NumBootstraps)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", expression.ErrConfiguration, c.ChunkSize)
	}
	return nil
}
