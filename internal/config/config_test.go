package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine"
)

func TestDefaults(t *testing.T) {
	var cfg, err = Setup("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 100*time.Millisecond, cfg.Server.StatsInterval)
	assert.Equal(t, "stockfish", cfg.Engine.Path)
	assert.Equal(t, engine.PerspectiveSideToMove, cfg.Engine.ScorePerspective)
	assert.Equal(t, 1.247, cfg.Complexity.Dimension)
	assert.Equal(t, 1000, cfg.Complexity.CacheSize)
	assert.Equal(t, 8, cfg.Planner.MinDepth)
	assert.Equal(t, 22, cfg.Planner.MaxDepth)
	assert.Equal(t, time.Second, cfg.Planner.TimePerDepth)
	assert.Equal(t, domain.StrategyComplexity, cfg.Analysis.Strategy)
	assert.Equal(t, 100*time.Millisecond, cfg.Analysis.TickInterval)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
}

func TestFileAndEnvironment(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "fractal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
engine:
  path: /usr/local/bin/counter
  hash: 128
  options:
    Ponder: "false"
complexity:
  dimension: 1.5
planner:
  max_budget: 10s
analysis:
  strategy: trend
  autoplay: true
`), 0o644))
	t.Setenv("FRACTAL_ENGINE_THREADS", "4")
	t.Setenv("FRACTAL_SERVER_ADDR", ":9100")

	var cfg, err = Setup(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "/usr/local/bin/counter", cfg.Engine.Path)
	assert.Equal(t, 128, cfg.Engine.Hash)
	assert.Equal(t, 4, cfg.Engine.Threads)
	assert.Equal(t, "false", cfg.Engine.Options["ponder"])
	assert.Equal(t, 1.5, cfg.Complexity.Dimension)
	assert.Equal(t, 10*time.Second, cfg.Planner.MaxBudget)
	assert.Equal(t, 500*time.Millisecond, cfg.Planner.MinBudget)
	assert.Equal(t, domain.StrategyTrend, cfg.Analysis.Strategy)
	assert.True(t, cfg.Analysis.Autoplay)
}

func TestValidate(t *testing.T) {
	var cfg, err = Setup("")
	require.NoError(t, err)

	var bad = *cfg
	bad.Store.Backend = StoreRedis
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
	bad.Store.Redis.Addr = "localhost:6379"
	assert.NoError(t, bad.Validate())

	bad = *cfg
	bad.Store.Backend = "mongo"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = *cfg
	bad.Engine.ScorePerspective = "black"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = *cfg
	bad.Complexity.Dimension = 2.5
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	_, err = Setup(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
