package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/analysis"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/complexity"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/config"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/metrics"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/planner"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/store"
)

var (
	rootCmd = &cobra.Command{
		Use:   "fractal",
		Short: "Adaptive chess analysis driven by position complexity",
		Long: `fractal scores how complex a chess position is and uses the score to
decide how deep and how wide a UCI engine should search it.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
	flgConfig string

	cfg    *config.Config
	logger *zap.SugaredLogger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flgConfig, "config", "", "path to a config file (yaml, json or toml)")
	rootCmd.AddCommand(serveCmd, analyzeCmd, complexityCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Setup(flgConfig)
	if err != nil {
		return err
	}
	logger, err = newLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger.Debugw(name,
		"VersionName", versionName,
		"BuildDate", buildDate,
		"GitRevision", gitRevision,
		"RuntimeVersion", runtime.Version(),
		"GOARCH", runtime.GOARCH,
		"GOOS", runtime.GOOS,
		"NumCPU", runtime.NumCPU(),
	)
	return nil
}

func newLogger(lc config.LogConfig) (*zap.SugaredLogger, error) {
	var zc zap.Config
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if lc.Level != "" {
		var level, err = zap.ParseAtomicLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = level
	}
	var l, err = zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l.Sugar(), nil
}

func newStore(ctx context.Context, sc config.StoreConfig, logger *zap.SugaredLogger) (store.Store, error) {
	if sc.Backend != config.StoreRedis {
		return store.NewMemoryStore(), nil
	}
	var rs = store.NewRedisStore(sc.Redis, logger)
	if err := rs.Init(ctx); err != nil {
		rs.Close(ctx)
		return nil, err
	}
	return rs, nil
}

// newController wires one analysis session to its own engine process.
func newController(cfg *config.Config, logger *zap.SugaredLogger, m *metrics.Metrics, st store.Store) *analysis.Controller {
	var launcher = &engine.ExecLauncher{Path: cfg.Engine.Path, Args: cfg.Engine.Args}
	var session = engine.NewSession(cfg.Engine, launcher, logger, m)
	return analysis.NewController(cfg.Analysis, session,
		complexity.NewEstimator(cfg.Complexity, logger, m),
		planner.New(cfg.Planner), st, logger, m)
}
