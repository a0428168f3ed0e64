package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/analysis"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/complexity"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/planner"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/store"
)

const EnvPrefix = "FRACTAL"

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	StatsInterval     time.Duration `mapstructure:"stats_interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	LocalCORS         bool          `mapstructure:"local_cors"`
	MaxSessions       int           `mapstructure:"max_sessions" validate:"gte=1"`
	CreateRate        float64       `mapstructure:"create_rate" validate:"gte=0"`
	CreateBurst       int           `mapstructure:"create_burst" validate:"gte=0"`
}

type StoreConfig struct {
	Backend string            `mapstructure:"backend" validate:"oneof=memory redis"`
	Redis   store.RedisConfig `mapstructure:"redis"`
}

type Config struct {
	Log        LogConfig         `mapstructure:"log"`
	Server     ServerConfig      `mapstructure:"server"`
	Engine     engine.Config     `mapstructure:"engine"`
	Complexity complexity.Config `mapstructure:"complexity"`
	Planner    planner.Config    `mapstructure:"planner"`
	Analysis   analysis.Config   `mapstructure:"analysis"`
	Store      StoreConfig       `mapstructure:"store"`
}

// Setup reads the optional config file at cfgPath, applies FRACTAL_* environment
// overrides and fills everything else with defaults.
func Setup(cfgPath string) (*Config, error) {
	var v = viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %v: %w", cfgPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of the whole tree, then the rules that span
// several fields.
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.Store.Backend == StoreRedis && cfg.Store.Redis.Addr == "" {
		return fmt.Errorf("%w: store.redis.addr is required for the redis backend", ErrInvalidConfig)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.stats_interval", 100*time.Millisecond)
	v.SetDefault("server.heartbeat_interval", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.local_cors", false)
	v.SetDefault("server.max_sessions", 16)
	v.SetDefault("server.create_rate", 0)
	v.SetDefault("server.create_burst", 4)

	var eng = engine.DefaultConfig()
	v.SetDefault("engine.path", eng.Path)
	v.SetDefault("engine.args", []string{})
	v.SetDefault("engine.hash", eng.Hash)
	v.SetDefault("engine.threads", eng.Threads)
	v.SetDefault("engine.options", map[string]string{})
	v.SetDefault("engine.score_perspective", eng.ScorePerspective)
	v.SetDefault("engine.handshake_timeout", eng.HandshakeTimeout)
	v.SetDefault("engine.ready_timeout", eng.ReadyTimeout)
	v.SetDefault("engine.ready_attempts", eng.ReadyAttempts)
	v.SetDefault("engine.exit_timeout", eng.ExitTimeout)
	v.SetDefault("engine.event_buffer", eng.EventBuffer)

	var cx = complexity.DefaultConfig()
	v.SetDefault("complexity.dimension", cx.Dimension)
	v.SetDefault("complexity.cache_size", cx.CacheSize)

	var pl = planner.DefaultConfig()
	v.SetDefault("planner.min_depth", pl.MinDepth)
	v.SetDefault("planner.max_depth", pl.MaxDepth)
	v.SetDefault("planner.base_depth", pl.BaseDepth)
	v.SetDefault("planner.depth_gain", pl.DepthGain)
	v.SetDefault("planner.trend_increase", pl.TrendIncrease)
	v.SetDefault("planner.trend_decrease", pl.TrendDecrease)
	v.SetDefault("planner.threshold", pl.Threshold)
	v.SetDefault("planner.base_multipv", pl.BaseMultiPV)
	v.SetDefault("planner.max_multipv", pl.MaxMultiPV)
	v.SetDefault("planner.nominal_nodes_per_depth", pl.NominalNodesPerDepth)
	v.SetDefault("planner.time_per_depth", pl.TimePerDepth)
	v.SetDefault("planner.min_budget", pl.MinBudget)
	v.SetDefault("planner.max_budget", pl.MaxBudget)

	var an = analysis.DefaultConfig()
	v.SetDefault("analysis.strategy", string(an.Strategy))
	v.SetDefault("analysis.tick_interval", an.TickInterval)
	v.SetDefault("analysis.stop_timeout", an.StopTimeout)
	v.SetDefault("analysis.fallback_depth", an.FallbackDepth)
	v.SetDefault("analysis.history_size", an.HistorySize)
	v.SetDefault("analysis.autoplay", an.Autoplay)
	v.SetDefault("analysis.max_plies", an.MaxPlies)

	v.SetDefault("store.backend", StoreMemory)
	v.SetDefault("store.redis.addr", "")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", "fractal:result:")
	v.SetDefault("store.redis.ttl", 24*time.Hour)
}
