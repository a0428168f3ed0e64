package engine

import (
	"sort"
	"time"

	"github.com/ChizhovVadim/FractalAnalyzer/pkg/uci"
)

const (
	PerspectiveSideToMove = "side_to_move"
	PerspectiveWhite      = "white"
)

type Config struct {
	Path             string            `mapstructure:"path" validate:"required"`
	Args             []string          `mapstructure:"args"`
	Hash             int               `mapstructure:"hash"`
	Threads          int               `mapstructure:"threads"`
	Options          map[string]string `mapstructure:"options"`
	ScorePerspective string            `mapstructure:"score_perspective" validate:"oneof=side_to_move white"`
	HandshakeTimeout time.Duration     `mapstructure:"handshake_timeout"`
	ReadyTimeout     time.Duration     `mapstructure:"ready_timeout"`
	ReadyAttempts    int               `mapstructure:"ready_attempts"`
	ExitTimeout      time.Duration     `mapstructure:"exit_timeout"`
	EventBuffer      int               `mapstructure:"event_buffer"`
}

func DefaultConfig() Config {
	return Config{
		Path:             "stockfish",
		Hash:             16,
		Threads:          1,
		ScorePerspective: PerspectiveSideToMove,
		HandshakeTimeout: 5 * time.Second,
		ReadyTimeout:     2 * time.Second,
		ReadyAttempts:    3,
		ExitTimeout:      time.Second,
		EventBuffer:      256,
	}
}

func (cfg Config) withDefaults() Config {
	var def = DefaultConfig()
	if cfg.Hash <= 0 {
		cfg.Hash = def.Hash
	}
	if cfg.Threads <= 0 {
		cfg.Threads = def.Threads
	}
	if cfg.ScorePerspective == "" {
		cfg.ScorePerspective = def.ScorePerspective
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = def.ReadyTimeout
	}
	if cfg.ReadyAttempts <= 0 {
		cfg.ReadyAttempts = def.ReadyAttempts
	}
	if cfg.ExitTimeout <= 0 {
		cfg.ExitTimeout = def.ExitTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	return cfg
}

// uciOptions lists the settings sent after the handshake.
func (cfg Config) uciOptions() []uci.Option {
	var result = []uci.Option{
		&uci.IntOption{Name: "MultiPV", Min: 1, Max: 500, Value: 1},
		&uci.IntOption{Name: "Hash", Min: 1, Max: 1 << 20, Value: cfg.Hash},
		&uci.IntOption{Name: "Threads", Min: 1, Max: 1024, Value: cfg.Threads},
	}
	var names = make([]string, 0, len(cfg.Options))
	for name := range cfg.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		result = append(result, uci.ParseOption(name, cfg.Options[name]))
	}
	return result
}
