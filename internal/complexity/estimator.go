package complexity

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/metrics"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
)

const (
	MinDimension     = 1.0
	MaxDimension     = 2.0
	DefaultDimension = 1.247
	DefaultCacheSize = 1000

	MinScore = 1.0
	MaxScore = 50.0
	// Fallback is returned when a position cannot be scored.
	Fallback = 10.0

	minNormalized = 0.1
)

type Config struct {
	Dimension float64 `mapstructure:"dimension" validate:"gte=1,lte=2"`
	CacheSize int     `mapstructure:"cache_size" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		Dimension: DefaultDimension,
		CacheSize: DefaultCacheSize,
	}
}

type Estimator struct {
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	cache   *scoreCache
	signals func(fen string, p *common.Position) Signals

	mu        sync.RWMutex
	dimension float64
}

func NewEstimator(cfg Config, logger *zap.SugaredLogger, m *metrics.Metrics) *Estimator {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	return &Estimator{
		logger:    logger,
		metrics:   m,
		cache:     newScoreCache(cfg.CacheSize),
		signals:   ComputeSignals,
		dimension: ClampDimension(cfg.Dimension),
	}
}

func ClampDimension(d float64) float64 {
	if math.IsNaN(d) {
		return DefaultDimension
	}
	return math.Max(MinDimension, math.Min(MaxDimension, d))
}

func (e *Estimator) Dimension() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimension
}

// SetDimension changes the sensitivity knob and drops every cached score.
func (e *Estimator) SetDimension(d float64) float64 {
	d = ClampDimension(d)
	e.mu.Lock()
	e.dimension = d
	e.cache.Clear()
	e.mu.Unlock()
	e.logger.Infow("complexity dimension changed", "dimension", d)
	return d
}

// Complexity scores fen with the current dimension.
func (e *Estimator) Complexity(fen string) float64 {
	return e.Estimate(fen, e.Dimension())
}

// Estimate returns a score in [MinScore, MaxScore]. It never fails: positions that
// cannot be scored get Fallback, which is not cached.
func (e *Estimator) Estimate(fen string, d float64) float64 {
	d = ClampDimension(d)
	var key = cacheKey{fen: fen, dimension: d}
	if v, ok := e.cache.Get(key); ok {
		e.metrics.CacheHit()
		return v
	}
	e.metrics.CacheMiss()

	var signals, err = e.safeSignals(fen)
	if err != nil {
		e.logger.Warnw("complexity fallback", "fen", fen, "error", err)
		e.metrics.ComplexityFallback()
		return Fallback
	}
	var score = Score(signals, d)
	e.cache.Put(key, score)
	e.metrics.ObserveComplexity(score)
	return score
}

// Breakdown returns the raw signals behind a score.
func (e *Estimator) Breakdown(fen string) (Signals, error) {
	return e.safeSignals(fen)
}

func (e *Estimator) safeSignals(fen string) (result Signals, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("signals panic: %v", r)
		}
	}()
	var pos, perr = common.NewPositionFromFEN(fen)
	if perr != nil {
		return Signals{}, perr
	}
	return e.signals(fen, &pos), nil
}

// Score maps raw signals onto [MinScore, MaxScore]. Each normalized signal is raised
// to 1/d, so a larger d flattens the response to every signal.
func Score(s Signals, d float64) float64 {
	d = ClampDimension(d)
	var exp = 1 / d
	var sum = term(s.Pieces, refPieces, exp) +
		term(s.Mobility, refMobility, exp) +
		term(s.Center, refCenter, exp) +
		term(s.KingSafety, refKingSafety, exp)
	var lo = 4 * math.Pow(minNormalized, exp)
	var hi = 4.0
	var score = MinScore + (sum-lo)/(hi-lo)*(MaxScore-MinScore)
	return math.Max(MinScore, math.Min(MaxScore, score))
}

func term(raw, ref int, exp float64) float64 {
	var n = float64(raw) / float64(ref)
	n = math.Max(minNormalized, math.Min(1, n))
	return math.Pow(n, exp)
}
