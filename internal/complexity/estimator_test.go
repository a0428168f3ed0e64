package complexity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
)

var testFENs = []string{
	common.InitialPositionFen,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r1bq1rk1/pp2bppp/2n1pn2/3p4/2PP4/2N1PN2/PP3PPP/R2QKB1R w KQ - 3 8",
	"6k1/5ppp/8/8/8/8/5PPP/3R2K1 b - - 0 1",
	"4k3/8/8/8/8/8/8/4K3 w - - 0 1",
	"rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
}

func newTestEstimator() *Estimator {
	return NewEstimator(DefaultConfig(), zap.NewNop().Sugar(), nil)
}

func TestEstimateBoundedAndDeterministic(t *testing.T) {
	var e = newTestEstimator()
	for _, d := range []float64{0.5, 1, 1.247, 1.5, 2, 3} {
		for _, fen := range testFENs {
			var first = e.Estimate(fen, d)
			assert.GreaterOrEqual(t, first, MinScore, fen)
			assert.LessOrEqual(t, first, MaxScore, fen)

			var fresh = newTestEstimator().Estimate(fen, d)
			assert.Equal(t, first, fresh, fen)
			assert.Equal(t, first, e.Estimate(fen, d), fen)
		}
	}
}

func TestStartingPositionBand(t *testing.T) {
	var e = newTestEstimator()
	var score = e.Estimate(common.InitialPositionFen, 1.247)
	assert.InDelta(t, 13.6, score, 0.2)
	assert.GreaterOrEqual(t, score, 1.0)
	assert.LessOrEqual(t, score, 15.0)
}

func TestStartingPositionSignals(t *testing.T) {
	var pos, err = common.NewPositionFromFEN(common.InitialPositionFen)
	require.NoError(t, err)
	var s = ComputeSignals(common.InitialPositionFen, &pos)
	assert.Equal(t, Signals{Pieces: 32, Mobility: 20, Center: 0, KingSafety: 6}, s)
}

func TestSetDimensionInvalidatesCache(t *testing.T) {
	var e = newTestEstimator()
	var calls = 0
	e.signals = func(fen string, p *common.Position) Signals {
		calls++
		return ComputeSignals(fen, p)
	}
	var fen = testFENs[1]

	var v1 = e.Estimate(fen, 1.2)
	e.Estimate(fen, 1.2)
	assert.Equal(t, 1, calls)

	e.SetDimension(1.8)
	assert.Equal(t, 0, e.cache.Len())

	assert.Equal(t, v1, e.Estimate(fen, 1.2))
	assert.Equal(t, 2, calls)
}

func TestDimensionChangesSensitivity(t *testing.T) {
	var s = Signals{Pieces: 10, Mobility: 30, Center: 10, KingSafety: 10}
	var low = Score(s, 1)
	var high = Score(s, 2)
	assert.Greater(t, high, low)
	assert.Equal(t, Score(s, 0.3), Score(s, 1))
	assert.Equal(t, Score(s, 7), Score(s, 2))
}

func TestScoreExtremes(t *testing.T) {
	assert.InDelta(t, MinScore, Score(Signals{}, 1.5), 1e-9)
	assert.InDelta(t, MaxScore, Score(Signals{Pieces: 32, Mobility: 218, Center: 40, KingSafety: 50}, 1.5), 1e-9)
	assert.InDelta(t, MinScore, Score(Signals{Center: -40, KingSafety: -50}, 1.5), 1e-9)
}

func TestFallbackNotCached(t *testing.T) {
	var e = newTestEstimator()
	assert.Equal(t, Fallback, e.Estimate("not a fen", 1.5))
	assert.Equal(t, Fallback, e.Estimate("8/8/8/8 w - - 0 1", 1.5))
	assert.Equal(t, 0, e.cache.Len())

	e.signals = func(fen string, p *common.Position) Signals {
		panic("broken collaborator")
	}
	assert.Equal(t, Fallback, e.Estimate(common.InitialPositionFen, 1.5))
	assert.Equal(t, 0, e.cache.Len())
}

func TestCacheEvictsOldestInserted(t *testing.T) {
	var c = newScoreCache(2)
	var a, b, d = cacheKey{fen: "a"}, cacheKey{fen: "b"}, cacheKey{fen: "d"}
	c.Put(a, 1)
	c.Put(b, 2)
	c.Get(a)
	c.Put(a, 3)
	c.Put(d, 4)

	var _, okA = c.Get(a)
	var vb, okB = c.Get(b)
	var vd, okD = c.Get(d)
	assert.False(t, okA)
	assert.True(t, okB)
	assert.True(t, okD)
	assert.Equal(t, 2.0, vb)
	assert.Equal(t, 4.0, vd)
	assert.Equal(t, 2, c.Len())
}

func TestCacheCapacity(t *testing.T) {
	var e = NewEstimator(Config{Dimension: 1.5, CacheSize: 3}, zap.NewNop().Sugar(), nil)
	for _, fen := range testFENs {
		e.Complexity(fen)
	}
	assert.Equal(t, 3, e.cache.Len())
}
