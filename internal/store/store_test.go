package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
)

func sampleResult(fen string) domain.Result {
	return domain.Result{
		ID:         uuid.NewString(),
		FEN:        fen,
		Move:       "e2e4",
		SAN:        "e4",
		Eval:       25,
		Depth:      12,
		PV:         []string{"e2e4", "e7e5"},
		Plan:       domain.SearchPlan{Strategy: domain.StrategyMode, Depth: 12, MultiPV: 3, Mode: domain.ModeMaintainBalance, Target: domain.Range{Low: -50, High: 50}, Budget: time.Second},
		Complexity: 13.6,
		Elapsed:    800 * time.Millisecond,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func testStore(t *testing.T, s Store) {
	var ctx = context.Background()
	var fen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

	var _, err = s.Get(ctx, fen)
	assert.ErrorIs(t, err, ErrNotFound)

	var first = sampleResult(fen)
	require.NoError(t, s.Save(ctx, first))
	got, err := s.Get(ctx, fen)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	var second = sampleResult(fen)
	second.Move = "d2d4"
	require.NoError(t, s.Save(ctx, second))
	got, err = s.Get(ctx, fen)
	require.NoError(t, err)
	assert.Equal(t, "d2d4", got.Move)
	assert.Equal(t, second.ID, got.ID)
}

func TestMemoryStore(t *testing.T) {
	var s = NewMemoryStore()
	testStore(t, s)
	assert.NoError(t, s.Close(context.Background()))
}

func TestRedisStore(t *testing.T) {
	var addr = os.Getenv("FRACTAL_TEST_REDIS")
	if addr == "" {
		t.Skip("FRACTAL_TEST_REDIS is not set")
	}
	var s = NewRedisStore(RedisConfig{Addr: addr, KeyPrefix: "fractal:test:" + uuid.NewString() + ":", TTL: time.Minute}, zap.NewNop().Sugar())
	require.NoError(t, s.Init(context.Background()))
	defer s.Close(context.Background())
	testStore(t, s)
}
