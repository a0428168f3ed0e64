package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/analysis"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/complexity"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine/enginetest"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/planner"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/store"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
)

func TestPrintResultsFlushesUnpublishedResult(t *testing.T) {
	var log = zap.NewNop().Sugar()
	var session = engine.NewSession(engine.DefaultConfig(), &enginetest.Launcher{Script: enginetest.Script{
		BestMove: "e2e4",
		Lines:    []string{"info depth 9 score cp 30 pv e2e4 e7e5"},
	}}, log, nil)
	var ctrl = analysis.NewController(analysis.DefaultConfig(), session,
		complexity.NewEstimator(complexity.DefaultConfig(), log, nil),
		planner.New(planner.DefaultConfig()), store.NewMemoryStore(), log, nil)
	require.NoError(t, ctrl.Connect(context.Background()))
	defer ctrl.Disconnect()

	require.NoError(t, ctrl.SetPosition(common.InitialPositionFen))
	_, err := ctrl.Analyze(context.Background(), "")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		var _, ok = ctrl.Result()
		return ok && !ctrl.Analyzing()
	}, 2*time.Second, 10*time.Millisecond)

	// subscribing after the commit misses the result notification
	var notifications, unsubscribe = ctrl.Subscribe()
	defer unsubscribe()
	var out bytes.Buffer
	var ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, printResults(ctx, &out, ctrl, notifications, true))

	var result domain.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "e2e4", result.Move)
}
