package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine/enginetest"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/uci"
)

const blackToMove = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"

func testConfig() engine.Config {
	var cfg = engine.DefaultConfig()
	cfg.HandshakeTimeout = time.Second
	cfg.ReadyTimeout = 100 * time.Millisecond
	cfg.ExitTimeout = 200 * time.Millisecond
	return cfg
}

func connect(t *testing.T, cfg engine.Config, script enginetest.Script) (*engine.Session, *enginetest.Launcher) {
	t.Helper()
	var launcher = &enginetest.Launcher{Script: script}
	var s = engine.NewSession(cfg, launcher, zap.NewNop().Sugar(), nil)
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() { s.Disconnect() })
	return s, launcher
}

func nextEvent(t *testing.T, events <-chan engine.Event, kind engine.EventKind) engine.Event {
	t.Helper()
	var timeout = time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream closed")
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("no event of kind %v", kind)
		}
	}
}

func TestConnectHandshake(t *testing.T) {
	var cfg = testConfig()
	cfg.Options = map[string]string{"Ponder": "false", "Contempt": "10"}
	var s, launcher = connect(t, cfg, enginetest.Script{Name: "Counter 5.0"})
	assert.Equal(t, engine.Ready, s.State())
	assert.Equal(t, "Counter 5.0", s.Name())

	var cmds = launcher.Last().Commands()
	require.NotEmpty(t, cmds)
	assert.Equal(t, "uci", cmds[0])
	assert.Contains(t, cmds, "setoption name MultiPV value 1")
	assert.Contains(t, cmds, "setoption name Hash value 16")
	assert.Contains(t, cmds, "setoption name Contempt value 10")
	assert.Contains(t, cmds, "setoption name Ponder value false")
	assert.Equal(t, "isready", cmds[len(cmds)-1])

	require.NoError(t, s.Connect(context.Background()))
	assert.Len(t, launcher.Processes(), 1)
}

func TestConnectRetriesReady(t *testing.T) {
	var s, launcher = connect(t, testConfig(), enginetest.Script{SkipReady: 2})
	assert.Equal(t, engine.Ready, s.State())
	assert.Equal(t, 3, launcher.Last().Count("isready"))
}

func TestConnectFailureLeavesNothingRunning(t *testing.T) {
	var launcher = &enginetest.Launcher{Script: enginetest.Script{SkipReady: 10}}
	var s = engine.NewSession(testConfig(), launcher, zap.NewNop().Sugar(), nil)
	var err = s.Connect(context.Background())
	assert.ErrorIs(t, err, engine.ErrHandshake)
	assert.Equal(t, engine.Disconnected, s.State())
	var proc = launcher.Last()
	assert.True(t, proc.Exited())
	assert.Equal(t, 1, proc.StdinCloses())
	assert.Equal(t, 3, proc.Count("isready"))

	launcher = &enginetest.Launcher{Err: errors.New("no such file")}
	s = engine.NewSession(testConfig(), launcher, zap.NewNop().Sugar(), nil)
	assert.Error(t, s.Connect(context.Background()))
	assert.Equal(t, engine.Disconnected, s.State())

	launcher = &enginetest.Launcher{Script: enginetest.Script{NoUciOk: true}}
	var cfg = testConfig()
	cfg.HandshakeTimeout = 50 * time.Millisecond
	s = engine.NewSession(cfg, launcher, zap.NewNop().Sugar(), nil)
	assert.ErrorIs(t, s.Connect(context.Background()), engine.ErrHandshake)
	assert.True(t, launcher.Last().Exited())
}

func TestSearchEmitsEvents(t *testing.T) {
	var s, launcher = connect(t, testConfig(), enginetest.Script{
		BestMove: "d2d4",
		Lines: []string{
			"info depth 1 seldepth 1 multipv 1 score cp 20 nodes 20 nps 20000 time 1 pv e2e4",
			"info depth 2 multipv 1 score cp 35 nodes 400 time 3 pv d2d4 d7d5",
			"info depth 2 multipv 2 score cp -10 pv a2a3 e7e5",
			"info depth 3",
		},
	})
	var events = s.Events()
	var seq, err = s.Search(common.InitialPositionFen, uci.Limits{Depth: 3}, 2)
	require.NoError(t, err)

	var best = nextEvent(t, events, engine.EventBestMove)
	assert.Equal(t, seq, best.Search)
	assert.Equal(t, "d2d4", best.BestMove.Move)
	assert.Eventually(t, func() bool { return s.State() == engine.Ready }, time.Second, 10*time.Millisecond)

	var stats = s.Stats()
	assert.Equal(t, 3, stats.Depth)
	assert.Equal(t, 35, stats.Eval)
	assert.Equal(t, []string{"d2d4", "d7d5"}, stats.PV)
	assert.Equal(t, "d2d4", stats.BestMove)
	assert.Equal(t, int64(400*1000/4), stats.NPS)

	var cmds = launcher.Last().Commands()
	assert.Contains(t, cmds, "setoption name MultiPV value 2")
	assert.Contains(t, cmds, "position fen "+common.InitialPositionFen)
	assert.Contains(t, cmds, "go depth 3")
}

func TestSecondSearchRejectedWhileAnalyzing(t *testing.T) {
	var s, launcher = connect(t, testConfig(), enginetest.Script{Hang: true, BestMove: "e2e4"})
	var events = s.Events()
	var seq, err = s.Search(common.InitialPositionFen, uci.Limits{Infinite: true}, 1)
	require.NoError(t, err)
	assert.Equal(t, engine.Analyzing, s.State())

	_, err = s.Search(common.InitialPositionFen, uci.Limits{Depth: 5}, 1)
	assert.ErrorIs(t, err, engine.ErrNotReady)
	assert.Equal(t, 1, launcher.Last().Count("go"))
	assert.Equal(t, engine.Analyzing, s.State())

	require.NoError(t, s.Stop())
	var best = nextEvent(t, events, engine.EventBestMove)
	assert.Equal(t, seq, best.Search)
	assert.Eventually(t, func() bool { return s.State() == engine.Ready }, time.Second, 10*time.Millisecond)

	seq2, err := s.Search(common.InitialPositionFen, uci.Limits{Depth: 5}, 1)
	require.NoError(t, err)
	assert.Greater(t, seq2, seq)
	assert.Equal(t, 2, launcher.Last().Count("go"))
}

func TestSearchRejections(t *testing.T) {
	var s = engine.NewSession(testConfig(), &enginetest.Launcher{}, zap.NewNop().Sugar(), nil)
	var _, err = s.Search(common.InitialPositionFen, uci.Limits{Depth: 1}, 1)
	assert.ErrorIs(t, err, engine.ErrNotReady)
	assert.ErrorIs(t, s.Stop(), engine.ErrNotAnalyzing)

	s, _ = connect(t, testConfig(), enginetest.Script{})
	_, err = s.Search("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", uci.Limits{Depth: 1}, 1)
	assert.ErrorIs(t, err, engine.ErrTerminalPosition)
	_, err = s.Search("8/8/8 w - - 0 1", uci.Limits{Depth: 1}, 1)
	assert.ErrorIs(t, err, common.ErrInvalidFEN)
	assert.Equal(t, engine.Ready, s.State())
}

func TestScorePerspective(t *testing.T) {
	var script = enginetest.Script{Lines: []string{"info depth 4 score cp 80 pv e7e5"}}

	var s, _ = connect(t, testConfig(), script)
	var events = s.Events()
	_, err := s.Search(blackToMove, uci.Limits{Depth: 4}, 1)
	require.NoError(t, err)
	var info = nextEvent(t, events, engine.EventInfo)
	assert.Equal(t, 80, info.Info.Score.Centipawns)

	var cfg = testConfig()
	cfg.ScorePerspective = engine.PerspectiveWhite
	s, _ = connect(t, cfg, script)
	events = s.Events()
	_, err = s.Search(blackToMove, uci.Limits{Depth: 4}, 1)
	require.NoError(t, err)
	info = nextEvent(t, events, engine.EventInfo)
	assert.Equal(t, -80, info.Info.Score.Centipawns)
	nextEvent(t, events, engine.EventBestMove)
	assert.Equal(t, -80, s.Stats().Eval)
}

func TestDisconnectTwice(t *testing.T) {
	var s, launcher = connect(t, testConfig(), enginetest.Script{Hang: true})
	var events = s.Events()
	_, err := s.Search(common.InitialPositionFen, uci.Limits{Infinite: true}, 1)
	require.NoError(t, err)

	assert.NoError(t, s.Disconnect())
	assert.NoError(t, s.Disconnect())
	assert.Equal(t, engine.Disconnected, s.State())

	var proc = launcher.Last()
	assert.Equal(t, 1, proc.StdinCloses())
	assert.Equal(t, 0, proc.Kills())
	assert.Equal(t, 1, proc.Count("quit"))
	assert.Equal(t, 1, proc.Count("stop"))
	assert.True(t, proc.Exited())

	for range events {
	}
	assert.Nil(t, s.Events())
}

func TestDisconnectKillsStuckEngine(t *testing.T) {
	var s, launcher = connect(t, testConfig(), enginetest.Script{IgnoreQuit: true})
	assert.NoError(t, s.Disconnect())
	assert.NoError(t, s.Disconnect())
	assert.Equal(t, 1, launcher.Last().Kills())
	assert.Equal(t, 1, launcher.Last().StdinCloses())
}

func TestProcessFailure(t *testing.T) {
	var s, launcher = connect(t, testConfig(), enginetest.Script{Hang: true})
	var events = s.Events()
	var seq, err = s.Search(common.InitialPositionFen, uci.Limits{Infinite: true}, 1)
	require.NoError(t, err)

	launcher.Last().Crash()
	var ev = nextEvent(t, events, engine.EventFailure)
	assert.Equal(t, seq, ev.Search)
	assert.ErrorIs(t, ev.Err, engine.ErrProcessExited)
	assert.Equal(t, engine.Disconnected, s.State())
	assert.Eventually(t, func() bool { return launcher.Last().StdinCloses() == 1 }, time.Second, 10*time.Millisecond)

	assert.NoError(t, s.Disconnect())
	assert.Equal(t, 1, launcher.Last().StdinCloses())

	require.NoError(t, s.Connect(context.Background()))
	assert.Len(t, launcher.Processes(), 2)
}

func TestDisconnectDuringConnect(t *testing.T) {
	var cfg = testConfig()
	cfg.ReadyTimeout = 100 * time.Millisecond
	var launcher = &enginetest.Launcher{Script: enginetest.Script{SkipReady: 2}}
	var s = engine.NewSession(cfg, launcher, zap.NewNop().Sugar(), nil)

	var done = make(chan error, 1)
	go func() { done <- s.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return s.State() == engine.Connecting }, time.Second, time.Millisecond)
	assert.NoError(t, s.Disconnect())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, engine.ErrConnectAborted)
	case <-time.After(2 * time.Second):
		t.Fatal("connect did not return")
	}
	assert.Equal(t, engine.Disconnected, s.State())
	assert.Nil(t, s.Events())
	assert.True(t, launcher.Last().Exited())

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, engine.Ready, s.State())
	s.Disconnect()
}

func TestNewGame(t *testing.T) {
	var s, launcher = connect(t, testConfig(), enginetest.Script{Hang: true})
	require.NoError(t, s.NewGame())
	assert.Eventually(t, func() bool { return launcher.Last().Count("ucinewgame") == 1 }, time.Second, 10*time.Millisecond)

	_, err := s.Search(common.InitialPositionFen, uci.Limits{Infinite: true}, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, s.NewGame(), engine.ErrNotReady)
}
