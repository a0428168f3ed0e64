package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/complexity"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/metrics"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/pgn"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/planner"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/selector"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/store"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/uci"
)

var (
	ErrNoPosition   = errors.New("no position set")
	ErrNotConnected = errors.New("engine is not connected")
	ErrNoMove       = errors.New("engine returned no move")
)

type Config struct {
	Strategy      domain.Strategy `mapstructure:"strategy"`
	TickInterval  time.Duration   `mapstructure:"tick_interval"`
	StopTimeout   time.Duration   `mapstructure:"stop_timeout"`
	FallbackDepth int             `mapstructure:"fallback_depth"`
	HistorySize   int             `mapstructure:"history_size"`
	Autoplay      bool            `mapstructure:"autoplay"`
	MaxPlies      int             `mapstructure:"max_plies"`
}

func DefaultConfig() Config {
	return Config{
		Strategy:      domain.StrategyComplexity,
		TickInterval:  100 * time.Millisecond,
		StopTimeout:   2 * time.Second,
		FallbackDepth: 1,
		HistorySize:   32,
		MaxPlies:      200,
	}
}

func (cfg Config) withDefaults() Config {
	var def = DefaultConfig()
	if _, ok := domain.ParseStrategy(string(cfg.Strategy)); !ok {
		cfg.Strategy = def.Strategy
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = def.StopTimeout
	}
	if cfg.FallbackDepth <= 0 {
		cfg.FallbackDepth = def.FallbackDepth
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.MaxPlies <= 0 {
		cfg.MaxPlies = def.MaxPlies
	}
	return cfg
}

// Engine is the search engine session the controller drives.
type Engine interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Search(fen string, limits uci.Limits, multiPV int) (uint64, error)
	Stop() error
	Events() <-chan engine.Event
	Stats() domain.Stats
	ResetStats()
	NewGame() error
	State() engine.State
}

// run is one analysis from search start to committed move.
type run struct {
	seq        uint64
	fen        string
	pos        common.Position
	plan       domain.SearchPlan
	complexity float64
	start      time.Time
	done       chan struct{}

	timedOut    bool
	awaitingAck bool
	ackDeadline time.Time
	fallback    bool
}

// Controller is one analysis session: a position, an engine and the state of the
// current search. It is safe for concurrent use.
type Controller struct {
	cfg       Config
	engine    Engine
	estimator *complexity.Estimator
	planner   *planner.Planner
	store     store.Store
	logger    *zap.SugaredLogger
	metrics   *metrics.Metrics
	hub       *hub

	mu          sync.Mutex
	events      <-chan engine.Event
	positions   []common.Position
	fen         string
	record      []pgn.Item
	evals       []int
	nps         []float64
	lines       map[int]domain.CandidateLine
	plan        *domain.SearchPlan
	current     *run
	lastResult  *domain.Result
	autoplay    bool
	pendingNext bool
	gameOver    string
}

func NewController(cfg Config, eng Engine, estimator *complexity.Estimator, pl *planner.Planner,
	st store.Store, logger *zap.SugaredLogger, m *metrics.Metrics) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:       cfg,
		engine:    eng,
		estimator: estimator,
		planner:   pl,
		store:     st,
		logger:    logger,
		metrics:   m,
		hub:       newHub(),
		autoplay:  cfg.Autoplay,
	}
}

func (c *Controller) Connect(ctx context.Context) error {
	if err := c.engine.Connect(ctx); err != nil {
		c.publishStatus(err)
		return err
	}
	var events = c.engine.Events()
	c.mu.Lock()
	if events != nil && events != c.events {
		c.events = events
		go c.pump(events)
	}
	c.mu.Unlock()
	c.publishStatus(nil)
	return nil
}

func (c *Controller) Disconnect() error {
	c.mu.Lock()
	c.cancelLocked()
	c.autoplay = false
	c.pendingNext = false
	c.mu.Unlock()
	var err = c.engine.Disconnect()
	c.publishStatus(nil)
	return err
}

func (c *Controller) Connected() bool {
	var st = c.engine.State()
	return st == engine.Ready || st == engine.Analyzing
}

func (c *Controller) Analyzing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// SetPosition validates fen and makes it the analysed position. On error nothing
// changes.
func (c *Controller) SetPosition(fen string) error {
	var pos, err = common.NewPositionFromFEN(fen)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cancelLocked()
	c.positions = []common.Position{pos}
	c.fen = pos.String()
	c.record = nil
	c.evals = nil
	c.lines = nil
	c.plan = nil
	c.gameOver = ""
	c.pendingNext = false
	c.mu.Unlock()
	c.engine.ResetStats()
	c.newGame()
	c.publishStatus(nil)
	return nil
}

// newGame sends ucinewgame when the engine is idle. A cancelled search that is
// still being stopped skips it.
func (c *Controller) newGame() {
	if err := c.engine.NewGame(); err != nil && !errors.Is(err, engine.ErrNotReady) {
		c.logger.Warnw("ucinewgame failed", "error", err)
	}
}

func (c *Controller) FEN() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fen
}

func (c *Controller) Complexity() (float64, error) {
	var fen = c.FEN()
	if fen == "" {
		return 0, ErrNoPosition
	}
	return c.estimator.Complexity(fen), nil
}

func (c *Controller) SetDimension(d float64) float64 {
	return c.estimator.SetDimension(d)
}

func (c *Controller) SetAutoplay(on bool) {
	c.mu.Lock()
	c.autoplay = on
	if !on {
		c.pendingNext = false
	}
	c.mu.Unlock()
}

// Analyze starts an analysis of the current position. An empty strategy uses the
// configured one.
func (c *Controller) Analyze(ctx context.Context, strategy domain.Strategy) (domain.SearchPlan, error) {
	if err := ctx.Err(); err != nil {
		return domain.SearchPlan{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if strategy == "" {
		strategy = c.cfg.Strategy
	}
	if c.current != nil {
		return domain.SearchPlan{}, engine.ErrNotReady
	}
	c.gameOver = ""
	return c.startLocked(strategy)
}

func (c *Controller) startLocked(strategy domain.Strategy) (domain.SearchPlan, error) {
	if c.fen == "" {
		return domain.SearchPlan{}, ErrNoPosition
	}
	if st := c.engine.State(); st == engine.Disconnected || st == engine.Connecting {
		return domain.SearchPlan{}, ErrNotConnected
	}
	var fen = c.fen
	var pos = c.positions[len(c.positions)-1]
	var score = c.estimator.Complexity(fen)
	var currentDepth = 0
	if c.plan != nil {
		currentDepth = c.plan.Depth
	}
	var plan = c.planner.Plan(strategy, planner.Input{
		Complexity:   score,
		Dimension:    c.estimator.Dimension(),
		Evaluations:  moverEvaluations(c.evals, pos.WhiteMove),
		NPS:          c.nps,
		CurrentDepth: currentDepth,
	})

	c.engine.ResetStats()
	var seq, err = c.engine.Search(fen, uci.Limits{Depth: plan.Depth}, plan.MultiPV)
	if err != nil {
		return domain.SearchPlan{}, err
	}
	var r = &run{
		seq:        seq,
		fen:        fen,
		pos:        pos,
		plan:       plan,
		complexity: score,
		start:      time.Now(),
		done:       make(chan struct{}),
	}
	c.current = r
	c.lines = make(map[int]domain.CandidateLine)
	c.plan = &plan
	c.metrics.SearchStarted(string(plan.Strategy))
	c.logger.Infow("analysis started",
		"fen", fen,
		"strategy", plan.Strategy,
		"depth", plan.Depth,
		"multipv", plan.MultiPV,
		"mode", plan.Mode,
		"budget", plan.Budget,
		"complexity", score)
	go c.watchdog(r)
	return plan, nil
}

// Stop cancels the running analysis without committing a move.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoplay = false
	c.pendingNext = false
	if c.current == nil {
		return engine.ErrNotAnalyzing
	}
	c.cancelLocked()
	return nil
}

// cancelLocked drops the current run and its candidate lines.
func (c *Controller) cancelLocked() {
	var r = c.current
	if r == nil {
		return
	}
	c.current = nil
	c.lines = nil
	close(r.done)
	if err := c.engine.Stop(); err != nil && !errors.Is(err, engine.ErrNotAnalyzing) {
		c.logger.Warnw("engine stop failed", "error", err)
	}
	c.logger.Infow("analysis cancelled", "fen", r.fen)
}

func (c *Controller) watchdog(r *run) {
	var ticker = time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			if c.tick(r, now) {
				return
			}
		}
	}
}

// tick reports whether the watchdog is finished with r.
func (c *Controller) tick(r *run, now time.Time) bool {
	c.mu.Lock()
	if c.current != r {
		c.mu.Unlock()
		return true
	}
	if r.awaitingAck {
		if now.Before(r.ackDeadline) {
			c.mu.Unlock()
			return false
		}
		// the engine ignored stop; commit any legal move and drop the engine
		c.logger.Errorw("engine unresponsive after stop", "fen", r.fen)
		c.autoplay = false
		c.pendingNext = false
		var ml = r.pos.GenerateLegalMoves()
		var result *domain.Result
		if len(ml) != 0 {
			result = c.commitLocked(r, ml[0].String(), 0, 0, nil, true)
		} else {
			c.finishLocked(r)
		}
		c.mu.Unlock()
		c.afterCommit(result)
		go c.Disconnect()
		return true
	}
	if now.Sub(r.start) < r.plan.Budget {
		c.mu.Unlock()
		return false
	}

	r.timedOut = true
	c.logger.Warnw("analysis budget exceeded", "fen", r.fen, "budget", r.plan.Budget)
	if err := c.engine.Stop(); err != nil && !errors.Is(err, engine.ErrNotAnalyzing) {
		c.logger.Warnw("engine stop failed", "error", err)
	}
	var move, eval, depth, pv, ok = c.bestKnownLocked(r)
	if !ok {
		r.awaitingAck = true
		r.ackDeadline = now.Add(c.cfg.StopTimeout)
		c.mu.Unlock()
		return false
	}
	var result = c.commitLocked(r, move, eval, depth, pv, false)
	if c.autoplay {
		c.pendingNext = true
	}
	c.mu.Unlock()
	c.afterCommit(result)
	return true
}

// bestKnownLocked picks the move to commit when time runs out.
func (c *Controller) bestKnownLocked(r *run) (move string, eval, depth int, pv []string, ok bool) {
	if line, found := selector.Select(c.linesLocked(), r.plan.Target); found {
		return line.Moves[0], line.Eval, line.Depth, line.Moves, true
	}
	var stats = c.engine.Stats()
	if isLegal(&r.pos, stats.BestMove) {
		return stats.BestMove, stats.Eval, stats.Depth, stats.PV, true
	}
	if len(stats.PV) != 0 && isLegal(&r.pos, stats.PV[0]) {
		return stats.PV[0], stats.Eval, stats.Depth, stats.PV, true
	}
	return "", 0, 0, nil, false
}

func isLegal(pos *common.Position, lan string) bool {
	return lan != "" && pos.ParseMoveLAN(lan) != common.MoveEmpty
}

func (c *Controller) linesLocked() []domain.CandidateLine {
	var result = make([]domain.CandidateLine, 0, len(c.lines))
	for _, line := range c.lines {
		result = append(result, line)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Rank < result[j].Rank
	})
	return result
}

func (c *Controller) pump(events <-chan engine.Event) {
	for ev := range events {
		c.handleEvent(ev)
	}
}

func (c *Controller) handleEvent(ev engine.Event) {
	c.mu.Lock()
	var r = c.current
	if ev.Kind == engine.EventFailure {
		c.logger.Errorw("engine failure", "error", ev.Err)
		c.cancelLocked()
		c.autoplay = false
		c.pendingNext = false
		c.mu.Unlock()
		c.publishStatus(ev.Err)
		return
	}
	if r == nil || ev.Search != r.seq {
		// answer to a search that was stopped or timed out
		var next = ev.Kind == engine.EventBestMove && c.pendingNext && r == nil
		if next {
			c.pendingNext = false
			c.continueAutoplayLocked()
		}
		c.mu.Unlock()
		return
	}

	switch ev.Kind {
	case engine.EventInfo:
		c.updateLineLocked(ev.Info)
		c.mu.Unlock()
	case engine.EventBestMove:
		var result = c.onBestMoveLocked(r, ev.BestMove)
		c.mu.Unlock()
		c.afterCommit(result)
	default:
		c.mu.Unlock()
	}
}

func (c *Controller) updateLineLocked(info uci.Info) {
	if !info.Has(uci.FieldPV) && !info.Has(uci.FieldScore) {
		return
	}
	var rank = 0
	if info.Has(uci.FieldMultiPV) {
		rank = info.MultiPV - 1
	}
	var line = c.lines[rank]
	line.Rank = rank
	if info.Has(uci.FieldPV) {
		line.Moves = append([]string(nil), info.PV...)
	}
	if info.Has(uci.FieldScore) {
		line.Eval = info.Score.Value()
		line.Scored = true
	}
	if info.Has(uci.FieldDepth) {
		line.Depth = info.Depth
	}
	c.lines[rank] = line
}

func (c *Controller) onBestMoveLocked(r *run, best uci.BestMove) *domain.Result {
	var stats = c.engine.Stats()
	if !best.IsNull() && !isLegal(&r.pos, best.Move) {
		c.logger.Warnw("engine returned an illegal move", "fen", r.fen, "move", best.Move)
		best = uci.BestMove{}
	}
	if len(stats.PV) != 0 && !isLegal(&r.pos, stats.PV[0]) {
		stats = domain.Stats{}
	}
	if r.fallback || r.awaitingAck {
		if !best.IsNull() {
			return c.commitLocked(r, best.Move, stats.Eval, stats.Depth, stats.PV, r.fallback)
		}
		if r.fallback {
			c.logger.Errorw("fallback search returned no move", "fen", r.fen)
			c.finishLocked(r)
			return nil
		}
		var seq, err = c.engine.Search(r.fen, uci.Limits{Depth: c.cfg.FallbackDepth}, 1)
		if err != nil {
			c.logger.Errorw("fallback search failed", "fen", r.fen, "error", err)
			c.finishLocked(r)
			return nil
		}
		r.seq = seq
		r.fallback = true
		r.awaitingAck = true
		r.ackDeadline = time.Now().Add(c.cfg.StopTimeout)
		return nil
	}

	if r.plan.MultiPV > 1 {
		if line, ok := selector.Select(c.linesLocked(), r.plan.Target); ok {
			return c.commitLocked(r, line.Moves[0], line.Eval, line.Depth, line.Moves, false)
		}
	}
	if best.IsNull() {
		c.logger.Warnw("engine returned no move", "fen", r.fen, "error", ErrNoMove)
		c.finishLocked(r)
		return nil
	}
	var pv = stats.PV
	if len(pv) == 0 || pv[0] != best.Move {
		pv = []string{best.Move}
	}
	return c.commitLocked(r, best.Move, stats.Eval, stats.Depth, pv, false)
}

func (c *Controller) finishLocked(r *run) {
	if c.current == r {
		c.current = nil
		c.lines = nil
		close(r.done)
	}
}

// commitLocked records the decision of r. eval is seen from the side to move.
func (c *Controller) commitLocked(r *run, move string, eval, depth int, pv []string, fallback bool) *domain.Result {
	var result = domain.Result{
		ID:         uuid.NewString(),
		FEN:        r.fen,
		Move:       move,
		Eval:       eval,
		Depth:      depth,
		PV:         append([]string(nil), pv...),
		Plan:       r.plan,
		Complexity: r.complexity,
		TimedOut:   r.timedOut,
		Fallback:   fallback,
		Elapsed:    time.Since(r.start),
		CreatedAt:  time.Now().UTC(),
	}
	if mv := r.pos.ParseMoveLAN(move); mv != common.MoveEmpty {
		result.SAN = r.pos.MoveToSAN(mv)
	}
	var whiteEval = eval
	if !r.pos.WhiteMove {
		whiteEval = -eval
	}
	c.evals = appendBounded(c.evals, whiteEval, c.cfg.HistorySize)
	if stats := c.engine.Stats(); stats.NPS > 0 {
		c.nps = appendBounded(c.nps, float64(stats.NPS), c.cfg.HistorySize)
	}
	c.lastResult = &result
	c.finishLocked(r)
	if c.autoplay && c.fen == r.fen {
		c.applyMoveLocked(&result)
	}
	return &result
}

func (c *Controller) afterCommit(result *domain.Result) {
	if result == nil {
		c.publishStatus(nil)
		return
	}
	c.metrics.ResultCommitted(string(result.Plan.Mode), result.Elapsed, result.TimedOut)
	c.logger.Infow("move committed",
		"fen", result.FEN,
		"move", result.Move,
		"san", result.SAN,
		"eval", result.Eval,
		"timed_out", result.TimedOut,
		"fallback", result.Fallback,
		"elapsed", result.Elapsed)
	if c.store != nil {
		var ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.store.Save(ctx, *result); err != nil {
			c.logger.Warnw("save result failed", "id", result.ID, "error", err)
		}
		cancel()
	}
	c.hub.publish(Notification{Kind: KindResult, Result: result})

	c.mu.Lock()
	if c.autoplay && c.gameOver == "" && c.current == nil && !c.pendingNext {
		if c.engine.State() == engine.Ready {
			c.continueAutoplayLocked()
		} else {
			c.pendingNext = true
		}
	}
	c.mu.Unlock()
	c.publishStatus(nil)
}

func (c *Controller) continueAutoplayLocked() {
	if !c.autoplay || c.gameOver != "" {
		return
	}
	if _, err := c.startLocked(c.cfg.Strategy); err != nil {
		c.logger.Warnw("autoplay stopped", "error", err)
		c.autoplay = false
	}
}

// Result returns the last committed result.
func (c *Controller) Result() (domain.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastResult == nil {
		return domain.Result{}, false
	}
	return *c.lastResult, true
}

// Wait blocks until the running analysis ends or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	var r = c.current
	c.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait analysis: %w", ctx.Err())
	}
}

func moverEvaluations(whiteEvals []int, whiteMove bool) []int {
	var result = make([]int, len(whiteEvals))
	for i, v := range whiteEvals {
		if whiteMove {
			result[i] = v
		} else {
			result[i] = -v
		}
	}
	return result
}

func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = append(s[:0:0], s[len(s)-limit:]...)
	}
	return s
}
