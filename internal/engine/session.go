package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/metrics"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/uci"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Ready
	Analyzing
)

var stateNames = [...]string{"disconnected", "connecting", "ready", "analyzing"}

func (s State) String() string {
	return stateNames[s]
}

type EventKind int

const (
	EventInfo EventKind = iota
	EventBestMove
	EventFailure
)

// Event is one parsed engine record. Search is the sequence number returned by the
// Search call the record belongs to.
type Event struct {
	Search   uint64
	Kind     EventKind
	Info     uci.Info
	BestMove uci.BestMove
	Err      error
}

// Session owns one engine process and allows one outstanding search at a time.
type Session struct {
	cfg      Config
	launcher Launcher
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	state     State
	conn      *connection
	search    uint64
	rootWhite bool
	stats     domain.Stats
	name      string
	// abort is set by Disconnect while a Connect is in flight.
	abort     bool
}

func NewSession(cfg Config, launcher Launcher, logger *zap.SugaredLogger, m *metrics.Metrics) *Session {
	return &Session{
		cfg:      cfg.withDefaults(),
		launcher: launcher,
		logger:   logger,
		metrics:  m,
	}
}

type connection struct {
	proc      Process
	stdin     io.WriteCloser
	events    chan Event
	handshake chan uci.Record
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) Stats() domain.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result = s.stats
	result.PV = append([]string(nil), s.stats.PV...)
	return result
}

func (s *Session) ResetStats() {
	s.mu.Lock()
	s.stats = domain.Stats{}
	s.mu.Unlock()
}

// Events returns the record stream of the current connection. The channel is
// closed when the connection goes away.
func (s *Session) Events() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.events
}

// Connect starts the engine and runs the handshake. A session that is already
// connected is left as is.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Ready, Analyzing:
		s.mu.Unlock()
		return nil
	case Connecting:
		s.mu.Unlock()
		return ErrNotReady
	}
	s.state = Connecting
	s.mu.Unlock()

	var conn, err = s.open(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = Disconnected
		s.abort = false
		s.mu.Unlock()
		s.logger.Errorw("engine connect failed", "path", s.cfg.Path, "error", err)
		return err
	}

	s.mu.Lock()
	if s.abort {
		s.abort = false
		s.state = Disconnected
		s.mu.Unlock()
		s.release(conn, false)
		s.logger.Infow("engine connect aborted by disconnect", "path", s.cfg.Path)
		return ErrConnectAborted
	}
	s.conn = conn
	s.state = Ready
	s.stats = domain.Stats{}
	var name = s.name
	s.mu.Unlock()
	s.logger.Infow("engine connected", "name", name, "path", s.cfg.Path)
	return nil
}

func (s *Session) open(ctx context.Context) (*connection, error) {
	var options = s.cfg.uciOptions()
	for _, opt := range options {
		if v, ok := opt.(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
	}

	proc, err := s.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch engine: %w", err)
	}
	var conn = &connection{
		proc:      proc,
		stdin:     proc.Stdin(),
		events:    make(chan Event, s.cfg.EventBuffer),
		handshake: make(chan uci.Record, 64),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.readLoop(conn, proc.Stdout())

	if err := s.handshake(ctx, conn, options); err != nil {
		s.release(conn, false)
		return nil, err
	}
	return conn, nil
}

func (s *Session) handshake(ctx context.Context, conn *connection, options []uci.Option) error {
	if err := s.send(conn, uci.CmdUci); err != nil {
		return err
	}
	if err := s.waitFor(ctx, conn, uci.RecordUciOk, s.cfg.HandshakeTimeout); err != nil {
		return fmt.Errorf("%w: uci: %v", ErrHandshake, err)
	}
	for _, opt := range options {
		if err := s.send(conn, uci.OptionCommand(opt)); err != nil {
			return err
		}
	}
	for attempt := 1; ; attempt++ {
		if err := s.send(conn, uci.CmdIsReady); err != nil {
			return err
		}
		var err = s.waitFor(ctx, conn, uci.RecordReadyOk, s.cfg.ReadyTimeout)
		if err == nil {
			return nil
		}
		if err != errTimeout || attempt >= s.cfg.ReadyAttempts {
			return fmt.Errorf("%w: isready after %v attempts: %v", ErrHandshake, attempt, err)
		}
		s.logger.Warnw("engine not ready yet", "attempt", attempt)
	}
}

var errTimeout = errors.New("timeout")

func (s *Session) waitFor(ctx context.Context, conn *connection, kind uci.RecordKind, timeout time.Duration) error {
	var timer = time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case rec := <-conn.handshake:
			if rec.Kind == uci.RecordID && rec.Name == "name" {
				s.mu.Lock()
				s.name = rec.Value
				s.mu.Unlock()
			}
			if rec.Kind == kind {
				return nil
			}
		case <-conn.done:
			return ErrProcessExited
		case <-timer.C:
			return errTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) send(conn *connection, line string) error {
	s.logger.Debugw("engine <<", "line", line)
	if _, err := io.WriteString(conn.stdin, line+"\n"); err != nil {
		return fmt.Errorf("%w: write %q: %v", ErrProcessExited, line, err)
	}
	return nil
}

// Search starts a search of fen and returns its sequence number.
func (s *Session) Search(fen string, limits uci.Limits, multiPV int) (uint64, error) {
	var pos, err = common.NewPositionFromFEN(fen)
	if err != nil {
		return 0, err
	}
	if !pos.HasLegalMoves() {
		return 0, ErrTerminalPosition
	}
	if multiPV < 1 {
		multiPV = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready {
		return 0, ErrNotReady
	}
	var commands = []string{
		uci.SetOptionCommand("MultiPV", fmt.Sprint(multiPV)),
		uci.PositionCommand(pos.String(), nil),
		uci.GoCommand(limits),
	}
	for _, cmd := range commands {
		if err := s.send(s.conn, cmd); err != nil {
			return 0, err
		}
	}
	s.search++
	s.rootWhite = pos.WhiteMove
	s.state = Analyzing
	return s.search, nil
}

// Stop asks the engine to finish. The session returns to Ready when the engine
// answers with bestmove.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Analyzing {
		return ErrNotAnalyzing
	}
	return s.send(s.conn, uci.CmdStop)
}

// NewGame tells a ready engine that the next search is from an unrelated game.
func (s *Session) NewGame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready {
		return ErrNotReady
	}
	return s.send(s.conn, uci.CmdNewGame)
}

// Disconnect stops the engine and releases the process. Calling it on a
// disconnected session does nothing. During Connect it makes Connect fail with
// ErrConnectAborted.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	var conn = s.conn
	if conn == nil {
		if s.state == Connecting {
			s.abort = true
		}
		s.mu.Unlock()
		return nil
	}
	var analyzing = s.state == Analyzing
	s.conn = nil
	s.state = Disconnected
	s.stats = domain.Stats{}
	s.search++
	s.mu.Unlock()

	s.release(conn, analyzing)
	s.logger.Infow("engine disconnected")
	return nil
}

func (s *Session) release(conn *connection, analyzing bool) {
	conn.closeOnce.Do(func() {
		close(conn.quit)
		if analyzing {
			s.send(conn, uci.CmdStop)
		}
		s.send(conn, uci.CmdQuit)
		conn.stdin.Close()

		var exited = make(chan error, 1)
		go func() {
			exited <- conn.proc.Wait()
		}()
		select {
		case <-exited:
		case <-time.After(s.cfg.ExitTimeout):
			s.logger.Warnw("engine did not exit, killing")
			if err := conn.proc.Kill(); err != nil {
				s.logger.Warnw("engine kill failed", "error", err)
			}
			<-exited
		}
	})
}

func (s *Session) readLoop(conn *connection, stdout io.Reader) {
	defer close(conn.events)
	defer close(conn.done)

	var scanner = bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line = scanner.Text()
		s.logger.Debugw("engine >>", "line", line)
		var ev, ok = s.handleRecord(conn, uci.ParseLine(line))
		if !ok {
			continue
		}
		if ev.Kind == EventInfo {
			select {
			case conn.events <- ev:
			default:
				s.metrics.InfoDropped()
			}
			continue
		}
		select {
		case conn.events <- ev:
		case <-conn.quit:
		}
	}

	select {
	case <-conn.quit:
		return
	default:
	}
	var err = scanner.Err()
	if err == nil {
		err = ErrProcessExited
	} else {
		err = fmt.Errorf("%w: %v", ErrProcessExited, err)
	}
	s.fail(conn, err)
}

// fail tears the connection down after the process went away on its own.
func (s *Session) fail(conn *connection, err error) {
	s.mu.Lock()
	var seq = s.search
	if s.conn == conn {
		s.conn = nil
		s.state = Disconnected
		s.stats = domain.Stats{}
		s.search++
	}
	s.mu.Unlock()

	s.logger.Errorw("engine process failed", "error", err)
	s.metrics.EngineFailure()
	select {
	case conn.events <- Event{Search: seq, Kind: EventFailure, Err: err}:
	case <-time.After(s.cfg.ExitTimeout):
	}
	go s.release(conn, false)
}

func (s *Session) handleRecord(conn *connection, rec uci.Record) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		select {
		case conn.handshake <- rec:
		default:
		}
		return Event{}, false
	}
	if s.state != Analyzing {
		return Event{}, false
	}
	switch rec.Kind {
	case uci.RecordInfo:
		var info = rec.Info
		if info.Has(uci.FieldScore) && s.cfg.ScorePerspective == PerspectiveWhite && !s.rootWhite {
			info.Score = info.Score.Negate()
		}
		s.updateStats(&info)
		return Event{Search: s.search, Kind: EventInfo, Info: info}, true
	case uci.RecordBestMove:
		if !rec.BestMove.IsNull() {
			s.stats.BestMove = rec.BestMove.Move
		}
		s.state = Ready
		return Event{Search: s.search, Kind: EventBestMove, BestMove: rec.BestMove}, true
	}
	return Event{}, false
}

// updateStats copies only the fields present on the line.
func (s *Session) updateStats(info *uci.Info) {
	if nps, ok := info.NodesPerSecond(); ok {
		s.stats.NPS = nps
	}
	if info.Has(uci.FieldDepth) {
		s.stats.Depth = info.Depth
	}
	var primary = !info.Has(uci.FieldMultiPV) || info.MultiPV == 1
	if !primary {
		return
	}
	if info.Has(uci.FieldScore) {
		s.stats.Eval = info.Score.Value()
		s.stats.Mate = info.Score.Mate
		s.stats.HasEval = true
	}
	if info.Has(uci.FieldPV) {
		s.stats.PV = append([]string(nil), info.PV...)
		s.stats.BestMove = info.PV[0]
	}
}
