// Package enginetest provides a scripted in-memory UCI engine for tests.
package enginetest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine"
)

// Script decides how the fake engine answers. Zero values give a well behaved
// engine that answers every go with Lines followed by bestmove BestMove.
type Script struct {
	Name string
	// Lines are emitted after go. "bestmove" lines may be included.
	Lines []string
	// BestMove is sent when a search finishes or is stopped. Empty means the
	// first move of the last pv seen in Lines, or "0000".
	BestMove string
	// Hang keeps the search running until stop.
	Hang bool
	// IgnoreStop makes stop unanswered.
	IgnoreStop bool
	// IgnoreQuit keeps the process alive after quit until it is killed.
	IgnoreQuit bool
	// SkipReady leaves the first n isready commands unanswered.
	SkipReady int
	// NoUciOk never completes the uci handshake.
	NoUciOk bool
	// BestMoveFor, when set, picks the bestmove from the FEN of the last
	// position command.
	BestMoveFor func(fen string) string
	// OnGo is called with the go command, before any output.
	OnGo func(p *Process, command string)
}

type Launcher struct {
	Script Script
	Err    error

	mu        sync.Mutex
	processes []*Process
}

func (l *Launcher) Launch(ctx context.Context) (engine.Process, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	var p = newProcess(l.Script)
	l.mu.Lock()
	l.processes = append(l.processes, p)
	l.mu.Unlock()
	return p, nil
}

func (l *Launcher) Processes() []*Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Process(nil), l.processes...)
}

func (l *Launcher) Last() *Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.processes) == 0 {
		return nil
	}
	return l.processes[len(l.processes)-1]
}

type Process struct {
	script Script

	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stdin   *countingCloser

	mu        sync.Mutex
	commands  []string
	kills     int
	searching bool
	readySeen int
	fen       string
	exited    bool
	exit      chan struct{}
	out       chan string
}

func newProcess(script Script) *Process {
	var p = &Process{
		script: script,
		exit:   make(chan struct{}),
		out:    make(chan string, 4096),
	}
	p.stdinR, p.stdinW = io.Pipe()
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stdin = &countingCloser{w: p.stdinW}
	go p.run()
	go p.writeLoop()
	return p
}

func (p *Process) Stdin() io.WriteCloser {
	return p.stdin
}

func (p *Process) Stdout() io.Reader {
	return p.stdoutR
}

func (p *Process) Wait() error {
	<-p.exit
	return nil
}

func (p *Process) Kill() error {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	p.terminate()
	p.stdinR.Close()
	return nil
}

// Crash simulates an unexpected exit of the engine.
func (p *Process) Crash() {
	p.terminate()
}

func (p *Process) Kills() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

func (p *Process) StdinCloses() int {
	return p.stdin.count()
}

func (p *Process) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *Process) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.commands...)
}

// Count returns how many received commands start with prefix.
func (p *Process) Count(prefix string) int {
	var n = 0
	for _, cmd := range p.Commands() {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

// Emit queues lines for the engine output. Output is buffered like a real pipe.
func (p *Process) Emit(lines ...string) {
	for _, line := range lines {
		select {
		case p.out <- line:
		case <-p.exit:
			return
		}
	}
}

func (p *Process) writeLoop() {
	for {
		select {
		case line := <-p.out:
			if _, err := fmt.Fprintln(p.stdoutW, line); err != nil {
				return
			}
		case <-p.exit:
			return
		}
	}
}

func (p *Process) terminate() {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return
	}
	p.exited = true
	close(p.exit)
	p.mu.Unlock()
	p.stdoutW.Close()
}

func (p *Process) run() {
	var scanner = bufio.NewScanner(p.stdinR)
	for scanner.Scan() {
		var cmd = strings.TrimSpace(scanner.Text())
		p.mu.Lock()
		p.commands = append(p.commands, cmd)
		var exited = p.exited
		p.mu.Unlock()
		if exited {
			continue
		}
		p.handle(cmd)
	}
	if !p.script.IgnoreQuit {
		p.terminate()
	}
}

func (p *Process) handle(cmd string) {
	var fields = strings.Fields(cmd)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "uci":
		if p.script.NoUciOk {
			return
		}
		var name = p.script.Name
		if name == "" {
			name = "Fake"
		}
		p.Emit("id name "+name, "id author test", "option name Hash type spin default 16 min 1 max 1024", "uciok")
	case "isready":
		p.mu.Lock()
		p.readySeen++
		var skip = p.readySeen <= p.script.SkipReady
		p.mu.Unlock()
		if !skip {
			p.Emit("readyok")
		}
	case "position":
		var fen = "startpos"
		if len(fields) > 2 && fields[1] == "fen" {
			fen = strings.Join(fields[2:], " ")
			if i := strings.Index(fen, " moves"); i >= 0 {
				fen = fen[:i]
			}
		}
		p.mu.Lock()
		p.fen = fen
		p.mu.Unlock()
	case "go":
		p.mu.Lock()
		p.searching = true
		p.mu.Unlock()
		if p.script.OnGo != nil {
			p.script.OnGo(p, cmd)
		}
		var lines = p.script.Lines
		p.Emit(lines...)
		for _, line := range lines {
			if strings.HasPrefix(line, "bestmove") {
				p.setSearching(false)
				return
			}
		}
		if !p.script.Hang {
			p.finish()
		}
	case "stop":
		if p.script.IgnoreStop {
			return
		}
		p.finish()
	case "quit":
		if !p.script.IgnoreQuit {
			p.terminate()
		}
	}
}

func (p *Process) setSearching(v bool) {
	p.mu.Lock()
	p.searching = v
	p.mu.Unlock()
}

func (p *Process) finish() {
	p.mu.Lock()
	var searching = p.searching
	p.searching = false
	p.mu.Unlock()
	if !searching {
		return
	}
	p.Emit("bestmove " + p.bestMove())
}

func (p *Process) bestMove() string {
	if p.script.BestMoveFor != nil {
		p.mu.Lock()
		var fen = p.fen
		p.mu.Unlock()
		return p.script.BestMoveFor(fen)
	}
	if p.script.BestMove != "" {
		return p.script.BestMove
	}
	var best = "0000"
	for _, line := range p.script.Lines {
		var fields = strings.Fields(line)
		for i, f := range fields {
			if f == "pv" && i+1 < len(fields) {
				best = fields[i+1]
			}
		}
	}
	return best
}

type countingCloser struct {
	w      io.WriteCloser
	mu     sync.Mutex
	closes int
}

var errClosed = errors.New("stdin closed")

func (c *countingCloser) Write(b []byte) (int, error) {
	c.mu.Lock()
	var closed = c.closes > 0
	c.mu.Unlock()
	if closed {
		return 0, errClosed
	}
	return c.w.Write(b)
}

func (c *countingCloser) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	return c.w.Close()
}

func (c *countingCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}
