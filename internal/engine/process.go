package engine

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Process is a running engine reachable over its standard streams.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Wait() error
	Kill() error
}

type Launcher interface {
	Launch(ctx context.Context) (Process, error)
}

// ExecLauncher starts a local engine binary.
type ExecLauncher struct {
	Path string
	Args []string
	Dir  string
}

func (l *ExecLauncher) Launch(ctx context.Context) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.Path == "" {
		return nil, fmt.Errorf("engine path is empty")
	}
	var cmd = exec.Command(l.Path, l.Args...)
	cmd.Dir = l.Dir
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start %v: %w", l.Path, err)
	}
	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
}

func (p *execProcess) Stdin() io.WriteCloser {
	return p.stdin
}

func (p *execProcess) Stdout() io.Reader {
	return p.stdout
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}
