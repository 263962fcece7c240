// Package server manages the database-server process a test run talks to.
//
// The harness only needs the process as a bidirectional byte stream:
// newline-terminated commands in on stdin, unframed responses out on
// stdout. Each test run gets its own process so runs never share state.
package server

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// DefaultStopGrace bounds how long Stop waits for a clean exit.
const DefaultStopGrace = 5 * time.Second

// Process is a running server reachable over its stdio streams.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// Start launches the server command with its stdio wired as the harness
// byte stream. Stderr is discarded; everything the harness compares
// travels in responses.
func Start(ctx context.Context, command string, args ...string) (*Process, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}
	return &Process{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

// Stdin returns the write side of the stream.
func (p *Process) Stdin() io.Writer { return p.stdin }

// Stdout returns the read side of the stream.
func (p *Process) Stdout() io.Reader { return p.stdout }

// Stop closes the server's stdin so it can exit cleanly, then waits up to
// grace before killing it. The exit error of a killed process is returned
// as is; callers that forced the stop usually ignore it.
func (p *Process) Stop(grace time.Duration) error {
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	_ = p.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		_ = p.cmd.Process.Kill()
		return <-done
	}
}
