package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// Captured is the recorded output of one command.
type Captured struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Start    time.Time
	End      time.Time
}

// Duration is the wall time the command ran.
func (c Captured) Duration() time.Duration { return c.End.Sub(c.Start) }

// Combined joins stdout and stderr, separated by a newline when both are
// present.
func (c Captured) Combined() string {
	switch {
	case c.Stdout == "":
		return c.Stderr
	case c.Stderr == "":
		return c.Stdout
	}
	return c.Stdout + "\n" + c.Stderr
}

// SpawnError reports a command that could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string { return e.Command + ": " + e.Err.Error() }

func (e *SpawnError) Unwrap() error { return e.Err }

// NotFound reports whether the program does not exist.
func (e *SpawnError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, os.ErrNotExist)
}

// ExitStatus is the shell convention for a failed spawn: 127 when the
// program is missing, 126 otherwise.
func (e *SpawnError) ExitStatus() int {
	if e.NotFound() {
		return 127
	}
	return 126
}

// Executor runs commands.
type Executor struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Stdin is handed to the child. Nil means os.Stdin.
	Stdin io.Reader
	// Stdout and Stderr receive passthrough output. Nil means the
	// process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

func (x *Executor) command(ctx context.Context, name string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = x.Dir
	cmd.Stdin = x.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	return cmd
}

// Execute runs a command, draining stdout and stderr concurrently. A
// non-zero exit is not an error; it is reported in Captured.ExitCode.
func (x *Executor) Execute(ctx context.Context, name string, args []string) (*Captured, error) {
	cmd := x.command(ctx, name, args)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Command: name, Err: err}
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := stdoutBuf.ReadFrom(stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := stderrBuf.ReadFrom(stderrPipe)
		return err
	})
	drainErr := g.Wait()

	out := &Captured{Start: start}
	err = cmd.Wait()
	out.End = time.Now()
	out.Stdout = stdoutBuf.String()
	out.Stderr = stderrBuf.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
		if out.ExitCode < 0 {
			// Killed by a signal.
			out.ExitCode = 128 + 9
			if ctx.Err() == nil {
				out.ExitCode = 1
			}
		}
	default:
		return nil, fmt.Errorf("wait command: %w", err)
	}
	if drainErr != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("read output: %w", drainErr)
	}
	return out, nil
}

// Passthrough runs a command with inherited stdio (no capture) and returns
// its exit code.
func (x *Executor) Passthrough(ctx context.Context, name string, args []string) (int, error) {
	cmd := x.command(ctx, name, args)
	cmd.Stdout = x.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = x.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return 0, &SpawnError{Command: name, Err: err}
	}
	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return 1, nil
	}
	return 1, fmt.Errorf("passthrough: %w", err)
}
