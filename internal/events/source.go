package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Source opens a fresh event stream. Each call starts from scratch.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// CommandSource streams events from the stdout of an external command,
// typically `ssh <alias> gerrit stream-events`.
type CommandSource struct {
	args []string
}

// NewCommandSource creates a source running argv
func NewCommandSource(args []string) *CommandSource {
	return &CommandSource{args: append([]string(nil), args...)}
}

// String returns the command line for logs
func (s *CommandSource) String() string {
	return strings.Join(s.args, " ")
}

// Open starts the command and returns its stdout
func (s *CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if len(s.args) == 0 {
		return nil, errors.New("empty stream command")
	}

	cmd := exec.CommandContext(ctx, s.args[0], s.args[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start stream command: %w", err)
	}

	return &commandStream{ReadCloser: stdout, cmd: cmd}, nil
}

type commandStream struct {
	io.ReadCloser
	cmd *exec.Cmd
}

// Close stops the process if it is still running and reaps it.
func (c *commandStream) Close() error {
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	err := c.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("stream command exited: %w", err)
	}
	return err
}
