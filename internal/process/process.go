// Package process runs external commands and reduces every run to a single
// outcome: nil, a spawn failure, or a non-zero exit.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/spachava753/releasekit/internal/models"
)

// Command describes one subprocess invocation.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// String returns the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands.
type Runner interface {
	// Run blocks until the command exits. It returns nil only for exit status 0,
	// a *models.Error of type ErrSpawnFailed when the process could not start,
	// and a *models.Error of type ErrNonZeroExit otherwise.
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands on the local host.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates a new local runner logging to logger.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger}
}

// Run executes the command with os/exec.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	r.logger.Debug("executing command", "cmd", c.String(), "dir", c.Dir)

	if err := cmd.Start(); err != nil {
		return &models.Error{Type: models.ErrSpawnFailed, Op: c.Name, Err: err}
	}

	err := cmd.Wait()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return &models.Error{Type: models.ErrNonZeroExit, Op: c.Name, Code: exitErr.ExitCode(), Err: ctx.Err()}
		}
		return &models.Error{Type: models.ErrNonZeroExit, Op: c.Name, Code: exitErr.ExitCode(), Err: exitErr}
	}

	// Copying output failed after the process started.
	return &models.Error{Type: models.ErrNonZeroExit, Op: c.Name, Code: -1, Err: fmt.Errorf("waiting for process: %w", err)}
}
