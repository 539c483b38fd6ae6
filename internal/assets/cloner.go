package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spachava753/releasekit/internal/process"
)

// CloneOptions configures a Cloner.
type CloneOptions struct {
	Binary string // git executable, default "git"
	URL    string
	Ref    string // branch, tag or commit; empty = default branch
	Depth  int    // 0 = full history
	Dir    string
}

// Cloner clones the assets repository into a fixed directory.
type Cloner struct {
	opts   CloneOptions
	runner process.Runner
	logger *slog.Logger

	// Stdout and Stderr receive git's own output. They default to the
	// parent process streams so clone progress shows up directly.
	Stdout io.Writer
	Stderr io.Writer
}

// NewCloner creates a Cloner.
func NewCloner(opts CloneOptions, runner process.Runner, logger *slog.Logger) *Cloner {
	if opts.Binary == "" {
		opts.Binary = "git"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = process.NewExecRunner(logger)
	}
	return &Cloner{
		opts:   opts,
		runner: runner,
		logger: logger,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Dir returns the clone destination.
func (c *Cloner) Dir() string {
	return c.opts.Dir
}

// Clone runs git clone. With a ref and a depth, the ref is passed to
// --branch and must name a branch or tag. With a ref and full history the
// clone is followed by a checkout, which also accepts commit IDs.
func (c *Cloner) Clone(ctx context.Context) error {
	c.logger.Info("cloning into temporary directory", "url", c.opts.URL, "dir", c.opts.Dir)

	args := []string{"clone"}
	if c.opts.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(c.opts.Depth))
		if c.opts.Ref != "" {
			args = append(args, "--branch", c.opts.Ref)
		}
	}
	args = append(args, c.opts.URL, c.opts.Dir)

	if err := c.git(ctx, "", args...); err != nil {
		return fmt.Errorf("git clone: %w", err)
	}

	if c.opts.Ref != "" && c.opts.Depth == 0 {
		c.logger.Debug("checking out ref", "ref", c.opts.Ref)
		if err := c.git(ctx, c.opts.Dir, "checkout", c.opts.Ref); err != nil {
			return fmt.Errorf("git checkout %s: %w", c.opts.Ref, err)
		}
	}

	c.logger.Debug("repository cloned successfully", "url", c.opts.URL, "dir", c.opts.Dir)
	return nil
}

func (c *Cloner) git(ctx context.Context, dir string, args ...string) error {
	return c.runner.Run(ctx, process.Command{
		Name:   c.opts.Binary,
		Args:   args,
		Dir:    dir,
		Stdout: c.Stdout,
		Stderr: c.Stderr,
	})
}
