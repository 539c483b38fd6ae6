package archiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spachava753/releasekit/internal/models"
	"github.com/spachava753/releasekit/internal/process"
)

// zipNothingToDo is zip's exit status when the source holds no entries.
const zipNothingToDo = 12

// wordLine matches zip output worth logging; blank and punctuation-only lines are noise.
var wordLine = regexp.MustCompile(`[\w\d]+`)

// Exec archives by running the zip executable.
type Exec struct {
	Binary string
	runner process.Runner
	logger *slog.Logger
}

// NewExec creates an archiver running binary (usually "zip") through runner.
func NewExec(binary string, runner process.Runner, logger *slog.Logger) *Exec {
	if binary == "" {
		binary = "zip"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = process.NewExecRunner(logger)
	}
	return &Exec{Binary: binary, runner: runner, logger: logger}
}

// Archive runs `zip --log-info -r <dest> . -x *.DS_Store` inside src.
func (e *Exec) Archive(ctx context.Context, label, src, dest string) error {
	if err := checkSource(src); err != nil {
		return err
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolving archive path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absDest), 0755); err != nil {
		return &models.Error{Type: models.ErrFilesystemFailed, Op: "archive dest", Err: err}
	}
	// zip updates an existing archive in place; start clean so reruns match.
	if err := os.Remove(absDest); err != nil && !os.IsNotExist(err) {
		return &models.Error{Type: models.ErrFilesystemFailed, Op: "archive dest", Err: err}
	}

	logger := e.logger.With("task", label)

	stdout := process.NewLineWriter(func(line string) {
		if wordLine.MatchString(line) {
			logger.Info(line, "stream", "stdout")
		}
	})
	stderr := process.NewLineWriter(func(line string) {
		logger.Error(line, "stream", "stderr")
	})

	err = e.runner.Run(ctx, process.Command{
		Name:   e.Binary,
		Args:   []string{"--log-info", "-r", absDest, ".", "-x", "*" + excludedName},
		Dir:    src,
		Stdout: stdout,
		Stderr: stderr,
	})
	stdout.Flush()
	stderr.Flush()

	var exitErr *models.Error
	if errors.As(err, &exitErr) && exitErr.Type == models.ErrNonZeroExit && exitErr.Code == zipNothingToDo {
		logger.Info("nothing to zip, writing an empty archive", "dest", dest)
		return writeEmptyZip(absDest)
	}
	if err != nil {
		if models.IsType(err, models.ErrSpawnFailed) {
			logger.Error("failed to create a zip archive", "dest", dest, "error", err)
		}
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	return nil
}
