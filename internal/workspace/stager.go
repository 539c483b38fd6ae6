// Package workspace manages the temporary directories a release creates:
// the staged copy of the build output and the generated asset directories.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spachava753/releasekit/internal/models"
	"github.com/spachava753/releasekit/internal/util"
)

// Stager copies the build output into a temporary directory named for the bundle.
type Stager struct {
	srcDir   string
	stageDir string
	logger   *slog.Logger
}

// NewStager creates a Stager copying srcDir into stageDir.
func NewStager(srcDir, stageDir string, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{srcDir: srcDir, stageDir: stageDir, logger: logger}
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.stageDir
}

// Stage copies every regular file under the source directory into the
// staging directory, keeping relative paths. Existing files are overwritten,
// so staging the same tree twice yields the same result.
func (s *Stager) Stage(ctx context.Context) (int, error) {
	if err := s.checkOverlap(); err != nil {
		return 0, err
	}

	s.logger.Info("creating temporary release directory", "src", s.srcDir, "dir", s.stageDir)

	if err := os.MkdirAll(s.stageDir, 0755); err != nil {
		return 0, &models.Error{Type: models.ErrFilesystemFailed, Op: "stage", Err: err}
	}

	var count int
	err := filepath.WalkDir(s.srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(s.srcDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(s.stageDir, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(dst, 0755)
		case d.Type().IsRegular():
			if err := util.CopyFile(path, dst); err != nil {
				return fmt.Errorf("copying %s: %w", rel, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return count, &models.Error{Type: models.ErrFilesystemFailed, Op: "stage", Err: err}
	}

	s.logger.Debug("staged files", "count", count)
	return count, nil
}

// Unstage removes the staging directory. A missing directory is not an error.
func (s *Stager) Unstage(ctx context.Context) error {
	if err := s.checkOverlap(); err != nil {
		return err
	}
	s.logger.Info("deleting temporary release directory", "dir", s.stageDir)
	if err := os.RemoveAll(s.stageDir); err != nil {
		return &models.Error{Type: models.ErrFilesystemFailed, Op: "unstage", Err: err}
	}
	return nil
}

// checkOverlap rejects a stage dir that is inside the source or contains it.
// Either would make Stage recurse or Unstage delete the build output.
func (s *Stager) checkOverlap() error {
	inside, err := util.IsWithin(s.srcDir, s.stageDir)
	if err != nil {
		return fmt.Errorf("resolving stage dir: %w", err)
	}
	if inside {
		return &models.Error{
			Type: models.ErrInvalidConfig,
			Op:   "stage",
			Err:  fmt.Errorf("stage dir %s is inside %s", s.stageDir, s.srcDir),
		}
	}

	contains, err := util.IsWithin(s.stageDir, s.srcDir)
	if err != nil {
		return fmt.Errorf("resolving stage dir: %w", err)
	}
	if contains {
		return &models.Error{
			Type: models.ErrInvalidConfig,
			Op:   "stage",
			Err:  fmt.Errorf("stage dir %s contains %s", s.stageDir, s.srcDir),
		}
	}
	return nil
}
