// Package archiver produces zip archives of directory trees.
//
// Two implementations exist. Exec shells out to the zip executable, which is
// what release machines have historically used. Native writes the archive
// in-process and needs nothing on PATH. Both store entries relative to the
// source directory and skip macOS .DS_Store files.
package archiver

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spachava753/releasekit/internal/models"
	"github.com/spachava753/releasekit/internal/process"
)

// Archiver zips src into dest. label names the pipeline task for logs.
type Archiver interface {
	Archive(ctx context.Context, label, src, dest string) error
}

// excludedName is never written into an archive.
const excludedName = ".DS_Store"

// New returns the archiver selected by cfg.
func New(cfg models.ReleaseConfig, runner process.Runner, logger *slog.Logger) (Archiver, error) {
	switch cfg.Archiver {
	case models.ArchiverExec, "":
		return NewExec(cfg.ZipBinary, runner, logger), nil
	case models.ArchiverNative:
		return NewNative(logger), nil
	default:
		return nil, &models.Error{Type: models.ErrInvalidConfig, Op: "archiver", Err: fmt.Errorf("unsupported archiver: %s", cfg.Archiver)}
	}
}

// checkSource verifies src is an existing directory.
func checkSource(src string) error {
	info, err := os.Stat(src)
	if err != nil {
		return &models.Error{Type: models.ErrFilesystemFailed, Op: "archive source", Err: err}
	}
	if !info.IsDir() {
		return &models.Error{Type: models.ErrFilesystemFailed, Op: "archive source", Err: fmt.Errorf("%s is not a directory", src)}
	}
	return nil
}
