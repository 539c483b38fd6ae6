package assets

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/spachava753/releasekit/internal/archiver"
	"github.com/spachava753/releasekit/internal/models"
)

// Packager zips each group directory next to itself.
type Packager struct {
	archiver archiver.Archiver
	limit    int
	label    string
	logger   *slog.Logger
}

// NewPackager creates a Packager. limit caps concurrent archive jobs; 0 means no cap.
func NewPackager(a archiver.Archiver, limit int, label string, logger *slog.Logger) *Packager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Packager{archiver: a, limit: limit, label: label, logger: logger}
}

// Jobs returns the archive job for each group: <dir> into <dir>.zip.
func (p *Packager) Jobs(groups []models.AssetGroup) []models.ArchiveJob {
	jobs := make([]models.ArchiveJob, 0, len(groups))
	for _, g := range groups {
		jobs = append(jobs, models.ArchiveJob{
			Label:  p.label,
			Source: g.Dir,
			Dest:   g.Dir + ".zip",
		})
	}
	return jobs
}

// Package runs every job concurrently and returns when all of them have
// finished. Every group directory yields an archive, empty ones included.
// A group whose directory was never created is skipped with a warning. The
// returned paths follow group order.
func (p *Packager) Package(ctx context.Context, groups []models.AssetGroup) ([]string, error) {
	jobs := p.Jobs(groups)
	done := make([]bool, len(jobs))

	// Check every source before starting any job so an error leaves nothing running.
	skip := make([]bool, len(jobs))
	for i, job := range jobs {
		if _, err := os.Stat(job.Source); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, &models.Error{Type: models.ErrFilesystemFailed, Op: "package " + job.Source, Err: err}
			}
			p.logger.Warn("skipping missing asset group", "dir", job.Source)
			skip[i] = true
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}

	for i, job := range jobs {
		if skip[i] {
			continue
		}
		i, job := i, job
		g.Go(func() error {
			if err := p.archiver.Archive(ctx, job.Label, job.Source, job.Dest); err != nil {
				return err
			}
			p.logger.Info("created zip archive for design assets", "dest", job.Dest)
			done[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for i, job := range jobs {
		if done[i] {
			out = append(out, job.Dest)
		}
	}
	return out, nil
}
