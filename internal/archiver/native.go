package archiver

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spachava753/releasekit/internal/models"
)

// Native archives in-process with archive/zip.
type Native struct {
	logger *slog.Logger
}

// NewNative creates an in-process archiver.
func NewNative(logger *slog.Logger) *Native {
	if logger == nil {
		logger = slog.Default()
	}
	return &Native{logger: logger}
}

// Archive walks src in lexical order and writes every directory and regular
// file into dest. A partially written dest is removed on failure.
func (n *Native) Archive(ctx context.Context, label, src, dest string) (err error) {
	if err := checkSource(src); err != nil {
		return err
	}

	zipFile, zipWriter, err := prepareZip(dest)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = zipWriter.Close()
			_ = zipFile.Close()
			_ = os.Remove(dest)
		}
	}()

	logger := n.logger.With("task", label)
	var count int

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == src || d.Name() == excludedName {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if d.IsDir() {
			_, err := zipWriter.Create(name + "/")
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if err := addFile(zipWriter, path, name, d); err != nil {
			return fmt.Errorf("adding %s: %w", name, err)
		}
		count++
		logger.Debug("adding", "entry", name)
		return nil
	})
	if err != nil {
		return &models.Error{Type: models.ErrFilesystemFailed, Op: "zip " + dest, Err: err}
	}

	if err = zipWriter.Close(); err != nil {
		return &models.Error{Type: models.ErrFilesystemFailed, Op: "zip " + dest, Err: fmt.Errorf("close zip writer: %w", err)}
	}
	if err = zipFile.Close(); err != nil {
		return &models.Error{Type: models.ErrFilesystemFailed, Op: "zip " + dest, Err: fmt.Errorf("close zip file: %w", err)}
	}

	logger.Info("archive written", "dest", dest, "files", count)
	return nil
}

func addFile(zw *zip.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

// prepareZip creates dest, its parent directories, and a zip writer for it.
func prepareZip(dest string) (*os.File, *zip.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, nil, &models.Error{Type: models.ErrFilesystemFailed, Op: "archive dest", Err: err}
	}
	// os.Create truncates an existing archive.
	f, err := os.Create(dest)
	if err != nil {
		return nil, nil, &models.Error{Type: models.ErrFilesystemFailed, Op: "archive dest", Err: err}
	}
	return f, zip.NewWriter(f), nil
}

// writeEmptyZip writes a valid archive with no entries to dest.
func writeEmptyZip(dest string) error {
	f, zw, err := prepareZip(dest)
	if err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return &models.Error{Type: models.ErrFilesystemFailed, Op: "zip " + dest, Err: err}
	}
	if err := f.Close(); err != nil {
		return &models.Error{Type: models.ErrFilesystemFailed, Op: "zip " + dest, Err: err}
	}
	return nil
}
