package assets

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/spachava753/releasekit/internal/models"
	"github.com/spachava753/releasekit/internal/util"
)

// Classifier sorts files from the cloned repository into per-tag directories.
type Classifier struct {
	root    string
	distDir string
	bundle  string
	rules   models.AssetRules
	logger  *slog.Logger
}

// NewClassifier creates a Classifier reading from root and writing
// assets-<tag>-<bundle> directories into distDir.
func NewClassifier(root, distDir, bundle string, rules models.AssetRules, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		root:    root,
		distDir: distDir,
		bundle:  bundle,
		rules:   rules,
		logger:  logger,
	}
}

// Groups returns one group per tag in rule order. A tag's patterns are the
// common patterns, its extras, then **/*<tag>*.
func (c *Classifier) Groups() []models.AssetGroup {
	groups := make([]models.AssetGroup, 0, len(c.rules.Groups))
	for _, def := range c.rules.Groups {
		patterns := make([]string, 0, len(c.rules.Common)+len(def.Extra)+1)
		patterns = append(patterns, c.rules.Common...)
		patterns = append(patterns, def.Extra...)
		patterns = append(patterns, "**/*"+def.Tag+"*")

		groups = append(groups, models.AssetGroup{
			Tag:      def.Tag,
			Patterns: patterns,
			Dir:      filepath.Join(c.distDir, models.AssetDirName(def.Tag, c.bundle)),
		})
	}
	return groups
}

// Classify copies each group's files concurrently and returns once every
// group is done. The first failure cancels the remaining copies.
func (c *Classifier) Classify(ctx context.Context) ([]models.AssetGroup, error) {
	groups := c.Groups()

	c.logger.Info("processing design assets", "bundle", c.bundle, "tags", len(groups))
	for _, g := range groups {
		c.logger.Debug("processing", "tag", g.Tag, "patterns", g.Patterns)
		for _, p := range g.Patterns {
			c.logger.Debug("processing pattern", "tag", g.Tag, "pattern", p)
		}
	}

	fsys := os.DirFS(c.root)

	g, ctx := errgroup.WithContext(ctx)
	for i := range groups {
		group := &groups[i]
		g.Go(func() error {
			files, err := resolve(fsys, group.Patterns)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", group.Tag, err)
			}

			if err := os.MkdirAll(group.Dir, 0755); err != nil {
				return &models.Error{Type: models.ErrFilesystemFailed, Op: "classify " + group.Tag, Err: err}
			}

			for _, rel := range files {
				if err := ctx.Err(); err != nil {
					return err
				}
				src := filepath.Join(c.root, filepath.FromSlash(rel))
				dst := filepath.Join(group.Dir, filepath.FromSlash(rel))
				if err := util.CopyFile(src, dst); err != nil {
					return &models.Error{Type: models.ErrFilesystemFailed, Op: "classify " + group.Tag, Err: err}
				}
			}

			group.Files = files
			c.logger.Debug("copied group", "tag", group.Tag, "files", len(files), "dir", group.Dir)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}

// resolve returns the sorted, de-duplicated files matching any pattern.
// Paths with a hidden segment (.git and the like) are skipped.
func resolve(fsys fs.FS, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, p := range patterns {
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, &models.Error{Type: models.ErrInvalidPattern, Op: "glob", Err: fmt.Errorf("%s: %w", p, err)}
		}
		for _, m := range matches {
			if hidden(m) {
				continue
			}
			seen[m] = struct{}{}
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

func hidden(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
