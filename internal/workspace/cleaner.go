package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/spachava753/releasekit/internal/models"
)

// Rule selects paths under Root: everything matching an Include glob that
// does not also match an Exclude glob. Globs are doublestar patterns relative
// to Root with forward slashes.
type Rule struct {
	Root    string
	Include []string
	Exclude []string
}

// Cleaner deletes the paths selected by its rules.
type Cleaner struct {
	rules  []Rule
	logger *slog.Logger
}

// NewCleaner creates a Cleaner for the given rules.
func NewCleaner(logger *slog.Logger, rules ...Rule) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{rules: rules, logger: logger}
}

// AssetRules returns the rules for the asset workspace: the clone directory
// and anything named like it under workDir, and every generated
// assets-* entry under distDir except the finished zip archives.
func AssetRules(workDir, distDir, cloneDir string) []Rule {
	return []Rule{
		{Root: workDir, Include: []string{cloneDir + "*"}},
		{Root: distDir, Include: []string{"assets-*"}, Exclude: []string{"assets-*.zip"}},
	}
}

// Matches resolves the rules without deleting anything. Paths are returned sorted.
func (c *Cleaner) Matches() ([]string, error) {
	var out []string
	for _, r := range c.rules {
		if _, err := os.Stat(r.Root); os.IsNotExist(err) {
			continue
		}
		matched, err := r.resolve()
		if err != nil {
			return nil, err
		}
		out = append(out, matched...)
	}
	sort.Strings(out)
	return out, nil
}

// Clean deletes every selected path and returns what it removed.
// A matched directory is removed with its contents.
func (c *Cleaner) Clean(ctx context.Context) ([]string, error) {
	paths, err := c.Matches()
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		c.logger.Debug("deleting", "path", p)
		if err := os.RemoveAll(p); err != nil {
			return removed, &models.Error{Type: models.ErrFilesystemFailed, Op: "clean", Err: err}
		}
		removed = append(removed, p)
	}

	c.logger.Info("deleted temporary asset directories", "count", len(removed))
	return removed, nil
}

func (r Rule) resolve() ([]string, error) {
	fsys := os.DirFS(r.Root)

	seen := make(map[string]struct{})
	for _, pattern := range r.Include {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, &models.Error{Type: models.ErrInvalidPattern, Op: "clean", Err: fmt.Errorf("%s: %w", pattern, err)}
		}
		for _, m := range matches {
			seen[m] = struct{}{}
		}
	}

	var out []string
	for m := range seen {
		excluded, err := r.excluded(m)
		if err != nil {
			return nil, err
		}
		if !excluded {
			out = append(out, filepath.Join(r.Root, filepath.FromSlash(m)))
		}
	}
	return out, nil
}

func (r Rule) excluded(name string) (bool, error) {
	for _, pattern := range r.Exclude {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return false, &models.Error{Type: models.ErrInvalidPattern, Op: "clean", Err: fmt.Errorf("%s: %w", pattern, err)}
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
