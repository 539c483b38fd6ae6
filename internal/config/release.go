package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/releasekit/internal/models"
	"github.com/spachava753/releasekit/internal/util"
)

const (
	// DefaultAssetsRepo is the design-assets repository cloned by the release.
	DefaultAssetsRepo = "https://github.com/18F/web-design-standards-assets"
	// DefaultCloneDir is the temporary directory the assets repository is cloned into.
	DefaultCloneDir = "tmp-assets"
)

// DefaultReleaseConfig returns a ReleaseConfig with default values.
// Bundle is left empty; ApplyDefaults generates one when nothing sets it.
func DefaultReleaseConfig() models.ReleaseConfig {
	return models.ReleaseConfig{
		WorkDir:   ".",
		DistDir:   "dist",
		LogLevel:  "info",
		Archiver:  models.ArchiverExec,
		ZipBinary: "zip",
		GitBinary: "git",
		Assets: models.AssetsConfig{
			RepoURL:  DefaultAssetsRepo,
			CloneDir: DefaultCloneDir,
		},
	}
}

// LoadReleaseConfig loads and parses a release.yaml file. An empty path
// returns the defaults.
func LoadReleaseConfig(path string) (models.ReleaseConfig, error) {
	cfg := DefaultReleaseConfig()
	if path == "" {
		return cfg, ApplyDefaults(&cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading release config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing release config: %w", err)
	}

	// Relative directories in the file are relative to the file itself.
	if !filepath.IsAbs(cfg.WorkDir) {
		cfg.WorkDir = filepath.Join(filepath.Dir(path), cfg.WorkDir)
	}

	return cfg, ApplyDefaults(&cfg)
}

// ApplyDefaults fills missing values and validates the result.
func ApplyDefaults(cfg *models.ReleaseConfig) error {
	if cfg.Bundle == "" {
		cfg.Bundle = "bundle-" + uuid.NewString()[:8]
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.DistDir == "" {
		cfg.DistDir = "dist"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Archiver == "" {
		cfg.Archiver = models.ArchiverExec
	}
	if cfg.ZipBinary == "" {
		cfg.ZipBinary = "zip"
	}
	if cfg.GitBinary == "" {
		cfg.GitBinary = "git"
	}
	if cfg.Assets.RepoURL == "" {
		cfg.Assets.RepoURL = DefaultAssetsRepo
	}
	if cfg.Assets.CloneDir == "" {
		cfg.Assets.CloneDir = DefaultCloneDir
	}

	return ValidateReleaseConfig(*cfg)
}

// ValidateReleaseConfig checks values that would otherwise fail halfway through a release.
func ValidateReleaseConfig(cfg models.ReleaseConfig) error {
	invalid := func(format string, args ...any) error {
		return &models.Error{Type: models.ErrInvalidConfig, Op: "release config", Err: fmt.Errorf(format, args...)}
	}

	if cfg.Bundle == "" {
		return invalid("bundle must not be empty")
	}
	if cfg.Bundle == "." || cfg.Bundle == ".." || strings.ContainsAny(cfg.Bundle, `/\`) {
		return invalid("bundle %q must be a plain name", cfg.Bundle)
	}
	if strings.ContainsAny(cfg.Assets.CloneDir, `/\*?[`) {
		return invalid("clone_dir %q must be a plain name", cfg.Assets.CloneDir)
	}
	// Unstage removes the stage dir recursively, and dist is read-only.
	stageDir, distDir := StageDir(cfg), DistDir(cfg)
	if within, err := util.IsWithin(stageDir, cfg.WorkDir); err != nil || within {
		return invalid("stage dir %s must not contain the work dir", stageDir)
	}
	if within, err := util.IsWithin(distDir, stageDir); err != nil || within {
		return invalid("stage dir %s must not be inside dist dir %s", stageDir, distDir)
	}
	if within, err := util.IsWithin(stageDir, distDir); err != nil || within {
		return invalid("stage dir %s must not contain dist dir %s", stageDir, distDir)
	}
	switch cfg.Archiver {
	case models.ArchiverExec, models.ArchiverNative:
	default:
		return invalid("unsupported archiver: %s", cfg.Archiver)
	}
	if cfg.MaxParallel < 0 {
		return invalid("max_parallel must be >= 0, got %d", cfg.MaxParallel)
	}
	if cfg.Assets.Depth < 0 {
		return invalid("assets.depth must be >= 0, got %d", cfg.Assets.Depth)
	}
	return nil
}

// StageDir returns the temporary staging directory for the bundle.
func StageDir(cfg models.ReleaseConfig) string {
	if cfg.StageDir != "" {
		if filepath.IsAbs(cfg.StageDir) {
			return cfg.StageDir
		}
		return filepath.Join(cfg.WorkDir, cfg.StageDir)
	}
	return filepath.Join(cfg.WorkDir, cfg.Bundle)
}

// DistDir resolves dist_dir against work_dir.
func DistDir(cfg models.ReleaseConfig) string {
	if filepath.IsAbs(cfg.DistDir) {
		return cfg.DistDir
	}
	return filepath.Join(cfg.WorkDir, cfg.DistDir)
}

// CloneDir returns the directory the assets repository is cloned into.
func CloneDir(cfg models.ReleaseConfig) string {
	return filepath.Join(cfg.WorkDir, cfg.Assets.CloneDir)
}

// LoadRulesFor returns the asset rules named by the config, or the embedded defaults.
func LoadRulesFor(cfg models.ReleaseConfig) (models.AssetRules, error) {
	if cfg.Assets.Rules == "" {
		return DefaultAssetRules(), nil
	}
	path := cfg.Assets.Rules
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.WorkDir, path)
	}
	return LoadAssetRules(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}
