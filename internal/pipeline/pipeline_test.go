package pipeline

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/spachava753/releasekit/internal/config"
	"github.com/spachava753/releasekit/internal/models"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func zipEntries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, "/") {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

// fakeCloner writes a small assets tree instead of running git.
type fakeCloner struct {
	dir      string
	calls    int
	sawStale bool
	err      error
}

func (f *fakeCloner) Clone(ctx context.Context) error {
	f.calls++
	if _, err := os.Stat(f.dir); err == nil {
		f.sawStale = true
	}
	if f.err != nil {
		return f.err
	}
	return writeTreeErr(f.dir, map[string]string{
		"README.md":                     "readme",
		"Fonts and pairings/a/font.zip": "font",
		"guide.pdf":                     "pdf",
		"Illustrator/icons.ai":          "ai",
		"Illustrator/palette.ase":       "ase",
		"EPS/icons.eps":                 "eps",
		"Sketch/ui.sketch":              "sketch",
		"OmniGraffle/flow.omnigraffle":  "graffle",
	})
}

func writeTreeErr(root string, files map[string]string) error {
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func newTestPipeline(t *testing.T, mutate func(*models.ReleaseConfig)) (*Pipeline, *fakeCloner, models.ReleaseConfig) {
	t.Helper()
	work := t.TempDir()
	writeTree(t, work, map[string]string{"dist/app.js": "console.log('v1')"})

	cfg := config.DefaultReleaseConfig()
	cfg.WorkDir = work
	cfg.Bundle = "v1"
	cfg.Archiver = models.ArchiverNative
	if mutate != nil {
		mutate(&cfg)
	}

	fc := &fakeCloner{dir: config.CloneDir(cfg)}
	p, err := New(cfg, Options{Logger: discard, Cloner: fc, Output: io.Discard})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, fc, cfg
}

func TestReleaseEndToEnd(t *testing.T) {
	p, fc, cfg := newTestPipeline(t, nil)
	work := cfg.WorkDir
	dist := filepath.Join(work, "dist")

	// Leftovers from an earlier run must be cleared before cloning.
	writeTree(t, work, map[string]string{"tmp-assets/stale.txt": "old"})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	if fc.calls != 1 {
		t.Errorf("expected 1 clone, got %d", fc.calls)
	}
	if fc.sawStale {
		t.Error("clone ran before the stale clone directory was removed")
	}

	// Main bundle.
	if got := zipEntries(t, filepath.Join(dist, "v1.zip")); !reflect.DeepEqual(got, []string{"app.js"}) {
		t.Errorf("expected v1.zip to hold [app.js], got %v", got)
	}
	for _, gone := range []string{filepath.Join(work, "v1"), filepath.Join(dist, "v1")} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Errorf("%s should not exist after release", gone)
		}
	}

	// Exactly one bundle zip and four asset zips.
	entries, err := os.ReadDir(dist)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	want := []string{
		"app.js",
		"assets-ai-v1.zip",
		"assets-eps-v1.zip",
		"assets-omnigraffle-v1.zip",
		"assets-sketch-v1.zip",
		"v1.zip",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("dist contents\n got %v\nwant %v", names, want)
	}

	if got := zipEntries(t, filepath.Join(dist, "assets-ai-v1.zip")); !reflect.DeepEqual(got, []string{
		"Fonts and pairings/a/font.zip",
		"Illustrator/icons.ai",
		"Illustrator/palette.ase",
		"README.md",
		"guide.pdf",
	}) {
		t.Errorf("unexpected ai archive entries %v", got)
	}

	if _, err := os.Stat(filepath.Join(work, "tmp-assets")); !os.IsNotExist(err) {
		t.Error("clone directory should be removed after release")
	}

	res := p.Result()
	if res.BundleZip != filepath.Join(dist, "v1.zip") {
		t.Errorf("unexpected bundle zip %s", res.BundleZip)
	}
	if len(res.AssetZips) != 4 {
		t.Errorf("expected 4 asset zips, got %v", res.AssetZips)
	}
	for _, z := range res.AssetZips {
		base := filepath.Base(z)
		if !strings.HasPrefix(base, "assets-") || !strings.HasSuffix(base, "-v1.zip") {
			t.Errorf("asset zip %s does not follow assets-<tag>-<bundle>.zip", base)
		}
	}
}

func TestReleaseMissingZipBinary(t *testing.T) {
	p, fc, cfg := newTestPipeline(t, func(cfg *models.ReleaseConfig) {
		cfg.Archiver = models.ArchiverExec
		cfg.ZipBinary = filepath.Join(cfg.WorkDir, "no-such-zip")
	})

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected release to fail without a zip binary")
	}

	if fc.calls != 0 {
		t.Errorf("asset steps ran after a failed archive: %d clones", fc.calls)
	}
	if _, err := os.Stat(filepath.Join(cfg.WorkDir, "dist", "v1.zip")); !os.IsNotExist(err) {
		t.Error("bundle zip should not exist")
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.WorkDir, "dist", "assets-*"))
	if len(matches) != 0 {
		t.Errorf("expected no asset output, got %v", matches)
	}
}

func TestReleaseCloneFailure(t *testing.T) {
	p, fc, cfg := newTestPipeline(t, nil)
	fc.err = &models.Error{Type: models.ErrNonZeroExit, Op: "git", Code: 128}

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected release to fail when cloning fails")
	}

	// Bundle steps before the clone completed.
	if _, err := os.Stat(filepath.Join(cfg.WorkDir, "dist", "v1.zip")); err != nil {
		t.Errorf("bundle zip should exist: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.WorkDir, "dist", "assets-*"))
	if len(matches) != 0 {
		t.Errorf("expected no asset output, got %v", matches)
	}
}

func TestRunSingleTask(t *testing.T) {
	p, fc, cfg := newTestPipeline(t, nil)

	if err := p.Run(context.Background(), TaskStage); err != nil {
		t.Fatalf("stage failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.WorkDir, "v1", "app.js")); err != nil {
		t.Errorf("expected staged app.js: %v", err)
	}
	if _, err := os.Stat(p.BundleZip()); !os.IsNotExist(err) {
		t.Error("stage alone should not create the bundle zip")
	}
	if fc.calls != 0 {
		t.Errorf("stage alone should not clone, got %d", fc.calls)
	}
}

func TestRunPackageAssetsPullsPrerequisites(t *testing.T) {
	p, fc, cfg := newTestPipeline(t, nil)

	if err := p.Run(context.Background(), TaskPackageAssets); err != nil {
		t.Fatalf("package-assets failed: %v", err)
	}
	if fc.calls != 1 {
		t.Errorf("expected clone to run once, got %d", fc.calls)
	}

	for _, tag := range []string{"omnigraffle", "eps", "ai", "sketch"} {
		zipPath := filepath.Join(cfg.WorkDir, "dist", models.AssetDirName(tag, "v1")+".zip")
		if _, err := os.Stat(zipPath); err != nil {
			t.Errorf("missing %s: %v", zipPath, err)
		}
	}

	// cleanup is not a prerequisite of package-assets.
	if _, err := os.Stat(filepath.Join(cfg.WorkDir, "tmp-assets")); err != nil {
		t.Errorf("clone dir should remain until cleanup: %v", err)
	}
}

func TestRunUnstageZipsFirst(t *testing.T) {
	p, _, cfg := newTestPipeline(t, nil)

	if err := p.Run(context.Background(), TaskUnstage); err != nil {
		t.Fatalf("unstage failed: %v", err)
	}
	if got := zipEntries(t, p.BundleZip()); !reflect.DeepEqual(got, []string{"app.js"}) {
		t.Errorf("expected bundle zip with [app.js] before unstaging, got %v", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.WorkDir, "v1")); !os.IsNotExist(err) {
		t.Error("stage dir should be removed")
	}
}

func TestReleaseEmptyTagStillArchived(t *testing.T) {
	work := t.TempDir()
	writeTree(t, work, map[string]string{
		"dist/app.js": "console.log('v1')",
		"rules.toml":  "[[group]]\ntag = \"eps\"\n\n[[group]]\ntag = \"psd\"\n",
	})

	cfg := config.DefaultReleaseConfig()
	cfg.WorkDir = work
	cfg.Bundle = "v1"
	cfg.Archiver = models.ArchiverNative
	cfg.Assets.Rules = "rules.toml"

	p, err := New(cfg, Options{Logger: discard, Cloner: &fakeCloner{dir: config.CloneDir(cfg)}, Output: io.Discard})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	res := p.Result()
	if len(res.AssetZips) != 2 {
		t.Fatalf("expected one archive per tag, got %v", res.AssetZips)
	}
	psd := filepath.Join(cfg.WorkDir, "dist", models.AssetDirName("psd", "v1")+".zip")
	if got := zipEntries(t, psd); len(got) != 0 {
		t.Errorf("expected empty psd archive, got %v", got)
	}
	if got := zipEntries(t, filepath.Join(cfg.WorkDir, "dist", models.AssetDirName("eps", "v1")+".zip")); !reflect.DeepEqual(got, []string{"EPS/icons.eps"}) {
		t.Errorf("unexpected eps archive entries %v", got)
	}
}

func TestNewRejectsStageOverlappingDist(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ReleaseConfig)
	}{
		{"stage dir contains dist", func(c *models.ReleaseConfig) { c.StageDir = "out"; c.DistDir = "out/dist" }},
		{"stage dir inside dist", func(c *models.ReleaseConfig) { c.StageDir = "dist/v1" }},
		{"bundle named like dist_dir", func(c *models.ReleaseConfig) { c.Bundle = "dist" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			work := t.TempDir()
			writeTree(t, work, map[string]string{
				"dist/app.js":     "console.log('v1')",
				"out/dist/app.js": "console.log('v1')",
			})

			cfg := config.DefaultReleaseConfig()
			cfg.WorkDir = work
			cfg.Bundle = "v1"
			cfg.Archiver = models.ArchiverNative
			tt.mutate(&cfg)

			_, err := New(cfg, Options{Logger: discard, Cloner: &fakeCloner{dir: config.CloneDir(cfg)}, Output: io.Discard})
			if !models.IsType(err, models.ErrInvalidConfig) {
				t.Fatalf("expected invalid_config, got %v", err)
			}
			if _, err := os.Stat(filepath.Join(config.DistDir(cfg), "app.js")); err != nil {
				t.Errorf("build output touched: %v", err)
			}
		})
	}
}

func TestRunUnknownTask(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)
	if err := p.Run(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultReleaseConfig()
	cfg.Bundle = "a/b"
	if _, err := New(cfg, Options{Logger: discard, Output: io.Discard}); !models.IsType(err, models.ErrInvalidConfig) {
		t.Errorf("expected invalid_config, got %v", err)
	}
}

func TestTasksDefined(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)

	var got []string
	for _, task := range p.Flow().Tasks() {
		got = append(got, task.Name())
	}
	sort.Strings(got)

	want := []string{
		TaskCleanAssets, TaskCleanup, TaskCloneAssets, TaskPackageAssets,
		TaskProcessAssets, TaskRelease, TaskStage, TaskUnstage, TaskZipBundle,
	}
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tasks\n got %v\nwant %v", got, want)
	}

	if d := p.Flow().Default(); d == nil || d.Name() != TaskRelease {
		t.Errorf("expected default task %s", TaskRelease)
	}
}
