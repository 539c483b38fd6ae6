// Package pipeline wires the release tasks into a goyek flow.
//
// Task graph (arrows point at prerequisites):
//
//	release -> stage, zip-bundle, unstage, package-assets, cleanup
//	zip-bundle -> stage
//	package-assets -> process-assets -> clone-assets -> clean-assets
//
// goyek runs each task at most once per execution, so clean-assets runs
// before the clone and the separate cleanup task runs at the end.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/goyek/goyek/v2"
	"github.com/goyek/goyek/v2/middleware"

	"github.com/spachava753/releasekit/internal/archiver"
	"github.com/spachava753/releasekit/internal/assets"
	"github.com/spachava753/releasekit/internal/config"
	"github.com/spachava753/releasekit/internal/models"
	"github.com/spachava753/releasekit/internal/process"
	"github.com/spachava753/releasekit/internal/workspace"
)

// Task names.
const (
	TaskRelease       = "release"
	TaskStage         = "stage"
	TaskZipBundle     = "zip-bundle"
	TaskUnstage       = "unstage"
	TaskCleanAssets   = "clean-assets"
	TaskCloneAssets   = "clone-assets"
	TaskProcessAssets = "process-assets"
	TaskPackageAssets = "package-assets"
	TaskCleanup       = "cleanup"
)

// Cloner fetches the assets repository.
type Cloner interface {
	Clone(ctx context.Context) error
}

// Options overrides the collaborators New would otherwise build from the config.
type Options struct {
	Logger   *slog.Logger
	Runner   process.Runner
	Archiver archiver.Archiver
	Cloner   Cloner
	// Output receives goyek's task status lines. Defaults to os.Stdout.
	Output io.Writer
}

// Result collects what a run produced.
type Result struct {
	Bundle    string
	BundleZip string
	AssetZips []string
	Removed   []string
}

// Pipeline is a release flow bound to one configuration.
type Pipeline struct {
	cfg    models.ReleaseConfig
	runID  string
	logger *slog.Logger
	flow   *goyek.Flow

	stager     *workspace.Stager
	cleaner    *workspace.Cleaner
	archiver   archiver.Archiver
	cloner     Cloner
	classifier *assets.Classifier
	packager   *assets.Packager

	result Result
}

// New builds the pipeline and defines its tasks.
func New(cfg models.ReleaseConfig, opts Options) (*Pipeline, error) {
	if err := config.ValidateReleaseConfig(cfg); err != nil {
		return nil, err
	}

	rules, err := config.LoadRulesFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading asset rules: %w", err)
	}

	runID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", runID, "bundle", cfg.Bundle)

	runner := opts.Runner
	if runner == nil {
		runner = process.NewExecRunner(logger.With("component", "process"))
	}

	arch := opts.Archiver
	if arch == nil {
		arch, err = archiver.New(cfg, runner, logger)
		if err != nil {
			return nil, err
		}
	}

	distDir := config.DistDir(cfg)
	cloneDir := config.CloneDir(cfg)

	cloner := opts.Cloner
	if cloner == nil {
		cloner = assets.NewCloner(assets.CloneOptions{
			Binary: cfg.GitBinary,
			URL:    cfg.Assets.RepoURL,
			Ref:    cfg.Assets.Ref,
			Depth:  cfg.Assets.Depth,
			Dir:    cloneDir,
		}, runner, logger.With("task", TaskCloneAssets))
	}

	p := &Pipeline{
		cfg:      cfg,
		runID:    runID,
		logger:   logger,
		flow:     &goyek.Flow{},
		stager:   workspace.NewStager(distDir, config.StageDir(cfg), logger.With("component", "stager")),
		cleaner:  workspace.NewCleaner(logger.With("component", "cleaner"), workspace.AssetRules(cfg.WorkDir, distDir, cfg.Assets.CloneDir)...),
		archiver: arch,
		cloner:   cloner,
		classifier: assets.NewClassifier(cloneDir, distDir, cfg.Bundle, rules,
			logger.With("task", TaskProcessAssets)),
		packager: assets.NewPackager(arch, cfg.MaxParallel, TaskPackageAssets,
			logger.With("task", TaskPackageAssets)),
		result: Result{Bundle: cfg.Bundle},
	}

	if opts.Output != nil {
		p.flow.SetOutput(opts.Output)
	}
	p.flow.Use(middleware.ReportStatus)
	p.define()

	return p, nil
}

// Flow returns the underlying goyek flow.
func (p *Pipeline) Flow() *goyek.Flow {
	return p.flow
}

// RunID identifies this pipeline instance in logs.
func (p *Pipeline) RunID() string {
	return p.runID
}

// BundleZip returns the path of the main bundle archive.
func (p *Pipeline) BundleZip() string {
	return filepath.Join(config.DistDir(p.cfg), p.cfg.Bundle+".zip")
}

// Result returns what the last run produced.
func (p *Pipeline) Result() Result {
	return p.result
}

// Run executes the named tasks, or the release task when none are given.
// It stops at the first failing task.
func (p *Pipeline) Run(ctx context.Context, tasks ...string) error {
	if len(tasks) == 0 {
		tasks = []string{TaskRelease}
	}
	p.result = Result{Bundle: p.cfg.Bundle}
	return p.flow.Execute(ctx, tasks)
}

// Main runs the tasks named in args and exits the process. It handles
// interrupts by cancelling the running task's context.
func (p *Pipeline) Main(args []string) {
	p.flow.Main(args)
}

// Print writes the task list to the flow output.
func (p *Pipeline) Print() {
	p.flow.Print()
}

func (p *Pipeline) define() {
	stage := p.flow.Define(goyek.Task{
		Name:  TaskStage,
		Usage: "Copy the build output into the temporary release directory",
		Action: func(a *goyek.A) {
			if _, err := p.stager.Stage(a.Context()); err != nil {
				a.Fatal(err)
			}
		},
	})

	zipBundle := p.flow.Define(goyek.Task{
		Name:  TaskZipBundle,
		Usage: "Zip the release directory into dist/<bundle>.zip",
		Deps:  goyek.Deps{stage},
		Action: func(a *goyek.A) {
			dest := p.BundleZip()
			p.logger.Info("creating a zip archive", "task", TaskZipBundle, "dest", dest)
			if err := p.archiver.Archive(a.Context(), TaskZipBundle, p.stager.Dir(), dest); err != nil {
				a.Fatal(err)
			}
			p.result.BundleZip = dest
		},
	})

	unstage := p.flow.Define(goyek.Task{
		Name:  TaskUnstage,
		Usage: "Delete the temporary release directory",
		Deps:  goyek.Deps{zipBundle},
		Action: func(a *goyek.A) {
			if err := p.stager.Unstage(a.Context()); err != nil {
				a.Fatal(err)
			}
		},
	})

	cleanAssets := p.flow.Define(goyek.Task{
		Name:  TaskCleanAssets,
		Usage: "Delete temporary asset directories, keeping asset zips",
		Action: func(a *goyek.A) {
			p.clean(a)
		},
	})

	cloneAssets := p.flow.Define(goyek.Task{
		Name:  TaskCloneAssets,
		Usage: "Clone the design assets repository",
		Deps:  goyek.Deps{cleanAssets},
		Action: func(a *goyek.A) {
			if err := p.cloner.Clone(a.Context()); err != nil {
				a.Fatal(err)
			}
		},
	})

	processAssets := p.flow.Define(goyek.Task{
		Name:  TaskProcessAssets,
		Usage: "Sort cloned assets into one directory per extension tag",
		Deps:  goyek.Deps{cloneAssets},
		Action: func(a *goyek.A) {
			if _, err := p.classifier.Classify(a.Context()); err != nil {
				a.Fatal(err)
			}
		},
	})

	packageAssets := p.flow.Define(goyek.Task{
		Name:  TaskPackageAssets,
		Usage: "Zip every asset directory",
		Deps:  goyek.Deps{processAssets},
		Action: func(a *goyek.A) {
			p.logger.Info("creating zip archives for design assets", "task", TaskPackageAssets)
			zips, err := p.packager.Package(a.Context(), p.classifier.Groups())
			if err != nil {
				a.Fatal(err)
			}
			p.result.AssetZips = zips
		},
	})

	cleanup := p.flow.Define(goyek.Task{
		Name:  TaskCleanup,
		Usage: "Delete temporary asset directories after packaging",
		Action: func(a *goyek.A) {
			p.clean(a)
		},
	})

	release := p.flow.Define(goyek.Task{
		Name:  TaskRelease,
		Usage: "Build the release bundle and design asset archives",
		Deps:  goyek.Deps{stage, zipBundle, unstage, packageAssets, cleanup},
		Action: func(a *goyek.A) {
			p.logger.Info("release complete",
				"bundle_zip", p.result.BundleZip,
				"asset_zips", len(p.result.AssetZips))
			a.Logf("created %s and %d asset archives", p.result.BundleZip, len(p.result.AssetZips))
		},
	})

	p.flow.SetDefault(release)
}

func (p *Pipeline) clean(a *goyek.A) {
	removed, err := p.cleaner.Clean(a.Context())
	p.result.Removed = append(p.result.Removed, removed...)
	if err != nil {
		a.Fatal(err)
	}
}
