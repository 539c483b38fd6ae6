package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spachava753/releasekit/internal/config"
	"github.com/spachava753/releasekit/internal/pipeline"
)

const defaultConfigFile = "release.yaml"

func main() {
	configPath := flag.String("config", "", "path to release.yaml (default: ./release.yaml if present)")
	bundle := flag.String("bundle", "", "release bundle name; overrides the config file")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = func() { usage(nil) }
	flag.Parse()

	path := *configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg, err := config.LoadReleaseConfig(path)
	if err != nil {
		slog.Error("loading config failed", "error", err)
		os.Exit(2)
	}
	if *bundle != "" {
		cfg.Bundle = *bundle
		if err := config.ValidateReleaseConfig(cfg); err != nil {
			slog.Error("invalid bundle", "error", err)
			os.Exit(2)
		}
	}

	level := parseLevel(cfg.LogLevel)
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	p, err := pipeline.New(cfg, pipeline.Options{Logger: logger})
	if err != nil {
		slog.Error("creating pipeline failed", "error", err)
		os.Exit(2)
	}

	flag.Usage = func() { usage(p) }

	p.Main(flag.Args())
}

func usage(p *pipeline.Pipeline) {
	fmt.Fprintln(flag.CommandLine.Output(), "usage: releasekit [flags] [task...]")
	flag.PrintDefaults()
	if p != nil {
		p.Print()
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
