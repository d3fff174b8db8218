package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/sky2wallpaper/internal/capture"
	"github.com/ivlev/sky2wallpaper/internal/config"
	"github.com/ivlev/sky2wallpaper/internal/director"
	"github.com/ivlev/sky2wallpaper/internal/effects"
	"github.com/ivlev/sky2wallpaper/internal/engine"
	"github.com/ivlev/sky2wallpaper/internal/packager"
	"github.com/ivlev/sky2wallpaper/internal/system"
)

type runOverrides struct {
	pageURL     string
	outputDir   string
	planFile    string
	step        float64
	workers     int
	noPackage   bool
	keepOverlay bool
	stats       bool
}

func (o *runOverrides) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.pageURL, "page-url", "", "URL of the animated sky page")
	cmd.Flags().StringVarP(&o.outputDir, "output-dir", "o", "", "Directory for images and config.json")
	cmd.Flags().StringVar(&o.planFile, "plan", "", "Plan file to use instead of the sample set (\"latest\" picks the newest plan_*.yaml)")
	cmd.Flags().Float64Var(&o.step, "step", 0, "Uniform sampling step in percent (overrides samples.percents)")
}

func (o *runOverrides) apply(cfg *config.Config) error {
	if o.pageURL != "" {
		cfg.PageURL = o.pageURL
	}
	if o.outputDir != "" {
		cfg.OutputDir = o.outputDir
	}
	if o.step > 0 {
		cfg.Samples.Step = o.step
	}
	if o.workers > 0 {
		cfg.Composite.Workers = o.workers
	}
	if o.noPackage {
		cfg.Package.Enabled = false
	}
	if o.keepOverlay {
		cfg.Composite.KeepOverlay = true
	}
	if o.stats {
		cfg.ShowStats = true
	}
	return cfg.Validate()
}

func (o *runOverrides) loadPlan(cfg *config.Config) (*director.Plan, error) {
	path := strings.TrimSpace(o.planFile)
	if path == "" {
		return nil, nil
	}
	if path == "latest" {
		latest, err := director.FindLatestPlan(cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		path = latest
	}
	fmt.Printf("[*] Используется план: %s\n", path)
	return director.ReadPlan(path)
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var overrides runOverrides

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Capture keyframes, composite layers, write config.json and package the wallpaper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := overrides.apply(cfg); err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			if missing := system.LookupTools(requiredTools(cfg)...); len(missing) > 0 {
				return fmt.Errorf("required tools not found on PATH: %s", strings.Join(missing, ", "))
			}

			plan, err := overrides.loadPlan(cfg)
			if err != nil {
				return err
			}

			project := engine.NewWallpaperProject(cfg, newCapturer(cfg), newCompositor(cfg), newPackager(cfg), logger)
			project.Plan = plan
			return project.Run(cmd.Context())
		},
	}

	overrides.bind(cmd)
	cmd.Flags().IntVarP(&overrides.workers, "workers", "w", 0, "Parallel composite jobs (0 = logical CPUs)")
	cmd.Flags().BoolVar(&overrides.noPackage, "no-package", false, "Stop after writing config.json")
	cmd.Flags().BoolVar(&overrides.keepOverlay, "keep-overlay", false, "Keep overlay images after compositing")
	cmd.Flags().BoolVar(&overrides.stats, "stats", false, "Print a performance report and append it to benchmark.log")
	return cmd
}

// requiredTools lists the external binaries the configured run will execute
func requiredTools(cfg *config.Config) []string {
	var tools []string
	if cfg.Capture.Driver == config.DriverExec && len(cfg.Capture.Command) > 0 {
		tools = append(tools, cfg.Capture.Command[0])
	}
	if cfg.Layers.Overlay != nil {
		tools = append(tools, cfg.Composite.Binary)
	}
	if cfg.Package.Enabled {
		tools = append(tools, cfg.Package.Binary)
	}
	return tools
}

func newCapturer(cfg *config.Config) capture.Capturer {
	settle := time.Duration(cfg.Capture.SettleMillis) * time.Millisecond
	if cfg.Capture.Driver == config.DriverExec {
		return &capture.ExecCapturer{
			Command:          cfg.Capture.Command,
			PageURL:          cfg.PageURL,
			ProgressFunction: cfg.Capture.ProgressFunction,
			Settle:           settle,
		}
	}
	c := capture.NewCDPCapturer(cfg.Capture.CDPEndpoint, cfg.PageURL, cfg.Capture.ProgressFunction, settle)
	c.Timeout = time.Duration(cfg.Capture.TimeoutSeconds) * time.Second
	return c
}

func newCompositor(cfg *config.Config) effects.Compositor {
	// Пути кадров уже включают output_dir: рабочая папка остаётся текущей
	return effects.NewMagickCompositor(cfg.Composite.Binary, cfg.Composite.Spread, "")
}

func newPackager(cfg *config.Config) packager.Packager {
	return &packager.Wallpapper{Binary: cfg.Package.Binary}
}
