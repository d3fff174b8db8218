package main

import (
	"github.com/spf13/cobra"

	"github.com/ivlev/sky2wallpaper/internal/engine"
)

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	var overrides runOverrides

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Rebuild config.json for images that are already captured",
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

			plan, err := overrides.loadPlan(cfg)
			if err != nil {
				return err
			}

			project := engine.NewWallpaperProject(cfg, nil, nil, nil, logger)
			project.Plan = plan
			return project.Metadata(cmd.Context())
		},
	}

	overrides.bind(cmd)
	return cmd
}
