package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/sky2wallpaper/internal/config"
	"github.com/ivlev/sky2wallpaper/internal/director"
	"github.com/ivlev/sky2wallpaper/internal/solar"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var overrides runOverrides
	var output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the keyframes and solar positions without capturing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := overrides.apply(cfg); err != nil {
				return err
			}

			plan, err := overrides.loadPlan(cfg)
			if err != nil {
				return err
			}
			if plan == nil {
				planner, err := cfg.Planner()
				if err != nil {
					return err
				}
				if plan, err = planner.Plan(); err != nil {
					return err
				}
			}

			records, err := buildRecords(cfg, plan)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), plan, records)

			switch strings.TrimSpace(output) {
			case "":
				return nil
			case "auto":
				output = director.GeneratePlanPath(cfg.OutputDir)
			}
			if err := director.WritePlan(plan, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+++] План сохранён: %s\n", output)
			return nil
		},
	}

	overrides.bind(cmd)
	cmd.Flags().StringVar(&output, "output", "", "Write the plan as YAML (\"auto\" = <output_dir>/plan_<timestamp>.yaml)")
	return cmd
}

func buildRecords(cfg *config.Config, plan *director.Plan) ([]solar.Record, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	return cfg.Builder().Build(plan.Samples(), policy)
}

func printPlan(w io.Writer, plan *director.Plan, records []solar.Record) {
	headers := []string{"#", "Percent", "Altitude", "Azimuth", "Primary", "Files"}
	aligns := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft}

	rows := make([][]string, 0, len(plan.Keyframes))
	for i, kf := range plan.Keyframes {
		files := make([]string, 0, len(kf.Shots))
		for _, s := range kf.Shots {
			files = append(files, s.FileName)
		}
		primary := ""
		if records[i].IsPrimary {
			primary = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			director.FormatPercent(kf.Sample.Percent),
			strconv.FormatFloat(records[i].Altitude, 'f', -1, 64),
			strconv.FormatFloat(records[i].Azimuth, 'f', -1, 64),
			primary,
			strings.Join(files, ", "),
		})
	}
	fmt.Fprintln(w, renderTable(headers, rows, aligns))
}
