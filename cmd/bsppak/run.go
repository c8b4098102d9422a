// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/woozymasta/bsppak/internal/batch"
	"github.com/woozymasta/bsppak/internal/config"
	"github.com/woozymasta/bsppak/internal/workshop"
)

type runOptions struct {
	configPath  string
	workshopDir string
	outputDir   string
	yes         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch job",
	Long:  "Run a batch job from a YAML or legacy INI file: find, download, convert, confirm and upload maps.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		return runJob(cmd, logger, loadRunOptions(cmd))
	},
}

func init() {
	runCmd.Flags().StringP("config", "c", "config.ini", "Path to job file (.yaml, .yml or .ini)")
	runCmd.Flags().String("workshop-dir", "", "Local workshop mirror directory (<dir>/<id>/item.yaml)")
	runCmd.Flags().String("output-dir", "", "Directory for converted maps (default <temp>/maps/workshop)")
	runCmd.Flags().Bool("yes", false, "Upload without interactive confirmation")

	rootCmd.AddCommand(runCmd)
}

func loadRunOptions(cmd *cobra.Command) runOptions {
	configPath, _ := cmd.Flags().GetString("config")
	workshopDir, _ := cmd.Flags().GetString("workshop-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	yes, _ := cmd.Flags().GetBool("yes")

	return runOptions{
		configPath:  configPath,
		workshopDir: workshopDir,
		outputDir:   outputDir,
		yes:         yes,
	}
}

func runJob(cmd *cobra.Command, logger *slog.Logger, opts runOptions) error {
	logger.Info("reading job", slog.String("path", opts.configPath))

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return err
	}

	runner := &batch.Runner{
		Config:    cfg,
		Logger:    logger,
		OutputDir: opts.outputDir,
		Confirm:   batch.PromptConfirm(cmd.InOrStdin(), cmd.OutOrStdout()),
	}

	if opts.workshopDir != "" {
		runner.Provider = workshop.NewDirProvider(opts.workshopDir)
	}

	if opts.yes {
		runner.Confirm = func(context.Context, string) (bool, error) { return true, nil }
	}

	report, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	logger.Info("finished",
		slog.Int("maps", len(report.Maps)),
		slog.Int("uploaded", len(report.Uploaded)),
	)

	return nil
}
