// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/woozymasta/bsppak"
	"github.com/woozymasta/bsppak/internal/config"
)

// operationFlag appends operations of one kind to a list shared by all operation flags,
// so --add and --remove keep their command line order.
type operationFlag struct {
	ops  *[]bsppak.Operation
	kind bsppak.OperationKind
}

// String implements pflag.Value.
func (f operationFlag) String() string {
	values := make([]string, 0, len(*f.ops))
	for _, op := range *f.ops {
		if op.Kind == f.kind {
			values = append(values, op.Value)
		}
	}

	return "[" + strings.Join(values, ",") + "]"
}

// Set implements pflag.Value.
func (f operationFlag) Set(value string) error {
	*f.ops = append(*f.ops, bsppak.Operation{Kind: f.kind, Value: value})
	return nil
}

// Type implements pflag.Value.
func (f operationFlag) Type() string {
	return "string"
}

type applyOptions struct {
	input      string
	output     string
	configPath string
	method     string
	exclude    []string
	compress   []string
	ops        []bsppak.Operation
	level      int
	backupKeep int
	printPak   bool
	noWrite    bool
	logOps     bool
}

var applyFlagOps []bsppak.Operation

var applyCmd = &cobra.Command{
	Use:   "apply <map.bsp>",
	Short: "Apply add/remove operations to one map",
	Long: "Apply add and remove operations to one map in command line order and write a new file.\n" +
		"Add values use base//relative form; remove values are case-sensitive path prefixes.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		opts := loadApplyOptions(cmd, args[0])
		return runApply(cmd, logger, opts)
	},
}

func init() {
	applyCmd.Flags().StringP("output", "o", "", "Output path (default: <name>.patched.bsp next to input)")
	applyCmd.Flags().StringP("config", "c", "", "Job file providing operations and tool settings")
	applyCmd.Flags().Var(operationFlag{ops: &applyFlagOps, kind: bsppak.OperationAdd}, "add", "Add file or directory (base//relative), repeatable")
	applyCmd.Flags().Var(operationFlag{ops: &applyFlagOps, kind: bsppak.OperationRemove}, "remove", "Remove entries by path prefix, repeatable")
	applyCmd.Flags().String("method", string(bsppak.MethodLZMA), "Compression method (lzma, deflate, store)")
	applyCmd.Flags().Int("level", bsppak.DefaultCompressionLevel, "Compression level 0..9")
	applyCmd.Flags().StringSlice("exclude", nil, "Skip matching files in directory adds (gitignore syntax)")
	applyCmd.Flags().StringSlice("compress", nil, "Compress only matching entries (default all)")
	applyCmd.Flags().Int("backup-keep", 1, "Backup generations kept when the output exists")
	applyCmd.Flags().Bool("print", false, "Log decoded pak entries")
	applyCmd.Flags().Bool("no-write", false, "Run operations but keep the original pak lump")
	applyCmd.Flags().Bool("log-operations", true, "Log every added and removed file")

	rootCmd.AddCommand(applyCmd)
}

func loadApplyOptions(cmd *cobra.Command, input string) applyOptions {
	output, _ := cmd.Flags().GetString("output")
	configPath, _ := cmd.Flags().GetString("config")
	method, _ := cmd.Flags().GetString("method")
	level, _ := cmd.Flags().GetInt("level")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	compress, _ := cmd.Flags().GetStringSlice("compress")
	backupKeep, _ := cmd.Flags().GetInt("backup-keep")
	printPak, _ := cmd.Flags().GetBool("print")
	noWrite, _ := cmd.Flags().GetBool("no-write")
	logOps, _ := cmd.Flags().GetBool("log-operations")

	return applyOptions{
		input:      input,
		output:     output,
		configPath: configPath,
		method:     method,
		level:      level,
		exclude:    exclude,
		compress:   compress,
		ops:        applyFlagOps,
		backupKeep: backupKeep,
		printPak:   printPak,
		noWrite:    noWrite,
		logOps:     logOps,
	}
}

// convertOptions merges job file settings with command line flags; flags set explicitly win.
func (o applyOptions) convertOptions(cmd *cobra.Command) (bsppak.ConvertOptions, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return bsppak.ConvertOptions{}, err
		}

		cfg = loaded
	}

	flags := cmd.Flags()
	if o.configPath == "" || flags.Changed("method") {
		cfg.Tool.CompressionMethod = o.method
		cfg.Tool.CompressPakFile = true
	}
	if o.configPath == "" || flags.Changed("level") {
		cfg.Tool.CompressionLevel = o.level
	}
	if o.configPath == "" || flags.Changed("backup-keep") {
		cfg.Tool.BackupKeep = o.backupKeep
	}
	if o.configPath == "" || flags.Changed("log-operations") {
		cfg.Tool.LogOperations = o.logOps
	}
	if flags.Changed("print") {
		cfg.Tool.PrintPakFile = o.printPak
	}
	if flags.Changed("no-write") {
		cfg.Tool.WritePakFile = !o.noWrite
	}
	cfg.Tool.Exclude = append(cfg.Tool.Exclude, o.exclude...)
	cfg.Tool.Compress = append(cfg.Tool.Compress, o.compress...)

	if err := cfg.Validate(); err != nil {
		return bsppak.ConvertOptions{}, err
	}

	opts, err := cfg.ConvertOptions()
	if err != nil {
		return bsppak.ConvertOptions{}, err
	}

	opts.Operations = append(opts.Operations, o.ops...)
	return opts, nil
}

func runApply(cmd *cobra.Command, logger *slog.Logger, o applyOptions) error {
	opts, err := o.convertOptions(cmd)
	if err != nil {
		return err
	}

	if len(opts.Operations) == 0 && !opts.PrintPak {
		return fmt.Errorf("no operations given: use --add, --remove or --config")
	}

	opts.Logger = logger

	editor, err := bsppak.OpenEditor(o.input, opts)
	if err != nil {
		return err
	}

	output := o.output
	if strings.TrimSpace(output) == "" {
		output = bsppak.PatchedPath(o.input)
	}

	res, err := editor.Commit(cmd.Context(), output)
	if err != nil {
		return err
	}

	cmd.Printf("%s -> %s: %d entries (+%d ~%d -%d)\n", o.input, output, res.Entries, res.Added, res.Replaced, res.Removed)
	return nil
}
