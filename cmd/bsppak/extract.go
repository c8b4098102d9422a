// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package main

import (
	"github.com/spf13/cobra"
	"github.com/woozymasta/bsppak"
)

var extractCmd = &cobra.Command{
	Use:   "extract <map.bsp> <dir>",
	Short: "Extract pak lump entries to a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		prefix, _ := cmd.Flags().GetString("prefix")
		createOnly, _ := cmd.Flags().GetBool("no-overwrite")

		written, err := bsppak.ExtractPak(cmd.Context(), args[0], args[1], bsppak.ExtractOptions{
			Prefix:     prefix,
			CreateOnly: createOnly,
			OnEntryDone: func(entry bsppak.Entry, outputPath string) {
				logger.Debug("extracted", "entry", entry.Path, "path", outputPath)
			},
		})
		if err != nil {
			return err
		}

		cmd.Printf("%s: %d files extracted to %s\n", args[0], written, args[1])
		return nil
	},
}

func init() {
	extractCmd.Flags().String("prefix", "", "Extract only entries under this archive path")
	extractCmd.Flags().Bool("no-overwrite", false, "Fail when a destination file already exists")

	rootCmd.AddCommand(extractCmd)
}
