// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/woozymasta/bsppak"
)

var listCmd = &cobra.Command{
	Use:   "list <map.bsp>...",
	Short: "List pak lump entries",
	Long:  "List path, method, size and stored size of every entry in the pak lump of each map.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")

		for _, path := range args {
			entries, err := bsppak.ListPak(path)
			if err != nil {
				return err
			}
			entries = bsppak.FilterEntryInfos(entries, prefix)

			if len(args) > 1 {
				cmd.Printf("%s:\n", path)
			}

			if err := printEntries(cmd.OutOrStdout(), entries); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
	listCmd.Flags().String("prefix", "", "List only entries under this archive path")

	rootCmd.AddCommand(listCmd)
}

func printEntries(w io.Writer, entries []bsppak.EntryInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PATH\tMETHOD\tSIZE\tSTORED")

	var total, stored uint64
	for _, e := range entries {
		total += e.Size
		stored += e.CompressedSize
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Path, e.Method, humanize.IBytes(e.Size), humanize.IBytes(e.CompressedSize))
	}

	_, _ = fmt.Fprintf(tw, "%d entries\t\t%s\t%s\n", len(entries), humanize.IBytes(total), humanize.IBytes(stored))
	return tw.Flush()
}
