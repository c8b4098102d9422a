// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

/*
Package bsppak edits the embedded pak lump (a zip archive, lump 40) of
Source engine BSP map files. One conversion parses the VBSP container,
decodes the archive, applies an ordered pipeline of add and remove
operations, re-encodes the archive and splices it back into a new
container. The input file is never modified: ConvertFile refuses an output
path that resolves to the input.

Compression rules (summary):
  - method is lzma (zip method 14, readable by the engine), deflate or store;
  - entries smaller than EncodeOptions.MinCompressSize are stored;
  - EncodeOptions.Compress rules limit candidates, empty rules allow every path;
  - compressed payload is written only when smaller than source.

# Converting

Apply operations to a map and write a new file:

	res, err := bsppak.ConvertFile(ctx, "maps/de_example.bsp", "out/de_example.bsp", bsppak.ConvertOptions{
	    Operations: []bsppak.Operation{
	        bsppak.NewAddOperation("content//materials/custom"),
	        bsppak.NewAddOperation("content//scripts/vscripts/map.nut"),
	        bsppak.NewRemoveOperation("materials/old/"),
	    },
	    Encode: bsppak.DefaultEncodeOptions(),
	})
	if err != nil {
	    return err
	}
	_ = res.Entries

Add values use "base//relative": everything up to the first slash of "//"
is the filesystem root, the rest is the archive path. A relative part whose
last segment contains a dot is one file, otherwise a directory added
recursively (names starting with a dot are skipped).

Remove values are case-sensitive path prefixes. Every matching entry is removed.

# Editing

Stage operations and commit them in one rewrite:

	ed, err := bsppak.OpenEditor("maps/de_example.bsp", bsppak.ConvertOptions{BackupKeep: 2})
	if err != nil {
	    return err
	}
	if err := ed.Add("content//sound/ambient"); err != nil {
	    return err
	}
	if err := ed.Remove("sound/old/"); err != nil {
	    return err
	}
	// Empty output path writes maps/de_example.patched.bsp, rotating an
	// existing one into .bak and .bak.1.
	if _, err := ed.Commit(ctx, ""); err != nil {
	    return err
	}

# Listing

	entries, err := bsppak.ListPak("maps/de_example.bsp")
	if err != nil {
	    return err
	}
	for _, e := range entries {
	    fmt.Println(e.Path, e.Method, e.Size, e.CompressedSize)
	}

# Extracting

	n, err := bsppak.ExtractPak(ctx, "maps/de_example.bsp", "out/pak", bsppak.ExtractOptions{
	    Prefix: "materials/",
	})

Entry paths that are absolute or escape the output directory fail the whole
call with ErrInvalidExtractPath before any file is written.

# Lower level

ParseContainer, DecodeArchive, ApplyOperations, EncodeArchive and
Container.Splice expose each stage separately for in-memory workflows.
*/
package bsppak
