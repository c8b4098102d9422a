// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"fmt"
	"math"
)

// Splice returns a new container with pak lump content replaced by archive.
// The pak lump must be the final data region; bytes after it are dropped.
// An empty pak lump is placed at the aligned end of file.
func (c *Container) Splice(archive []byte) ([]byte, error) {
	pakOffset, pakLength := c.PakRange()
	header := c.Header

	switch {
	case pakLength == 0 && len(archive) == 0:
		pakOffset = c.Size()
	case pakLength == 0:
		pakOffset = alignUp(c.Size(), lumpAlign)
	default:
		if err := c.checkPakIsFinal(); err != nil {
			return nil, err
		}
	}

	outSize := pakOffset + int64(len(archive))
	if outSize > math.MaxInt32 || pakOffset > math.MaxInt32 {
		return nil, fmt.Errorf("%w: output size %d", ErrSizeOverflow, outSize)
	}

	header.Lumps[LumpPakfile].Offset = int32(pakOffset)
	header.Lumps[LumpPakfile].Length = int32(len(archive))
	if len(archive) == 0 {
		header.Lumps[LumpPakfile].Offset = 0
	}

	headerBytes, err := marshalHeader(&header)
	if err != nil {
		return nil, err
	}

	out := make([]byte, outSize)
	copy(out, headerBytes)
	if keep := min(pakOffset, c.Size()); keep > containerHeaderSize {
		copy(out[containerHeaderSize:], c.data[containerHeaderSize:keep])
	}
	copy(out[pakOffset:], archive)

	return out, nil
}

// checkPakIsFinal reports ErrPakLumpNotFinal when another lump extends past the pak offset.
func (c *Container) checkPakIsFinal() error {
	pakOffset, _ := c.PakRange()
	for i, lump := range c.Header.Lumps {
		if i == LumpPakfile || lump.Length == 0 {
			continue
		}

		if lump.End() > pakOffset {
			return fmt.Errorf("%w: lump %d ends at %d after pak offset %d", ErrPakLumpNotFinal, i, lump.End(), pakOffset)
		}
	}

	return nil
}

// alignUp rounds n up to a multiple of align.
func alignUp(n int64, align int64) int64 {
	return (n + align - 1) / align * align
}
