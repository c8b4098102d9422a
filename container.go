// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Lump is one lump descriptor of the container header.
type Lump struct {
	// Offset is byte offset of lump data from file start.
	Offset int32 `json:"offset" yaml:"offset"`
	// Length is lump data length in bytes.
	Length int32 `json:"length" yaml:"length"`
	// Version is lump format version.
	Version int32 `json:"version" yaml:"version"`
	// FourCC is lump tag (uncompressed size for LZMA-compressed lumps).
	FourCC [4]byte `json:"four_cc" yaml:"four_cc"`
}

// End returns offset of first byte after lump data.
func (l Lump) End() int64 {
	return int64(l.Offset) + int64(l.Length)
}

// Header is the fixed-size container header.
type Header struct {
	// Ident is the container identifier, IdentVBSP for valid files.
	Ident uint32 `json:"ident" yaml:"ident"`
	// Version is BSP format version.
	Version int32 `json:"version" yaml:"version"`
	// Lumps is fixed lump descriptor table.
	Lumps [LumpCount]Lump `json:"lumps" yaml:"lumps"`
	// MapRevision is map file revision counter.
	MapRevision int32 `json:"map_revision" yaml:"map_revision"`
}

// Container is a parsed in-memory BSP file.
type Container struct {
	// data is full container byte buffer, owned by the container.
	data []byte
	// Header is parsed header copy; Splice writes it back.
	Header Header
}

// ParseContainer validates magic and lump bounds and returns parsed container.
// The data slice is retained, callers must not modify it afterwards.
func ParseContainer(data []byte) (*Container, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: short header", ErrInvalidMagic)
	}

	if ident := binary.LittleEndian.Uint32(data[:4]); ident != IdentVBSP {
		return nil, fmt.Errorf("%w: got %08X", ErrInvalidMagic, ident)
	}

	if len(data) < containerHeaderSize {
		return nil, fmt.Errorf("%w: short header: %d bytes", ErrInvalidMagic, len(data))
	}

	c := &Container{data: data}
	if err := binary.Read(bytes.NewReader(data[:containerHeaderSize]), binary.LittleEndian, &c.Header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if err := c.validateLumps(); err != nil {
		return nil, err
	}

	return c, nil
}

// validateLumps checks every non-empty lump lies within the file after the header.
func (c *Container) validateLumps() error {
	size := int64(len(c.data))
	for i, lump := range c.Header.Lumps {
		if lump.Length == 0 {
			continue
		}

		if lump.Offset < containerHeaderSize || lump.Length < 0 || lump.End() > size {
			return fmt.Errorf(
				"%w: lump %d offset=%d length=%d file size=%d",
				ErrLumpOutOfBounds, i, lump.Offset, lump.Length, size,
			)
		}
	}

	return nil
}

// Size returns container size in bytes.
func (c *Container) Size() int64 {
	return int64(len(c.data))
}

// Bytes returns underlying container buffer.
func (c *Container) Bytes() []byte {
	return c.data
}

// Lump returns lump descriptor by index.
func (c *Container) Lump(index int) (Lump, error) {
	if index < 0 || index >= LumpCount {
		return Lump{}, fmt.Errorf("%w: lump index %d", ErrLumpOutOfBounds, index)
	}

	return c.Header.Lumps[index], nil
}

// PakRange returns byte range of the pak lump.
func (c *Container) PakRange() (offset int64, length int64) {
	pak := c.Header.Lumps[LumpPakfile]
	return int64(pak.Offset), int64(pak.Length)
}

// PakData returns pak lump bytes (empty when map has no pak lump).
func (c *Container) PakData() []byte {
	offset, length := c.PakRange()
	if length == 0 {
		return nil
	}

	return c.data[offset : offset+length]
}

// marshalHeader encodes header into its fixed binary form.
func marshalHeader(h *Header) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(containerHeaderSize)
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	return buf.Bytes(), nil
}
