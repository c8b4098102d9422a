// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"errors"
	"fmt"
)

// Sentinel errors for BSP pak operations. Use errors.Is in callers.
var (
	// ErrInvalidMagic means the container does not start with the VBSP identifier.
	ErrInvalidMagic = errors.New("invalid BSP file: bad magic")
	// ErrLumpOutOfBounds means a lump descriptor points outside the container bytes.
	ErrLumpOutOfBounds = errors.New("lump out of container bounds")
	// ErrPakLumpNotFinal means container data follows the pak lump region.
	ErrPakLumpNotFinal = errors.New("pak lump is not the final region of the container")
	// ErrMissingSeparator means an add value has no "//" base directory marker.
	ErrMissingSeparator = errors.New("missing double slash separator")
	// ErrFileUnreadable means an add source file could not be read.
	ErrFileUnreadable = errors.New("file unreadable")
	// ErrDirectoryEnumeration means an add source directory could not be listed.
	ErrDirectoryEnumeration = errors.New("directory enumeration failed")
	// ErrEntryDecode means archive bytes are corrupt or use an unsupported layout.
	ErrEntryDecode = errors.New("archive entry decode failed")
	// ErrEntryEncode means an archive entry could not be compressed or written.
	ErrEntryEncode = errors.New("archive entry encode failed")
	// ErrReadFailure means the input container could not be read.
	ErrReadFailure = errors.New("read failure")
	// ErrOutputIsInput means the output path resolves to the input container file.
	ErrOutputIsInput = errors.New("output path is the input file")
	// ErrWriteFailure means the output container could not be written.
	ErrWriteFailure = errors.New("write failure")
	// ErrUnknownOperation means operation kind is not supported by the engine.
	ErrUnknownOperation = errors.New("unknown operation kind")
	// ErrInvalidOperation means operation value is empty or malformed.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrUnsupportedMethod means compression method is not supported.
	ErrUnsupportedMethod = errors.New("unsupported compression method")
	// ErrInvalidCompressionLevel means compression level is outside 0..9.
	ErrInvalidCompressionLevel = errors.New("invalid compression level")
	// ErrInvalidCompressPattern means one or more compression or exclude rules are invalid.
	ErrInvalidCompressPattern = errors.New("invalid path rules")
	// ErrSizeOverflow means a size exceeds the int32 container or 4 GiB zip limits.
	ErrSizeOverflow = errors.New("size exceeds container or zip limits")
)

// OperationError reports a failed pipeline operation with its position and value.
type OperationError struct {
	// Err is the underlying sentinel-wrapped cause.
	Err error
	// Op is the failed operation.
	Op Operation
	// Index is zero-based position of Op in pipeline.
	Index int
}

// Error implements error.
func (e *OperationError) Error() string {
	return fmt.Sprintf("operation #%d %s %q: %v", e.Index+1, e.Op.Kind, e.Op.Value, e.Err)
}

// Unwrap returns the underlying cause.
func (e *OperationError) Unwrap() error {
	return e.Err
}
