// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// Zip LZMA framing (APPNOTE 5.8.8): version(2) + properties size(2) + properties(5).
const (
	zipLZMAVersionMajor = 9
	zipLZMAVersionMinor = 20
	zipLZMAPropsSize    = 5
	zipLZMAHeaderSize   = 4 + zipLZMAPropsSize
	// zipFlagLZMAEOS is general purpose bit 1: stream ends with EOS marker.
	zipFlagLZMAEOS = 0x2
	// lzmaMaxDecodeDict bounds dictionary accepted from archive headers.
	lzmaMaxDecodeDict = 1 << 27
)

// lzmaDictSize maps compression level to LZMA SDK dictionary size.
func lzmaDictSize(level int) int {
	switch {
	case level <= 5:
		return 1 << (level*2 + 14)
	case level <= 7:
		return 1 << 25
	default:
		return 1 << 26
	}
}

// compressLZMA compresses data into zip LZMA framing without EOS marker.
func compressLZMA(data []byte, level int) ([]byte, error) {
	dictCap := min(lzmaDictSize(level), max(len(data), lzma.MinDictCap))

	var classic bytes.Buffer
	classic.Grow(len(data)/2 + lzma.HeaderLen)

	w, err := lzma.WriterConfig{
		DictCap:      dictCap,
		SizeInHeader: true,
		Size:         int64(len(data)),
	}.NewWriter(&classic)
	if err != nil {
		return nil, fmt.Errorf("lzma writer: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lzma write: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lzma close: %w", err)
	}

	// Replace the 13-byte classic header (props, dict, size) with zip framing.
	raw := classic.Bytes()
	if len(raw) < lzma.HeaderLen {
		return nil, fmt.Errorf("lzma: short stream: %d bytes", len(raw))
	}

	out := make([]byte, zipLZMAHeaderSize, zipLZMAHeaderSize+len(raw)-lzma.HeaderLen)
	out[0] = zipLZMAVersionMajor
	out[1] = zipLZMAVersionMinor
	binary.LittleEndian.PutUint16(out[2:4], zipLZMAPropsSize)
	copy(out[4:zipLZMAHeaderSize], raw[:zipLZMAPropsSize])

	return append(out, raw[lzma.HeaderLen:]...), nil
}

// decompressLZMA decodes zip LZMA framed payload of known uncompressed size.
func decompressLZMA(payload []byte, size uint64, eosMarker bool) ([]byte, error) {
	if len(payload) < zipLZMAHeaderSize {
		return nil, fmt.Errorf("lzma: short header")
	}

	if size > maxZipData {
		return nil, fmt.Errorf("lzma: uncompressed size %d exceeds zip limit", size)
	}

	propsSize := int(binary.LittleEndian.Uint16(payload[2:4]))
	if propsSize != zipLZMAPropsSize {
		return nil, fmt.Errorf("lzma: unexpected properties size %d", propsSize)
	}

	dictCap := binary.LittleEndian.Uint32(payload[5:9])
	if dictCap > lzmaMaxDecodeDict {
		return nil, fmt.Errorf("lzma: dictionary size %d exceeds limit", dictCap)
	}

	// Rebuild classic header so the stream decoder can consume it.
	classic := make([]byte, lzma.HeaderLen)
	copy(classic, payload[4:4+propsSize])
	if eosMarker {
		binary.LittleEndian.PutUint64(classic[5:], ^uint64(0))
	} else {
		binary.LittleEndian.PutUint64(classic[5:], size)
	}

	stream := io.MultiReader(bytes.NewReader(classic), bytes.NewReader(payload[4+propsSize:]))
	// DictCap is an upper bound for the header dictionary, size it to the stream.
	r, err := lzma.ReaderConfig{DictCap: max(int(dictCap), lzma.MinDictCap)}.NewReader(stream)
	if err != nil {
		return nil, fmt.Errorf("lzma reader: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, min(size, lzmaMaxDecodeDict)))
	if _, err := io.Copy(buf, io.LimitReader(r, int64(size)+1)); err != nil {
		return nil, fmt.Errorf("lzma read: %w", err)
	}

	if uint64(buf.Len()) != size {
		return nil, fmt.Errorf("lzma: decoded %d bytes, want %d", buf.Len(), size)
	}

	return buf.Bytes(), nil
}
