// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/woozymasta/pathrules"
)

// Zip method identifiers.
const (
	zipMethodStore   = zip.Store
	zipMethodDeflate = zip.Deflate
	zipMethodLZMA    = uint16(14)
)

// Zip reader versions by method (APPNOTE 4.4.3).
const (
	zipVersionDefault = 20
	zipVersionLZMA    = 63
)

// ParseCompressionMethod parses method name (case-insensitive).
func ParseCompressionMethod(name string) (CompressionMethod, error) {
	switch CompressionMethod(strings.ToLower(strings.TrimSpace(name))) {
	case MethodStore:
		return MethodStore, nil
	case MethodDeflate:
		return MethodDeflate, nil
	case MethodLZMA:
		return MethodLZMA, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, name)
	}
}

// DefaultEncodeOptions returns LZMA at level 5, the encoding Source map tools expect.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Method:          MethodLZMA,
		Level:           DefaultCompressionLevel,
		MinCompressSize: DefaultMinCompressSize,
	}
}

// zipMethod returns zip method id for compression method.
func (m CompressionMethod) zipMethod() (uint16, error) {
	switch m {
	case MethodStore:
		return zipMethodStore, nil
	case MethodDeflate:
		return zipMethodDeflate, nil
	case MethodLZMA:
		return zipMethodLZMA, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMethod, string(m))
	}
}

// methodFromZip maps zip method id to compression method name.
func methodFromZip(method uint16) CompressionMethod {
	switch method {
	case zipMethodStore:
		return MethodStore
	case zipMethodDeflate:
		return MethodDeflate
	case zipMethodLZMA:
		return MethodLZMA
	default:
		return CompressionMethod(fmt.Sprintf("method(%d)", method))
	}
}

// validateEncodeOptions checks method and level after defaults.
func validateEncodeOptions(opts EncodeOptions) error {
	if _, err := opts.Method.zipMethod(); err != nil {
		return err
	}

	if opts.Level < LevelFastest || opts.Level > MaxCompressionLevel {
		return fmt.Errorf("%w: %d", ErrInvalidCompressionLevel, opts.Level)
	}

	return nil
}

// compressMatcher holds compiled allow-list rules for compression.
type compressMatcher struct {
	matcher *pathrules.Matcher
}

// newCompressMatcher compiles compression path rules.
func newCompressMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*compressMatcher, error) {
	rules = normalizeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidCompressPattern, err)
	}

	return &compressMatcher{matcher: matcher}, nil
}

// normalizeRules normalizes rule patterns and drops empty patterns.
func normalizeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether path is a compression candidate.
// Nil matcher (no rules) accepts every path.
func (m *compressMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// shouldCompress returns true if method, size and path pass compression policy.
func shouldCompress(opts EncodeOptions, matcher *compressMatcher, path string, size int) bool {
	if opts.Method == MethodStore || size == 0 || size < opts.MinCompressSize {
		return false
	}

	return matcher.Match(path)
}

// compressPayload compresses data with method at level.
func compressPayload(method CompressionMethod, level int, data []byte) ([]byte, error) {
	switch method {
	case MethodDeflate:
		return compressDeflate(data, level)
	case MethodLZMA:
		return compressLZMA(data, level)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, string(method))
	}
}

// compressDeflate compresses data with raw DEFLATE.
func compressDeflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data) / 2)

	fw, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("deflate writer: %w", err)
	}

	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("deflate write: %w", err)
	}

	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("deflate close: %w", err)
	}

	return buf.Bytes(), nil
}
