// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

// Package config loads batch job configuration for bsppak.
//
// A job is one file listing the maps to process, the ordered pipeline of
// operations applied to every map, and tool switches. Two formats are read:
// YAML (preferred) and the legacy INI layout with [Maps], [Operations] and
// [Tool] sections. The format is chosen by file extension.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/bsppak"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig means the job file is malformed or has invalid values.
var ErrInvalidConfig = errors.New("invalid config")

// Defaults for tool switches.
const (
	DefaultUploadDelay = 5 * time.Second
	DefaultOutputSub   = "maps/workshop"
)

// Config is one batch job.
type Config struct {
	// Maps lists workshop items and local files to process.
	Maps []MapRef `yaml:"maps"`

	// Operations is the ordered pipeline applied to every map.
	Operations []OperationSpec `yaml:"operations"`

	// Tool holds stage switches and encoding settings.
	Tool Tool `yaml:"tool"`
}

// MapRef is a workshop item id or a local container path.
type MapRef struct {
	// Path is local container path, empty for workshop items.
	Path string
	// WorkshopID is published item id, zero for local maps.
	WorkshopID uint64
}

// ParseMapRef treats digit-only values as workshop ids and anything else as a path.
func ParseMapRef(raw string) (MapRef, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return MapRef{}, fmt.Errorf("%w: empty map value", ErrInvalidConfig)
	}

	if strings.Trim(value, "0123456789") == "" {
		id, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return MapRef{}, fmt.Errorf("%w: workshop id %q: %w", ErrInvalidConfig, value, err)
		}

		return MapRef{WorkshopID: id}, nil
	}

	return MapRef{Path: bsppak.NormalizeSlashes(value)}, nil
}

// IsWorkshop reports whether ref names a workshop item.
func (m MapRef) IsWorkshop() bool {
	return m.WorkshopID != 0
}

// String returns config form of the reference.
func (m MapRef) String() string {
	if m.IsWorkshop() {
		return strconv.FormatUint(m.WorkshopID, 10)
	}

	return m.Path
}

// UnmarshalYAML accepts a scalar id or path.
func (m *MapRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: map entry must be a scalar", ErrInvalidConfig, node.Line)
	}

	ref, err := ParseMapRef(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	*m = ref
	return nil
}

// MarshalYAML writes the reference as a scalar.
func (m MapRef) MarshalYAML() (any, error) {
	if m.IsWorkshop() {
		return m.WorkshopID, nil
	}

	return m.Path, nil
}

// OperationSpec is one pipeline step; exactly one field is set.
type OperationSpec struct {
	// Add is "base//relative" add value.
	Add string `yaml:"add,omitempty"`
	// Remove is case-sensitive entry path prefix.
	Remove string `yaml:"remove,omitempty"`
}

// Operation converts the config entry to engine operation.
func (o OperationSpec) Operation() (bsppak.Operation, error) {
	switch {
	case o.Add != "" && o.Remove != "":
		return bsppak.Operation{}, fmt.Errorf("%w: operation sets both add and remove", ErrInvalidConfig)
	case o.Add != "":
		if _, err := bsppak.ParseAddValue(o.Add); err != nil {
			return bsppak.Operation{}, err
		}

		return bsppak.NewAddOperation(o.Add), nil
	case o.Remove != "":
		return bsppak.NewRemoveOperation(o.Remove), nil
	default:
		return bsppak.Operation{}, fmt.Errorf("%w: empty operation", ErrInvalidConfig)
	}
}

// Tool holds stage switches and encoding settings.
type Tool struct {
	// ChangeNote is sent with uploads; empty means none.
	ChangeNote string `yaml:"change_note"`

	// CompressionMethod is lzma, deflate or store.
	CompressionMethod string `yaml:"compression_method"`

	// OutputDir receives converted maps.
	// Default: <os temp>/maps/workshop
	OutputDir string `yaml:"output_dir"`

	// Exclude lists gitignore-style patterns skipped by directory adds.
	Exclude []string `yaml:"exclude,omitempty"`

	// Compress limits compression to matching entry paths; empty means all.
	Compress []string `yaml:"compress,omitempty"`

	// CompressionLevel is 0..9.
	// Default: 5
	CompressionLevel int `yaml:"compression_level"`

	// BackupKeep is number of .bak generations kept for replaced outputs.
	BackupKeep int `yaml:"backup_keep"`

	// UploadDelay spaces consecutive uploads.
	// Default: 5s
	UploadDelay time.Duration `yaml:"upload_delay"`

	// DownloadMaps fetches workshop items before operating.
	DownloadMaps bool `yaml:"download_maps"`

	// LogOperations logs every added and removed file.
	LogOperations bool `yaml:"log_operations"`

	// OperateMaps runs the pipeline.
	OperateMaps bool `yaml:"operate_maps"`

	// PrintPakFile logs decoded pak entries of every map.
	PrintPakFile bool `yaml:"print_pak_file"`

	// CompressPakFile compresses the re-encoded archive.
	CompressPakFile bool `yaml:"compress_pak_file"`

	// WritePakFile re-encodes the archive; false copies the container unchanged.
	WritePakFile bool `yaml:"write_pak_file"`

	// UploadMaps uploads converted workshop maps after confirmation.
	UploadMaps bool `yaml:"upload_maps"`
}

// Default returns the configuration used before a file is loaded.
func Default() *Config {
	return &Config{
		Tool: Tool{
			CompressionMethod: string(bsppak.MethodLZMA),
			CompressionLevel:  bsppak.DefaultCompressionLevel,
			UploadDelay:       DefaultUploadDelay,
			DownloadMaps:      true,
			LogOperations:     true,
			OperateMaps:       true,
			CompressPakFile:   true,
			WritePakFile:      true,
		},
	}
}

// LoadFile loads a job from path; ".ini" files use the legacy layout, anything else is YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg *Config
	if strings.EqualFold(filepath.Ext(path), ".ini") {
		cfg, err = ParseINI(data)
	} else {
		cfg, err = ParseYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// ParseYAML decodes a YAML job over Default values.
func ParseYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Validate checks the job for errors.
func (c *Config) Validate() error {
	var errs []error

	for i, op := range c.Operations {
		if _, err := op.Operation(); err != nil {
			errs = append(errs, fmt.Errorf("operations[%d]: %w", i, err))
		}
	}

	if _, err := bsppak.ParseCompressionMethod(c.Tool.CompressionMethod); err != nil {
		errs = append(errs, fmt.Errorf("tool.compression_method: %w", err))
	}

	if c.Tool.CompressionLevel < 0 || c.Tool.CompressionLevel > bsppak.MaxCompressionLevel {
		errs = append(errs, fmt.Errorf("%w: tool.compression_level must be 0..%d", ErrInvalidConfig, bsppak.MaxCompressionLevel))
	}

	if c.Tool.BackupKeep < 0 {
		errs = append(errs, fmt.Errorf("%w: tool.backup_keep must not be negative", ErrInvalidConfig))
	}

	if c.Tool.UploadDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: tool.upload_delay must not be negative", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// WorkshopIDs returns configured workshop item ids in order.
func (c *Config) WorkshopIDs() []uint64 {
	var ids []uint64
	for _, m := range c.Maps {
		if m.IsWorkshop() {
			ids = append(ids, m.WorkshopID)
		}
	}

	return ids
}

// LocalMaps returns configured local container paths in order.
func (c *Config) LocalMaps() []string {
	var paths []string
	for _, m := range c.Maps {
		if !m.IsWorkshop() {
			paths = append(paths, m.Path)
		}
	}

	return paths
}

// PipelineOperations returns engine operations in configured order.
func (c *Config) PipelineOperations() ([]bsppak.Operation, error) {
	ops := make([]bsppak.Operation, 0, len(c.Operations))
	for i, spec := range c.Operations {
		op, err := spec.Operation()
		if err != nil {
			return nil, fmt.Errorf("operations[%d]: %w", i, err)
		}

		ops = append(ops, op)
	}

	return ops, nil
}

// EncodeOptions derives archive encoding settings from tool switches.
func (c *Config) EncodeOptions() (bsppak.EncodeOptions, error) {
	opts := bsppak.DefaultEncodeOptions()
	opts.Level = c.Tool.CompressionLevel
	if opts.Level == 0 {
		opts.Level = bsppak.LevelFastest
	}

	method, err := bsppak.ParseCompressionMethod(c.Tool.CompressionMethod)
	if err != nil {
		return bsppak.EncodeOptions{}, err
	}

	opts.Method = method
	if !c.Tool.CompressPakFile {
		opts.Method = bsppak.MethodStore
	}

	opts.Compress = bsppak.CompressRules(c.Tool.Compress...)
	return opts, nil
}

// ConvertOptions builds engine options for one map.
func (c *Config) ConvertOptions() (bsppak.ConvertOptions, error) {
	ops, err := c.PipelineOperations()
	if err != nil {
		return bsppak.ConvertOptions{}, err
	}

	encode, err := c.EncodeOptions()
	if err != nil {
		return bsppak.ConvertOptions{}, err
	}

	return bsppak.ConvertOptions{
		Operations:     ops,
		Exclude:        bsppak.ExcludeRules(c.Tool.Exclude...),
		Encode:         encode,
		BackupKeep:     c.Tool.BackupKeep,
		SkipPakRewrite: !c.Tool.WritePakFile,
		LogOperations:  c.Tool.LogOperations,
		PrintPak:       c.Tool.PrintPakFile,
	}, nil
}

// ResolveOutputDir returns OutputDir or the default temp location.
func (c *Config) ResolveOutputDir() string {
	if c.Tool.OutputDir != "" {
		return c.Tool.OutputDir
	}

	return filepath.Join(os.TempDir(), filepath.FromSlash(DefaultOutputSub))
}
