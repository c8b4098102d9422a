// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/woozymasta/pathrules"
)

// OperationKind identifies pipeline operation type.
type OperationKind uint8

const (
	// OperationAdd adds or replaces files taken from the host filesystem.
	OperationAdd OperationKind = iota + 1
	// OperationRemove deletes entries by path prefix.
	OperationRemove
)

// String returns config keyword of operation kind.
func (k OperationKind) String() string {
	switch k {
	case OperationAdd:
		return "ADD"
	case OperationRemove:
		return "REMOVE"
	default:
		return fmt.Sprintf("OperationKind(%d)", uint8(k))
	}
}

// Operation is one step of the edit pipeline.
type Operation struct {
	// Value is "base//relative" for add, path prefix for remove.
	Value string `json:"value" yaml:"value"`
	// Kind selects operation type.
	Kind OperationKind `json:"kind" yaml:"kind"`
}

// NewAddOperation returns add operation for "base//relative" value.
func NewAddOperation(value string) Operation {
	return Operation{Kind: OperationAdd, Value: value}
}

// NewRemoveOperation returns remove operation for path prefix.
func NewRemoveOperation(prefix string) Operation {
	return Operation{Kind: OperationRemove, Value: prefix}
}

// ParseOperation builds operation from config keyword (ADD or REMOVE, case-insensitive).
func ParseOperation(keyword string, value string) (Operation, error) {
	switch strings.ToUpper(strings.TrimSpace(keyword)) {
	case "ADD":
		return NewAddOperation(value), nil
	case "REMOVE":
		return NewRemoveOperation(value), nil
	default:
		return Operation{}, fmt.Errorf("%w: %q", ErrUnknownOperation, keyword)
	}
}

// ApplyStats counts entry changes made by one pipeline run.
type ApplyStats struct {
	// Added is number of appended entries.
	Added int `json:"added" yaml:"added"`
	// Replaced is number of entries replaced in place.
	Replaced int `json:"replaced" yaml:"replaced"`
	// Removed is number of removed entries.
	Removed int `json:"removed" yaml:"removed"`
}

// ApplyOperations runs ops in order over a copy of entries and returns the edited list.
// The first failing operation aborts the pipeline; entries is never modified.
func ApplyOperations(ops []Operation, entries []Entry, opts ApplyOptions) ([]Entry, error) {
	out, _, err := applyOperations(ops, entries, opts)
	return out, err
}

// applyOperations is ApplyOperations with change counters.
func applyOperations(ops []Operation, entries []Entry, opts ApplyOptions) ([]Entry, ApplyStats, error) {
	opts.applyDefaults()

	exclude, err := newExcludeMatcher(opts.Exclude)
	if err != nil {
		return nil, ApplyStats{}, err
	}

	p := &pipeline{
		entries: make([]Entry, len(entries)),
		index:   make(map[string]int, len(entries)),
		files:   opts.Files,
		logger:  opts.Logger,
		exclude: exclude,
		verbose: opts.LogOperations,
	}
	copy(p.entries, entries)
	p.reindex()

	for i, op := range ops {
		var opErr error
		switch op.Kind {
		case OperationAdd:
			opErr = p.add(op.Value)
		case OperationRemove:
			opErr = p.remove(op.Value)
		default:
			opErr = ErrUnknownOperation
		}

		if opErr != nil {
			return nil, ApplyStats{}, &OperationError{Index: i, Op: op, Err: opErr}
		}
	}

	return p.entries, p.stats, nil
}

// pipeline is mutable state of one ApplyOperations call.
type pipeline struct {
	files   FileSource
	logger  *slog.Logger
	exclude *pathrules.Matcher
	index   map[string]int
	entries []Entry
	stats   ApplyStats
	verbose bool
}

// reindex rebuilds path to position map after positions shift.
func (p *pipeline) reindex() {
	clear(p.index)
	for i := range p.entries {
		p.index[p.entries[i].Path] = i
	}
}

// add runs one add operation.
func (p *pipeline) add(value string) error {
	target, err := ParseAddValue(value)
	if err != nil {
		return err
	}

	if target.IsFile() {
		return p.addFile(target.SourcePath(), target.Target)
	}

	p.logger.Debug("adding directory", slog.String("path", target.SourcePath()))
	return p.addDir(target.BaseDir, target.Target)
}

// addFile reads one host file and stores it at archive path.
func (p *pipeline) addFile(sourcePath string, archivePath string) error {
	data, err := p.files.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileUnreadable, sourcePath, err)
	}

	if p.verbose {
		p.logger.Info("adding file", slog.String("path", archivePath), slog.Int("size", len(data)))
	}

	p.put(archivePath, data)
	return nil
}

// addDir recursively adds every file under baseDir+rel, skipping dot names and excluded paths.
func (p *pipeline) addDir(baseDir string, rel string) error {
	dirPath := baseDir + rel
	children, err := p.files.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDirectoryEnumeration, dirPath, err)
	}

	for _, child := range children {
		name := child.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		isDir := child.IsDir()
		if child.Type()&fs.ModeSymlink != 0 {
			info, err := p.files.Stat(baseDir + childRel)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrFileUnreadable, baseDir+childRel, err)
			}

			isDir = info.IsDir()
		}

		if p.excluded(childRel, isDir) {
			p.logger.Debug("skipping excluded path", slog.String("path", childRel))
			continue
		}

		if isDir {
			if err := p.addDir(baseDir, childRel); err != nil {
				return err
			}
			continue
		}

		if err := p.addFile(baseDir+childRel, childRel); err != nil {
			return err
		}
	}

	return nil
}

// put replaces existing entry content in place or appends a new entry.
func (p *pipeline) put(archivePath string, data []byte) {
	if i, ok := p.index[archivePath]; ok {
		p.entries[i] = Entry{Path: archivePath, Data: data}
		p.stats.Replaced++
		return
	}

	p.index[archivePath] = len(p.entries)
	p.entries = append(p.entries, Entry{Path: archivePath, Data: data})
	p.stats.Added++
}

// remove deletes every entry whose path starts with prefix (case-sensitive).
func (p *pipeline) remove(value string) error {
	prefix, err := normalizeRemovePrefix(value)
	if err != nil {
		return err
	}

	removed := 0
	for i := len(p.entries) - 1; i >= 0; i-- {
		if !strings.HasPrefix(p.entries[i].Path, prefix) {
			continue
		}

		if p.verbose {
			p.logger.Info("removing file", slog.String("path", p.entries[i].Path))
		}

		p.entries = append(p.entries[:i], p.entries[i+1:]...)
		removed++
	}

	if removed == 0 {
		p.logger.Debug("remove matched nothing", slog.String("prefix", prefix))
		return nil
	}

	p.stats.Removed += removed
	p.reindex()
	return nil
}

// excluded reports whether walk path matches exclude rules.
func (p *pipeline) excluded(rel string, isDir bool) bool {
	if p.exclude == nil {
		return false
	}

	return !p.exclude.Included(rel, isDir)
}

// newExcludeMatcher compiles directory walk exclude rules; nil when no rules are set.
func newExcludeMatcher(rules []pathrules.Rule) (*pathrules.Matcher, error) {
	rules = normalizeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionInclude,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: compile exclude rules: %w", ErrInvalidCompressPattern, err)
	}

	return matcher, nil
}

// ExcludeRules converts gitignore-style patterns to exclude rules.
func ExcludeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: pattern})
	}

	return rules
}

// CompressRules converts patterns to compression include rules.
func CompressRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
	}

	return rules
}
