// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/woozymasta/bsppak"
)

// iniSection identifies current legacy INI section.
type iniSection uint8

const (
	iniSectionNone iniSection = iota
	iniSectionMaps
	iniSectionOperations
	iniSectionTool
)

// iniNullValue clears a string key.
const iniNullValue = "NULL"

// ParseINI decodes the legacy INI job layout over Default values.
// Every malformed line is reported; section names are case-insensitive, keys are not.
func ParseINI(data []byte) (*Config, error) {
	cfg := Default()
	section := iniSectionNone

	var errs []error
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			next, err := parseINISection(line)
			if err != nil {
				errs = append(errs, fmt.Errorf("line %d: %w", lineNo, err))
			}

			section = next
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			errs = append(errs, fmt.Errorf("%w: line %d: missing '='", ErrInvalidConfig, lineNo))
			continue
		}

		key = strings.TrimSpace(key)
		value = bsppak.NormalizeSlashes(strings.TrimSpace(value))
		if value == "" {
			errs = append(errs, fmt.Errorf("%w: line %d: missing value", ErrInvalidConfig, lineNo))
			continue
		}

		var err error
		switch section {
		case iniSectionMaps:
			err = cfg.setINIMap(value)
		case iniSectionOperations:
			err = cfg.setINIOperation(key, value)
		case iniSectionTool:
			err = cfg.Tool.setINIKey(key, value)
		default:
			err = fmt.Errorf("%w: key %q outside of section", ErrInvalidConfig, key)
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", lineNo, err))
		}
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("%w: read: %w", ErrInvalidConfig, err))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return cfg, nil
}

// parseINISection resolves a "[Name]" header line.
func parseINISection(line string) (iniSection, error) {
	name, _, _ := strings.Cut(strings.TrimPrefix(line, "["), "]")
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "maps":
		return iniSectionMaps, nil
	case "operations":
		return iniSectionOperations, nil
	case "tool":
		return iniSectionTool, nil
	default:
		return iniSectionNone, fmt.Errorf("%w: unrecognized section %q", ErrInvalidConfig, line)
	}
}

// setINIMap appends one [Maps] value; the key is ignored.
func (c *Config) setINIMap(value string) error {
	ref, err := ParseMapRef(value)
	if err != nil {
		return err
	}

	c.Maps = append(c.Maps, ref)
	return nil
}

// setINIOperation appends one ADD or REMOVE line in file order.
func (c *Config) setINIOperation(key string, value string) error {
	switch key {
	case "ADD":
		c.Operations = append(c.Operations, OperationSpec{Add: value})
	case "REMOVE":
		c.Operations = append(c.Operations, OperationSpec{Remove: value})
	default:
		return fmt.Errorf("%w: unrecognized operation %q", ErrInvalidConfig, key)
	}

	return nil
}

// setINIKey applies one [Tool] key.
func (t *Tool) setINIKey(key string, value string) error {
	switch key {
	case "DownloadMaps":
		return setINIBool(&t.DownloadMaps, key, value)
	case "LogOperations":
		return setINIBool(&t.LogOperations, key, value)
	case "OperateMaps":
		return setINIBool(&t.OperateMaps, key, value)
	case "PrintPakFile":
		return setINIBool(&t.PrintPakFile, key, value)
	case "CompressPakFile":
		return setINIBool(&t.CompressPakFile, key, value)
	case "WritePakFile":
		return setINIBool(&t.WritePakFile, key, value)
	case "UploadMaps":
		return setINIBool(&t.UploadMaps, key, value)
	case "CompressionLevel":
		level, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}

		t.CompressionLevel = level
	case "CompressionMethod":
		t.CompressionMethod = value
	case "ChangeNote":
		if value == iniNullValue {
			value = ""
		}

		t.ChangeNote = value
	default:
		return fmt.Errorf("%w: unrecognized tool key %q", ErrInvalidConfig, key)
	}

	return nil
}

// setINIBool parses integer switch where any non-zero value is true.
func setINIBool(dst *bool, key string, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}

	*dst = n != 0
	return nil
}
