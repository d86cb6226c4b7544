// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package sysinfo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MemTotalMB returns total system memory in megabytes, read from
// <root>/proc/meminfo. The kernel reports kibibytes; the fractional
// part of the conversion is preserved because device sizes are
// computed from it at byte granularity.
func MemTotalMB(root string) (float64, error) {
	path := filepath.Join(root, "proc/meminfo")
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("read memory size: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse MemTotal in %s: %w", path, err)
		}
		return float64(kb) / 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return 0, fmt.Errorf("no MemTotal line in %s", path)
}

// Cmdline returns the kernel command line from <root>/proc/cmdline.
func Cmdline(root string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(root, "proc/cmdline"))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// BoolFlag scans a kernel command line for a boolean flag and returns
// its value, or nil when the flag is absent. The last occurrence wins:
// "name" alone means true, "name=<value>" parses the value. When the
// winning occurrence carries an unrecognized value the result is nil
// alongside an error describing it; earlier occurrences are not
// consulted as a fallback.
func BoolFlag(cmdline, name string) (*bool, error) {
	var result *bool
	var parseErr error
	prefix := name + "="
	for _, word := range strings.Fields(cmdline) {
		switch {
		case word == name:
			value := true
			result = &value
			parseErr = nil
		case strings.HasPrefix(word, prefix):
			raw := strings.TrimPrefix(word, prefix)
			parsed, ok := parseBool(raw)
			if !ok {
				result = nil
				parseErr = fmt.Errorf("unrecognized value %s=%q on kernel command line", name, raw)
				continue
			}
			result = &parsed
			parseErr = nil
		}
	}
	return result, parseErr
}

// parseBool accepts the boolean spellings used on the kernel command
// line.
func parseBool(value string) (parsed, ok bool) {
	switch value {
	case "1", "yes", "true", "on":
		return true, true
	case "0", "no", "false", "off":
		return false, true
	}
	return false, false
}
