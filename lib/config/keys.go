// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/systemd/zram-generator/lib/expr"
)

// keyHandler applies one recognized device key. The fragment path is
// recorded where later evaluation errors need to name their source.
// A non-empty deprecated field makes the resolver warn when the key
// is used.
type keyHandler struct {
	deprecated string
	apply      func(d *Device, value, fragment string) error
}

// deviceKeys maps recognized [zramN] section keys to their appliers.
// Keys absent from this table warn and are ignored.
var deviceKeys = map[string]keyHandler{
	"host-memory-limit":     {apply: applyHostMemoryLimit},
	"memory-limit":          {deprecated: "use host-memory-limit instead", apply: applyHostMemoryLimit},
	"zram-size":             {apply: applySize},
	"zram-resident-limit":   {apply: applyResidentLimit},
	"compression-algorithm": {apply: applyCompressionAlgorithm},
	"writeback-device":      {apply: applyWritebackDevice},
	"swap-priority":         {apply: applySwapPriority},
	"mount-point":           {apply: applyMountPoint},
	"fs-type":               {apply: applyFSType},
	"options":               {apply: applyOptions},
	"zram-fraction":         {deprecated: "use zram-size instead", apply: applyFraction},
	"max-zram-size":         {deprecated: "use zram-size instead", apply: applyMaxSize},
}

func applyHostMemoryLimit(d *Device, value, _ string) error {
	if value == "none" {
		d.HostMemoryLimitMB = nil
		return nil
	}
	mb, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse memory limit: %w", err)
	}
	d.HostMemoryLimitMB = &mb
	return nil
}

func applySize(d *Device, value, fragment string) error {
	e, err := expr.Compile(value)
	if err != nil {
		return err
	}
	d.SizeExpr = e
	d.sizeSource = fragment
	return nil
}

func applyResidentLimit(d *Device, value, fragment string) error {
	e, err := expr.Compile(value)
	if err != nil {
		return err
	}
	d.ResidentLimitExpr = e
	d.residentSource = fragment
	return nil
}

func applyCompressionAlgorithm(d *Device, value, _ string) error {
	tokens, err := splitAlgorithmList(value)
	if err != nil {
		return err
	}
	algorithms := make([]Algorithm, 0, len(tokens))
	global := ""
	for _, token := range tokens {
		name, params, err := splitAlgorithmToken(token)
		if err != nil {
			return err
		}
		if name == "" {
			global = params
			continue
		}
		algorithms = append(algorithms, Algorithm{Name: name, Params: params})
	}
	d.Algorithms = algorithms
	d.RecompressionParams = global
	return nil
}

func applyWritebackDevice(d *Device, value, _ string) error {
	path, err := normalizePath(value)
	if err != nil {
		return err
	}
	d.WritebackDevice = path
	return nil
}

func applySwapPriority(d *Device, value, _ string) error {
	priority, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return fmt.Errorf("parse priority: %w", err)
	}
	if priority < -1 || priority > 32767 {
		return fmt.Errorf("priority %d out of range [-1, 32767]", priority)
	}
	d.SwapPriority = int(priority)
	return nil
}

func applyMountPoint(d *Device, value, _ string) error {
	path, err := normalizePath(value)
	if err != nil {
		return err
	}
	d.MountPoint = path
	return nil
}

func applyFSType(d *Device, value, _ string) error {
	d.FSType = value
	return nil
}

func applyOptions(d *Device, value, _ string) error {
	d.Options = value
	return nil
}

func applyFraction(d *Device, value, _ string) error {
	fraction, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse fraction: %w", err)
	}
	if math.IsNaN(fraction) || fraction < 0 {
		return fmt.Errorf("fraction %v must be non-negative", fraction)
	}
	d.Fraction = &fraction
	return nil
}

func applyMaxSize(d *Device, value, _ string) error {
	if value == "none" {
		d.MaxSizeMB = &SizeCap{Uncapped: true}
		return nil
	}
	mb, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse size in MB: %w", err)
	}
	d.MaxSizeMB = &SizeCap{MB: mb}
	return nil
}

// normalizePath validates an absolute, traversal-free path and
// collapses redundant separators and "." components. The ".." check
// runs on the raw value: Clean would resolve such components away and
// hide them.
func normalizePath(value string) (string, error) {
	if !strings.HasPrefix(value, "/") {
		return "", fmt.Errorf("path %q is not absolute", value)
	}
	for _, component := range strings.Split(value, "/") {
		if component == ".." {
			return "", fmt.Errorf("path %q contains a parent-directory component", value)
		}
	}
	return filepath.Clean(value), nil
}

// splitAlgorithmList splits a compression-algorithm value on
// whitespace, keeping parenthesized parameter lists attached to their
// algorithm token.
func splitAlgorithmList(value string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	depth := 0
	for _, r := range value {
		switch {
		case r == '(':
			depth++
			current.WriteRune(r)
		case r == ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", value)
			}
			current.WriteRune(r)
		case unicode.IsSpace(r) && depth == 0:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", value)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// splitAlgorithmToken separates "name(a,b)" into its name and a
// space-joined parameter string. A token with an empty name carries
// device-wide recompression parameters.
func splitAlgorithmToken(token string) (name, params string, err error) {
	open := strings.IndexByte(token, '(')
	if open < 0 {
		return token, "", nil
	}
	if !strings.HasSuffix(token, ")") {
		return "", "", fmt.Errorf("malformed algorithm token %q", token)
	}
	name = token[:open]
	params = strings.ReplaceAll(token[open+1:len(token)-1], ",", " ")
	return name, params, nil
}
