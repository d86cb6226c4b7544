// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// configFile is the configuration filename stem, looked up as
// <base>/systemd/<configFile> with drop-ins in <base>/systemd/<configFile>.d.
const configFile = "zram-generator.conf"

// baseDirs are searched in ascending override priority.
var baseDirs = []string{"usr/lib", "usr/local/lib", "etc", "run"}

// fragmentPaths returns every configuration fragment under root in
// application order, lowest priority first. Override granularity is
// the basename: a drop-in shadows identically named drop-ins from
// lower tiers, and only the highest tier's top-level file survives.
// The surviving set is ordered by basename, with the top-level file
// (keyed as the empty basename) first, so every drop-in overrides it.
func fragmentPaths(root string) ([]string, error) {
	// basename -> full path; later tiers replace earlier entries.
	override := make(map[string]string)

	for _, base := range baseDirs {
		top := filepath.Join(root, base, "systemd", configFile)
		switch info, err := os.Stat(top); {
		case err == nil:
			if info.Mode().IsRegular() {
				override[""] = top
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("locate %s: %w", top, err)
		}

		dropinDir := filepath.Join(root, base, "systemd", configFile+".d")
		entries, err := os.ReadDir(dropinDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("locate drop-ins in %s: %w", dropinDir, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			// A bare ".conf" is a hidden file with no stem, not a drop-in.
			if !strings.HasSuffix(name, ".conf") || name == ".conf" {
				continue
			}
			full := filepath.Join(dropinDir, name)
			// Stat follows symlinks. Dangling links and non-regular
			// targets do not contribute fragments.
			info, err := os.Stat(full)
			if os.IsNotExist(err) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("locate %s: %w", full, err)
			}
			if !info.Mode().IsRegular() {
				continue
			}
			override[name] = full
		}
	}

	basenames := make([]string, 0, len(override))
	for name := range override {
		basenames = append(basenames, name)
	}
	sort.Strings(basenames)

	paths := make([]string, 0, len(basenames))
	for _, name := range basenames {
		paths = append(paths, override[name])
	}
	return paths, nil
}
