// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

// Package sysinfo reads the pieces of procfs the generator depends on:
// total system memory from /proc/meminfo and boolean flags from the
// kernel command line. Every reader takes an explicit filesystem root
// so tests can point at synthetic trees.
package sysinfo
