// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

// Package config resolves zram device configuration into finalized
// activation plans.
//
// Configuration is read from systemd/zram-generator.conf files and
// their .conf.d drop-in directories across four base directories in
// ascending override priority: usr/lib, usr/local/lib, etc, run. A
// drop-in with the same basename in a higher tier replaces the lower
// tier's file entirely; distinct basenames all apply, sorted by
// basename, and the top-level file sorts before every drop-in. Within
// the resulting fragment order, settings merge per key: the last
// fragment to set a key wins, leaving the device's other fields
// untouched.
//
// Each [zramN] section describes one device. Size-bearing keys hold
// arithmetic expressions evaluated against total memory ("ram", in
// megabytes) plus any variables bound by top-level "set!name"
// directives, which run shell commands and evaluate their output. See
// the expr package for expression semantics.
//
// [ReadAllDevices] runs the whole pipeline: locate fragments, merge
// sections, execute directives, then size each device. A device whose
// host-memory-limit is below the machine's total memory is disabled
// without evaluating its expressions, and devices that end up with a
// zero disk size are dropped from the returned set.
package config
