// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

// Package generator emits systemd units for resolved zram devices.
//
// For every device it writes an instantiated setup service that runs
// this binary again with --setup-device, plus a .swap or .mount unit
// wired into the matching target via a .wants symlink. When at least
// one device was generated it also writes a modules-load.d entry so
// the zram module is loaded at boot.
//
// Generation is skipped inside containers, where compressed swap on
// the host's kernel is not ours to manage.
package generator
