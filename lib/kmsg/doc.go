// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

// Package kmsg provides a log/slog handler for the kernel ring buffer.
// Generators run before journald accepts connections, so /dev/kmsg is
// the only destination where their output reliably survives early
// boot; journald picks the lines up later via the device's syslog
// prefix format.
package kmsg
