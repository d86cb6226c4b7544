// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

// Package setup writes the finalized parameters of one zram device
// into its /sys/block control files and materializes the swap or
// filesystem signature with mkswap or mkfs. Attribute order matters:
// everything must be configured before disksize, whose write
// activates the device.
package setup
