// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

// zram-generator sets up compressed-RAM block devices from declarative
// configuration. systemd invokes it twice: early in boot as a
// generator, where it resolves zram-generator.conf and its drop-ins
// into swap or mount units, and later through the generated
// systemd-zram-setup@.service units with --setup-device, where it
// writes the resolved parameters into /sys/block/<device>/ and runs
// mkswap or mkfs.
//
// Operators can run it by hand with --inspect to print the resolved
// device plan without touching the system.
//
// $ZRAM_GENERATOR_ROOT redirects all filesystem access under an
// alternate root and skips the container check, for tests and
// packaging.
package main
