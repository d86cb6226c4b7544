// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

// Package testutil provides shared test helpers for zram-generator
// packages.
//
// [WriteFile] and [WriteTree] build synthetic filesystem roots: a
// temporary directory standing in for / with whatever slice of /proc,
// /etc, /usr, and /run a test needs. Nearly every package here reads
// the real system through an explicit root path, so tests construct
// these trees instead of mocking file access.
//
// [StubCommand] shadows an external program (mkswap, systemd-detect-virt)
// with a shell script for the remainder of the test, recording each
// invocation's arguments in a log file that [Calls] reads back. This
// keeps tests hermetic on machines where the real tools are missing or
// would touch real block devices.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
