// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

// Package expr compiles and evaluates the arithmetic size expressions
// used in zram device configuration, such as the default device size
// "min(ram / 2, 4096)".
//
// Expressions are HCL expression syntax evaluated over arbitrary
// precision numbers. The variable namespace is a [Context]: "ram" is
// bound to total system memory in megabytes, and configuration
// directives may bind further variables. The functions min and max are
// available.
//
// Number literals accept magnitude suffixes (500k, 2G, 1Gi); see
// [Compile]. Expression results are sizes in megabytes; [Expression.SizeBytes]
// converts to bytes, clamping a division-by-zero infinity to the
// maximum representable size. A result that is negative, not a number
// (0/0), or not numeric at all is an evaluation error.
package expr
