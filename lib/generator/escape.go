// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package generator

import (
	"fmt"
	"strings"
)

// EscapePath converts an absolute path into a systemd unit name
// prefix, following the rules of systemd.unit(5): slashes become
// dashes and any byte outside the safe set is written as a \xNN
// escape. The root path becomes "-".
func EscapePath(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "-"
	}
	var b strings.Builder
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		switch {
		case c == '/':
			b.WriteByte('-')
		case c == '.' && i == 0:
			fmt.Fprintf(&b, `\x%02x`, c)
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == ':', c == '_', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	return b.String()
}
