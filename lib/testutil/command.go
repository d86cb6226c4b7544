// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// StubCommand installs a fake executable on PATH for the remainder of
// the test, shadowing any real program of the same name. The body is a
// shell fragment run after the stub records its invocation; an empty
// body exits 0. The returned path names a log file holding one line of
// space-joined arguments per invocation, readable with [Calls].
func StubCommand(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	callLog := filepath.Join(dir, name+".calls")

	// t.TempDir never produces single quotes in the path, so plain
	// quoting is enough.
	script := "#!/bin/sh\nprintf '%s\\n' \"$*\" >> '" + callLog + "'\n" + body + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}

	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return callLog
}

// Calls returns the recorded invocations from a [StubCommand] log, one
// string per call. A stub that never ran yields nil.
func Calls(t *testing.T, callLog string) []string {
	t.Helper()
	raw, err := os.ReadFile(callLog)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read call log %s: %v", callLog, err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}
