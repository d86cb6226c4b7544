// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a file at path within root, creating parent
// directories as needed.
func WriteFile(t *testing.T, root, path, content string) {
	t.Helper()
	fullPath := filepath.Join(root, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(fullPath), err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", fullPath, err)
	}
}

// WriteTree creates a fresh temporary directory populated with the
// given files (paths relative to the new root) and returns its path.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		WriteFile(t, root, path, content)
	}
	return root
}
