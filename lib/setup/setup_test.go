// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package setup

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/systemd/zram-generator/lib/config"
	"github.com/systemd/zram-generator/lib/testutil"
)

func testContext(root string) *config.Context {
	return config.NewContext(root, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// deviceRoot builds a synthetic root with the sysfs directory for one
// device and returns both paths.
func deviceRoot(t *testing.T, name string) (string, string) {
	t.Helper()
	root := t.TempDir()
	sysDir := filepath.Join(root, "sys/block", name)
	if err := os.MkdirAll(sysDir, 0755); err != nil {
		t.Fatalf("create %s: %v", sysDir, err)
	}
	return root, sysDir
}

func readAttribute(t *testing.T, sysDir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(sysDir, name))
	if err != nil {
		t.Fatalf("read attribute %s: %v", name, err)
	}
	return string(data)
}

func TestRunConfiguresDevice(t *testing.T) {
	root, sysDir := deviceRoot(t, "zram0")
	callLog := testutil.StubCommand(t, "mkswap", "exit 0")

	device := config.NewDevice("zram0")
	device.DiskSizeBytes = 1024 << 20
	device.MemLimitBytes = 256 << 20
	device.WritebackDevice = "/dev/sda2"
	device.Algorithms = []config.Algorithm{
		{Name: "zstd", Params: "level=5"},
		{Name: "lz4"},
		{Name: "deflate", Params: "winbits=12"},
	}
	device.RecompressionParams = "type=huge"

	if err := Run(testContext(root), device); err != nil {
		t.Fatalf("Run: %v", err)
	}

	attributes := map[string]string{
		"backing_dev":    "/dev/sda2",
		"comp_algorithm": "zstd",
		"mem_limit":      "268435456",
		"disksize":       "1073741824",
		"recompress":     "type=huge",
		// Multi-write attributes retain the last write in the
		// synthetic tree; deflate is the second recompression stage.
		"recomp_algorithm": "algo=deflate priority=2",
		"algorithm_params": "priority=2 winbits=12",
	}
	for name, want := range attributes {
		if got := readAttribute(t, sysDir, name); got != want {
			t.Errorf("attribute %s = %q, want %q", name, got, want)
		}
	}

	calls := testutil.Calls(t, callLog)
	if len(calls) != 1 || calls[0] != filepath.Join(root, "dev/zram0") {
		t.Errorf("mkswap calls = %v, want the device path", calls)
	}
}

func TestRunMissingDevice(t *testing.T) {
	device := config.NewDevice("zram3")
	device.DiskSizeBytes = 1 << 20

	err := Run(testContext(t.TempDir()), device)
	if err == nil || !strings.Contains(err.Error(), "zram3") {
		t.Fatalf("expected a missing-device error naming zram3, got: %v", err)
	}
}

func TestRunChoosesFormatter(t *testing.T) {
	tests := []struct {
		name       string
		fsType     string
		mountPoint string
		command    string
	}{
		{"plain swap", "", "", "mkswap"},
		{"default filesystem", "", "/var/cache", "mkfs.ext2"},
		{"explicit filesystem", "ext4", "/var/cache", "mkfs.ext4"},
		{"swap-typed mount", "swap", "/var/cache", "mkswap"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root, _ := deviceRoot(t, "zram0")
			callLog := testutil.StubCommand(t, test.command, "exit 0")

			device := config.NewDevice("zram0")
			device.DiskSizeBytes = 1 << 20
			device.FSType = test.fsType
			device.MountPoint = test.mountPoint

			if err := Run(testContext(root), device); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if calls := testutil.Calls(t, callLog); len(calls) != 1 {
				t.Errorf("%s calls = %v, want exactly one", test.command, calls)
			}
		})
	}
}

func TestRunToleratesRejectedAlgorithm(t *testing.T) {
	root, sysDir := deviceRoot(t, "zram0")
	testutil.StubCommand(t, "mkswap", "exit 0")

	// A directory in place of the attribute makes the write fail the
	// way a missing kernel feature would.
	if err := os.MkdirAll(filepath.Join(sysDir, "comp_algorithm"), 0755); err != nil {
		t.Fatalf("create blocking directory: %v", err)
	}

	device := config.NewDevice("zram0")
	device.DiskSizeBytes = 4 << 20
	device.Algorithms = []config.Algorithm{{Name: "zstd"}}

	if err := Run(testContext(root), device); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readAttribute(t, sysDir, "disksize"); got != "4194304" {
		t.Errorf("disksize = %q, want 4194304", got)
	}
}

func TestRunStopsOnFatalAttribute(t *testing.T) {
	root, sysDir := deviceRoot(t, "zram0")
	callLog := testutil.StubCommand(t, "mkswap", "exit 0")

	if err := os.MkdirAll(filepath.Join(sysDir, "mem_limit"), 0755); err != nil {
		t.Fatalf("create blocking directory: %v", err)
	}

	device := config.NewDevice("zram0")
	device.DiskSizeBytes = 4 << 20

	if err := Run(testContext(root), device); err == nil {
		t.Fatal("expected an error from the mem_limit write")
	}
	if _, err := os.Stat(filepath.Join(sysDir, "disksize")); !os.IsNotExist(err) {
		t.Errorf("disksize written after a fatal attribute failure")
	}
	if calls := testutil.Calls(t, callLog); calls != nil {
		t.Errorf("mkswap ran after a fatal attribute failure: %v", calls)
	}
}

func TestCommandErrorFromExitCode(t *testing.T) {
	root, _ := deviceRoot(t, "zram0")
	testutil.StubCommand(t, "mkswap", "exit 3")

	device := config.NewDevice("zram0")
	device.DiskSizeBytes = 1 << 20

	err := Run(testContext(root), device)
	var commandErr *CommandError
	if !errors.As(err, &commandErr) {
		t.Fatalf("expected a CommandError, got: %v", err)
	}
	if commandErr.Command != "mkswap" || commandErr.Code != 3 || commandErr.Signal != 0 {
		t.Errorf("CommandError = %+v, want mkswap exit 3", commandErr)
	}
	if !strings.Contains(err.Error(), "exit status 3") {
		t.Errorf("error text %q does not name the exit status", err)
	}
}

func TestCommandErrorFromSignal(t *testing.T) {
	root, _ := deviceRoot(t, "zram0")
	testutil.StubCommand(t, "mkswap", "kill -9 $$")

	device := config.NewDevice("zram0")
	device.DiskSizeBytes = 1 << 20

	err := Run(testContext(root), device)
	var commandErr *CommandError
	if !errors.As(err, &commandErr) {
		t.Fatalf("expected a CommandError, got: %v", err)
	}
	if commandErr.Signal != syscall.SIGKILL {
		t.Errorf("CommandError signal = %v, want SIGKILL", commandErr.Signal)
	}
	if !strings.Contains(err.Error(), "signal") {
		t.Errorf("error text %q does not mention the signal", err)
	}
}
