// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/systemd/zram-generator/lib/config"
	"github.com/systemd/zram-generator/lib/testutil"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{name: "no arguments", args: nil, wantErr: true},
		{
			name: "generator directory",
			args: []string{"/run/systemd/generator"},
			want: options{outputDirectory: "/run/systemd/generator"},
		},
		{
			name: "generator protocol triple",
			args: []string{"/run/a", "/run/b", "/run/c"},
			want: options{outputDirectory: "/run/a"},
		},
		{name: "two directories", args: []string{"/run/a", "/run/b"}, wantErr: true},
		{name: "four directories", args: []string{"/a", "/b", "/c", "/d"}, wantErr: true},
		{
			name: "setup device",
			args: []string{"--setup-device", "zram0"},
			want: options{setupDevice: "zram0"},
		},
		{
			name:    "setup device rejects positional arguments",
			args:    []string{"--setup-device", "zram0", "/run/a"},
			wantErr: true,
		},
		{name: "inspect", args: []string{"--inspect"}, want: options{inspect: true}},
		{
			name:    "inspect rejects positional arguments",
			args:    []string{"--inspect", "/run/a"},
			wantErr: true,
		},
		{
			name:    "setup and inspect conflict",
			args:    []string{"--setup-device", "zram0", "--inspect"},
			wantErr: true,
		},
		{name: "version", args: []string{"--version"}, want: options{showVersion: true}},
		{
			name: "verbose generator",
			args: []string{"-v", "/run/a"},
			want: options{verbose: true, outputDirectory: "/run/a"},
		},
		{name: "unknown flag", args: []string{"--frobnicate"}, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := parseArgs(test.args)
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs: %v", err)
			}
			if *got != test.want {
				t.Errorf("parseArgs = %+v, want %+v", *got, test.want)
			}
		})
	}
}

func TestPlanFromDevice(t *testing.T) {
	swap := config.NewDevice("zram0")
	swap.DiskSizeBytes = 1024 << 20
	swap.Algorithms = []config.Algorithm{{Name: "zstd", Params: "level=3"}}

	plan := planFromDevice(swap)
	if plan.Role != "swap" || plan.FSType != "swap" {
		t.Errorf("swap device plan = role %q fs-type %q", plan.Role, plan.FSType)
	}
	if plan.SwapPriority != 100 || plan.Options != "discard" {
		t.Errorf("swap device plan lost defaults: %+v", plan)
	}
	if len(plan.Algorithms) != 1 || plan.Algorithms[0].Params != "level=3" {
		t.Errorf("algorithm stages = %+v", plan.Algorithms)
	}

	mount := config.NewDevice("zram1")
	mount.DiskSizeBytes = 512 << 20
	mount.MountPoint = "/var/tmp"

	plan = planFromDevice(mount)
	if plan.Role != "mount" || plan.FSType != "ext2" {
		t.Errorf("mount device plan = role %q fs-type %q", plan.Role, plan.FSType)
	}
}

func TestInspectOutput(t *testing.T) {
	device := config.NewDevice("zram5")
	device.DiskSizeBytes = 4 << 20

	var buf bytes.Buffer
	if err := inspectMode(&buf, []*config.Device{device}); err != nil {
		t.Fatalf("inspectMode: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"name: zram5", "role: swap", "disksize-bytes: 4194304"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestRunGeneratorProtocol(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "proc/meminfo", "MemTotal:        1048576 kB\n")
	testutil.WriteFile(t, root, "etc/systemd/zram-generator.conf",
		"[zram0]\nzram-size = ram / 4\n")
	out := t.TempDir()
	t.Setenv("ZRAM_GENERATOR_ROOT", root)

	if err := run([]string{out}); err != nil {
		t.Fatalf("run: %v", err)
	}

	swap, err := os.ReadFile(filepath.Join(out, "dev-zram0.swap"))
	if err != nil {
		t.Fatalf("swap unit not written: %v", err)
	}
	if !strings.Contains(string(swap), "What=/dev/zram0") {
		t.Errorf("swap unit content:\n%s", swap)
	}
	modules, err := os.ReadFile(filepath.Join(root, "run/modules-load.d/zram.conf"))
	if err != nil {
		t.Fatalf("modules-load not written: %v", err)
	}
	if string(modules) != "zram\n" {
		t.Errorf("modules-load content = %q", modules)
	}
}

func TestRunWithoutConfiguration(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "proc/meminfo", "MemTotal:        1048576 kB\n")
	out := t.TempDir()
	t.Setenv("ZRAM_GENERATOR_ROOT", root)

	if err := run([]string{out}); err != nil {
		t.Fatalf("run: %v", err)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("read output directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("units generated without configuration: %v", entries)
	}
}

func TestRunKernelDisabled(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "proc/meminfo", "MemTotal:        1048576 kB\n")
	testutil.WriteFile(t, root, "proc/cmdline", "quiet systemd.zram=0\n")
	testutil.WriteFile(t, root, "etc/systemd/zram-generator.conf", "[zram0]\n")
	out := t.TempDir()
	t.Setenv("ZRAM_GENERATOR_ROOT", root)

	if err := run([]string{out}); err != nil {
		t.Fatalf("run: %v", err)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("read output directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("units generated despite systemd.zram=0: %v", entries)
	}
}

func TestRunSetupUnknownDevice(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "proc/meminfo", "MemTotal:        1048576 kB\n")
	t.Setenv("ZRAM_GENERATOR_ROOT", root)

	err := run([]string{"--setup-device", "zram9"})
	if err == nil || !strings.Contains(err.Error(), "zram9") {
		t.Fatalf("expected an unknown-device error naming zram9, got: %v", err)
	}
}
