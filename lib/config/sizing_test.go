// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package config

import (
	"math"
	"testing"

	"github.com/systemd/zram-generator/lib/testutil"
)

func TestLegacyDiskSize(t *testing.T) {
	fraction := func(f float64) *float64 { return &f }
	tests := []struct {
		name       string
		fraction   *float64
		max        *SizeCap
		memtotalMB float64
		want       uint64
	}{
		{"fraction only", fraction(0.1), nil, 3000, 300 << 20},
		{"default fraction with cap", nil, &SizeCap{MB: 1000}, 3000, 1000 << 20},
		{"fraction under cap", fraction(0.25), &SizeCap{MB: 4000}, 3000, 750 << 20},
		{"fraction over cap", fraction(0.9), &SizeCap{MB: 1024}, 3000, 1024 << 20},
		{"explicitly uncapped", fraction(0.9), &SizeCap{Uncapped: true}, 3000, 2700 << 20},
		{"truncates to whole megabytes", fraction(0.5), nil, 2047.234375, 1023 << 20},
		{"huge fraction saturates", fraction(1e30), nil, 3000, maxWholeMB << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDevice("zram0")
			d.Fraction = tt.fraction
			d.MaxSizeMB = tt.max
			if got := legacyDiskSize(d, tt.memtotalMB); got != tt.want {
				t.Errorf("legacyDiskSize = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestModernSizingKeepsFractionalMegabytes(t *testing.T) {
	// 2096368 kB is 2047.234375 MB. The legacy path truncates to 1023
	// whole MB; the expression path carries the fraction through to
	// bytes.
	root := testutil.WriteTree(t, map[string]string{
		"proc/meminfo": "MemTotal:        2096368 kB\n",
		"etc/systemd/zram-generator.conf": "[zram0]\n" +
			"[zram1]\nzram-fraction = 0.5\n",
	})

	devices, err := ReadAllDevices(testContext(root), false)
	if err != nil {
		t.Fatalf("ReadAllDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	if devices[0].DiskSizeBytes != 1073340416 {
		t.Errorf("modern DiskSizeBytes = %d, want 1073340416", devices[0].DiskSizeBytes)
	}
	if devices[1].DiskSizeBytes != 1023*1024*1024 {
		t.Errorf("legacy DiskSizeBytes = %d, want %d", devices[1].DiskSizeBytes, 1023*1024*1024)
	}
}

func TestResidentLimitEvaluated(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"proc/meminfo": meminfo3000,
		"etc/systemd/zram-generator.conf": "[zram0]\n" +
			"zram-fraction = 0.5\n" +
			"zram-resident-limit = ram / 4\n",
	})

	devices, err := ReadAllDevices(testContext(root), false)
	if err != nil {
		t.Fatalf("ReadAllDevices: %v", err)
	}
	// The resident limit uses the expression path even when the disk
	// size came from the legacy fields.
	if devices[0].MemLimitBytes != 750*1024*1024 {
		t.Errorf("MemLimitBytes = %d, want %d", devices[0].MemLimitBytes, 750*1024*1024)
	}
}

func TestSizeClampAndOverflow(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"proc/meminfo": "MemTotal:        102400 kB\n", // 100 MB
		"etc/systemd/zram-generator.conf": "[zram0]\n" +
			"zram-size = (ram - 99) / 0\n",
	})

	devices, err := ReadAllDevices(testContext(root), false)
	if err != nil {
		t.Fatalf("ReadAllDevices: %v", err)
	}
	if devices[0].DiskSizeBytes != math.MaxUint64 {
		t.Errorf("DiskSizeBytes = %d, want MaxUint64 from the clamped infinity", devices[0].DiskSizeBytes)
	}
}

func TestZeroSizeExcluded(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"proc/meminfo": meminfo3000,
		"etc/systemd/zram-generator.conf": "[zram0]\nzram-size = 0\n" +
			"[zram1]\nzram-size = 16\n",
	})

	devices, err := ReadAllDevices(testContext(root), false)
	if err != nil {
		t.Fatalf("ReadAllDevices: %v", err)
	}
	if len(devices) != 1 || devices[0].Name != "zram1" {
		t.Errorf("devices = %+v, want only zram1", devices)
	}
}
