// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package setup

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/systemd/zram-generator/lib/config"
)

// Run configures the kernel device and writes a swap or filesystem
// signature onto it. Control files live under <root>/sys/block/<name>/.
// Compression and writeback attributes are set first, disksize last,
// because the disksize write activates the device.
func Run(c *config.Context, device *config.Device) error {
	sysDir := filepath.Join(c.Root, "sys/block", device.Name)
	if _, err := os.Stat(sysDir); err != nil {
		return fmt.Errorf("device %s not found: %w", device.Name, err)
	}
	c.Log.Info("setting up device",
		"device", device.Name,
		"disksize", device.DiskSizeBytes,
		"fs_type", device.EffectiveFSType())

	if device.WritebackDevice != "" {
		if err := writeAttribute(sysDir, "backing_dev", device.WritebackDevice); err != nil {
			return err
		}
	}

	if len(device.Algorithms) > 0 {
		primary := device.Algorithms[0]
		writeOptionalAttribute(c, sysDir, "comp_algorithm", primary.Name)
		if primary.Params != "" {
			writeOptionalAttribute(c, sysDir, "algorithm_params",
				"algo="+primary.Name+" "+primary.Params)
		}
		for i, stage := range device.Algorithms[1:] {
			priority := i + 1
			writeOptionalAttribute(c, sysDir, "recomp_algorithm",
				fmt.Sprintf("algo=%s priority=%d", stage.Name, priority))
			if stage.Params != "" {
				writeOptionalAttribute(c, sysDir, "algorithm_params",
					fmt.Sprintf("priority=%d %s", priority, stage.Params))
			}
		}
	}

	if err := writeAttribute(sysDir, "mem_limit", strconv.FormatUint(device.MemLimitBytes, 10)); err != nil {
		return err
	}
	if err := writeAttribute(sysDir, "disksize", strconv.FormatUint(device.DiskSizeBytes, 10)); err != nil {
		return err
	}
	if device.RecompressionParams != "" {
		writeOptionalAttribute(c, sysDir, "recompress", device.RecompressionParams)
	}

	devicePath := filepath.Join(c.Root, "dev", device.Name)
	if device.EffectiveFSType() == "swap" {
		return runCommand("mkswap", devicePath)
	}
	return runCommand("mkfs."+device.EffectiveFSType(), devicePath)
}

// writeAttribute sets one sysfs attribute of the device.
func writeAttribute(sysDir, name, value string) error {
	path := filepath.Join(sysDir, name)
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeOptionalAttribute sets an attribute whose rejection is
// tolerated. A kernel may lack the requested compression algorithm or
// the attribute itself; the device still comes up without it.
func writeOptionalAttribute(c *config.Context, sysDir, name, value string) {
	if err := writeAttribute(sysDir, name, value); err != nil {
		c.Log.Warn("kernel rejected device attribute",
			"attribute", name, "value", value, "error", err)
	}
}

// CommandError describes a formatting helper that terminated
// unsuccessfully.
type CommandError struct {
	Command string
	Code    int
	Signal  syscall.Signal
}

func (e *CommandError) Error() string {
	if e.Signal != 0 {
		return fmt.Sprintf("%s terminated by signal %v", e.Command, e.Signal)
	}
	return fmt.Sprintf("%s failed with exit status %d", e.Command, e.Code)
}

// runCommand runs mkswap or mkfs with its output passed through, so
// the tool's own diagnostics reach the journal.
func runCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("run %s: %w", name, err)
	}
	commandErr := &CommandError{Command: name, Code: exitErr.ExitCode()}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		commandErr.Signal = status.Signal()
	}
	return commandErr
}
