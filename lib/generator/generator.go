// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package generator

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/systemd/zram-generator/lib/config"
)

//go:embed units/*.tmpl
var unitFiles embed.FS

var unitTemplates = template.Must(template.ParseFS(unitFiles, "units/*.tmpl"))

// unitParams feeds the unit templates. Program is the absolute path
// of this binary, re-invoked by the setup service.
type unitParams struct {
	Device     string
	Program    string
	Priority   int
	Options    string
	MountPoint string
	FSType     string
}

// Run writes units for the given devices into outputDirectory, the
// early-boot generator directory systemd provides. Inside a container
// nothing is generated. fakeMode skips the container check so tests
// and packaging can run against a synthetic root.
func Run(c *config.Context, devices []*config.Device, outputDirectory string, fakeMode bool) error {
	if !fakeMode {
		in, err := inContainer()
		if err != nil {
			return err
		}
		if in {
			c.Log.Info("running in a container, not generating units")
			return nil
		}
	}

	program, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate own binary for ExecStart: %w", err)
	}

	made := false
	for _, device := range devices {
		if err := writeDeviceUnits(c, device, outputDirectory, program); err != nil {
			return err
		}
		made = true
	}

	if made {
		// Devices were generated, so make sure the module is loaded.
		modulesLoad := filepath.Join(c.Root, "run/modules-load.d/zram.conf")
		if err := os.MkdirAll(filepath.Dir(modulesLoad), 0755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(modulesLoad), err)
		}
		if err := os.WriteFile(modulesLoad, []byte("zram\n"), 0644); err != nil {
			return fmt.Errorf("write module load configuration: %w", err)
		}
	}
	return nil
}

// writeDeviceUnits emits the setup service for one device plus its
// swap or mount unit, wired into the matching target.
func writeDeviceUnits(c *config.Context, device *config.Device, outputDirectory, program string) error {
	serviceName := "systemd-zram-setup@" + device.Name + ".service"
	c.Log.Info("creating units",
		"device", device.Name,
		"service", serviceName,
		"size_mb", device.DiskSizeBytes>>20)

	params := unitParams{
		Device:     device.Name,
		Program:    program,
		Priority:   device.SwapPriority,
		Options:    device.Options,
		MountPoint: device.MountPoint,
		FSType:     device.EffectiveFSType(),
	}
	if err := writeUnit(outputDirectory, serviceName, "setup-service.tmpl", params); err != nil {
		return err
	}

	switch {
	case device.IsSwap():
		swapName := "dev-" + device.Name + ".swap"
		if err := writeUnit(outputDirectory, swapName, "swap.tmpl", params); err != nil {
			return err
		}
		return makeSymlink("../"+swapName, filepath.Join(outputDirectory, "swap.target.wants", swapName))
	case device.MountPoint != "":
		mountName := EscapePath(device.MountPoint) + ".mount"
		if err := writeUnit(outputDirectory, mountName, "mount.tmpl", params); err != nil {
			return err
		}
		return makeSymlink("../"+mountName, filepath.Join(outputDirectory, "local-fs.target.wants", mountName))
	default:
		// A filesystem device with no mount point only needs the
		// setup service.
		return nil
	}
}

func writeUnit(outputDirectory, name, tmpl string, params unitParams) error {
	var b strings.Builder
	if err := unitTemplates.ExecuteTemplate(&b, tmpl, params); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	path := filepath.Join(outputDirectory, name)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write unit %s: %w", path, err)
	}
	return nil
}

// makeSymlink links a unit into a .wants directory, creating the
// directory as needed. An existing link is left in place so rerunning
// the generator over its own output succeeds.
func makeSymlink(target, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	err := os.Symlink(target, path)
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create symlink %s: %w", path, err)
	}
	return nil
}

// inContainer runs systemd-detect-virt; exit status zero means a
// container environment was detected.
func inContainer() (bool, error) {
	err := exec.Command("systemd-detect-virt", "--container").Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("systemd-detect-virt: %w", err)
}
