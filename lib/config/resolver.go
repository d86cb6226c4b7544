// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/ini.v1"

	"github.com/systemd/zram-generator/lib/expr"
	"github.com/systemd/zram-generator/lib/sysinfo"
)

// ErrNoDevice reports a request for a device the resolved
// configuration does not activate.
var ErrNoDevice = errors.New("device not configured")

// Context carries the process-wide inputs of a resolution pass: the
// filesystem root (normally "/", redirected by tests and by
// ZRAM_GENERATOR_ROOT) and the diagnostics logger. There is no other
// ambient state; every lookup goes through the root.
type Context struct {
	Root string
	Log  *slog.Logger
}

// NewContext returns a Context for the given root, defaulting to "/"
// and the default logger.
func NewContext(root string, log *slog.Logger) *Context {
	if root == "" {
		root = "/"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Context{Root: root, Log: log}
}

// KernelOverride reads the systemd.zram flag from the kernel command
// line. The result is nil when the flag is absent, carries an
// unrecognized value, or the command line cannot be read; nil means
// configuration alone decides.
func (c *Context) KernelOverride() *bool {
	cmdline, err := sysinfo.Cmdline(c.Root)
	if err != nil {
		c.Log.Debug("kernel command line unreadable", "error", err)
		return nil
	}
	value, err := sysinfo.BoolFlag(cmdline, "systemd.zram")
	if err != nil {
		c.Log.Warn("ignoring kernel command line flag", "error", err)
		return nil
	}
	return value
}

// resolution is the mutable state of one pass over the fragments.
type resolution struct {
	devices    map[string]*Device
	directives []directive
}

// directive is one top-level "set!name = command" assignment, held in
// fragment order until all fragments are read.
type directive struct {
	name     string
	command  string
	fragment string
}

// ReadAllDevices resolves the configuration under the context root
// and returns the active devices ordered by device number. When
// forceDefault is set (the kernel command line demands zram) a
// default zram0 is synthesized if no fragment defined one.
func ReadAllDevices(c *Context, forceDefault bool) ([]*Device, error) {
	memtotalMB, err := sysinfo.MemTotalMB(c.Root)
	if err != nil {
		return nil, err
	}
	evalCtx := expr.NewContext(memtotalMB)

	fragments, err := fragmentPaths(c.Root)
	if err != nil {
		return nil, err
	}

	state := &resolution{devices: make(map[string]*Device)}
	for _, fragment := range fragments {
		c.Log.Debug("applying fragment", "fragment", fragment)
		if err := applyFragment(c, state, fragment); err != nil {
			return nil, err
		}
	}

	if forceDefault {
		if _, ok := state.devices["zram0"]; !ok {
			c.Log.Info("enabling zram0 with defaults per kernel command line")
			state.devices["zram0"] = NewDevice("zram0")
		}
	}

	if err := runDirectives(c, state.directives, evalCtx); err != nil {
		return nil, err
	}

	devices := make([]*Device, 0, len(state.devices))
	for _, d := range state.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		a, b := deviceNumber(devices[i].Name), deviceNumber(devices[j].Name)
		if a != b {
			return a < b
		}
		return devices[i].Name < devices[j].Name
	})

	var active []*Device
	for _, d := range devices {
		if err := finalize(c, d, memtotalMB, evalCtx); err != nil {
			return nil, err
		}
		if d.DiskSizeBytes == 0 {
			c.Log.Debug("device has zero size, not activating", "device", d.Name)
			continue
		}
		active = append(active, d)
	}
	return active, nil
}

// ReadDevice resolves the configuration and returns the named active
// device, or an error wrapping [ErrNoDevice].
func ReadDevice(c *Context, name string, forceDefault bool) (*Device, error) {
	devices, err := ReadAllDevices(c, forceDefault)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDevice, name)
}

// applyFragment parses one INI fragment and merges it into the
// resolution state. Top-level keys are directives; sections must name
// devices. Unknown sections and keys warn and are skipped, malformed
// values abort.
func applyFragment(c *Context, state *resolution, fragment string) error {
	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, fragment)
	if err != nil {
		return fmt.Errorf("%s: %w", fragment, err)
	}
	for _, section := range file.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			if err := collectDirectives(c, state, section, fragment); err != nil {
				return err
			}
			continue
		}
		if !validDeviceName(name) {
			c.Log.Warn("ignoring section with invalid device name",
				"fragment", fragment, "section", name)
			continue
		}
		device, ok := state.devices[name]
		if !ok {
			device = NewDevice(name)
			state.devices[name] = device
		}
		for _, key := range section.Keys() {
			if err := applyDeviceKey(c, device, name, key, fragment); err != nil {
				return err
			}
		}
	}
	return nil
}

// setPrefix marks a top-level variable assignment: "set!name = command".
const setPrefix = "set!"

// collectDirectives gathers set! assignments from a fragment's
// top-level keys. Execution is deferred until all fragments are read,
// so a later fragment can replace a directive's command.
func collectDirectives(c *Context, state *resolution, section *ini.Section, fragment string) error {
	for _, key := range section.Keys() {
		name := key.Name()
		if !strings.HasPrefix(name, setPrefix) {
			c.Log.Warn("ignoring unknown top-level key", "fragment", fragment, "key", name)
			continue
		}
		variable := strings.TrimPrefix(name, setPrefix)
		if !validIdentifier(variable) {
			return fmt.Errorf("%s: %s: %q is not a valid variable name", fragment, name, variable)
		}
		state.directives = append(state.directives, directive{
			name:     variable,
			command:  key.Value(),
			fragment: fragment,
		})
	}
	return nil
}

// applyDeviceKey dispatches one section key through the recognized-key
// table. Parse failures are wrapped with the fragment, section, key,
// and value so the report pinpoints the offending line.
func applyDeviceKey(c *Context, device *Device, section string, key *ini.Key, fragment string) error {
	handler, ok := deviceKeys[key.Name()]
	if !ok {
		c.Log.Warn("ignoring unknown key",
			"fragment", fragment, "section", section, "key", key.Name())
		return nil
	}
	if handler.deprecated != "" {
		c.Log.Warn("deprecated key",
			"fragment", fragment, "section", section, "key", key.Name(),
			"hint", handler.deprecated)
	}
	if err := handler.apply(device, key.Value(), fragment); err != nil {
		return fmt.Errorf("%s: [%s] %s=%s: %w", fragment, section, key.Name(), key.Value(), err)
	}
	return nil
}

// runDirectives executes the accumulated set! assignments in fragment
// order. Each command runs through the shell; its captured stdout is
// evaluated as an expression against the context built so far and the
// result bound to the variable, visible to later directives and to
// every device expression. A non-zero exit is reported but the output
// is still used; output that fails to parse or evaluate aborts.
func runDirectives(c *Context, directives []directive, evalCtx *expr.Context) error {
	for _, dir := range directives {
		cmd := exec.Command("sh", "-c", dir.command)
		cmd.Stderr = os.Stderr
		output, err := cmd.Output()
		if err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				return fmt.Errorf("%s: %s%s: run %q: %w", dir.fragment, setPrefix, dir.name, dir.command, err)
			}
			c.Log.Warn("directive command failed, using its output anyway",
				"fragment", dir.fragment, "variable", dir.name,
				"command", dir.command, "error", err)
		}

		text := strings.TrimSpace(string(output))
		compiled, err := expr.Compile(text)
		if err != nil {
			return fmt.Errorf("%s: %s%s: output %q: %w", dir.fragment, setPrefix, dir.name, text, err)
		}
		value, err := compiled.Float(evalCtx)
		if err != nil {
			return fmt.Errorf("%s: %s%s: output %q: %w", dir.fragment, setPrefix, dir.name, text, err)
		}
		evalCtx.Bind(dir.name, value)
		c.Log.Debug("variable bound", "variable", dir.name, "value", value)
	}
	return nil
}

// validDeviceName reports whether a section names a zram device:
// "zram" followed by one or more decimal digits.
func validDeviceName(section string) bool {
	digits := strings.TrimPrefix(section, "zram")
	if digits == section || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// deviceNumber extracts the numeric part of a device name for
// ordering.
func deviceNumber(name string) uint64 {
	n, _ := strconv.ParseUint(strings.TrimPrefix(name, "zram"), 10, 64)
	return n
}

// validIdentifier reports whether a directive's variable name can
// appear in an expression.
func validIdentifier(name string) bool {
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return name != ""
}
