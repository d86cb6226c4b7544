// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/systemd/zram-generator/lib/config"
	"github.com/systemd/zram-generator/lib/generator"
	"github.com/systemd/zram-generator/lib/kmsg"
	"github.com/systemd/zram-generator/lib/setup"
)

const version = "1.2.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "zram-generator: error: %v\n", err)
		os.Exit(1)
	}
}

// options is the parsed command line. Exactly one mode is active:
// setupDevice when non-empty, inspect, showVersion, or the systemd
// generator protocol with outputDirectory set.
type options struct {
	setupDevice     string
	inspect         bool
	showVersion     bool
	verbose         bool
	outputDirectory string
}

func parseArgs(args []string) (*options, error) {
	opts := &options{}
	flagSet := pflag.NewFlagSet("zram-generator", pflag.ContinueOnError)
	flagSet.StringVar(&opts.setupDevice, "setup-device", "",
		"configure the named device and write its swap or filesystem signature")
	flagSet.BoolVar(&opts.inspect, "inspect", false,
		"print the resolved device plan as YAML and exit")
	flagSet.BoolVar(&opts.showVersion, "version", false,
		"print the version and exit")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false,
		"log at debug level")
	flagSet.Usage = func() { printUsage(flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	if opts.setupDevice != "" && opts.inspect {
		return nil, errors.New("--setup-device and --inspect are mutually exclusive")
	}
	switch {
	case opts.showVersion:
	case opts.setupDevice != "" || opts.inspect:
		if flagSet.NArg() != 0 {
			return nil, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
		}
	default:
		// Generator protocol: normal-dir, optionally followed by the
		// early and late directories, which systemd passes but this
		// generator does not use.
		if n := flagSet.NArg(); n != 1 && n != 3 {
			return nil, fmt.Errorf("expected one or three generator directories, got %d arguments", n)
		}
		opts.outputDirectory = flagSet.Arg(0)
	}
	return opts, nil
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.showVersion {
		fmt.Printf("zram-generator %s\n", version)
		return nil
	}

	root := "/"
	fakeMode := false
	if envRoot := os.Getenv("ZRAM_GENERATOR_ROOT"); envRoot != "" {
		root = envRoot
		fakeMode = true
	}

	logger := newLogger(opts.verbose)
	c := config.NewContext(root, logger)
	if fakeMode {
		logger.Info("using alternate root directory", "root", root)
	}

	enabled := c.KernelOverride()
	if enabled != nil && !*enabled {
		logger.Info("zram devices disabled on the kernel command line")
		if opts.setupDevice != "" {
			return fmt.Errorf("%w: %s", config.ErrNoDevice, opts.setupDevice)
		}
		return nil
	}
	forceDefault := enabled != nil && *enabled

	switch {
	case opts.setupDevice != "":
		device, err := config.ReadDevice(c, opts.setupDevice, forceDefault)
		if err != nil {
			return err
		}
		return setup.Run(c, device)
	case opts.inspect:
		devices, err := config.ReadAllDevices(c, forceDefault)
		if err != nil {
			return err
		}
		return inspectMode(os.Stdout, devices)
	default:
		devices, err := config.ReadAllDevices(c, forceDefault)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			logger.Info("no devices configured, exiting")
			return nil
		}
		return generator.Run(c, devices, opts.outputDirectory, fakeMode)
	}
}

// newLogger picks the logging channel: readable text on stderr when a
// person is watching, /dev/kmsg when run by systemd as a generator.
// kmsg is the only channel that reaches the journal this early in
// boot.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || os.Getenv("ZRAM_GENERATOR_DEBUG") != "" {
		level = slog.LevelDebug
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	handler, err := kmsg.New(level)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(handler)
}

// planDevice is the YAML shape of one device in --inspect output.
type planDevice struct {
	Name                string          `yaml:"name"`
	Role                string          `yaml:"role"`
	SizeExpression      string          `yaml:"zram-size,omitempty"`
	DiskSizeBytes       uint64          `yaml:"disksize-bytes"`
	MemLimitBytes       uint64          `yaml:"mem-limit-bytes,omitempty"`
	Algorithms          []planAlgorithm `yaml:"compression-algorithms,omitempty"`
	RecompressionParams string          `yaml:"recompression-params,omitempty"`
	WritebackDevice     string          `yaml:"writeback-device,omitempty"`
	MountPoint          string          `yaml:"mount-point,omitempty"`
	FSType              string          `yaml:"fs-type"`
	Options             string          `yaml:"options,omitempty"`
	SwapPriority        int             `yaml:"swap-priority"`
}

type planAlgorithm struct {
	Name   string `yaml:"name"`
	Params string `yaml:"params,omitempty"`
}

func planFromDevice(device *config.Device) planDevice {
	plan := planDevice{
		Name:                device.Name,
		Role:                "filesystem",
		DiskSizeBytes:       device.DiskSizeBytes,
		MemLimitBytes:       device.MemLimitBytes,
		RecompressionParams: device.RecompressionParams,
		WritebackDevice:     device.WritebackDevice,
		MountPoint:          device.MountPoint,
		FSType:              device.EffectiveFSType(),
		Options:             device.Options,
		SwapPriority:        device.SwapPriority,
	}
	switch {
	case device.IsSwap():
		plan.Role = "swap"
	case device.MountPoint != "":
		plan.Role = "mount"
	}
	if device.SizeExpr != nil {
		plan.SizeExpression = device.SizeExpr.String()
	}
	for _, algorithm := range device.Algorithms {
		plan.Algorithms = append(plan.Algorithms, planAlgorithm{
			Name:   algorithm.Name,
			Params: algorithm.Params,
		})
	}
	return plan
}

func inspectMode(w io.Writer, devices []*config.Device) error {
	plans := make([]planDevice, 0, len(devices))
	for _, device := range devices {
		plans = append(plans, planFromDevice(device))
	}
	data, err := yaml.Marshal(plans)
	if err != nil {
		return fmt.Errorf("encode device plan: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `zram-generator - set up compressed-RAM devices from configuration

USAGE
    zram-generator NORMAL-DIR [EARLY-DIR LATE-DIR]
    zram-generator --setup-device <device>
    zram-generator --inspect

Run by systemd as a generator, the first form resolves
zram-generator.conf and its drop-ins and writes swap or mount units
into NORMAL-DIR; the other two directories are part of the generator
protocol and ignored. The generated units re-invoke this binary with
--setup-device to configure each /sys/block device and write its
signature.

FLAGS
%s
ENVIRONMENT
    ZRAM_GENERATOR_ROOT   treat this directory as the filesystem root
                          and skip the container check (for tests)
    ZRAM_GENERATOR_DEBUG  enable debug logging
`, flagSet.FlagUsages())
}
