// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"math"

	"github.com/systemd/zram-generator/lib/expr"
)

// maxWholeMB is the largest whole-megabyte count whose byte size
// still fits in a uint64.
const maxWholeMB = math.MaxUint64 >> 20

var (
	// defaultSize sizes devices with no zram-size key.
	defaultSize = mustCompile("min(ram / 2, 4096)")
	// defaultResidentLimit leaves resident memory uncapped.
	defaultResidentLimit = mustCompile("0")
)

func mustCompile(src string) *expr.Expression {
	e, err := expr.Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// finalize runs the activation test and fills in the device's byte
// sizes. A device whose host-memory-limit is below total memory is
// disabled up front, before any expression is evaluated, so an
// expression that would fail on this machine cannot break a device
// configured not to run on it.
func finalize(c *Context, d *Device, memtotalMB float64, evalCtx *expr.Context) error {
	if d.HostMemoryLimitMB != nil && float64(*d.HostMemoryLimitMB) < memtotalMB {
		c.Log.Info("host memory exceeds the device limit, not activating",
			"device", d.Name,
			"memtotal_mb", memtotalMB,
			"limit_mb", *d.HostMemoryLimitMB)
		d.DiskSizeBytes = 0
		return nil
	}

	if d.Fraction != nil || d.MaxSizeMB != nil {
		d.DiskSizeBytes = legacyDiskSize(d, memtotalMB)
	} else {
		size, err := modernDiskSize(d, evalCtx)
		if err != nil {
			return err
		}
		d.DiskSizeBytes = size
	}

	limit, err := residentLimit(d, evalCtx)
	if err != nil {
		return err
	}
	d.MemLimitBytes = limit
	return nil
}

// legacyDiskSize implements the deprecated zram-fraction and
// max-zram-size sizing. The presence of either key routes the device
// here and the zram-size expression is ignored entirely. The result
// is truncated to whole megabytes, as these fields always were.
func legacyDiskSize(d *Device, memtotalMB float64) uint64 {
	fraction := 0.5
	if d.Fraction != nil {
		fraction = *d.Fraction
	}
	sizeMB := fraction * memtotalMB
	if d.MaxSizeMB != nil && !d.MaxSizeMB.Uncapped {
		sizeMB = math.Min(sizeMB, float64(d.MaxSizeMB.MB))
	}
	if sizeMB > float64(maxWholeMB) {
		return maxWholeMB << 20
	}
	return uint64(sizeMB) << 20
}

func modernDiskSize(d *Device, evalCtx *expr.Context) (uint64, error) {
	e := d.SizeExpr
	if e == nil {
		e = defaultSize
	}
	size, err := e.SizeBytes(evalCtx)
	if err != nil {
		return 0, sizingError(d.sizeSource, d.Name, "zram-size", err)
	}
	return size, nil
}

func residentLimit(d *Device, evalCtx *expr.Context) (uint64, error) {
	e := d.ResidentLimitExpr
	if e == nil {
		e = defaultResidentLimit
	}
	limit, err := e.SizeBytes(evalCtx)
	if err != nil {
		return 0, sizingError(d.residentSource, d.Name, "zram-resident-limit", err)
	}
	return limit, nil
}

// sizingError names the fragment and key whose expression failed,
// long after the fragment itself was parsed.
func sizingError(fragment, section, key string, err error) error {
	if fragment == "" {
		return fmt.Errorf("[%s] %s: %w", section, key, err)
	}
	return fmt.Errorf("%s: [%s] %s: %w", fragment, section, key, err)
}
