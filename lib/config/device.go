// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package config

import (
	"github.com/systemd/zram-generator/lib/expr"
)

// Algorithm is one compression stage: a kernel algorithm name and an
// optional parameter string in the "key=value key=value" form the
// kernel's algorithm_params control file accepts.
type Algorithm struct {
	Name   string
	Params string
}

// SizeCap is the value of the deprecated max-zram-size key: a cap in
// megabytes, or explicitly uncapped via the "none" token.
type SizeCap struct {
	MB       uint64
	Uncapped bool
}

// Device is the resolved configuration of one zram device. Fields
// accumulate across fragments (last writer wins per key); the byte
// sizes are filled in once by the sizing pass at the end of
// resolution.
type Device struct {
	// Name is the device section name, zram<number>, which is also
	// the kernel block device name.
	Name string

	// HostMemoryLimitMB disables the device on machines whose total
	// memory exceeds it. Nil means no limit.
	HostMemoryLimitMB *uint64

	// SizeExpr is the compiled zram-size expression. Nil means the
	// default, min(ram / 2, 4096).
	SizeExpr *expr.Expression

	// ResidentLimitExpr is the compiled zram-resident-limit
	// expression. Nil means no cap.
	ResidentLimitExpr *expr.Expression

	// Fraction and MaxSizeMB are the deprecated sizing fields. When
	// either is set the expression path is ignored entirely and the
	// size is fraction * total memory, capped and truncated to whole
	// megabytes.
	Fraction  *float64
	MaxSizeMB *SizeCap

	// Algorithms lists the compression stages in order: the first is
	// the primary algorithm, the rest are recompression stages at
	// increasing priority.
	Algorithms []Algorithm

	// RecompressionParams is the device-wide recompression parameter
	// string, from a compression-algorithm token with an empty name.
	RecompressionParams string

	// WritebackDevice is an absolute path to a backing block device
	// for writeback, or empty.
	WritebackDevice string

	// SwapPriority is the swap activation priority, -1 to 32767.
	// Default 100.
	SwapPriority int

	// MountPoint, when set, mounts the device there as a filesystem
	// instead of using it as swap.
	MountPoint string

	// FSType overrides the filesystem written onto the device.
	FSType string

	// Options is the mount or swap option string. Default "discard".
	Options string

	// DiskSizeBytes is the finalized device size. Zero means the
	// device is not activated.
	DiskSizeBytes uint64

	// MemLimitBytes is the finalized resident-memory cap. Zero means
	// uncapped.
	MemLimitBytes uint64

	// Fragment paths that supplied the size expressions, so
	// evaluation errors surfaced long after parsing still name their
	// source. Empty for defaults.
	sizeSource     string
	residentSource string
}

// NewDevice returns a device with the documented defaults: swap role
// at priority 100 with the "discard" option, sized by the default
// expression.
func NewDevice(name string) *Device {
	return &Device{
		Name:         name,
		SwapPriority: 100,
		Options:      "discard",
	}
}

// IsSwap reports whether the device is used as swap rather than as a
// mounted filesystem: no mount point, and fs-type absent or "swap".
func (d *Device) IsSwap() bool {
	return d.MountPoint == "" && (d.FSType == "" || d.FSType == "swap")
}

// EffectiveFSType is the filesystem actually written onto the device:
// fs-type if set, otherwise "swap" for swap devices and "ext2" for
// mounted ones.
func (d *Device) EffectiveFSType() string {
	switch {
	case d.FSType != "":
		return d.FSType
	case d.IsSwap():
		return "swap"
	default:
		return "ext2"
	}
}
