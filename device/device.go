// Package device describes the contract a smart-port peripheral driver
// must satisfy to share the kernel's port-mutex discipline — it is
// deliberately contract-only (spec.md §6 Non-goals exclude modeling any
// concrete peripheral), grounded on original_source's vdml.h: every V5
// smart port is claimed through a per-port mutex before a driver call
// touches it, and released unconditionally afterward.
package device

import (
	"context"
	"errors"

	"github.com/purduesigbots/pros-sub000/kernel"
)

// ErrNoDevice reports that no driver is registered on a port.
var ErrNoDevice = errors.New("device: no device registered on port")

// ErrPortMismatch reports that a port is registered, but not as the
// type the caller expected.
var ErrPortMismatch = errors.New("device: port registered as a different device type")

// Type identifies the kind of peripheral bound to a port. The original
// enumerates dozens of concrete device types (vdml_device_e_t); this
// kernel models only the distinction user code actually branches on.
type Type uint8

const (
	TypeNone Type = iota
	TypeMotor
	TypeSensor
	TypeGeneric
)

// Port is a single addressable smart-port index, matching original_source's
// VALIDATE_PORT_NO range convention.
type Port int

// Bus is the contract a device driver registry implements: claim a port
// under its mutex, run the operation, release. Every concrete driver
// (none are implemented here — see spec.md §6 Non-goals) is expected to
// wrap its port-specific calls in Claim/Release exactly like
// original_source's claim_port macro does.
type Bus interface {
	// Claim blocks until the port's mutex is free, then returns its
	// registered Type. ctx is not watched while waiting: it is checked
	// once the mutex is taken, and if it is already done Claim releases
	// the mutex and returns ctx.Err(). Returns ErrNoDevice if nothing is
	// registered on port, or kernel.ErrStillCalibrating if the port is
	// currently marked as calibrating via SetCalibrating — the original's
	// pattern of failing a claim immediately rather than blocking on a
	// sensor that is mid-calibration.
	Claim(ctx context.Context, port Port) (Type, error)

	// Release gives back a port claimed via Claim. Calling it without a
	// matching Claim is a programming error.
	Release(port Port)

	// Register binds a device Type to port; it replaces any previous
	// binding, matching the original's auto-registration-on-first-use
	// semantics when called lazily by a driver.
	Register(port Port, t Type) error

	// SetCalibrating marks port as mid-calibration (or clears the mark).
	// A driver's calibration routine sets it before starting and clears
	// it once the sensor settles; Claim rejects other callers in the
	// meantime with kernel.ErrStillCalibrating instead of queueing behind
	// the port mutex for an indeterminate calibration duration.
	SetCalibrating(port Port, calibrating bool) error
}

// ErrStillCalibrating is returned by Claim for a port marked calibrating.
// It is an alias of kernel.ErrStillCalibrating, which spec.md §6 frames
// as a device-layer condition surfaced through the kernel's own error
// taxonomy rather than a second, device-local sentinel.
var ErrStillCalibrating = kernel.ErrStillCalibrating
