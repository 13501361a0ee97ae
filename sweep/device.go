package sweep

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/sweep/driver"
	"github.com/banshee-data/sweep/internal/monitoring"
)

const (
	opConstruct     = "construct"
	opStartScanning = "start_scanning"
	opStopScanning  = "stop_scanning"
	opSetMotorSpeed = "set_motor_speed"
	opMotorSpeed    = "motor_speed"
	opSampleRate    = "sample_rate"
	opMotorReady    = "motor_ready"
	opScan          = "scan"
)

// Device is one open Sweep on one serial port.
//
// A Device must not be used from several goroutines at once; the native
// driver's thread safety is undocumented and the Device holds no lock. Close
// releases the native device. A Device that becomes unreachable without being
// closed is released by the garbage collector, and the leak is logged.
type Device struct {
	drv     driver.Driver
	ref     driver.DeviceRef
	port    string
	id      string
	cleanup runtime.Cleanup
}

// deviceRelease is everything the cleanup needs to release a leaked device.
// It must not reference the Device itself.
type deviceRelease struct {
	drv  driver.Driver
	ref  driver.DeviceRef
	id   string
	port string
}

func invalidPort(msg string) error {
	return &Error{Op: opConstruct, Kind: KindConstruction, Message: msg, Err: ErrInvalidPort}
}

func releaseLeaked(r deviceRelease) {
	monitoring.Sessionf(r.id, r.port, "device was never closed, releasing it")
	r.drv.DeviceDestruct(r.ref)
}

// Open constructs a device on the given serial port, e.g. "/dev/ttyUSB0" or
// "COM3". On failure nothing is left allocated in the driver.
//
// Open does not check ABI compatibility; call IsABICompatible first when the
// linked driver version is not pinned.
func Open(drv driver.Driver, port string) (*Device, error) {
	if drv == nil {
		return nil, ErrNoDriver
	}
	if port == "" {
		return nil, invalidPort("port name is empty")
	}
	if strings.IndexByte(port, 0) >= 0 {
		return nil, invalidPort(fmt.Sprintf("port name %q contains a NUL byte", port))
	}

	var slot driver.ErrorRef
	ref := drv.DeviceConstruct(port, &slot)
	if err := checkSlot(drv, opConstruct, KindConstruction, slot); err != nil {
		if ref != nil {
			drv.DeviceDestruct(ref)
		}
		return nil, err
	}
	if ref == nil {
		return nil, &Error{Op: opConstruct, Kind: KindConstruction, Message: "driver returned no device"}
	}

	d := &Device{drv: drv, ref: ref, port: port, id: uuid.NewString()}
	d.cleanup = runtime.AddCleanup(d, releaseLeaked, deviceRelease{drv: drv, ref: ref, id: d.id, port: port})
	monitoring.Sessionf(d.id, port, "opened")
	return d, nil
}

// ID returns the session identifier used to tag this device's log lines.
func (d *Device) ID() string { return d.id }

// Port returns the serial port the device was opened on.
func (d *Device) Port() string { return d.port }

// Close releases the native device and its serial port. It does not stop
// scanning; call StopScanning first. Close is safe to call more than once.
func (d *Device) Close() error {
	if d.ref == nil {
		return nil
	}
	d.cleanup.Stop()
	ref := d.ref
	d.ref = nil
	d.drv.DeviceDestruct(ref)
	monitoring.Sessionf(d.id, d.port, "closed")
	return nil
}

func closedError(op string) error {
	return &Error{Op: op, Kind: KindCommand, Message: "device is closed", Err: ErrClosed}
}

// command runs a native call that returns nothing but an error slot.
func (d *Device) command(op string, call func(driver.DeviceRef, *driver.ErrorRef)) error {
	if d.ref == nil {
		return closedError(op)
	}
	defer runtime.KeepAlive(d)

	var slot driver.ErrorRef
	call(d.ref, &slot)
	return checkSlot(d.drv, op, KindCommand, slot)
}

// query runs a native call that returns a value alongside its error slot.
func query[T any](d *Device, op string, call func(driver.DeviceRef, *driver.ErrorRef) T) (T, error) {
	var zero T
	if d.ref == nil {
		return zero, closedError(op)
	}
	defer runtime.KeepAlive(d)

	var slot driver.ErrorRef
	v := call(d.ref, &slot)
	if err := checkSlot(d.drv, op, KindCommand, slot); err != nil {
		return zero, err
	}
	return v, nil
}

// StartScanning starts the device streaming sweeps. Starting a device that is
// already scanning may be rejected by the driver.
func (d *Device) StartScanning() error {
	return d.command(opStartScanning, d.drv.StartScanning)
}

// StopScanning stops the device streaming sweeps.
func (d *Device) StopScanning() error {
	return d.command(opStopScanning, d.drv.StopScanning)
}

// SetMotorSpeed sets the rotation speed in Hz.
//
// It blocks until the motor is ready to accept a speed change, which can take
// several seconds, and it cannot be cancelled. Callers that must stay
// responsive should run it on its own goroutine and keep every other call on
// this Device off until it returns.
func (d *Device) SetMotorSpeed(hz int32) error {
	return d.command(opSetMotorSpeed, func(ref driver.DeviceRef, slot *driver.ErrorRef) {
		d.drv.SetMotorSpeed(ref, hz, slot)
	})
}

// MotorSpeed returns the current rotation speed in Hz.
func (d *Device) MotorSpeed() (int32, error) {
	return query(d, opMotorSpeed, d.drv.MotorSpeed)
}

// SampleRate returns the current sample rate in Hz.
func (d *Device) SampleRate() (int32, error) {
	return query(d, opSampleRate, d.drv.SampleRate)
}

// MotorReady reports whether the motor has stabilised enough to accept a
// speed change.
func (d *Device) MotorReady() (bool, error) {
	return query(d, opMotorReady, d.drv.MotorReady)
}
