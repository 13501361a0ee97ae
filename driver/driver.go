// Package driver describes the boundary with the native Sweep LIDAR driver.
//
// The Driver interface mirrors the C entry points of libsweep one to one. It
// deliberately keeps the C calling convention: every call that can fail takes
// an error out-slot which the driver leaves nil on success and sets to an
// opaque error object on failure. Translating that convention into Go errors
// is the job of package sweep, not of implementations of this interface.
//
// # References
//
// Native objects are carried as opaque references (DeviceRef, ScanRef,
// ErrorRef). A nil reference means "no object". References are owned by the
// caller that received them and must be handed back to the matching Destruct
// entry point exactly once.
//
// # Threading
//
// The native driver documents no thread safety. A Driver and the references it
// returns must not be used from several goroutines at once without external
// synchronisation.
package driver

import "unsafe"

// DeviceRef is an opaque reference to a native device object.
type DeviceRef unsafe.Pointer

// ScanRef is an opaque reference to a driver-owned scan buffer.
type ScanRef unsafe.Pointer

// ErrorRef is an opaque reference to a native error object. It is only ever
// non-nil after a failing call.
type ErrorRef unsafe.Pointer

// Driver is the set of native entry points the façade consumes.
type Driver interface {
	// Version returns the packed driver version (major in the high 16 bits).
	Version() int32
	// IsABICompatible reports whether the linked driver matches the headers
	// the binding was compiled against.
	IsABICompatible() bool

	// ErrorMessage returns the message carried by err. ok is false when the
	// driver could not produce a readable message.
	ErrorMessage(err ErrorRef) (msg string, ok bool)
	// ErrorDestruct releases an error object.
	ErrorDestruct(err ErrorRef)

	// DeviceConstruct opens the device on the given serial port.
	DeviceConstruct(port string, errOut *ErrorRef) DeviceRef
	// DeviceDestruct releases a device and its serial port.
	DeviceDestruct(dev DeviceRef)
	StartScanning(dev DeviceRef, errOut *ErrorRef)
	StopScanning(dev DeviceRef, errOut *ErrorRef)
	// SetMotorSpeed blocks until the motor is ready to accept a new speed,
	// then adjusts it.
	SetMotorSpeed(dev DeviceRef, hz int32, errOut *ErrorRef)
	MotorSpeed(dev DeviceRef, errOut *ErrorRef) int32
	SampleRate(dev DeviceRef, errOut *ErrorRef) int32
	MotorReady(dev DeviceRef, errOut *ErrorRef) bool

	// Scan blocks until one full sweep is available.
	Scan(dev DeviceRef, errOut *ErrorRef) ScanRef
	// ScanDestruct releases a scan buffer.
	ScanDestruct(scan ScanRef)
	ScanSampleCount(scan ScanRef) int32
	ScanAngle(scan ScanRef, sample int32) int32
	ScanDistance(scan ScanRef, sample int32) int32
	ScanSignalStrength(scan ScanRef, sample int32) int32
}
