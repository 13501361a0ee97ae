//go:build libsweep && cgo
// +build libsweep,cgo

package libsweep

/*
#cgo LDFLAGS: -lsweep
#include <stdlib.h>
#include <sweep/sweep.h>
*/
import "C"

import (
	"unsafe"

	"github.com/banshee-data/sweep/driver"
)

// Enabled reports whether this build links the native driver.
const Enabled = true

// Native calls straight into libsweep. It holds no state.
type Native struct{}

// Open returns the cgo-backed driver.
// This function is only available when building with the 'libsweep' build tag.
func Open() (driver.Driver, error) {
	return Native{}, nil
}

func cdev(d driver.DeviceRef) C.sweep_device_s { return C.sweep_device_s(unsafe.Pointer(d)) }
func cscan(s driver.ScanRef) C.sweep_scan_s    { return C.sweep_scan_s(unsafe.Pointer(s)) }
func cerr(e driver.ErrorRef) C.sweep_error_s   { return C.sweep_error_s(unsafe.Pointer(e)) }

// slot runs call with a fresh native error slot and copies the result into
// errOut.
func slot(errOut *driver.ErrorRef, call func(*C.sweep_error_s)) {
	var e C.sweep_error_s
	call(&e)
	*errOut = driver.ErrorRef(unsafe.Pointer(e))
}

func (Native) Version() int32 { return int32(C.sweep_get_version()) }

func (Native) IsABICompatible() bool { return bool(C.sweep_is_abi_compatible()) }

func (Native) ErrorMessage(err driver.ErrorRef) (string, bool) {
	if err == nil {
		return "", false
	}
	msg := C.sweep_error_message(cerr(err))
	if msg == nil {
		return "", false
	}
	return C.GoString(msg), true
}

func (Native) ErrorDestruct(err driver.ErrorRef) {
	if err == nil {
		return
	}
	C.sweep_error_destruct(cerr(err))
}

func (Native) DeviceConstruct(port string, errOut *driver.ErrorRef) driver.DeviceRef {
	cport := C.CString(port)
	defer C.free(unsafe.Pointer(cport))

	var dev C.sweep_device_s
	slot(errOut, func(e *C.sweep_error_s) {
		dev = C.sweep_device_construct_simple(cport, e)
	})
	return driver.DeviceRef(unsafe.Pointer(dev))
}

func (Native) DeviceDestruct(dev driver.DeviceRef) {
	if dev == nil {
		return
	}
	C.sweep_device_destruct(cdev(dev))
}

func (Native) StartScanning(dev driver.DeviceRef, errOut *driver.ErrorRef) {
	slot(errOut, func(e *C.sweep_error_s) { C.sweep_device_start_scanning(cdev(dev), e) })
}

func (Native) StopScanning(dev driver.DeviceRef, errOut *driver.ErrorRef) {
	slot(errOut, func(e *C.sweep_error_s) { C.sweep_device_stop_scanning(cdev(dev), e) })
}

func (Native) SetMotorSpeed(dev driver.DeviceRef, hz int32, errOut *driver.ErrorRef) {
	slot(errOut, func(e *C.sweep_error_s) { C.sweep_device_set_motor_speed(cdev(dev), C.int32_t(hz), e) })
}

func (Native) MotorSpeed(dev driver.DeviceRef, errOut *driver.ErrorRef) int32 {
	var hz C.int32_t
	slot(errOut, func(e *C.sweep_error_s) { hz = C.sweep_device_get_motor_speed(cdev(dev), e) })
	return int32(hz)
}

func (Native) SampleRate(dev driver.DeviceRef, errOut *driver.ErrorRef) int32 {
	var hz C.int32_t
	slot(errOut, func(e *C.sweep_error_s) { hz = C.sweep_device_get_sample_rate(cdev(dev), e) })
	return int32(hz)
}

func (Native) MotorReady(dev driver.DeviceRef, errOut *driver.ErrorRef) bool {
	var ready C.bool
	slot(errOut, func(e *C.sweep_error_s) { ready = C.sweep_device_get_motor_ready(cdev(dev), e) })
	return bool(ready)
}

func (Native) Scan(dev driver.DeviceRef, errOut *driver.ErrorRef) driver.ScanRef {
	var scan C.sweep_scan_s
	slot(errOut, func(e *C.sweep_error_s) { scan = C.sweep_device_get_scan(cdev(dev), e) })
	return driver.ScanRef(unsafe.Pointer(scan))
}

func (Native) ScanDestruct(scan driver.ScanRef) {
	if scan == nil {
		return
	}
	C.sweep_scan_destruct(cscan(scan))
}

func (Native) ScanSampleCount(scan driver.ScanRef) int32 {
	return int32(C.sweep_scan_get_number_of_samples(cscan(scan)))
}

func (Native) ScanAngle(scan driver.ScanRef, sample int32) int32 {
	return int32(C.sweep_scan_get_angle(cscan(scan), C.int32_t(sample)))
}

func (Native) ScanDistance(scan driver.ScanRef, sample int32) int32 {
	return int32(C.sweep_scan_get_distance(cscan(scan), C.int32_t(sample)))
}

func (Native) ScanSignalStrength(scan driver.ScanRef, sample int32) int32 {
	return int32(C.sweep_scan_get_signal_strength(cscan(scan), C.int32_t(sample)))
}
