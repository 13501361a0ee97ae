// Package sweep is a safe Go interface to the Sweep rotating LIDAR through its
// native driver.
//
// The native driver reports failures through nullable error out-parameters and
// hands out raw pointers to devices and scan buffers. This package turns those
// into ordinary Go values: every failing call returns an *Error carrying the
// driver's message, every scan is copied into an owned []Sample before the
// native buffer is released, and a Device releases its native object on
// Close.
//
// A typical session:
//
//	drv, err := libsweep.Open()
//	if err != nil { ... }
//	if !sweep.IsABICompatible(drv) { ... }
//
//	dev, err := sweep.Open(drv, "/dev/ttyUSB0")
//	if err != nil { ... }
//	defer dev.Close()
//
//	if err := dev.StartScanning(); err != nil { ... }
//	samples, err := dev.Scan()
//	...
//	err = dev.StopScanning()
//
// All calls are synchronous and none can be cancelled. SetMotorSpeed in
// particular can block for seconds while the motor settles. Nothing retries:
// a failure is returned to the caller as reported by the driver.
package sweep
