// Package drivertest provides a scriptable in-memory driver.Driver for tests.
//
// FakeDriver behaves like a well-mannered Sweep: it accepts a configurable
// set of ports, keeps motor and scanning state per device, and hands out
// scripted scans. Every native object it returns is tracked so tests can
// assert that nothing leaked and that no reference was used after release.
package drivertest

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/banshee-data/sweep/driver"
)

// Op names a native entry point that can report an error.
type Op string

const (
	OpConstruct     Op = "construct"
	OpStartScanning Op = "start_scanning"
	OpStopScanning  Op = "stop_scanning"
	OpSetMotorSpeed Op = "set_motor_speed"
	OpMotorSpeed    Op = "motor_speed"
	OpSampleRate    Op = "sample_rate"
	OpMotorReady    Op = "motor_ready"
	OpScan          Op = "scan"
)

// Point is one scripted sample.
type Point struct {
	Angle          int32
	Distance       int32
	SignalStrength int32
}

// Scan is one scripted sweep. Count, when non-nil, replaces the sample count
// reported to the caller.
type Scan struct {
	Points []Point
	Count  *int32
}

// Count returns a pointer to n, for Scan.Count.
func Count(n int32) *int32 { return &n }

// MaxMotorSpeed is the highest speed in Hz the fake accepts.
const MaxMotorSpeed = 10

type fakeDevice struct {
	port       string
	motorHz    int32
	sampleRate int32
	scanning   bool
	readyPolls int
}

type fakeScan struct {
	points []Point
	count  int32
}

type fakeError struct {
	op  Op
	msg string
	seq int
}

// FakeDriver implements driver.Driver for testing.
type FakeDriver struct {
	mu sync.Mutex

	// RawVersion is returned by Version.
	RawVersion int32

	// ABICompatible is returned by IsABICompatible.
	ABICompatible bool

	// Ports lists the ports DeviceConstruct accepts. Empty accepts any port.
	Ports []string

	// Failures makes every call of an operation fail with the given message.
	Failures map[Op]string

	// UnreadableErrors makes ErrorMessage report an unreadable message.
	UnreadableErrors bool

	// InitialMotorSpeed is the motor speed of new devices, in Hz.
	InitialMotorSpeed int32

	// SampleRateHz is reported by every device.
	SampleRateHz int32

	// ReadyAfter is the number of MotorReady polls that report false before
	// the motor is reported ready.
	ReadyAfter int

	// Scans is the queue of sweeps returned by successive Scan calls.
	Scans []Scan

	// Calls records the number of calls per operation.
	Calls map[Op]int

	// Misuse records every call made with a released, unknown or nil
	// reference, and every error message read after another native call.
	Misuse []string

	seq     int
	devices map[unsafe.Pointer]*fakeDevice
	scans   map[unsafe.Pointer]*fakeScan
	errs    map[unsafe.Pointer]*fakeError

	// Destructed counts Destruct calls per kind of object.
	DevicesDestructed int
	ScansDestructed   int
	ErrorsDestructed  int
}

// NewFakeDriver creates a FakeDriver reporting version 1.0 with a compatible
// ABI, a 5 Hz motor and a 500 Hz sample rate.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		RawVersion:        0x00010000,
		ABICompatible:     true,
		InitialMotorSpeed: 5,
		SampleRateHz:      500,
		Failures:          make(map[Op]string),
		Calls:             make(map[Op]int),
		devices:           make(map[unsafe.Pointer]*fakeDevice),
		scans:             make(map[unsafe.Pointer]*fakeScan),
		errs:              make(map[unsafe.Pointer]*fakeError),
	}
}

// Fail makes every subsequent call of op fail with msg.
func (f *FakeDriver) Fail(op Op, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Failures[op] = msg
}

// Recover clears an injected failure.
func (f *FakeDriver) Recover(op Op) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Failures, op)
}

// QueueScan appends a sweep built from points to the scan queue.
func (f *FakeDriver) QueueScan(points ...Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scans = append(f.Scans, Scan{Points: points})
}

// Live returns the number of devices, scans and errors not yet destructed.
func (f *FakeDriver) Live() (devices, scans, errs int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.devices), len(f.scans), len(f.errs)
}

// MisuseReport returns a copy of the recorded misuse.
func (f *FakeDriver) MisuseReport() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Misuse...)
}

// CallCount returns how often op was called.
func (f *FakeDriver) CallCount(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *FakeDriver) begin(op Op) {
	f.seq++
	if op != "" {
		f.Calls[op]++
	}
}

func (f *FakeDriver) misuse(format string, args ...interface{}) {
	f.Misuse = append(f.Misuse, fmt.Sprintf(format, args...))
}

// raise stores a new error object in errOut. It reports whether an error was
// raised.
func (f *FakeDriver) raise(op Op, msg string, errOut *driver.ErrorRef) bool {
	if errOut == nil {
		f.misuse("%s: nil error slot", op)
		return true
	}
	if *errOut != nil {
		f.misuse("%s: error slot not reset before call", op)
	}
	e := &fakeError{op: op, msg: msg, seq: f.seq}
	f.errs[unsafe.Pointer(e)] = e
	*errOut = driver.ErrorRef(unsafe.Pointer(e))
	return true
}

// injected raises the configured failure for op, if any.
func (f *FakeDriver) injected(op Op, errOut *driver.ErrorRef) bool {
	msg, ok := f.Failures[op]
	if !ok {
		return false
	}
	return f.raise(op, msg, errOut)
}

func (f *FakeDriver) device(op Op, ref driver.DeviceRef) *fakeDevice {
	d, ok := f.devices[unsafe.Pointer(ref)]
	if !ok {
		f.misuse("%s: unknown or released device %p", op, unsafe.Pointer(ref))
		return nil
	}
	return d
}

func (f *FakeDriver) scan(name string, ref driver.ScanRef) *fakeScan {
	s, ok := f.scans[unsafe.Pointer(ref)]
	if !ok {
		f.misuse("%s: unknown or released scan %p", name, unsafe.Pointer(ref))
		return nil
	}
	return s
}

func (f *FakeDriver) Version() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RawVersion
}

func (f *FakeDriver) IsABICompatible() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ABICompatible
}

func (f *FakeDriver) ErrorMessage(ref driver.ErrorRef) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.errs[unsafe.Pointer(ref)]
	if !ok {
		f.misuse("error_message: unknown or released error %p", unsafe.Pointer(ref))
		return "", false
	}
	if e.seq != f.seq {
		f.misuse("error_message: %s error read after further native calls", e.op)
	}
	if f.UnreadableErrors {
		return "", false
	}
	return e.msg, true
}

func (f *FakeDriver) ErrorDestruct(ref driver.ErrorRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin("")
	if _, ok := f.errs[unsafe.Pointer(ref)]; !ok {
		f.misuse("error_destruct: unknown or released error %p", unsafe.Pointer(ref))
		return
	}
	delete(f.errs, unsafe.Pointer(ref))
	f.ErrorsDestructed++
}

func (f *FakeDriver) DeviceConstruct(port string, errOut *driver.ErrorRef) driver.DeviceRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin(OpConstruct)
	if f.injected(OpConstruct, errOut) {
		return nil
	}
	if len(f.Ports) > 0 {
		known := false
		for _, p := range f.Ports {
			if p == port {
				known = true
				break
			}
		}
		if !known {
			f.raise(OpConstruct, fmt.Sprintf("unable to open serial port %s", port), errOut)
			return nil
		}
	}
	d := &fakeDevice{port: port, motorHz: f.InitialMotorSpeed, sampleRate: f.SampleRateHz}
	f.devices[unsafe.Pointer(d)] = d
	return driver.DeviceRef(unsafe.Pointer(d))
}

func (f *FakeDriver) DeviceDestruct(ref driver.DeviceRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin("")
	if f.device("device_destruct", ref) == nil {
		return
	}
	delete(f.devices, unsafe.Pointer(ref))
	f.DevicesDestructed++
}

func (f *FakeDriver) StartScanning(ref driver.DeviceRef, errOut *driver.ErrorRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin(OpStartScanning)
	d := f.device(OpStartScanning, ref)
	if d == nil || f.injected(OpStartScanning, errOut) {
		return
	}
	if d.scanning {
		f.raise(OpStartScanning, "device is already scanning", errOut)
		return
	}
	d.scanning = true
}

func (f *FakeDriver) StopScanning(ref driver.DeviceRef, errOut *driver.ErrorRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin(OpStopScanning)
	d := f.device(OpStopScanning, ref)
	if d == nil || f.injected(OpStopScanning, errOut) {
		return
	}
	d.scanning = false
}

func (f *FakeDriver) SetMotorSpeed(ref driver.DeviceRef, hz int32, errOut *driver.ErrorRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin(OpSetMotorSpeed)
	d := f.device(OpSetMotorSpeed, ref)
	if d == nil || f.injected(OpSetMotorSpeed, errOut) {
		return
	}
	if hz < 0 || hz > MaxMotorSpeed {
		f.raise(OpSetMotorSpeed, fmt.Sprintf("invalid motor speed %d Hz", hz), errOut)
		return
	}
	if d.scanning {
		f.raise(OpSetMotorSpeed, "cannot adjust motor speed while scanning", errOut)
		return
	}
	d.motorHz = hz
}

func (f *FakeDriver) MotorSpeed(ref driver.DeviceRef, errOut *driver.ErrorRef) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin(OpMotorSpeed)
	d := f.device(OpMotorSpeed, ref)
	if d == nil || f.injected(OpMotorSpeed, errOut) {
		return 0
	}
	return d.motorHz
}

func (f *FakeDriver) SampleRate(ref driver.DeviceRef, errOut *driver.ErrorRef) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin(OpSampleRate)
	d := f.device(OpSampleRate, ref)
	if d == nil || f.injected(OpSampleRate, errOut) {
		return 0
	}
	return d.sampleRate
}

func (f *FakeDriver) MotorReady(ref driver.DeviceRef, errOut *driver.ErrorRef) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin(OpMotorReady)
	d := f.device(OpMotorReady, ref)
	if d == nil || f.injected(OpMotorReady, errOut) {
		return false
	}
	d.readyPolls++
	return d.readyPolls > f.ReadyAfter
}

func (f *FakeDriver) Scan(ref driver.DeviceRef, errOut *driver.ErrorRef) driver.ScanRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin(OpScan)
	d := f.device(OpScan, ref)
	if d == nil || f.injected(OpScan, errOut) {
		return nil
	}
	if !d.scanning {
		f.raise(OpScan, "device is not scanning", errOut)
		return nil
	}
	if len(f.Scans) == 0 {
		f.raise(OpScan, "no scan available", errOut)
		return nil
	}
	next := f.Scans[0]
	f.Scans = f.Scans[1:]

	s := &fakeScan{points: next.Points, count: int32(len(next.Points))}
	if next.Count != nil {
		s.count = *next.Count
	}
	f.scans[unsafe.Pointer(s)] = s
	return driver.ScanRef(unsafe.Pointer(s))
}

func (f *FakeDriver) ScanDestruct(ref driver.ScanRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin("")
	if f.scan("scan_destruct", ref) == nil {
		return
	}
	delete(f.scans, unsafe.Pointer(ref))
	f.ScansDestructed++
}

func (f *FakeDriver) ScanSampleCount(ref driver.ScanRef) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin("")
	s := f.scan("scan_sample_count", ref)
	if s == nil {
		return 0
	}
	return s.count
}

// point returns the sample at index i, recording out-of-range reads.
func (f *FakeDriver) point(name string, ref driver.ScanRef, i int32) Point {
	f.begin("")
	s := f.scan(name, ref)
	if s == nil {
		return Point{}
	}
	if i < 0 || int(i) >= len(s.points) {
		f.misuse("%s: sample %d out of range", name, i)
		return Point{}
	}
	return s.points[i]
}

func (f *FakeDriver) ScanAngle(ref driver.ScanRef, i int32) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.point("scan_angle", ref, i).Angle
}

func (f *FakeDriver) ScanDistance(ref driver.ScanRef, i int32) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.point("scan_distance", ref, i).Distance
}

func (f *FakeDriver) ScanSignalStrength(ref driver.ScanRef, i int32) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.point("scan_signal_strength", ref, i).SignalStrength
}

var _ driver.Driver = (*FakeDriver)(nil)
