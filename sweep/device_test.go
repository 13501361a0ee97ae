package sweep

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sweep/driver"
	"github.com/banshee-data/sweep/driver/drivertest"
	"github.com/banshee-data/sweep/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

// requireClean fails the test if the fake saw any misuse or still holds
// native objects.
func requireClean(t *testing.T, f *drivertest.FakeDriver) {
	t.Helper()
	require.Empty(t, f.MisuseReport())
	devices, scans, errs := f.Live()
	require.Zero(t, devices, "live devices")
	require.Zero(t, scans, "live scans")
	require.Zero(t, errs, "live errors")
}

func openDevice(t *testing.T, f *drivertest.FakeDriver) *Device {
	t.Helper()
	dev, err := Open(f, "/dev/ttyUSB0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

func TestOpenStartStop(t *testing.T) {
	ports := []string{"/dev/ttyUSB0", "/dev/tty.usbserial-DM00KC6Z", "COM3"}

	for _, port := range ports {
		t.Run(port, func(t *testing.T) {
			f := drivertest.NewFakeDriver()
			f.Ports = ports

			dev, err := Open(f, port)
			require.NoError(t, err)
			assert.Equal(t, port, dev.Port())
			assert.NotEmpty(t, dev.ID())

			require.NoError(t, dev.StartScanning())
			require.NoError(t, dev.StopScanning())
			require.NoError(t, dev.Close())

			assert.Equal(t, 1, f.DevicesDestructed)
			requireClean(t, f)
		})
	}
}

func TestOpen_SessionIDsAreUnique(t *testing.T) {
	f := drivertest.NewFakeDriver()
	a := openDevice(t, f)
	b := openDevice(t, f)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestOpen_InvalidPort(t *testing.T) {
	for name, port := range map[string]string{
		"empty":    "",
		"nul byte": "/dev/tty\x00USB0",
	} {
		t.Run(name, func(t *testing.T) {
			f := drivertest.NewFakeDriver()

			dev, err := Open(f, port)
			require.Error(t, err)
			assert.Nil(t, dev)
			assert.ErrorIs(t, err, ErrInvalidPort)
			assert.ErrorIs(t, err, ErrConstruction)
			assert.Zero(t, f.CallCount(drivertest.OpConstruct), "driver must not be called")
			requireClean(t, f)
		})
	}
}

func TestOpen_NoDriver(t *testing.T) {
	_, err := Open(nil, "/dev/ttyUSB0")
	assert.ErrorIs(t, err, ErrNoDriver)
}

func TestOpen_DriverRejectsPort(t *testing.T) {
	f := drivertest.NewFakeDriver()
	f.Ports = []string{"/dev/ttyUSB0"}

	dev, err := Open(f, "/dev/ttyUSB9")
	require.Error(t, err)
	assert.Nil(t, dev)
	assert.ErrorIs(t, err, ErrConstruction)
	assert.NotErrorIs(t, err, ErrUnreadable)
	assert.Contains(t, err.Error(), "unable to open serial port /dev/ttyUSB9")
	requireClean(t, f)
}

func TestOpen_UnreadableConstructionError(t *testing.T) {
	f := drivertest.NewFakeDriver()
	f.UnreadableErrors = true
	f.Fail(drivertest.OpConstruct, "permission denied")

	_, err := Open(f, "/dev/ttyUSB0")
	assert.ErrorIs(t, err, ErrConstruction)
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.EqualError(t, err, "sweep: construct failed: "+UnknownErrorMessage)
	requireClean(t, f)
}

// halfConstructed returns a device and an error from the same call.
type halfConstructed struct {
	*drivertest.FakeDriver
}

func (h halfConstructed) DeviceConstruct(port string, errOut *driver.ErrorRef) driver.DeviceRef {
	ref := h.FakeDriver.DeviceConstruct(port, errOut)
	h.Fail(drivertest.OpConstruct, "motor stalled during handshake")
	defer h.Recover(drivertest.OpConstruct)
	h.FakeDriver.DeviceConstruct(port, errOut)
	return ref
}

func TestOpen_FailureReleasesPartialDevice(t *testing.T) {
	f := drivertest.NewFakeDriver()

	_, err := Open(halfConstructed{f}, "/dev/ttyUSB0")
	require.ErrorIs(t, err, ErrConstruction)
	assert.Contains(t, err.Error(), "motor stalled during handshake")
	assert.Equal(t, 1, f.DevicesDestructed)
	requireClean(t, f)
}

type nilDevice struct {
	*drivertest.FakeDriver
}

func (nilDevice) DeviceConstruct(string, *driver.ErrorRef) driver.DeviceRef { return nil }

func TestOpen_NilDeviceWithoutError(t *testing.T) {
	_, err := Open(nilDevice{drivertest.NewFakeDriver()}, "/dev/ttyUSB0")
	require.ErrorIs(t, err, ErrConstruction)
	assert.Contains(t, err.Error(), "driver returned no device")
}

func TestStartScanning_TwiceSurfacesDriverError(t *testing.T) {
	f := drivertest.NewFakeDriver()
	dev := openDevice(t, f)

	require.NoError(t, dev.StartScanning())
	err := dev.StartScanning()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommand)
	assert.EqualError(t, err, "sweep: start_scanning failed: device is already scanning")

	require.NoError(t, dev.StopScanning())
	require.NoError(t, dev.Close())
	requireClean(t, f)
}

func TestStopScanning_Failure(t *testing.T) {
	f := drivertest.NewFakeDriver()
	dev := openDevice(t, f)
	f.Fail(drivertest.OpStopScanning, "timed out waiting for response")

	err := dev.StopScanning()
	assert.ErrorIs(t, err, ErrCommand)
	assert.Contains(t, err.Error(), "timed out waiting for response")
}

func TestSetMotorSpeed_RejectedSecondCallKeepsSpeed(t *testing.T) {
	f := drivertest.NewFakeDriver()
	dev := openDevice(t, f)

	require.NoError(t, dev.SetMotorSpeed(3))
	err := dev.SetMotorSpeed(42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommand)

	hz, err := dev.MotorSpeed()
	require.NoError(t, err)
	assert.Equal(t, int32(3), hz)

	require.NoError(t, dev.SetMotorSpeed(7))
	hz, err = dev.MotorSpeed()
	require.NoError(t, err)
	assert.Equal(t, int32(7), hz)

	require.NoError(t, dev.Close())
	requireClean(t, f)
}

func TestSetMotorSpeed_RejectedWhileScanning(t *testing.T) {
	f := drivertest.NewFakeDriver()
	dev := openDevice(t, f)

	require.NoError(t, dev.StartScanning())
	err := dev.SetMotorSpeed(2)
	assert.EqualError(t, err, "sweep: set_motor_speed failed: cannot adjust motor speed while scanning")

	hz, err := dev.MotorSpeed()
	require.NoError(t, err)
	assert.Equal(t, f.InitialMotorSpeed, hz)
}

func TestQueries(t *testing.T) {
	f := drivertest.NewFakeDriver()
	f.SampleRateHz = 1000
	f.ReadyAfter = 2
	dev := openDevice(t, f)

	rate, err := dev.SampleRate()
	require.NoError(t, err)
	assert.Equal(t, int32(1000), rate)

	for i, want := range []bool{false, false, true, true} {
		ready, err := dev.MotorReady()
		require.NoError(t, err)
		assert.Equal(t, want, ready, "poll %d", i)
	}
}

func TestQueries_Failures(t *testing.T) {
	f := drivertest.NewFakeDriver()
	dev := openDevice(t, f)
	f.Fail(drivertest.OpMotorSpeed, "checksum mismatch")
	f.Fail(drivertest.OpSampleRate, "checksum mismatch")
	f.Fail(drivertest.OpMotorReady, "checksum mismatch")

	hz, err := dev.MotorSpeed()
	assert.Zero(t, hz)
	assert.ErrorIs(t, err, ErrCommand)

	rate, err := dev.SampleRate()
	assert.Zero(t, rate)
	assert.ErrorIs(t, err, ErrCommand)

	ready, err := dev.MotorReady()
	assert.False(t, ready)
	assert.ErrorIs(t, err, ErrCommand)

	require.NoError(t, dev.Close())
	requireClean(t, f)
}

func TestClosedDevice(t *testing.T) {
	f := drivertest.NewFakeDriver()
	dev, err := Open(f, "/dev/ttyUSB0")
	require.NoError(t, err)

	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())
	assert.Equal(t, 1, f.DevicesDestructed)

	calls := map[string]func() error{
		"start_scanning":  dev.StartScanning,
		"stop_scanning":   dev.StopScanning,
		"set_motor_speed": func() error { return dev.SetMotorSpeed(5) },
		"motor_speed":     func() error { _, err := dev.MotorSpeed(); return err },
		"sample_rate":     func() error { _, err := dev.SampleRate(); return err },
		"motor_ready":     func() error { _, err := dev.MotorReady(); return err },
		"scan":            func() error { _, err := dev.Scan(); return err },
	}
	for op, call := range calls {
		t.Run(op, func(t *testing.T) {
			err := call()
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, err, ErrCommand)
			assert.Contains(t, err.Error(), op)
		})
	}

	for _, op := range []drivertest.Op{
		drivertest.OpStartScanning, drivertest.OpStopScanning, drivertest.OpSetMotorSpeed,
		drivertest.OpMotorSpeed, drivertest.OpSampleRate, drivertest.OpMotorReady, drivertest.OpScan,
	} {
		assert.Zero(t, f.CallCount(op), "%s reached the driver after Close", op)
	}
	requireClean(t, f)
}

func TestUnclosedDeviceIsReleased(t *testing.T) {
	f := drivertest.NewFakeDriver()

	func() {
		_, err := Open(f, "/dev/ttyUSB0")
		require.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		devices, _, _ := f.Live()
		return devices == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, f.MisuseReport())
}
