package sweep

import (
	"runtime"

	"github.com/banshee-data/sweep/driver"
)

// Sample is one reading of a sweep. Units are the driver's own: the Sweep
// firmware reports angle in milli-degrees and distance in centimetres, but
// nothing here converts or relies on that.
type Sample struct {
	Angle          int32 `json:"angle"`
	Distance       int32 `json:"distance"`
	SignalStrength int32 `json:"signal_strength"`
}

// Scan blocks until the device delivers one full sweep and returns its
// samples in the order the device reported them, which is its angular sweep
// order. The returned slice shares no memory with the driver. A sweep with no
// samples yields an empty slice and no error.
//
// The device must be scanning; see StartScanning.
func (d *Device) Scan() ([]Sample, error) {
	if d.ref == nil {
		return nil, closedError(opScan)
	}
	defer runtime.KeepAlive(d)
	return extractScan(d.drv, d.ref)
}

// extractScan requests one scan and copies every sample out of the driver's
// buffer before releasing it.
func extractScan(drv driver.Driver, dev driver.DeviceRef) ([]Sample, error) {
	var slot driver.ErrorRef
	scan := drv.Scan(dev, &slot)
	if err := checkSlot(drv, opScan, KindCommand, slot); err != nil {
		return nil, err
	}
	if scan == nil {
		return nil, &Error{Op: opScan, Kind: KindCommand, Message: "driver returned no scan"}
	}
	defer drv.ScanDestruct(scan)

	n := drv.ScanSampleCount(scan)
	if n <= 0 {
		return []Sample{}, nil
	}
	samples := make([]Sample, 0, n)
	for i := int32(0); i < n; i++ {
		samples = append(samples, Sample{
			Angle:          drv.ScanAngle(scan, i),
			Distance:       drv.ScanDistance(scan, i),
			SignalStrength: drv.ScanSignalStrength(scan, i),
		})
	}
	return samples, nil
}
