package sweep

import (
	"fmt"

	"github.com/banshee-data/sweep/driver"
)

// DriverVersion is the packed version number reported by the driver.
type DriverVersion int32

// Major returns the major version, held in the high 16 bits.
func (v DriverVersion) Major() int32 { return int32(v) >> 16 }

// Minor returns the minor version, held in the low 4 bits.
func (v DriverVersion) Minor() int32 { return int32(v) & 0x0F }

func (v DriverVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

// Version returns the version of the linked driver. It needs no device and is
// safe to call from any goroutine.
func Version(drv driver.Driver) DriverVersion {
	return DriverVersion(drv.Version())
}

// IsABICompatible reports whether the linked driver matches the interface this
// module was built against. Open never checks it; callers running against an
// unpinned driver should check it before opening a device.
func IsABICompatible(drv driver.Driver) bool {
	return drv.IsABICompatible()
}
