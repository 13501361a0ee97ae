//go:build !libsweep || !cgo
// +build !libsweep !cgo

package libsweep

import "github.com/banshee-data/sweep/driver"

// Enabled reports whether this build links the native driver.
const Enabled = false

// Open is a stub implementation when the native driver is not linked.
// Build with -tags=libsweep (and cgo enabled) to call into libsweep.
func Open() (driver.Driver, error) {
	return nil, ErrNotEnabled
}
