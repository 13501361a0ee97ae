// Package libsweep binds the driver.Driver interface to the native libsweep
// shared library through cgo.
//
// All cgo in this module lives here. The binding is compiled only with the
// 'libsweep' build tag and cgo enabled; otherwise Open returns ErrNotEnabled so
// the rest of the module (and its tests) builds on machines without the
// library installed.
//
// The binding converts nothing beyond pointers and fixed-size integers. Error
// out-slots are passed through untouched for package sweep to interpret.
package libsweep

import "errors"

// ErrNotEnabled is returned by Open in builds without the native driver.
var ErrNotEnabled = errors.New("libsweep support not enabled: rebuild with -tags=libsweep and CGO_ENABLED=1")
