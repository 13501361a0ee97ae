package sweep

import (
	"errors"
	"fmt"

	"github.com/banshee-data/sweep/driver"
)

// UnknownErrorMessage is reported when the driver signalled a failure but its
// message could not be read.
const UnknownErrorMessage = "unknown driver error"

// Kind classifies a driver failure.
type Kind int

const (
	// KindConstruction covers failures to open a device: bad port, permission
	// denied, device absent.
	KindConstruction Kind = iota + 1
	// KindCommand covers start/stop, motor and scan calls rejected by the
	// firmware or the communication layer.
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindConstruction:
		return "construction"
	case KindCommand:
		return "command"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	// ErrConstruction matches every *Error of KindConstruction.
	ErrConstruction = errors.New("sweep: device construction failed")
	// ErrCommand matches every *Error of KindCommand.
	ErrCommand = errors.New("sweep: device command failed")
	// ErrUnreadable matches failures whose driver message could not be read.
	ErrUnreadable = errors.New("sweep: driver error message unreadable")
	// ErrClosed is the cause of every failure on a closed Device.
	ErrClosed = errors.New("sweep: device is closed")
	// ErrInvalidPort is the cause of failures to open an unusable port name.
	ErrInvalidPort = errors.New("sweep: invalid serial port")
	// ErrNoDriver is returned by Open when no driver is supplied.
	ErrNoDriver = errors.New("sweep: no driver")
)

// Error is a failure reported by, or on the way to, the native driver.
type Error struct {
	// Op is the façade operation that failed, e.g. "start_scanning".
	Op   string
	Kind Kind
	// Message is the driver's message, or UnknownErrorMessage.
	Message string
	// Unreadable is set when the driver's message could not be read.
	Unreadable bool
	// Err is a host-side cause, set when the failure never reached the driver.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sweep: %s failed: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind sentinels and ErrUnreadable.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConstruction:
		return e.Kind == KindConstruction
	case ErrCommand:
		return e.Kind == KindCommand
	case ErrUnreadable:
		return e.Unreadable
	}
	return false
}

// checkSlot converts the error out-slot filled by a native call into an error.
// A nil slot is success. Otherwise the message is copied out before anything
// else touches the driver and the native error object is released.
func checkSlot(drv driver.Driver, op string, kind Kind, slot driver.ErrorRef) error {
	if slot == nil {
		return nil
	}
	msg, ok := readMessage(drv, slot)
	drv.ErrorDestruct(slot)

	e := &Error{Op: op, Kind: kind, Message: msg}
	if !ok || msg == "" {
		e.Message = UnknownErrorMessage
		e.Unreadable = true
	}
	return e
}

// readMessage calls the driver's message accessor, treating a panicking
// accessor the same as an unreadable message.
func readMessage(drv driver.Driver, slot driver.ErrorRef) (msg string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			msg, ok = "", false
		}
	}()
	return drv.ErrorMessage(slot)
}
