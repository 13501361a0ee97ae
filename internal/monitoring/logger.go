// Package monitoring holds the diagnostic logger shared by the façade and the
// command-line tools.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Sessionf logs a line tagged with a device session ID and its serial port so
// concurrent sessions can be told apart in the log.
func Sessionf(session, port, format string, v ...interface{}) {
	if len(session) > 8 {
		session = session[:8]
	}
	Logf("sweep[%s %s]: "+format, append([]interface{}{session, port}, v...)...)
}
