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

// Warnf logs through Logf with a WARNING prefix. Conditions that are recovered
// locally but change output shape (dropped crossings, truncated runs) go here
// so they can be grepped out of batch logs.
func Warnf(format string, v ...interface{}) {
	Logf("WARNING: "+format, v...)
}

// Tagged returns a logger that prefixes every line with "[tag] ". The
// returned func resolves Logf on each call, so SetLogger after construction
// still takes effect.
func Tagged(tag string) func(format string, v ...interface{}) {
	prefix := "[" + tag + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
