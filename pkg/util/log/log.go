// Package log wraps klog so the rest of the codebase does not depend on it
// directly. Client facing libraries should not be logging to a package level
// logger at all, but until the builders pass an output stream down this is
// where all diagnostic output goes.
package log

import (
	"k8s.io/klog"
)

// StderrLog is the logger used throughout the tool. klog is configured by the
// command entrypoint to log to stderr.
var StderrLog = Logger{}

// Logger provides a leveled logging facade over klog.
type Logger struct{}

// Info logs to the INFO log.
func (Logger) Info(args ...interface{}) {
	klog.Info(args...)
}

// Infof logs to the INFO log with formatting.
func (Logger) Infof(format string, args ...interface{}) {
	klog.Infof(format, args...)
}

// Warning logs to the WARNING and INFO logs.
func (Logger) Warning(args ...interface{}) {
	klog.Warning(args...)
}

// Warningf logs to the WARNING and INFO logs with formatting.
func (Logger) Warningf(format string, args ...interface{}) {
	klog.Warningf(format, args...)
}

// Error logs to the ERROR, WARNING, and INFO logs.
func (Logger) Error(args ...interface{}) {
	klog.Error(args...)
}

// Errorf logs to the ERROR, WARNING, and INFO logs with formatting.
func (Logger) Errorf(format string, args ...interface{}) {
	klog.Errorf(format, args...)
}

// Fatal logs to the FATAL, ERROR, WARNING, and INFO logs followed by a call
// to os.Exit(255).
func (Logger) Fatal(args ...interface{}) {
	klog.Fatal(args...)
}

// Fatalf logs to the FATAL, ERROR, WARNING, and INFO logs with formatting
// followed by a call to os.Exit(255).
func (Logger) Fatalf(format string, args ...interface{}) {
	klog.Fatalf(format, args...)
}

// V reports whether verbosity at the call site is at least the requested
// level. Returned value can be used for leveled logging, e.g.
// log.V(2).Infof("message").
func (Logger) V(level klog.Level) klog.Verbose {
	return klog.V(level)
}
