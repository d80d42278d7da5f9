// Package monitoring holds the diagnostic logger shared by the drive stack.
package monitoring

import (
	"log"
	"sync/atomic"
)

type logFunc func(format string, v ...interface{})

var logger atomic.Pointer[logFunc]

func init() {
	SetLogger(log.Printf)
}

// Logf writes through the current package logger, log.Printf by default.
// It is safe to call while SetLogger runs on another goroutine.
func Logf(format string, v ...interface{}) {
	(*logger.Load())(format, v...)
}

// SetLogger replaces the package logger and returns the previous one.
// Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) (prev func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	next := logFunc(f)
	if old := logger.Swap(&next); old != nil {
		prev = *old
	}
	return prev
}
