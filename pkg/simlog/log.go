// Package simlog is a thin wrapper over the standard library's log
// package, collecting scattered plain fmt.Printf/log calls into one
// adjustable-verbosity logger so drivers can be quiet in library use
// and verbose when a caller wants step-by-step tracing.
package simlog

import (
	"io"
	"log"
	"os"
)

type Level int

const (
	Silent Level = iota
	Info
	Debug
)

type Logger struct {
	level Level
	out   *log.Logger
}

// New returns a Logger writing to os.Stderr at the given level.
func New(level Level) *Logger {
	return &Logger{level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

// Discard returns a Logger that never writes anything.
func Discard() *Logger {
	return &Logger{level: Silent, out: log.New(io.Discard, "", 0)}
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil || l.level < Info {
		return
	}
	l.out.Printf(format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || l.level < Debug {
		return
	}
	l.out.Printf(format, args...)
}
