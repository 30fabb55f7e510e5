// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package log provides leveled, module-tagged loggers.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
)

// Level is the verbosity of logging.
type Level int

// Levels accepted by SetLevel.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Notice:
		return "notice"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "", "notice":
		return Notice, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	}
	return Notice, fmt.Errorf("log: invalid level %q", s)
}

var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var (
	backend logging.LeveledBackend
	level   = Notice
)

// Logger is the interface of a module logger.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// New creates a logger for the given module.
func New(module string) Logger {
	return logging.MustGetLogger(module)
}

// SetSink redirects the output of every logger to w.
// The current level is preserved.
func SetSink(w io.Writer) {
	b := logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), format)
	backend = logging.AddModuleLevel(b)
	logging.SetBackend(backend)
	SetLevel(level)
}

// SetLevel sets the verbosity of every logger.
func SetLevel(l Level) {
	var ll logging.Level
	switch l {
	case Debug:
		ll = logging.DEBUG
	case Info:
		ll = logging.INFO
	case Notice:
		ll = logging.NOTICE
	case Warning:
		ll = logging.WARNING
	default:
		ll = logging.ERROR
	}
	level = l
	backend.SetLevel(ll, "")
}

func init() {
	SetSink(os.Stderr)
}
