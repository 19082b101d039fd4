package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	blue   = "\x1b[34m"
	yellow = "\x1b[33m"
	red    = "\x1b[31m"
	green  = "\x1b[32m"
	reset  = "\x1b[0m"
)

var (
	mu       sync.Mutex
	out      io.Writer = os.Stdout
	minLevel           = LevelInfo
)

// SetOutput redirects every subsequent log line to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLevel sets the minimum level from its name (DEBUG, INFO, WARN, ERROR).
// Unknown names keep INFO.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = ParseLevel(name)
}

func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "WARNING", "WARN":
		return LevelWarn
	case "ERROR", "ERR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l Level) color() string {
	switch l {
	case LevelDebug:
		return blue
	case LevelInfo:
		return green
	case LevelWarn:
		return yellow
	case LevelError:
		return red
	default:
		return reset
	}
}

func prefix(l Level) string {
	return fmt.Sprintf("[%s%s%s] - %s - ", l.color(), l.String(), reset, time.Now().Format("2006-01-02T15:04:05"))
}

func write(l Level, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l < minLevel {
		return
	}
	fmt.Fprintf(out, "%s%s\n", prefix(l), fmt.Sprintf(format, a...))
}

func Debugf(format string, a ...interface{}) { write(LevelDebug, format, a...) }

func Infof(format string, a ...interface{}) { write(LevelInfo, format, a...) }

func Warnf(format string, a ...interface{}) { write(LevelWarn, format, a...) }

func Errorf(format string, a ...interface{}) { write(LevelError, format, a...) }

func Fatalf(format string, a ...interface{}) {
	Errorf(format, a...)
	os.Exit(1)
}
