// Package logger provides logging implementations.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"
	"github.com/user/multicam/pkg/ports"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// output is shared by a logger and every component logger derived from it,
// so lines from concurrent pipelines never interleave.
type output struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	clock  func() time.Time
}

// ConsoleLogger logs messages to the console with color support.
type ConsoleLogger struct {
	level     ports.LogLevel
	component string
	color     bool
	out       *output
}

// NewConsole creates a new console logger with the specified level.
// Color output is automatically enabled when stdout is a terminal.
func NewConsole(level ports.LogLevel) *ConsoleLogger {
	return &ConsoleLogger{
		level: level,
		color: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		out:   &output{stdout: os.Stdout, stderr: os.Stderr, clock: time.Now},
	}
}

// NewWriter creates an uncolored logger writing every level to w.
func NewWriter(level ports.LogLevel, w io.Writer) *ConsoleLogger {
	return &ConsoleLogger{
		level: level,
		out:   &output{stdout: w, stderr: w, clock: time.Now},
	}
}

// NewNoop returns a logger that discards everything, for tests and --quiet.
func NewNoop() *ConsoleLogger {
	return NewWriter(ports.LevelQuiet, io.Discard)
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if l.level > ports.LevelDebug {
		return
	}
	l.log(ports.LevelDebug, msg, args...)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(msg string, args ...interface{}) {
	if l.level > ports.LevelInfo {
		return
	}
	l.log(ports.LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(msg string, args ...interface{}) {
	if l.level > ports.LevelWarn {
		return
	}
	l.log(ports.LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(msg string, args ...interface{}) {
	if l.level > ports.LevelError {
		return
	}
	l.log(ports.LevelError, msg, args...)
}

// WithComponent returns a logger tagged with component, e.g. "capture:cam0".
func (l *ConsoleLogger) WithComponent(component string) ports.Logger {
	return &ConsoleLogger{
		level:     l.level,
		component: component,
		color:     l.color,
		out:       l.out,
	}
}

// Format renders one line without color: time, component tag and the
// translated message.
func (l *ConsoleLogger) Format(msg string, args ...interface{}) string {
	ts := l.out.clock().Format("15:04:05.000")
	translated := l10n.F(msg, args...)
	if l.component == "" {
		return ts + " " + translated
	}
	return fmt.Sprintf("%s [%s] %s", ts, l.component, translated)
}

func (l *ConsoleLogger) log(level ports.LogLevel, msg string, args ...interface{}) {
	line := l.Format(msg, args...)
	if l.color {
		tag := colorCyan
		switch level {
		case ports.LevelDebug:
			tag = colorGray
		case ports.LevelWarn:
			tag = colorYellow
		case ports.LevelError:
			tag = colorRed
		}
		line = tag + line + colorReset
	}

	w := l.out.stdout
	if level >= ports.LevelWarn {
		w = l.out.stderr
	}
	l.out.mu.Lock()
	fmt.Fprintln(w, line)
	l.out.mu.Unlock()
}

var _ ports.Logger = (*ConsoleLogger)(nil)
