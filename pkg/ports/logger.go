// Package ports defines the interfaces between the pipeline stages and
// the adapters that talk to devices, files, encoders and the console.
package ports

import "strings"

// LogLevel is the minimum severity a logger prints.
type LogLevel int

const (
	// LevelDebug adds per-frame and per-stage details such as drops.
	LevelDebug LogLevel = iota
	// LevelInfo reports session progress: pipelines started, files written.
	LevelInfo
	// LevelWarn reports a failed source, snapshot or recording; the rest of the session continues.
	LevelWarn
	// LevelError reports session-wide failures such as the disk floor.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a level name as written in config files and flags.
// Unknown names mean LevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "quiet", "silent", "off":
		return LevelQuiet
	default:
		return LevelInfo
	}
}

// Logger is the logging port shared by every stage and adapter. The msg
// argument is a lexicon key: implementations may translate it before
// applying args.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a logger tagged with component. Pipelines tag
	// their stages as "<stage>:<source name>".
	WithComponent(component string) Logger
}
