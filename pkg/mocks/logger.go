package mocks

import (
	"fmt"
	"sync"

	"github.com/user/multicam/pkg/ports"
)

// Logger is a mock implementation of ports.Logger that keeps formatted lines.
type Logger struct {
	mu     *sync.Mutex
	lines  *[]string
	prefix string
}

// NewLogger creates an empty recording logger.
func NewLogger() *Logger {
	return &Logger{mu: &sync.Mutex{}, lines: &[]string{}}
}

func (l *Logger) add(level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.lines = append(*l.lines, level+" "+l.prefix+fmt.Sprintf(msg, args...))
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.add("DEBUG", msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.add("INFO", msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.add("WARN", msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.add("ERROR", msg, args...) }

func (l *Logger) WithComponent(component string) ports.Logger {
	return &Logger{mu: l.mu, lines: l.lines, prefix: l.prefix + "[" + component + "] "}
}

// Lines returns every logged line, shared with component loggers.
func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(*l.lines))
	copy(out, *l.lines)
	return out
}

var _ ports.Logger = (*Logger)(nil)
