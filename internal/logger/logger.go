// Package logger provides a small component-scoped leveled logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes "[15:04:05.000] LEVEL [component] message [k=v ...]" lines.
// Debug and Info are only written when verbose is enabled.
type Logger struct {
	component string
	verbose   func() bool
	mu        *sync.Mutex
	writer    io.Writer
}

// Field is a key/value pair appended to a log line.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err builds an "error" Field.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// New creates a logger for component writing to stderr.
func New(component string, verbose bool) *Logger {
	return &Logger{
		component: component,
		verbose:   func() bool { return verbose },
		mu:        &sync.Mutex{},
		writer:    os.Stderr,
	}
}

// NewWithWriter creates a logger that writes to w.
func NewWithWriter(component string, verbose bool, w io.Writer) *Logger {
	l := New(component, verbose)
	l.writer = w
	return l
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return NewWithWriter("", false, io.Discard)
}

// WithComponent returns a logger sharing the writer under a different component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component: component,
		verbose:   l.verbose,
		mu:        l.mu,
		writer:    l.writer,
	}
}

// Verbose reports whether Debug and Info lines are written.
func (l *Logger) Verbose() bool {
	return l.verbose != nil && l.verbose()
}

func (l *Logger) Debug(msg string, fields ...Field) {
	if l.Verbose() {
		l.write("DEBUG", msg, fields)
	}
}

func (l *Logger) Info(msg string, fields ...Field) {
	if l.Verbose() {
		l.write("INFO", msg, fields)
	}
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.write("WARN", msg, fields)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.write("ERROR", msg, fields)
}

func (l *Logger) write(level, msg string, fields []Field) {
	component := l.component
	if component == "" {
		component = "main"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s [%s] %s", time.Now().Format("15:04:05.000"), level, component, msg)
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, " "))
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.writer, b.String())
}
