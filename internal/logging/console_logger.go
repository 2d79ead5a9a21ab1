package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// ConsoleLogger implements Logger interface for console output
type ConsoleLogger struct {
	mu               *sync.Mutex
	writer           io.Writer
	level            LogLevel
	traceID          string
	colorEnabled     bool
	timestampEnabled bool
	redactSensitive  bool
}

// ConsoleLoggerConfig contains configuration for console logger
type ConsoleLoggerConfig struct {
	Writer           io.Writer
	Level            LogLevel
	ColorEnabled     bool
	TimestampEnabled bool
	RedactSensitive  bool
}

// NewConsoleLogger creates a new console logger
func NewConsoleLogger(config ConsoleLoggerConfig) *ConsoleLogger {
	if config.Writer == nil {
		config.Writer = os.Stderr
	}

	return &ConsoleLogger{
		mu:               &sync.Mutex{},
		writer:           config.Writer,
		level:            config.Level,
		colorEnabled:     config.ColorEnabled,
		timestampEnabled: config.TimestampEnabled,
		redactSensitive:  config.RedactSensitive,
	}
}

var (
	grayColor   = newColor(color.FgHiBlack)
	blueColor   = newColor(color.FgBlue)
	yellowColor = newColor(color.FgYellow)
	redColor    = newColor(color.FgRed)
)

// newColor forces escape sequences on; whether they are used is decided per logger.
func newColor(attr color.Attribute) *color.Color {
	c := color.New(attr)
	c.EnableColor()
	return c
}

// Patterns for sensitive data redaction
var (
	// FTP PASS command as echoed in protocol traces
	ftpPassPattern = regexp.MustCompile(`(?i)\bPASS\s+\S+`)
	// password=..., password: ...
	passwordPattern = regexp.MustCompile(`(?i)(password|passwd|pwd)["']?\s*[:=]\s*["']?[^\s"',]+`)
)

// redactSensitiveData redacts sensitive information from log messages
func redactSensitiveData(s string) string {
	s = ftpPassPattern.ReplaceAllString(s, "PASS [REDACTED]")
	s = passwordPattern.ReplaceAllString(s, "$1=[REDACTED]")
	return s
}

func (l *ConsoleLogger) paint(c *color.Color, s string) string {
	if !l.colorEnabled {
		return s
	}
	return c.Sprint(s)
}

// formatMessage formats a log message with colors and fields
func (l *ConsoleLogger) formatMessage(level LogLevel, msg string, fields ...Field) string {
	var sb strings.Builder

	if l.timestampEnabled {
		sb.WriteString(l.paint(grayColor, time.Now().Format("2006-01-02 15:04:05")))
		sb.WriteString(" ")
	}

	levelStr := fmt.Sprintf("%-5s", level.String())
	switch level {
	case DEBUG:
		levelStr = l.paint(blueColor, levelStr)
	case WARN:
		levelStr = l.paint(yellowColor, levelStr)
	case ERROR:
		levelStr = l.paint(redColor, levelStr)
	}
	sb.WriteString(levelStr)
	sb.WriteString(" ")

	if l.traceID != "" {
		short := l.traceID
		if len(short) > 8 {
			short = short[:8]
		}
		sb.WriteString(l.paint(grayColor, "["+short+"]"))
		sb.WriteString(" ")
	}

	if l.redactSensitive {
		msg = redactSensitiveData(msg)
	}
	sb.WriteString(msg)

	if len(fields) > 0 {
		sb.WriteString(" ")
		for i, field := range fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			value := fmt.Sprintf("%v", field.Value)
			if l.redactSensitive {
				value = redactSensitiveData(value)
			}
			sb.WriteString(fmt.Sprintf("%s=%s", field.Key, value))
		}
	}

	return sb.String()
}

func (l *ConsoleLogger) log(level LogLevel, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	formatted := l.formatMessage(level, msg, fields...)
	if _, err := fmt.Fprintln(l.writer, formatted); err != nil {
		return
	}
}

// Debug logs a debug-level message
func (l *ConsoleLogger) Debug(msg string, fields ...Field) {
	l.log(DEBUG, msg, fields...)
}

// Info logs an info-level message
func (l *ConsoleLogger) Info(msg string, fields ...Field) {
	l.log(INFO, msg, fields...)
}

// Warn logs a warning-level message
func (l *ConsoleLogger) Warn(msg string, fields ...Field) {
	l.log(WARN, msg, fields...)
}

// Error logs an error-level message
func (l *ConsoleLogger) Error(msg string, fields ...Field) {
	l.log(ERROR, msg, fields...)
}

// WithTraceID returns a new logger with the trace ID set
func (l *ConsoleLogger) WithTraceID(traceID string) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &ConsoleLogger{
		mu:               l.mu,
		writer:           l.writer,
		level:            l.level,
		traceID:          traceID,
		colorEnabled:     l.colorEnabled,
		timestampEnabled: l.timestampEnabled,
		redactSensitive:  l.redactSensitive,
	}
}

// WithContext returns a new logger that extracts trace ID from context
func (l *ConsoleLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

// SetLevel sets the minimum log level
func (l *ConsoleLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close closes the logger (no-op for console logger)
func (l *ConsoleLogger) Close() error {
	return nil
}
