package logging

import (
	"context"
	"errors"
)

// MultiLogger fans every message out to several loggers
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger writing to all of the given loggers
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Debug(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Debug(msg, fields...)
	}
}

func (m *MultiLogger) Info(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Info(msg, fields...)
	}
}

func (m *MultiLogger) Warn(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Warn(msg, fields...)
	}
}

func (m *MultiLogger) Error(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Error(msg, fields...)
	}
}

// WithTraceID returns a MultiLogger whose children all carry the trace ID
func (m *MultiLogger) WithTraceID(traceID string) Logger {
	children := make([]Logger, 0, len(m.loggers))
	for _, l := range m.loggers {
		children = append(children, l.WithTraceID(traceID))
	}
	return &MultiLogger{loggers: children}
}

// WithContext returns a MultiLogger that picks the trace ID from ctx
func (m *MultiLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return m
	}
	return m.WithTraceID(traceID)
}

func (m *MultiLogger) SetLevel(level LogLevel) {
	for _, l := range m.loggers {
		l.SetLevel(level)
	}
}

// Close closes every child and joins their errors
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
