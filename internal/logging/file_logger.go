package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// fileSink is shared between a FileLogger and the loggers derived from it
type fileSink struct {
	mu     sync.Mutex
	writer io.WriteCloser
}

// FileLogger implements Logger interface for file-based logging.
// Entries are JSON lines; rotation is delegated to lumberjack.
type FileLogger struct {
	sink            *fileSink
	filePath        string
	level           LogLevel
	traceID         string
	redactSensitive bool
}

// FileLoggerConfig contains configuration for file logger
type FileLoggerConfig struct {
	FilePath        string
	Level           LogLevel
	MaxFileSize     int64 // in bytes, 0 means no rotation
	MaxBackups      int
	RotateEnabled   bool
	RedactSensitive bool
}

const megabyte = 1024 * 1024

// NewFileLogger creates a new file logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// lumberjack opens lazily; open once here so a bad path fails at startup.
	f, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close log file: %w", err)
	}

	var writer io.WriteCloser
	if config.RotateEnabled && config.MaxFileSize > 0 {
		maxSizeMB := int(config.MaxFileSize / megabyte)
		if maxSizeMB < 1 {
			maxSizeMB = 1
		}
		writer = &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    maxSizeMB,
			MaxBackups: config.MaxBackups,
		}
	} else {
		file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = file
	}

	return &FileLogger{
		sink:            &fileSink{writer: writer},
		filePath:        config.FilePath,
		level:           config.Level,
		redactSensitive: config.RedactSensitive,
	}, nil
}

func (l *FileLogger) log(level LogLevel, msg string, fields ...Field) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if level < l.level || l.sink.writer == nil {
		return
	}

	if l.redactSensitive {
		msg = redactSensitiveData(msg)
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   msg,
		TraceID:   l.traceID,
		Fields:    make(map[string]interface{}),
	}
	for _, field := range fields {
		value := field.Value
		if s, ok := value.(string); ok && l.redactSensitive {
			value = redactSensitiveData(s)
		}
		entry.Fields[field.Key] = value
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
		return
	}

	data = append(data, '\n')
	if _, err := l.sink.writer.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log entry: %v\n", err)
	}
}

// Debug logs a debug-level message
func (l *FileLogger) Debug(msg string, fields ...Field) {
	l.log(DEBUG, msg, fields...)
}

// Info logs an info-level message
func (l *FileLogger) Info(msg string, fields ...Field) {
	l.log(INFO, msg, fields...)
}

// Warn logs a warning-level message
func (l *FileLogger) Warn(msg string, fields ...Field) {
	l.log(WARN, msg, fields...)
}

// Error logs an error-level message
func (l *FileLogger) Error(msg string, fields ...Field) {
	l.log(ERROR, msg, fields...)
}

// WithTraceID returns a new logger with the trace ID set
func (l *FileLogger) WithTraceID(traceID string) Logger {
	return &FileLogger{
		sink:            l.sink,
		filePath:        l.filePath,
		level:           l.level,
		traceID:         traceID,
		redactSensitive: l.redactSensitive,
	}
}

// WithContext returns a new logger that extracts trace ID from context
func (l *FileLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

// SetLevel sets the minimum log level
func (l *FileLogger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.level = level
}

// Close closes the log file
func (l *FileLogger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.writer == nil {
		return nil
	}
	err := l.sink.writer.Close()
	l.sink.writer = nil
	return err
}
