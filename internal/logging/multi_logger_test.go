package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// newSyncLoggers builds the console+file pair the CLI uses for --log-file.
func newSyncLoggers(t *testing.T, level LogLevel) (*MultiLogger, *bytes.Buffer, string) {
	t.Helper()

	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "zsync.log")
	file, err := NewFileLogger(FileLoggerConfig{
		FilePath:        logPath,
		Level:           level,
		RedactSensitive: true,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	multi := NewMultiLogger(
		NewConsoleLogger(ConsoleLoggerConfig{Writer: &console, Level: level, RedactSensitive: true}),
		file,
	)
	return multi, &console, logPath
}

func TestMultiLogger_RedactsLoginOnEverySink(t *testing.T) {
	multi, console, logPath := newSyncLoggers(t, DEBUG)

	multi.Debug("sending command PASS hunter2")
	multi.Warn("login rejected", F("detail", "password=hunter2"))
	if err := multi.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if strings.Contains(console.String(), "hunter2") {
		t.Errorf("console leaked password: %q", console.String())
	}
	if !strings.Contains(console.String(), "PASS [REDACTED]") {
		t.Errorf("console missing redaction marker: %q", console.String())
	}

	lines := readLines(t, logPath)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(lines))
	}
	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("Failed to parse log entry: %v", err)
	}
	if entry.Fields["detail"] != "password=[REDACTED]" {
		t.Errorf("Entry.Fields[detail] = %v, want redacted", entry.Fields["detail"])
	}
}

func TestMultiLogger_UploadProgressAtInfo(t *testing.T) {
	multi, console, logPath := newSyncLoggers(t, INFO)

	multi.Debug("PASV 227 entering passive mode")
	multi.Info("uploading 'src/prog1.cbl' file to 'USER.ROOT.SRC' data set")
	multi.Info("deleting 'old.txt' file from 'USER.ROOT' data set")
	if err := multi.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	out := console.String()
	if strings.Contains(out, "PASV") {
		t.Errorf("debug line reached the console at INFO: %q", out)
	}
	if !strings.Contains(out, "INFO  uploading 'src/prog1.cbl' file to 'USER.ROOT.SRC' data set") {
		t.Errorf("missing upload line: %q", out)
	}

	lines := readLines(t, logPath)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(lines))
	}
	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Failed to parse log entry: %v", err)
	}
	if entry.Level != "INFO" || !strings.HasPrefix(entry.Message, "uploading 'src/prog1.cbl'") {
		t.Errorf("Entry = %+v, want the upload line", entry)
	}
}

func TestMultiLogger_TraceIDReachesFile(t *testing.T) {
	multi, console, logPath := newSyncLoggers(t, INFO)

	ctx := ContextWithTraceID(context.Background(), "run-0123456789")
	multi.WithContext(ctx).Info("sync finished")
	if err := multi.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !strings.Contains(console.String(), "[run-0123] sync finished") {
		t.Errorf("console line = %q", console.String())
	}
	var entry LogEntry
	if err := json.Unmarshal([]byte(readLines(t, logPath)[0]), &entry); err != nil {
		t.Fatalf("Failed to parse log entry: %v", err)
	}
	if entry.TraceID != "run-0123456789" {
		t.Errorf("Entry.TraceID = %v", entry.TraceID)
	}
}

func TestMultiLogger_SetLevelAppliesToAll(t *testing.T) {
	multi, console, logPath := newSyncLoggers(t, DEBUG)

	multi.SetLevel(ERROR)
	multi.Info("'a.txt' file changed on 2024-01-02 10:00:00")
	multi.Error("upload failed")
	if err := multi.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if strings.Count(console.String(), "\n") != 1 {
		t.Errorf("console = %q, want only the error", console.String())
	}
	if lines := readLines(t, logPath); len(lines) != 1 {
		t.Errorf("Expected 1 log entry, got %d", len(lines))
	}
}

type closeFailLogger struct {
	NoOpLogger
	err error
}

func (l *closeFailLogger) Close() error { return l.err }

func TestMultiLogger_CloseJoinsErrors(t *testing.T) {
	first := errors.New("flush failed")
	second := errors.New("disk full")
	multi := NewMultiLogger(&closeFailLogger{err: first}, NewNoOpLogger(), &closeFailLogger{err: second})

	err := multi.Close()
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Errorf("Close() = %v, want both errors", err)
	}
}
