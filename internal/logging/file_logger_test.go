package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLogger_JSONLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "zsync.log")

	logger, err := NewFileLogger(FileLoggerConfig{
		FilePath: logPath,
		Level:    INFO,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	logger.Debug("TYPE A") // filtered
	logger.Info("uploading 'a.txt' file to 'USER.ROOT' data set", F("attempt", 1))
	logger.Warn("creating 'USER.ROOT.SRC' data set has failed")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := readLines(t, logPath)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(lines))
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Failed to parse log entry: %v", err)
	}
	if entry.Level != "INFO" {
		t.Errorf("Entry.Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "uploading 'a.txt' file to 'USER.ROOT' data set" {
		t.Errorf("Entry.Message = %v", entry.Message)
	}
	// JSON numbers decode as float64
	if entry.Fields["attempt"] != float64(1) {
		t.Errorf("Entry.Fields[attempt] = %v, want 1", entry.Fields["attempt"])
	}
}

func TestFileLogger_RedactsPasswords(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "zsync.log")

	logger, err := NewFileLogger(FileLoggerConfig{
		FilePath:        logPath,
		Level:           DEBUG,
		RedactSensitive: true,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	logger.Debug("ftp command sent", F("command", "PASS hunter2"))
	logger.Info("login with password=hunter2")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Errorf("log file leaked password: %s", data)
	}
	if !strings.Contains(string(data), "PASS [REDACTED]") {
		t.Errorf("log file missing redaction marker: %s", data)
	}
}

func TestFileLogger_RotatesWithBackups(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	logPath := filepath.Join(dir, "zsync.log")

	logger, err := NewFileLogger(FileLoggerConfig{
		FilePath:      logPath,
		Level:         INFO,
		MaxFileSize:   megabyte,
		MaxBackups:    2,
		RotateEnabled: true,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	// Just over one megabyte forces a single rotation.
	line := strings.Repeat("x", 1024)
	for i := 0; i < 1100; i++ {
		logger.Info(line)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	backups, err := filepath.Glob(filepath.Join(dir, "zsync-*.log"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(backups) == 0 {
		t.Fatal("expected a rotated backup next to zsync.log")
	}
	if len(readLines(t, logPath)) == 0 {
		t.Error("expected the current log to hold the entries written after rotation")
	}
}

func TestFileLogger_BadPathFailsAtStartup(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := NewFileLogger(FileLoggerConfig{
		FilePath:      filepath.Join(blocker, "zsync.log"),
		Level:         INFO,
		MaxFileSize:   megabyte,
		RotateEnabled: true,
	})
	if err == nil {
		t.Fatal("expected an error for a log path under a regular file")
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
