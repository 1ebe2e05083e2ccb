package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"disk-janitor/internal/config"
)

const logFile = "disk-janitor.log"

// New creates a stdout-only logger
func New() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags)
}

// NewWithConfig creates a logger writing to stdout and to a rotated file in
// cfg.Logging.Dir. It falls back to stdout only when the file cannot be opened.
func NewWithConfig(cfg *config.Config) *log.Logger {
	return NewWithConsole(cfg, os.Stdout)
}

// NewWithConsole is NewWithConfig with the console copy sent to console
// instead of stdout; io.Discard leaves only the log file.
func NewWithConsole(cfg *config.Config, console io.Writer) *log.Logger {
	if cfg == nil || cfg.Logging.Dir == "" {
		return log.New(console, "", log.LstdFlags)
	}

	if err := os.MkdirAll(cfg.Logging.Dir, 0o755); err != nil {
		log.Printf("failed to ensure log directory %s: %v", cfg.Logging.Dir, err)
		return log.New(console, "", log.LstdFlags)
	}

	filePath := filepath.Join(cfg.Logging.Dir, logFile)

	rotateDays := 30 // default
	if cfg.Logging.RotationDays > 0 {
		rotateDays = cfg.Logging.RotationDays
	}
	rotateLogsIfNeeded(filePath, rotateDays, time.Now())

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", filePath, err)
		return log.New(console, "", log.LstdFlags)
	}

	mw := io.MultiWriter(console, f)
	return log.New(mw, "", log.LstdFlags|log.Lmicroseconds)
}

// rotateLogsIfNeeded renames the log once it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int, now time.Time) {
	info, err := os.Stat(logPath)
	if err != nil {
		return
	}

	cutoffTime := now.AddDate(0, 0, -rotationDays)
	if info.ModTime().Before(cutoffTime) {
		timestamp := info.ModTime().Format("20060102-150405")
		rotatedPath := logPath + "." + timestamp

		if err := os.Rename(logPath, rotatedPath); err != nil {
			log.Printf("failed to rotate log file: %v", err)
			return
		}
	}

	cleanupOldLogs(logPath, rotationDays, now)
}

// cleanupOldLogs removes rotated log files older than rotation days
func cleanupOldLogs(logPath string, rotationDays int, now time.Time) {
	logDir := filepath.Dir(logPath)
	prefix := filepath.Base(logPath) + "."

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	// rotated files keep the mtime of the log they replaced, so they age out
	// one full period after rotation
	cutoffTime := now.AddDate(0, 0, -2*rotationDays)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			fullPath := filepath.Join(logDir, entry.Name())
			if err := os.Remove(fullPath); err != nil {
				log.Printf("failed to remove old log file %s: %v", fullPath, err)
			}
		}
	}
}
