// Package logger provides the global zerolog logger for dyad.
//
// Console output goes to stderr through a zerolog ConsoleWriter; file output
// (JSON, rotated by lumberjack) is optional. While a TUI is on screen,
// interactive mode suppresses console logs so they cannot corrupt the
// display; file logging is unaffected.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the global logger instance.
	Log zerolog.Logger

	// fileWriter is the rotating file output, nil when file logging is off.
	fileWriter *lumberjack.Logger

	// fileOnlyLog writes to the file only. Cached so interactive mode does
	// not allocate a logger per suppressed event.
	fileOnlyLog zerolog.Logger

	// interactiveMode suppresses console output for Info/Warn/Error.
	// Debug and Fatal are never suppressed.
	interactiveMode bool
	interactiveMu   sync.RWMutex
)

func init() {
	// Discard everything until Init runs; lets library code log safely
	// from tests and early startup.
	Log = zerolog.Nop()
}

// FileConfig holds the rotation settings for file-based logging.
type FileConfig struct {
	Enabled    bool
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

// SetInteractiveMode enables or disables interactive mode. Enable it before
// handing the terminal to a TUI and disable it after the TUI exits.
func SetInteractiveMode(enabled bool) {
	interactiveMu.Lock()
	defer interactiveMu.Unlock()
	interactiveMode = enabled
}

// Init initializes console-only logging.
func Init(debug bool) {
	Log = zerolog.New(consoleWriter()).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()
}

// InitWithFile initializes logging with an optional rotating file in logsDir.
// Falls back to console-only behavior when logsDir is empty or file logging
// is disabled.
func InitWithFile(debug bool, logsDir string, cfg FileConfig) error {
	if logsDir == "" || !cfg.Enabled {
		Init(debug)
		return nil
	}

	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	fileWriter = &lumberjack.Logger{
		Filename:   filepath.Join(logsDir, "dyad.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
	}

	fileOnlyLog = zerolog.New(fileWriter).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()

	Log = zerolog.New(io.MultiWriter(consoleWriter(), fileWriter)).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()

	return nil
}

// CloseFileWriter closes the file writer if one is open. Call on shutdown.
func CloseFileWriter() error {
	if fileWriter != nil {
		err := fileWriter.Close()
		fileWriter = nil
		return err
	}
	return nil
}

// LogFilePath returns the active log file path, or "" when file logging is off.
func LogFilePath() string {
	if fileWriter != nil {
		return fileWriter.Filename
	}
	return ""
}

func consoleWriter() io.Writer {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// shouldSuppress reports whether console output is currently suppressed.
func shouldSuppress() bool {
	interactiveMu.RLock()
	defer interactiveMu.RUnlock()
	return interactiveMode && Log.GetLevel() != zerolog.DebugLevel
}

// Debug logs a debug event. Never suppressed.
func Debug() *zerolog.Event {
	return Log.Debug()
}

// Info logs an info event. Suppressed on console in interactive mode.
func Info() *zerolog.Event {
	return eventOrFileOnly(Log.Info, fileOnlyLog.Info)
}

// Warn logs a warning event. Suppressed on console in interactive mode.
func Warn() *zerolog.Event {
	return eventOrFileOnly(Log.Warn, fileOnlyLog.Warn)
}

// Error logs an error event. Suppressed on console in interactive mode.
func Error() *zerolog.Event {
	return eventOrFileOnly(Log.Error, fileOnlyLog.Error)
}

// Fatal logs a fatal event and exits. Never suppressed.
func Fatal() *zerolog.Event {
	return Log.Fatal()
}

func eventOrFileOnly(console, fileOnly func() *zerolog.Event) *zerolog.Event {
	if shouldSuppress() {
		if fileWriter != nil {
			return fileOnly()
		}
		nop := zerolog.Nop()
		return nop.Log()
	}
	return console()
}
