package syslog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Global logger instance.
var L *Logger

func init() {
	hostname, _ := os.Hostname()
	zlogger := newZerolog(os.Stderr)
	L = &Logger{zlog: &zlogger, hostname: hostname}
}

func formatCaller(i any) string {
	var c string
	if cc, ok := i.(string); ok {
		c = cc
	}
	if c == "" {
		return ""
	}

	parts := strings.Split(c, "/")
	if len(parts) >= 2 {
		return fmt.Sprintf("%s/%s", parts[len(parts)-2], parts[len(parts)-1])
	}
	return filepath.Base(c)
}

func newZerolog(out io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = out
		w.NoColor = true
		w.FormatCaller = formatCaller
	})).With().
		CallerWithSkipFrameCount(3).
		Timestamp().
		Logger()
}

// SetFileLogger sends log output to a size-rotated file in addition to
// stderr. An empty path keeps stderr only.
func (l *Logger) SetFileLogger(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    25, // MB
		MaxBackups: 5,
		MaxAge:     30,   // days
		Compress:   true, // gzip
	}

	zlogger := newZerolog(io.MultiWriter(os.Stderr, rotator))

	l.mu.Lock()
	if l.closer != nil {
		_ = l.closer.Close()
	}
	l.zlog = &zlogger
	l.closer = rotator
	l.mu.Unlock()

	l.Info().WithMessage("file logger enabled").WithField("path", path).Write()
	return nil
}

// SetOutput replaces the log sink. Used by tests to capture output.
func (l *Logger) SetOutput(out io.Writer) {
	zlogger := newZerolog(out)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.zlog = &zlogger
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

func (l *Logger) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disabled = true
}

func (l *Logger) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disabled = false
}

// Error creates a new error-level LogEntry.
func (l *Logger) Error(err error) *LogEntry {
	return &LogEntry{
		Level:  "error",
		Err:    err,
		Fields: make(map[string]any),
		logger: l,
	}
}

// Warn creates a new warning-level LogEntry.
func (l *Logger) Warn() *LogEntry {
	return &LogEntry{
		Level:  "warn",
		Fields: make(map[string]any),
		logger: l,
	}
}

// Info creates a new info-level LogEntry.
func (l *Logger) Info() *LogEntry {
	return &LogEntry{
		Level:  "info",
		Fields: make(map[string]any),
		logger: l,
	}
}

func (l *Logger) Debug() *LogEntry {
	return &LogEntry{
		Level:  "debug",
		Fields: make(map[string]any),
		logger: l,
	}
}

// WithMessage sets the log message.
func (e *LogEntry) WithMessage(msg string) *LogEntry {
	e.Message = msg
	return e
}

// WithTransfer tags the entry with the transfer it concerns.
func (e *LogEntry) WithTransfer(id int64) *LogEntry {
	e.TransferID = id
	return e
}

// WithField adds one key-value pair to the LogEntry.
func (e *LogEntry) WithField(key string, value any) *LogEntry {
	e.Fields[key] = value
	return e
}

// WithFields adds multiple key-value pairs to the LogEntry.
func (e *LogEntry) WithFields(fields map[string]any) *LogEntry {
	for k, v := range fields {
		e.Fields[k] = v
	}
	return e
}

func (e *LogEntry) Write() {
	e.logger.mu.RLock()
	defer e.logger.mu.RUnlock()

	if e.logger.disabled {
		return
	}

	if _, ok := e.Fields["hostname"]; !ok {
		e.Fields["hostname"] = e.logger.hostname
	}
	if e.TransferID != 0 {
		e.Fields["transferId"] = e.TransferID
	}

	switch e.Level {
	case "info":
		e.logger.zlog.Info().Fields(e.Fields).Msg(e.Message)
	case "debug":
		e.logger.zlog.Debug().Fields(e.Fields).Msg(e.Message)
	case "warn":
		e.logger.zlog.Warn().Fields(e.Fields).Msg(e.Message)
	case "error":
		e.logger.zlog.Error().Err(e.Err).Fields(e.Fields).Msg(e.Message)
	default:
		e.logger.zlog.Info().Fields(e.Fields).Msg(e.Message)
	}
}
