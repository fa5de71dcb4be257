package syslog

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
)

type Logger struct {
	mu       sync.RWMutex
	zlog     *zerolog.Logger
	closer   io.Closer
	hostname string
	disabled bool
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Level      string
	Message    string
	TransferID int64
	Err        error
	Fields     map[string]any
	logger     *Logger
}
