package syslog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEntryWrite(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{hostname: "ship"}
	l.SetOutput(&buf)

	l.Error(errors.New("worker unreachable")).
		WithMessage("dispatch failed").
		WithTransfer(7).
		WithField("job", "runCollectionSystemTransfer").
		Write()

	out := buf.String()
	assert.Contains(t, out, "dispatch failed")
	assert.Contains(t, out, "worker unreachable")
	assert.Contains(t, out, "transferId=7")
	assert.Contains(t, out, "job=runCollectionSystemTransfer")
	assert.Contains(t, out, "hostname=ship")
}

func TestDisabledLoggerDropsEntries(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{}
	l.SetOutput(&buf)
	l.Disable()

	l.Info().WithMessage("hidden").Write()
	assert.Empty(t, buf.String())

	l.Enable()
	l.Info().WithMessage("shown").Write()
	assert.Contains(t, buf.String(), "shown")
}

func TestSetFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "openvdm.log")
	l := &Logger{}
	l.SetOutput(&bytes.Buffer{})

	require.NoError(t, l.SetFileLogger(path))
	l.Warn().WithMessage("rotated sink").Write()
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotated sink")
}
