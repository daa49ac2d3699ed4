package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewSplitsConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	var console bytes.Buffer
	logger, closeFn, err := New(Config{File: path, ConsoleLevel: zapcore.InfoLevel, Console: &console})
	require.NoError(t, err)

	logger.Debug("polling", zap.String("taskID", "t-1"))
	logger.Info("export job submitted", zap.String("pageID", "42"))
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), "export job submitted")
	assert.NotContains(t, console.String(), "polling")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "previous run")
	assert.Contains(t, string(data), `"msg":"polling"`)
	assert.Contains(t, string(data), `"pageID":"42"`)
}

func TestNewWithoutFile(t *testing.T) {
	var console bytes.Buffer
	logger, closeFn, err := New(Config{ConsoleLevel: zapcore.WarnLevel, Console: &console})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	require.NoError(t, closeFn())
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestNewFailsOnUnwritableFile(t *testing.T) {
	_, _, err := New(Config{File: filepath.Join(t.TempDir(), "missing", "debug.log")})
	require.Error(t, err)
}
