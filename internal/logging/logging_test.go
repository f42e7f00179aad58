package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.log")

	logger, closer := New("info", path)
	logger.Info("ledger started", "store", "memory")
	logger.Debug("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ledger started")
	assert.Contains(t, string(data), "store=memory")
	assert.NotContains(t, string(data), "hidden")
}
