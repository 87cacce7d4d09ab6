package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gin-oracle-auth/internal/core/config"
	"gin-oracle-auth/internal/core/logger"
)

func TestNew_WritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	opt := logger.FromConfig(config.Log{
		Level: "info",
		JSON:  true,
		File:  config.LogFile{Enable: true, Filename: file, MaxSizeMB: 1},
	})

	l, cleanup := logger.New(opt)
	l.Info("pool created", zap.Int("pool_max", 5))
	l.Debug("filtered out")
	cleanup()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"pool created"`)
	assert.Contains(t, string(b), `"pool_max":5`)
	assert.NotContains(t, string(b), "filtered out")
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	l, cleanup := logger.New(logger.Options{Level: "loud"})
	defer cleanup()

	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestToStdLogger(t *testing.T) {
	l, cleanup := logger.New(logger.Options{Level: "debug"})
	defer cleanup()

	std := logger.ToStdLogger(l, zapcore.ErrorLevel)
	require.NotNil(t, std)
	std.Println("http: TLS handshake error")
}
