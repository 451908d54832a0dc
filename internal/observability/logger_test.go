// File: internal/observability/logger_test.go
package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/idofrizler/phone-buddy/internal/config"
)

// Initialization is once-only process wide, so the tests below run as one
// ordered sequence against the same global logger.

func TestGetLoggerBeforeInitFallsBack(t *testing.T) {
	assert.NotNil(t, GetLogger(), "GetLogger must always hand back something usable")
}

func TestInitializeLoggerTeesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "agent.log")
	InitializeLogger(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "phone-buddy-test",
		LogFile:     logFile,
		MaxSize:     1,
		MaxBackups:  1,
		MaxAge:      1,
	})

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger.Info("hello from the test")
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the test")
}

func TestInitializeLoggerIsOnceOnly(t *testing.T) {
	before := GetLogger()
	InitializeLogger(config.LoggerConfig{Level: "error", Format: "json", ServiceName: "other"})
	assert.Same(t, before, GetLogger())
}
