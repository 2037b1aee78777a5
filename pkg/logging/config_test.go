package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldmap/fieldmap/pkg/logging"
)

// restoreDefault puts the default logger and global level back after a test
// that reconfigures them.
func restoreDefault(t *testing.T) {
	t.Helper()
	original := *logging.Default()
	level := zerolog.GlobalLevel()
	t.Cleanup(func() {
		logging.SetDefault(original)
		zerolog.SetGlobalLevel(level)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := logging.DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.False(t, cfg.AddCaller)
}

func TestNewLoggerFromConfigFileOutput(t *testing.T) {
	restoreDefault(t)
	path := filepath.Join(t.TempDir(), "resolve.log")

	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:  "debug",
		Format: "json",
		Output: path,
	})
	logger.Debug().Str("template", "Carrier Rates").Msg("Header cascade start")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Header cascade start")
	assert.Contains(t, string(content), `"template":"Carrier Rates"`)
}

func TestConfigureFiltersBelowLevel(t *testing.T) {
	restoreDefault(t)
	path := filepath.Join(t.TempDir(), "resolve.log")

	logging.Configure(&logging.Config{Level: "warn", Format: "json", Output: path})
	logging.Info().Msg("suggestion store hit")
	logging.Warn().Msg("completion fallback failed")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "suggestion store hit")
	assert.Contains(t, string(content), "completion fallback failed")
}

func TestNewLoggerFromConfigConsoleFormat(t *testing.T) {
	restoreDefault(t)
	path := filepath.Join(t.TempDir(), "resolve.log")

	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:   "info",
		Format:  "console",
		Output:  path,
		NoColor: true,
	})
	logger.Info().Str("layer", "header").Msg("Layer resolved")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Layer resolved")
	// Console format renders short level tags.
	assert.Contains(t, string(content), "INF")
}

func TestConfigureFromEnv(t *testing.T) {
	restoreDefault(t)
	path := filepath.Join(t.TempDir(), "resolve.log")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", path)

	logging.ConfigureFromEnv()
	logging.Warn().Msg("lookup value unresolved")
	logging.Error().Msg("suggestion store write failed")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "lookup value unresolved")
	assert.Contains(t, string(content), "suggestion store write failed")
}

func TestNewLoggerFromConfigDefaults(t *testing.T) {
	restoreDefault(t)

	logger := logging.NewLoggerFromConfig(nil)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewLoggerFromConfigUnknownLevel(t *testing.T) {
	restoreDefault(t)

	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:  "shouty",
		Format: "json",
		Output: "discard",
	})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
