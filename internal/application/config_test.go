package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fanpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_LayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "postgres://test"
scoring:
  window_days: 14
server:
  addr: ":9090"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://test", config.Database.DSN)
	assert.Equal(t, 14, config.Scoring.WindowDays)
	assert.Equal(t, ":9090", config.Server.Addr)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30*time.Second, config.Database.QueryTimeout)
	assert.Equal(t, 100.0, config.Scoring.FVS.Weights.Sum())
	assert.Equal(t, 100.0, config.Scoring.Momentum.Weights.Sum())
	assert.Equal(t, 8, config.Batch.Workers)
}

func TestLoadConfig_RejectsBadWeights(t *testing.T) {
	path := writeConfig(t, `
scoring:
  fvs:
    weights:
      streaming: 50
      engagement: 25
      social: 20
      monetary: 15
      loyalty: 10
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 100")
}

func TestLoadConfig_RejectsBadWindow(t *testing.T) {
	for _, days := range []int{-1, 0, 400} {
		config := DefaultConfig()
		config.Scoring.WindowDays = days
		assert.Error(t, config.Validate(), "window_days=%d", days)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/fanpulse.yaml")
	assert.Error(t, err)
}

func TestDefaultConfig_IsValid(t *testing.T) {
	config := DefaultConfig()
	assert.NoError(t, config.Validate())
}
