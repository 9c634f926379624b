package configloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "ethereum", cfg.Network)
	assert.Equal(t, 30, cfg.Provider.CallTimeoutSeconds)
	assert.Equal(t, 5, cfg.Provider.AccountPollIntervalSeconds)
	assert.Equal(t, int64(30000), cfg.HistoryService.RequestTimeoutMillis)
	assert.Equal(t, float64(5), cfg.HistoryService.RateLimitPerSecond)
	assert.Equal(t, "data/tokens", cfg.Tokens.DataDir)
	assert.Empty(t, cfg.Provider.URLs)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	data := []byte(`
server:
  port: "9090"
network: " Sepolia "
provider:
  urls: ["http://127.0.0.1:1248", "http://127.0.0.1:8545"]
  expectedClient: Frame
  callTimeoutSeconds: 12
historyService:
  apiKey: abc
  maxResults: 10
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sepolia", cfg.Network)
	assert.Equal(t, []string{"http://127.0.0.1:1248", "http://127.0.0.1:8545"}, cfg.Provider.URLs)
	assert.Equal(t, "Frame", cfg.Provider.ExpectedClient)
	assert.Equal(t, 12, cfg.Provider.CallTimeoutSeconds)
	assert.Equal(t, "abc", cfg.HistoryService.APIKey)
	assert.Equal(t, 10, cfg.HistoryService.MaxResults)
}

func TestParseRejectsEmptyProviderURL(t *testing.T) {
	_, err := Parse([]byte("provider:\n  urls: [\"\"]\n"))
	require.Error(t, err)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unterminated"))
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("network: bsc\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bsc", cfg.Network)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}
