package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeTempConfig(t, `
embedding:
  base_url: http://localhost:8080
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.VectorIndex.Backend)
	assert.Equal(t, 32, cfg.VectorIndex.M)
	assert.Equal(t, 200, cfg.VectorIndex.EfConstruction)
	assert.Equal(t, 64, cfg.VectorIndex.EfSearch)
	assert.Equal(t, 0.95, cfg.Dedup.SimilarityMin)
	assert.Equal(t, 4, cfg.Orchestrator.MaxConcurrency)
	assert.Equal(t, "claimgraph", cfg.OTel.ServiceName)
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	path := writeTempConfig(t, `adjudication:
  provider: anthropic
`)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-123")
	t.Setenv("DEDUP_VALIDATION_MODE", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.Adjudication.AnthropicKey)
	assert.True(t, cfg.Dedup.ValidationMode)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
