package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

const baseYAML = `
app:
  http_addr: ":8080"
commerce:
  base_url: "http://api.local"
  timeout: 5s
auth:
  issuer: "storefront"
  audience: "miniapp"
cache:
  stale_time: 0s
`

func TestLoad_LayersFilesAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", baseYAML)
	writeFile(t, dir, "dev.yaml", "commerce:\n  test_mode: true\nauth:\n  jwt_secret: from-file\n")
	t.Setenv("STOREFRONT_AUTH__JWT_SECRET", "from-env")
	t.Setenv("STOREFRONT_CACHE__STALE_TIME", "30s")

	cfg, err := Load(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "http://api.local", cfg.Commerce.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Commerce.Timeout)
	assert.True(t, cfg.Commerce.TestMode)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Second, cfg.Cache.StaleTime)
}

func TestLoad_MissingEnvFileIsOptional(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", baseYAML)
	t.Setenv("STOREFRONT_AUTH__JWT_SECRET", "s")

	cfg, err := Load(dir, "prod")
	require.NoError(t, err)
	assert.False(t, cfg.Commerce.TestMode)
}

func TestLoad_MissingBase(t *testing.T) {
	_, err := Load(t.TempDir(), "dev")
	assert.ErrorContains(t, err, "load base")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	var cfg Config
	cfg.Cache.StaleTime = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"app.http_addr", "commerce.base_url", "auth.jwt_secret", "cache.stale_time"} {
		assert.ErrorContains(t, err, want)
	}
}
