package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENV", "STORAGE_URI", "MONGODB_URI", "STORAGE_CONNECT_TIMEOUT", "STORAGE_QUERY_TIMEOUT",
		"HTTP_HOST", "PORT", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "mongodb://127.0.0.1:27017/studentSkillsetDB", cfg.Storage.URI)
	assert.Equal(t, 5*time.Second, cfg.Storage.ConnectTimeout)
	assert.Equal(t, 45*time.Second, cfg.Storage.QueryTimeout)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())

	backend, err := cfg.Storage.Backend()
	require.NoError(t, err)
	assert.Equal(t, BackendMongo, backend)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGODB_URI", "sqlite://students.db")
	t.Setenv("PORT", "8082")
	t.Setenv("STORAGE_QUERY_TIMEOUT", "2s")

	cfg, err := Load("")
	require.NoError(t, err)

	backend, err := cfg.Storage.Backend()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, backend)
	assert.Equal(t, "students.db", cfg.Storage.SQLitePath())
	assert.Equal(t, 8082, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.Storage.QueryTimeout)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "local.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
storage:
  uri: sqlite://data/roster.db
  query_timeout: 30s
http_server:
  host: localhost
  port: 8082
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "data/roster.db", cfg.Storage.SQLitePath())
	assert.Equal(t, 30*time.Second, cfg.Storage.QueryTimeout)
	assert.Equal(t, 5*time.Second, cfg.Storage.ConnectTimeout)
	assert.Equal(t, "localhost:8082", cfg.Addr())

	t.Setenv("PORT", "9000")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("STORAGE_URI", "postgres://localhost/db")
	_, err = Load("")
	assert.ErrorContains(t, err, "unsupported scheme")

	t.Setenv("STORAGE_URI", "sqlite://")
	_, err = Load("")
	assert.ErrorContains(t, err, "sqlite path is empty")

	require.NoError(t, os.Unsetenv("STORAGE_URI"))
	t.Setenv("PORT", "70000")
	_, err = Load("")
	assert.ErrorContains(t, err, "port out of range")
}
