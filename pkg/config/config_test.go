package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes yamlContent to a temp config.yaml and returns its path.
func writeConfig(t *testing.T, yamlContent string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))
	return path
}

// clearEnv unsets variables that would leak from the developer's shell into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "BASE_URL", "PGHOST", "PGPASSWORD", "REDIS_HOST", "REDIS_PASSWORD",
		"BASKET_BACKEND", "SESSION_SECRET", "SESSION_TTL_MINUTES", "EXPORT_MAX_PARALLEL",
		"JWKS_ENDPOINTS", "AUTH_ENABLE_VERIFICATION", "TLS_CERT_PATH", "TLS_KEY_PATH",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "3443"
env: "test"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
redis:
  host: "redis.example.com"
  port: 6379
`)
	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := LoadFrom(path, "test-version")
	require.NoError(t, err)

	assert.Equal(t, "4443", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "http://localhost:4443", cfg.BaseURL, "base url is derived from the port")
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "redis.example.com", cfg.Redis.Host)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom(writeConfig(t, "env: local\n"), "dev")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.True(t, cfg.Auth.EnableVerification)
	assert.Empty(t, cfg.Auth.JWKSEndpoints)
	assert.Equal(t, BasketBackendCookie, cfg.Session.BasketBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL())
	assert.Equal(t, localSessionSecret, cfg.Session.Secret, "local falls back to a development secret")
	assert.Equal(t, 4, cfg.Export.MaxParallel)
	assert.Equal(t, "Pattern Catalog", cfg.Export.ManifestTitle)
	assert.True(t, cfg.MCP.Enabled)
}

func TestLoad_BaseURLExplicit(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", "https://catalog.example.com")

	cfg, err := LoadFrom(writeConfig(t, "env: local\n"), "dev")
	require.NoError(t, err)
	assert.Equal(t, "https://catalog.example.com", cfg.BaseURL)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)

	_, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"), "dev")
	assert.Error(t, err)
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "local")
	t.Setenv("PGHOST", "pg.internal")

	cfg, err := LoadFrom("", "dev")
	require.NoError(t, err)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "redis backend needs a host",
			yaml:    "env: local\nsession:\n  basket_backend: redis\n",
			wantErr: "requires redis.host",
		},
		{
			name:    "cookie backend needs a secret outside local",
			yaml:    "env: production\n",
			wantErr: "SESSION_SECRET",
		},
		{
			name:    "unknown backend",
			yaml:    "env: local\nsession:\n  basket_backend: memcached\n",
			wantErr: "unknown session.basket_backend",
		},
		{
			name:    "non-positive parallelism",
			yaml:    "env: local\nexport:\n  max_parallel: -1\n",
			wantErr: "max_parallel",
		},
		{
			name:    "tls cert without key",
			yaml:    "env: local\n",
			env:     map[string]string{"TLS_CERT_PATH": "/tmp/cert.pem"},
			wantErr: "tls_cert_path and tls_key_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadFrom(writeConfig(t, tt.yaml), "dev")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_RedisBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_PASSWORD", "hunter2")

	cfg, err := LoadFrom(writeConfig(t, "env: production\nsession:\n  basket_backend: Redis\nredis:\n  host: cache\n"), "dev")
	require.NoError(t, err)
	assert.Equal(t, BasketBackendRedis, cfg.Session.BasketBackend)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.Empty(t, cfg.Session.Secret, "redis baskets need no cookie secret")
}

func TestParseJWKSEndpoints(t *testing.T) {
	got := parseJWKSEndpoints("https://id.example.com=https://id.example.com/jwks?v=2, bad ,=nourl")
	assert.Equal(t, map[string]string{
		"https://id.example.com": "https://id.example.com/jwks?v=2",
	}, got)
	assert.Empty(t, parseJWKSEndpoints(""))
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "catalog", Password: "p@ss", Database: "pc", SSLMode: "require"}
	assert.Equal(t, "postgres://catalog:p%40ss@db:5433/pc?sslmode=require", c.URL())

	c.Password = ""
	assert.Equal(t, "postgres://catalog@db:5433/pc?sslmode=require", c.URL())
}
