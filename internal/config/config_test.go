package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for k := range envMappings {
		t.Setenv(strings.ToUpper(k), "")
		os.Unsetenv(strings.ToUpper(k))
	}
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")
	t.Setenv(ConfigPathEnvVar, "")
	os.Unsetenv(ConfigPathEnvVar)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_CONNECT_STRING", "postgres://u:p@localhost/db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2024, cfg.Server.Port)
	assert.Equal(t, ":2024", cfg.Server.Addr())
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "uploads", cfg.Storage.Dir)
	assert.True(t, cfg.Mail.Enabled)
	assert.Equal(t, "smtp.gmail.com", cfg.Mail.Host)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_CONNECT_STRING", "postgres://u:p@localhost/db")
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("EMAIL", "library@example.com")
	t.Setenv("PASS", "secret")
	t.Setenv("MAIL_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "library@example.com", cfg.Mail.Username)
	assert.Equal(t, "secret", cfg.Mail.Password)
	assert.Equal(t, "library@example.com", cfg.Mail.From, "from defaults to the username")
	assert.False(t, cfg.Mail.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DatabaseURLAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://alias/db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://alias/db", cfg.Database.URL)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Database.URL")
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yaml := `
server:
  port: 9000
database:
  url: postgres://file/db
storage:
  dir: /tmp/docs
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "postgres://file/db", cfg.Database.URL)
	assert.Equal(t, "/tmp/docs", cfg.Storage.Dir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad backend",
			mutate:  func(c *Config) { c.Storage.Backend = "ftp" },
			wantErr: "Storage.Backend",
		},
		{
			name:    "minio without bucket",
			mutate:  func(c *Config) { c.Storage.Backend = "minio"; c.Storage.S3Endpoint = "localhost:9000" },
			wantErr: "Storage.S3Bucket",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "Server.Port",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "Log.Level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultConfig()
			c.Database.URL = "postgres://x"
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
