package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CLIENT_MANAGER_DATABASE_DSN", "")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "client-manager", cfg.Service.Name)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.Enabled())
	assert.Equal(t, "0 2 * * *", cfg.Scheduler.RecurringSpec)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Error(t, cfg.Validate(), "dsn is required")
}

func TestLoad_FileEnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := []byte(`
server:
  port: 9000
database:
  dsn: mysql://file:pw@db:3306/clients
cache:
  address: redis:6379
business:
  name: Storebliz
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CRON_TOKEN=from-dotenv\n"), 0o600))
	t.Setenv("CLIENT_MANAGER_SERVER_PORT", "9100")
	t.Setenv("CRON_TOKEN", "")
	require.NoError(t, os.Unsetenv("CRON_TOKEN"))

	cfg, err := Load(Options{EnvFile: filepath.Join(dir, ".env")})
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "mysql://file:pw@db:3306/clients", cfg.Database.DSN)
	assert.True(t, cfg.Cache.Enabled())
	assert.Equal(t, "Storebliz", cfg.Business.Name)
	assert.Equal(t, "from-dotenv", cfg.Security.CronToken)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ":9100", cfg.Server.Addr())
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://u:p@pg:5432/clients")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@pg:5432/clients", cfg.Database.DSN)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load(Options{EnvFile: "does-not-exist.env"})
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Configuration{
		Server:   ServerConfig{Port: 0},
		Database: DatabaseConfig{DSN: "mysql://u:p@h:3306/db"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 8080
	cfg.Security.RateLimitRPS = -1
	assert.Error(t, cfg.Validate())

	cfg.Security.RateLimitRPS = 5
	assert.NoError(t, cfg.Validate())
}

// chdir mirrors testing.T.Chdir (Go 1.24+): it changes the working
// directory for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
