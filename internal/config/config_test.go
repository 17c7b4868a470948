package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("PORT", "9090")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.EqualValues(t, 32<<20, cfg.Server.MaxUploadBytes)
	assert.Equal(t, 2, cfg.AI.Attempts)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 4096, cfg.Chat.MaxMessageBytes)
	assert.Equal(t, 24*time.Hour, cfg.Minio.PresignTTL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 7000
  allowedOrigins: ["https://app.example"]
store:
  driver: Badger
  badgerPath: /var/lib/scanit
ai:
  openaiModel: gpt-4o
  timeout: 12s
  attempts: 3
`)
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/scanit", cfg.Store.BadgerPath)
	assert.Equal(t, "gpt-4.1-mini", cfg.AI.OpenAIModel)
	assert.Equal(t, 12*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 3, cfg.AI.Attempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [1, 2"))
		assert.Error(t, err)
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "cassandra")
		_, err := Load(writeConfig(t, ""))
		assert.ErrorContains(t, err, "cassandra")
	})
	t.Run("sql without dsn", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_DSN", "")
		_, err := Load(writeConfig(t, ""))
		assert.Error(t, err)
	})
	t.Run("bad port", func(t *testing.T) {
		t.Setenv("PORT", "eighty")
		_, err := Load(writeConfig(t, ""))
		assert.Error(t, err)
	})
}

func TestDSNs(t *testing.T) {
	var cfg Config
	cfg.Database.Host = "db"
	cfg.Database.Port = 5432
	cfg.Database.User = "scanit"
	cfg.Database.Password = "secret"
	cfg.Database.Name = "scanit"

	assert.Equal(t, "scanit:secret@tcp(db:5432)/scanit?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
	assert.Equal(t, "host=db port=5432 user=scanit password=secret dbname=scanit sslmode=disable", cfg.PostgresDSN())

	cfg.Store.DSN = "postgres://x"
	assert.Equal(t, "postgres://x", cfg.PostgresDSN())
}
