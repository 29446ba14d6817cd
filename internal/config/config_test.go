package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryStorage(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("AUTOMATION_INTERVAL", "5m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://hr.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.App.Storage)
	assert.Equal(t, 5*time.Minute, cfg.Automation.Interval)
	assert.Equal(t, 30*time.Second, cfg.Biometric.Timeout)
	assert.Equal(t, []string{"http://localhost:3000", "https://hr.example.com"}, cfg.App.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := Config{
		App:        AppConfig{Storage: StoragePostgres},
		Database:   DatabaseConfig{Password: "pw"},
		JWT:        JWTConfig{Secret: "s"},
		Automation: AutomationConfig{Interval: time.Minute, Workers: 1},
		Biometric:  BiometricConfig{MaxResults: 10},
	}
	assert.NoError(t, valid.Validate())

	noPassword := valid
	noPassword.Database.Password = ""
	assert.ErrorContains(t, noPassword.Validate(), "DB_PASSWORD")

	memory := noPassword
	memory.App.Storage = StorageMemory
	assert.NoError(t, memory.Validate())

	unknown := valid
	unknown.App.Storage = "mongo"
	assert.Error(t, unknown.Validate())

	noSecret := valid
	noSecret.JWT.Secret = ""
	assert.ErrorContains(t, noSecret.Validate(), "JWT_SECRET_KEY")
}

func TestDatabaseURL(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable",
	}}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", cfg.DatabaseURL())
}
