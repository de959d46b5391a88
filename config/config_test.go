package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "Asia/Kolkata", cfg.Hospital.Location.String())
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Wizard.SessionTTL)
	assert.Empty(t, cfg.Backend.BaseURL)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\nDB_NAME=booking\nWIZARD_SESSION_TTL=5m\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("APP_PORT", "7070")
	t.Setenv("BACKEND_BASE_URL", "http://backend.local")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.App.Port, "environment wins over file")
	assert.Equal(t, "booking", cfg.DB.Name)
	assert.Equal(t, 5*time.Minute, cfg.Wizard.SessionTTL)
	assert.Equal(t, "http://backend.local", cfg.Backend.BaseURL)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("HOSPITAL_TIMEZONE", "Mars/Olympus")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InvalidDurations(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")
	_, err := Load("")
	assert.Error(t, err)
}

func TestDBConfig_URL(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "app", Password: "secret", Name: "booking", SSLMode: "disable"}
	assert.Equal(t, "pgx5://app:secret@db:5432/booking?sslmode=disable", c.URL("pgx5"))
}

func TestLoad_AllowedOrigins(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cfg.App.AllowedOrigins)

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://book.example.com, ,https://admin.example.com")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://book.example.com", "https://admin.example.com"}, cfg.App.AllowedOrigins)
}
