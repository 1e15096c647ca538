package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.Totvs.Enabled())
	assert.Equal(t, 60*time.Minute, cfg.JWT.AccessExpiry)
	assert.NotEmpty(t, cfg.Upload.AllowedMimeTypes)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("PGHOST", "db.interno")
	t.Setenv("PGDATABASE", "cadastro")
	t.Setenv("JWT_ACCESS_EXPIRY", "15m")
	t.Setenv("TOTVS_DB_HOST", "totvs.interno")
	t.Setenv("TOTVS_DB_NAME", "PROTHEUS")
	t.Setenv("ALLOWED_MIME_TYPES", "application/pdf, image/png")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Contains(t, cfg.GetDSN(), "host=db.interno")
	assert.Contains(t, cfg.GetDSN(), "dbname=cadastro")
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
	assert.True(t, cfg.Totvs.Enabled())
	assert.Contains(t, cfg.GetTotvsDSN(), "database=PROTHEUS")
	assert.Equal(t, []string{"application/pdf", "image/png"}, cfg.Upload.AllowedMimeTypes)
}

func TestMimeAllowed(t *testing.T) {
	upload := UploadConfig{AllowedMimeTypes: []string{"application/pdf", "image/png"}}

	assert.True(t, upload.MimeAllowed("application/pdf"))
	assert.True(t, upload.MimeAllowed("IMAGE/PNG"))
	assert.False(t, upload.MimeAllowed("application/x-msdownload"))
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("JWT_ACCESS_EXPIRY", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 60*time.Minute, cfg.JWT.AccessExpiry)
}
