package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "bidintake.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "data", cfg.Paths.DataRoot)
	assert.Equal(t, 1500, cfg.Ingest.ChunkMinChars)
	assert.Equal(t, 2000, cfg.Ingest.ChunkMaxChars)
	assert.False(t, cfg.Ingest.RedactSensitive)
	assert.Equal(t, 4, cfg.Ingest.MaxWorkers)
	assert.Equal(t, "local", cfg.OCR.Provider)
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, "pdftotext", cfg.OCR.PdfToTextPath)
	assert.Equal(t, 300, cfg.OCR.TimeoutSecs)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BIDINTAKE_STORE_DRIVER", "postgres")
	t.Setenv("BIDINTAKE_INGEST_MAX_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 8, cfg.Ingest.MaxWorkers)
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
