package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBHost)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "nsqd:4150", cfg.NSQDHost)
	assert.Equal(t, "http://docling:8000", cfg.LoaderURL)
	assert.Equal(t, 20, cfg.WorkerConcurrency)
	assert.Equal(t, 3, cfg.MaxJobAttempts)
	assert.Equal(t, 4, cfg.QueryTopK)
	assert.Equal(t, int64(50), cfg.MaxUploadSizeMB)
	assert.Equal(t, "./uploads", cfg.UploadDir)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("MAX_JOB_ATTEMPTS", "5")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, 5, cfg.MaxJobAttempts)
	assert.Equal(t, 9000, cfg.ServerPort)
}

func TestValidate_MissingFields(t *testing.T) {
	cfg := &Config{DBHost: "h", DBUser: "u", DBName: "n", NSQDHost: "q", WorkerConcurrency: 1, ChunkSize: 1200, ChunkOverlap: 150}
	assert.NoError(t, cfg.Validate())

	cfg.DBHost = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRequired)

	cfg.DBHost = "h"
	cfg.NSQDHost = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRequired)

	cfg.NSQDHost = "q"
	cfg.WorkerConcurrency = 0
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRequired)
}

func TestValidate_ChunkSettings(t *testing.T) {
	cfg := &Config{DBHost: "h", DBUser: "u", DBName: "n", NSQDHost: "q", WorkerConcurrency: 1, ChunkSize: 100, ChunkOverlap: 49}
	assert.NoError(t, cfg.Validate())

	// An overlap reaching half the window would stall the chunker.
	cfg.ChunkOverlap = 50
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRequired)

	cfg.ChunkOverlap = 60
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRequired)

	cfg.ChunkOverlap = -1
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRequired)

	cfg.ChunkOverlap = 0
	cfg.ChunkSize = 0
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRequired)
}
