package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, ":8080", cfg.ServerAddr) // Default
	assert.Equal(t, "info", cfg.LogLevel)    // Default
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "localhost:7233", cfg.TemporalHost)
	assert.Equal(t, "default", cfg.TemporalNamespace)
	assert.Equal(t, "walletsim-confirmations", cfg.TemporalTaskQueue)
	assert.Equal(t, 10*time.Minute, cfg.BlockInterval)
	assert.Equal(t, 1, cfg.ConfirmBatchSize)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoad_InvalidBlockInterval(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("BLOCK_INTERVAL", "invalid")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_BlockIntervalTooShort(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("BLOCK_INTERVAL", "500ms")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "at least 1 second")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("CONFIRM_BATCH_SIZE", "0")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "at least 1")
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SERVER_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("NATS_URL", "nats://nats.internal:4222")
	os.Setenv("TEMPORAL_HOST", "temporal.internal:7233")
	os.Setenv("BLOCK_INTERVAL", "1m")
	os.Setenv("CONFIRM_BATCH_SIZE", "5")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "nats://nats.internal:4222", cfg.NATSURL)
	assert.Equal(t, "temporal.internal:7233", cfg.TemporalHost)
	assert.Equal(t, time.Minute, cfg.BlockInterval)
	assert.Equal(t, 5, cfg.ConfirmBatchSize)
}

func TestValidate(t *testing.T) {
	valid := &Config{
		DatabaseURL:       "postgres://localhost/test",
		TemporalHost:      "localhost:7233",
		TemporalNamespace: "default",
		TemporalTaskQueue: "walletsim-confirmations",
		BlockInterval:     10 * time.Minute,
		ConfirmBatchSize:  1,
	}
	require.NoError(t, valid.Validate())

	missing := *valid
	missing.DatabaseURL = ""
	err := missing.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL is required")

	badBatch := *valid
	badBatch.ConfirmBatchSize = 0
	require.Error(t, badBatch.Validate())
}

func cleanupEnv() {
	vars := []string{
		"DATABASE_URL",
		"SERVER_ADDR",
		"LOG_LEVEL",
		"NATS_URL",
		"TEMPORAL_HOST",
		"TEMPORAL_NAMESPACE",
		"TEMPORAL_TASK_QUEUE",
		"BLOCK_INTERVAL",
		"CONFIRM_BATCH_SIZE",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
