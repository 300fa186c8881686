package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProductionConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "SERVER_READ_TIMEOUT", "CACHE_OPERATION_TIMEOUT", "APP_ENV",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Second, cfg.Cache.OperationTimeout)
	assert.Equal(t, "production", cfg.App.Env)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	cfg.Server.Port = 0
	cfg.Events.QueueCapacity = -1
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
	assert.Contains(t, err.Error(), "EVENTS_QUEUE_CAPACITY")
}
