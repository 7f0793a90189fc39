package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "agentd", cfg.ServiceName)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	require.NoError(t, cfg.Validate())

	cfg.Endpoint = ""
	assert.ErrorContains(t, cfg.Validate(), "endpoint is required")

	cfg = DefaultConfig()
	cfg.Enabled = true
	cfg.SampleRate = 2.0
	assert.ErrorContains(t, cfg.Validate(), "sample_rate")

	cfg = DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = "collector.example.com:4317"
	cfg.Insecure = true
	assert.ErrorContains(t, cfg.Validate(), "insecure connections")

	cfg.Insecure = false
	require.NoError(t, cfg.Validate())
}

func TestIsLocalEndpoint(t *testing.T) {
	assert.True(t, isLocalEndpoint("localhost:4317"))
	assert.True(t, isLocalEndpoint("127.0.0.1:4317"))
	assert.True(t, isLocalEndpoint("[::1]:4317"))
	assert.False(t, isLocalEndpoint("collector.example.com:4317"))
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), DefaultConfig(), nil)
	require.NoError(t, err)
	assert.False(t, tel.IsEnabled())
	assert.False(t, tel.Degraded())
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_NilConfig(t *testing.T) {
	tel, err := New(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, tel.IsEnabled())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.SampleRate = -1
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestShutdown_NilReceiver(t *testing.T) {
	var tel *Telemetry
	require.NoError(t, tel.Shutdown(context.Background()))
}
