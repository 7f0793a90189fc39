package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5, cfg.Engine.MaxToolExecutions)
	assert.Equal(t, 3, cfg.Engine.MaxWorkflowDepth)
	assert.Equal(t, 8000, cfg.Context.MaxTotalSize)
	assert.Equal(t, 6000, cfg.Context.CompressionThreshold)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "agentd", cfg.Telemetry.ServiceName)
	assert.False(t, cfg.Telemetry.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	base := func() Config {
		var cfg Config
		applyDefaults(&cfg)
		return cfg
	}

	cfg := base()
	cfg.Server.Port = 70000
	assert.ErrorContains(t, cfg.Validate(), "server.port")

	cfg = base()
	cfg.Logging.Level = "verbose"
	assert.ErrorContains(t, cfg.Validate(), "logging.level")

	cfg = base()
	cfg.Logging.Format = "xml"
	assert.ErrorContains(t, cfg.Validate(), "logging.format")

	cfg = base()
	cfg.Context.CompressionThreshold = cfg.Context.MaxTotalSize + 1
	assert.ErrorContains(t, cfg.Validate(), "compression_threshold")

	cfg = base()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.SampleRate = 1.5
	assert.ErrorContains(t, cfg.Validate(), "sample_rate")
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.Error(t, d.UnmarshalText([]byte("-5s")))
	require.Error(t, d.UnmarshalText([]byte("not a duration")))
}

func TestSecret_NeverLeaks(t *testing.T) {
	s := Secret("sk-ant-very-secret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "sk-ant-very-secret", s.Value())
	assert.True(t, s.IsSet())

	out, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: s})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "very-secret")
}

func TestSecret_Empty(t *testing.T) {
	var s Secret
	assert.Equal(t, "", s.String())
	assert.False(t, s.IsSet())
}
