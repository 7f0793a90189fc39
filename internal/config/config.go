// Package config provides configuration loading for agentd.
package config

import (
	"fmt"
	"time"
)

// Config is the full agentd configuration tree.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	LLM       LLMConfig       `koanf:"llm"`
	Engine    EngineConfig    `koanf:"engine"`
	Context   ContextConfig   `koanf:"context"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LLMConfig controls the model backend.
type LLMConfig struct {
	Model   string   `koanf:"model"`
	APIKey  Secret   `koanf:"api_key"`
	BaseURL string   `koanf:"base_url"`
	Timeout Duration `koanf:"timeout"`
}

// EngineConfig controls the query-processing loop.
type EngineConfig struct {
	WorkingDir string `koanf:"working_dir"`

	// DisableWorkflowTracking turns off per-query workflow state. Tracking
	// is on by default; the flag is inverted so the zero value keeps it on.
	DisableWorkflowTracking bool `koanf:"disable_workflow_tracking"`

	MaxWorkflowDepth  int  `koanf:"max_workflow_depth"`
	MaxToolExecutions int  `koanf:"max_tool_executions"`
	Streaming         bool `koanf:"streaming"`
	Debug             bool `koanf:"debug"`
}

// ContextConfig controls the conversation memory budget.
type ContextConfig struct {
	MaxTotalSize         int `koanf:"max_total_size"`
	MaxResultSize        int `koanf:"max_result_size"`
	AlwaysPreserveSteps  int `koanf:"always_preserve_steps"`
	CompressionThreshold int `koanf:"compression_threshold"`
	MinContextSize       int `koanf:"min_context_size"`
}

// SecurityConfig supplements the built-in command allow/deny lists.
type SecurityConfig struct {
	AllowedCommands []string `koanf:"allowed_commands"`
	DeniedCommands  []string `koanf:"denied_commands"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig controls OTLP export.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"`
	ServiceName     string   `koanf:"service_name"`
	ServiceVersion  string   `koanf:"service_version"`
	Insecure        bool     `koanf:"insecure"`
	SampleRate      float64  `koanf:"sample_rate"`
	MetricsInterval Duration `koanf:"metrics_interval"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// applyDefaults fills in zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8787
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "claude-sonnet-4-5"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(60 * time.Second)
	}

	if cfg.Engine.WorkingDir == "" {
		cfg.Engine.WorkingDir = "."
	}
	if cfg.Engine.MaxWorkflowDepth == 0 {
		cfg.Engine.MaxWorkflowDepth = 3
	}
	if cfg.Engine.MaxToolExecutions == 0 {
		cfg.Engine.MaxToolExecutions = 5
	}

	if cfg.Context.MaxTotalSize == 0 {
		cfg.Context.MaxTotalSize = 8000
	}
	if cfg.Context.MaxResultSize == 0 {
		cfg.Context.MaxResultSize = 2000
	}
	if cfg.Context.AlwaysPreserveSteps == 0 {
		cfg.Context.AlwaysPreserveSteps = 3
	}
	if cfg.Context.CompressionThreshold == 0 {
		cfg.Context.CompressionThreshold = 6000
	}
	if cfg.Context.MinContextSize == 0 {
		cfg.Context.MinContextSize = 1000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "agentd"
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = "0.1.0"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = Duration(15 * time.Second)
	}
	if cfg.Telemetry.ShutdownTimeout == 0 {
		cfg.Telemetry.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Engine.MaxToolExecutions < 1 {
		return fmt.Errorf("engine.max_tool_executions must be positive, got %d", c.Engine.MaxToolExecutions)
	}
	if c.Engine.MaxWorkflowDepth < 1 {
		return fmt.Errorf("engine.max_workflow_depth must be positive, got %d", c.Engine.MaxWorkflowDepth)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Context.CompressionThreshold > c.Context.MaxTotalSize {
		return fmt.Errorf("context.compression_threshold %d exceeds context.max_total_size %d",
			c.Context.CompressionThreshold, c.Context.MaxTotalSize)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %f", c.Telemetry.SampleRate)
		}
	}

	return nil
}
