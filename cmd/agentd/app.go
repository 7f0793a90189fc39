package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/config"
	"github.com/fyrsmithlabs/agentd/internal/contextmgr"
	"github.com/fyrsmithlabs/agentd/internal/engine"
	"github.com/fyrsmithlabs/agentd/internal/llm"
	"github.com/fyrsmithlabs/agentd/internal/logging"
	"github.com/fyrsmithlabs/agentd/internal/secrets"
	"github.com/fyrsmithlabs/agentd/internal/security"
	"github.com/fyrsmithlabs/agentd/internal/telemetry"
	"github.com/fyrsmithlabs/agentd/internal/tools"
)

// app bundles the wired components shared by the query and serve commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	tel    *telemetry.Telemetry
	engine *engine.Engine
}

// buildApp loads configuration and wires the full component graph.
func buildApp(ctx context.Context) (*app, error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if workingDir != "" {
		cfg.Engine.WorkingDir = workingDir
	}
	if cfg.Engine.WorkingDir == "." {
		if wd, err := os.Getwd(); err == nil {
			cfg.Engine.WorkingDir = wd
		}
	}
	if debug {
		cfg.Logging.Level = "debug"
		cfg.Engine.Debug = true
	}

	logCfg := logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:         cfg.Telemetry.Enabled,
		Endpoint:        cfg.Telemetry.Endpoint,
		ServiceName:     cfg.Telemetry.ServiceName,
		ServiceVersion:  cfg.Telemetry.ServiceVersion,
		Insecure:        cfg.Telemetry.Insecure,
		SampleRate:      cfg.Telemetry.SampleRate,
		MetricsInterval: cfg.Telemetry.MetricsInterval,
		ShutdownTimeout: cfg.Telemetry.ShutdownTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	policy, err := buildPolicy(cfg)
	if err != nil {
		return nil, fmt.Errorf("building security policy: %w", err)
	}

	registry := tools.NewRegistry(logger.Named("registry"))
	for _, tool := range []tools.Tool{
		tools.NewFilesTool(),
		tools.NewGitTool(),
		tools.NewShellTool(),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("registering tool: %w", err)
		}
	}

	scrubber, err := secrets.New(nil)
	if err != nil {
		return nil, fmt.Errorf("building scrubber: %w", err)
	}

	cm, err := contextmgr.NewManager(contextmgr.SizeConfig{
		MaxTotalSize:         cfg.Context.MaxTotalSize,
		MaxResultSize:        cfg.Context.MaxResultSize,
		AlwaysPreserveSteps:  cfg.Context.AlwaysPreserveSteps,
		CompressionThreshold: cfg.Context.CompressionThreshold,
		MinContextSize:       cfg.Context.MinContextSize,
	}, scrubber, logger.Named("context"))
	if err != nil {
		return nil, fmt.Errorf("building context manager: %w", err)
	}

	apiKey := cfg.LLM.APIKey.Value()
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	client, err := llm.NewAnthropicClient(llm.Config{
		APIKey:  apiKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("building llm client: %w", err)
	}

	eng, err := engine.New(engine.Config{
		WorkingDir:             cfg.Engine.WorkingDir,
		EnableWorkflowTracking: !cfg.Engine.DisableWorkflowTracking,
		MaxWorkflowDepth:       cfg.Engine.MaxWorkflowDepth,
		MaxToolExecutions:      cfg.Engine.MaxToolExecutions,
		Streaming:              cfg.Engine.Streaming,
		Debug:                  cfg.Engine.Debug,
	}, registry, client, policy, cm, logger.Named("engine"))
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		tel:    tel,
		engine: eng,
	}, nil
}

// buildPolicy starts from the built-in lists and appends configured patterns.
func buildPolicy(cfg *config.Config) (*security.Policy, error) {
	secCfg := security.DefaultConfig(cfg.Engine.WorkingDir)
	for _, p := range cfg.Security.AllowedCommands {
		secCfg.AllowedCommands = append(secCfg.AllowedCommands, security.Rule{Pattern: p})
	}
	for _, p := range cfg.Security.DeniedCommands {
		secCfg.DeniedCommands = append(secCfg.DeniedCommands, security.Rule{Pattern: p})
	}
	return security.NewPolicy(secCfg)
}

// close flushes telemetry and logs; safe to call once on shutdown.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
