package config

import (
	"fmt"
	"time"
)

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		LLM:       DefaultLLMConfig(),
		Panel:     DefaultPanelConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default server settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultLLMConfig returns the default backend settings.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:        "https://api.openai.com/v1",
		Model:          "gpt-4o-mini",
		Timeout:        90 * time.Second,
		MaxTokens:      2048,
		Temperature:    0.3,
		RateLimitRPS:   2,
		RateLimitBurst: 4,
	}
}

// DefaultPanelConfig returns the default deliberation policy.
func DefaultPanelConfig() PanelConfig {
	return PanelConfig{
		Size:      3,
		MaxRounds: 13,
		Parallel:  true,
	}
}

// DefaultLogConfig returns the default logging settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultTelemetryConfig returns the default telemetry settings.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "medquorum",
		SampleRate:   1.0,
	}
}

// Validate rejects configurations the engine cannot run with.
func Validate(cfg *Config) error {
	if cfg.Panel.Size <= 0 {
		return fmt.Errorf("panel.size must be positive, got %d", cfg.Panel.Size)
	}
	if cfg.Panel.MaxRounds <= 0 {
		return fmt.Errorf("panel.max_rounds must be positive, got %d", cfg.Panel.MaxRounds)
	}
	if cfg.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %s", cfg.LLM.Timeout)
	}
	return nil
}
