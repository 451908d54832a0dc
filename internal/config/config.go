// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Device     DeviceConfig     `mapstructure:"device" yaml:"device"`
	Perception PerceptionConfig `mapstructure:"perception" yaml:"perception"`
	Catalog    CatalogConfig    `mapstructure:"catalog" yaml:"catalog"`
	Agent      AgentConfig      `mapstructure:"agent" yaml:"agent"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// DeviceConfig tunes the ADB connection and the keep-alive watchdog.
type DeviceConfig struct {
	Address           string        `mapstructure:"address" yaml:"address"`
	Port              int           `mapstructure:"port" yaml:"port"`
	ADBPath           string        `mapstructure:"adb_path" yaml:"adb_path"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	MaxReconnectWait  time.Duration `mapstructure:"max_reconnect_wait" yaml:"max_reconnect_wait"`
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval" yaml:"keep_alive_interval"`
}

// PerceptionConfig bounds the snapshot pipeline.
type PerceptionConfig struct {
	// MaxSummaryElements caps how many elements the textual screen summary
	// includes; the snapshot itself is never truncated.
	MaxSummaryElements int `mapstructure:"max_summary_elements" yaml:"max_summary_elements"`
}

// CatalogConfig tunes app resolution.
type CatalogConfig struct {
	// MinResolveScore is the similarity floor below which Resolve reports
	// AppNotFound instead of returning a low-confidence guess.
	MinResolveScore float64 `mapstructure:"min_resolve_score" yaml:"min_resolve_score"`
	MaxSummaryApps  int     `mapstructure:"max_summary_apps" yaml:"max_summary_apps"`
	LabelCacheFile  string  `mapstructure:"label_cache_file" yaml:"label_cache_file"`
}

// AgentConfig holds settings for the decision engine and the control loop.
type AgentConfig struct {
	LLM            LLMConfig     `mapstructure:"llm" yaml:"llm"`
	StepBudget     int           `mapstructure:"step_budget" yaml:"step_budget"`
	HistoryWindow  int           `mapstructure:"history_window" yaml:"history_window"`
	RepairAttempts int           `mapstructure:"repair_attempts" yaml:"repair_attempts"`
	SettleDelay    time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// LLMProvider defines the supported reasoning backends.
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig defines the configuration for the reasoning backend.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "phone-buddy")
	v.SetDefault("logger.log_file", "phone-buddy.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Device --
	v.SetDefault("device.port", 5555)
	v.SetDefault("device.adb_path", "adb")
	v.SetDefault("device.command_timeout", "30s")
	v.SetDefault("device.connect_timeout", "90s")
	v.SetDefault("device.max_reconnect_wait", "15s")
	v.SetDefault("device.keep_alive_interval", "30s")

	// -- Perception --
	v.SetDefault("perception.max_summary_elements", 60)

	// -- Catalog --
	v.SetDefault("catalog.min_resolve_score", 0.45)
	v.SetDefault("catalog.max_summary_apps", 50)

	// -- Agent --
	v.SetDefault("agent.llm.provider", "openai")
	v.SetDefault("agent.llm.model", "gpt-4o-mini")
	v.SetDefault("agent.llm.api_timeout", "60s")
	v.SetDefault("agent.llm.temperature", 0.1)
	v.SetDefault("agent.llm.max_tokens", 2000)
	v.SetDefault("agent.step_budget", 20)
	v.SetDefault("agent.history_window", 8)
	v.SetDefault("agent.repair_attempts", 2)
	v.SetDefault("agent.settle_delay", "1500ms")
}

// NewDefaultConfig creates a configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("agent.llm.api_key", "PHONEBUDDY_LLM_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Agent.StepBudget <= 0 {
		return fmt.Errorf("agent.step_budget must be a positive integer")
	}
	if c.Agent.HistoryWindow < 0 {
		return fmt.Errorf("agent.history_window must not be negative")
	}
	if c.Agent.RepairAttempts < 0 {
		return fmt.Errorf("agent.repair_attempts must not be negative")
	}
	if c.Catalog.MinResolveScore < 0.0 || c.Catalog.MinResolveScore > 1.0 {
		return fmt.Errorf("catalog.min_resolve_score must be between 0.0 and 1.0")
	}
	if c.Perception.MaxSummaryElements <= 0 {
		return fmt.Errorf("perception.max_summary_elements must be a positive integer")
	}
	if c.Device.Port <= 0 || c.Device.Port > 65535 {
		return fmt.Errorf("device.port must be a valid TCP port")
	}
	switch c.Agent.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Agent.LLM.Provider)
	}
	return nil
}
