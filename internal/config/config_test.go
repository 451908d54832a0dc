// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 5555, cfg.Device.Port)
	assert.Equal(t, "adb", cfg.Device.ADBPath)
	assert.Equal(t, 30*time.Second, cfg.Device.CommandTimeout)
	assert.Equal(t, 60, cfg.Perception.MaxSummaryElements)
	assert.InDelta(t, 0.45, cfg.Catalog.MinResolveScore, 0.001)
	assert.Equal(t, ProviderOpenAI, cfg.Agent.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Agent.LLM.Model)
	assert.Equal(t, 20, cfg.Agent.StepBudget)
	assert.Equal(t, 1500*time.Millisecond, cfg.Agent.SettleDelay)

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero step budget", func(c *Config) { c.Agent.StepBudget = 0 }},
		{"negative history window", func(c *Config) { c.Agent.HistoryWindow = -1 }},
		{"negative repair attempts", func(c *Config) { c.Agent.RepairAttempts = -1 }},
		{"score above one", func(c *Config) { c.Catalog.MinResolveScore = 1.5 }},
		{"zero summary cap", func(c *Config) { c.Perception.MaxSummaryElements = 0 }},
		{"bad port", func(c *Config) { c.Device.Port = 70000 }},
		{"unknown provider", func(c *Config) { c.Agent.LLM.Provider = "oracle" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestNewConfigFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("device.address", "192.168.1.77")
	v.Set("device.port", 5556)
	v.Set("agent.llm.provider", "gemini")
	v.Set("agent.llm.model", "gemini-2.0-flash")
	v.Set("agent.step_budget", 35)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.77", cfg.Device.Address)
	assert.Equal(t, 5556, cfg.Device.Port)
	assert.Equal(t, ProviderGemini, cfg.Agent.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.Agent.LLM.Model)
	assert.Equal(t, 35, cfg.Agent.StepBudget)
}

func TestNewConfigFromViperRejectsInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("agent.step_budget", -3)

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
}
