package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Persona: PersonaConfig{
			Name: "Selene",
		},
		LLM: LLMConfig{
			Provider:      "openai",
			Model:         "gpt-4o-mini",
			Temperature:   0.7,
			MaxTokens:     1024,
			ContextLimit:  8192,
			MaxCharacters: 1500,
			RatePerMinute: 20,
		},
		Discord: DiscordConfig{
			CommandPrefix: "!",
			DefaultStatus: "online",
		},
		Memory: MemoryConfig{
			MaxAgeHours:      24,
			FreshnessMinutes: 30,
			BackfillLimit:    50,
			CleanupCron:      "0 * * * *",
		},
		Batch: BatchConfig{
			WindowMS:  3000,
			MaxWaitMS: 15000,
		},
		Vision: VisionConfig{
			MaxImageBytes: 10 * 1024 * 1024,
			MaxDimension:  1568,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values. Secrets are env-only.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("SELENE_DISCORD_TOKEN", &c.Discord.Token)
	envStr("SELENE_API_KEY", &c.LLM.APIKey)
	envStr("SELENE_API_BASE", &c.LLM.APIBase)
	envStr("SELENE_MODEL", &c.LLM.Model)
	envStr("SELENE_OTLP_ENDPOINT", &c.Telemetry.Endpoint)

	if c.Telemetry.Endpoint != "" && os.Getenv("SELENE_OTLP_ENDPOINT") != "" {
		c.Telemetry.Enabled = true
	}
}
