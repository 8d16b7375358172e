// Package config holds the bot's settings: persona, LLM provider, Discord
// connection, memory and batching tuning. Settings are loaded from a JSON5
// file with env-var overlays and hot-reloaded via a file watcher; the
// pipeline reads a fresh immutable snapshot per message.
package config

// Config is the root configuration for the Selene bot.
type Config struct {
	Persona   PersonaConfig   `json:"persona"`
	LLM       LLMConfig       `json:"llm"`
	Discord   DiscordConfig   `json:"discord"`
	Memory    MemoryConfig    `json:"memory"`
	Batch     BatchConfig     `json:"batch"`
	Activity  ActivityConfig  `json:"activity,omitempty"`
	Vision    VisionConfig    `json:"vision,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// PersonaConfig is the bot's character identity, injected into every prompt.
type PersonaConfig struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MesExample  string `json:"mes_example,omitempty"` // example dialogue, SillyTavern card field name
}

// LLMConfig configures the language-model provider.
// APIKey is NEVER read from the config file — env SELENE_API_KEY only.
type LLMConfig struct {
	Provider      string  `json:"provider"` // "openai" or any OpenAI-compatible endpoint
	APIKey        string  `json:"-"`
	APIBase       string  `json:"api_base,omitempty"`
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p,omitempty"`
	MaxTokens     int     `json:"max_tokens"`
	ContextLimit  int     `json:"context_limit"`   // model context window, tokens
	MaxCharacters int     `json:"max_characters"`  // hard cap on generated reply length
	RatePerMinute int     `json:"rate_per_minute"` // LLM call rate limit
}

// DiscordConfig configures the Discord connection and channel gating.
// Token comes from env SELENE_DISCORD_TOKEN only.
type DiscordConfig struct {
	Token          string   `json:"-"`
	CommandPrefix  string   `json:"command_prefix"`
	ActiveChannels []string `json:"active_channels,omitempty"` // empty = all channels active
	DefaultStatus  string   `json:"default_status,omitempty"`
}

// MemoryConfig tunes the conversation store.
type MemoryConfig struct {
	MaxAgeHours      int    `json:"max_age_hours"`     // cleanup evicts entries older than this
	FreshnessMinutes int    `json:"freshness_minutes"` // history younger than this counts as fresh
	BackfillLimit    int    `json:"backfill_limit"`    // max messages pulled from the platform
	CleanupCron      string `json:"cleanup_cron,omitempty"` // cron expression; empty disables periodic cleanup
}

// BatchConfig tunes message batching.
type BatchConfig struct {
	WindowMS  int `json:"window_ms"`   // debounce window
	MaxWaitMS int `json:"max_wait_ms"` // ceiling on total deferral (0 = no ceiling)
}

// ActivityConfig configures the sqlite activity log.
type ActivityConfig struct {
	DBPath string `json:"db_path,omitempty"` // empty disables the activity log
}

// VisionConfig configures image analysis.
type VisionConfig struct {
	Enabled       bool `json:"enabled,omitempty"`
	MaxImageBytes int  `json:"max_image_bytes,omitempty"`
	MaxDimension  int  `json:"max_dimension,omitempty"` // images larger than this are downscaled
}

// TelemetryConfig configures the optional OTLP trace exporter.
// Endpoint from env SELENE_OTLP_ENDPOINT overrides the file value.
type TelemetryConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Endpoint string `json:"endpoint,omitempty"` // host:port of the OTLP/HTTP collector
}

// IsChannelActive reports whether a channel passes the activity gate.
// An empty ActiveChannels list means every channel is active.
func (c *Config) IsChannelActive(channelID string) bool {
	if len(c.Discord.ActiveChannels) == 0 {
		return true
	}
	for _, id := range c.Discord.ActiveChannels {
		if id == channelID {
			return true
		}
	}
	return false
}
