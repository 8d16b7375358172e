package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/lunavale/selene/internal/config"
	"github.com/lunavale/selene/internal/plugin"
	"github.com/lunavale/selene/internal/providers"
)

// decideTimeout bounds the decision LLM call; an unbounded hang is an
// unresponsive bot.
const decideTimeout = 60 * time.Second

// decideMaxTokens caps the decision answer — the micro-format is short.
const decideMaxTokens = 256

// Engine produces exactly one Decision per Context.
type Engine struct {
	provider providers.Provider
	registry *plugin.Registry
	llm      func() config.LLMConfig
}

// NewEngine creates an Engine. llm is read per call so hot-reloaded
// settings apply immediately.
func NewEngine(provider providers.Provider, registry *plugin.Registry, llm func() config.LLMConfig) *Engine {
	return &Engine{provider: provider, registry: registry, llm: llm}
}

// IsTool reports whether name is a registered tool plugin.
func (e *Engine) IsTool(name string) bool {
	return e.registry.IsType(name, plugin.TypeTool)
}

// knownAction accepts terminal actions and registered tool names.
func (e *Engine) knownAction(name string) bool {
	return IsTerminal(name) || e.IsTool(name)
}

// Decide builds the prompt, asks the model, and parses the answer. When
// allowTools is set the returned action may name a tool — the caller then
// runs the tool phase and decides again. With allowTools false any tool
// action is validated down to ignore.
//
// Any failure — network, auth, rate limit, unparseable output — yields
// the safe default decision, never an error.
func (e *Engine) Decide(ctx context.Context, dctx Context, allowTools bool) (Decision, PromptMeta) {
	settings := e.llm()

	var toolNames []string
	if allowTools {
		toolNames = e.registry.Names(plugin.TypeTool)
	}
	prompt, meta := BuildDecisionPrompt(dctx, settings.ContextLimit, toolNames)

	callCtx, cancel := context.WithTimeout(ctx, decideTimeout)
	defer cancel()

	resp, err := e.provider.Generate(callCtx, prompt, providers.GenerateOptions{
		Model:       settings.Model,
		Temperature: settings.Temperature,
		TopP:        settings.TopP,
		MaxTokens:   decideMaxTokens,
	})
	if err != nil {
		slog.Warn("decision call failed, defaulting to ignore",
			"channel_id", dctx.Message.ChannelID, "error", err)
		return Default(err.Error()), meta
	}

	d := ParseDecision(resp.Content, e.knownAction)
	if allowTools && e.IsTool(d.Action) {
		// Tool request: hand back as-is, the pipeline runs the tool
		// phase and calls Decide again without tools.
		return d, meta
	}
	return Validate(d, e.IsTool), meta
}
