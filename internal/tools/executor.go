// Package tools runs read-only context-enrichment plugins before the
// final decision. A tool failure degrades into "less context", never into
// "no decision".
package tools

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lunavale/selene/internal/plugin"
)

// Outcome is one tool's contribution to the decision context.
type Outcome struct {
	Tool    string         `json:"tool"`
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Summary string         `json:"summary,omitempty"`
}

// Executor selects and runs eligible tool plugins.
type Executor struct {
	registry *plugin.Registry
	deps     plugin.Dependencies
}

// NewExecutor creates an Executor over the registry with the shared
// dependency set handed to tool factories.
func NewExecutor(registry *plugin.Registry, deps plugin.Dependencies) *Executor {
	return &Executor{registry: registry, deps: deps}
}

// ShouldRun is the cheap pre-filter deciding whether the tool phase is
// worth its latency: mentions, questions, or a registered lookup keyword.
func (e *Executor) ShouldRun(cleaned string) bool {
	if strings.Contains(cleaned, "@") || strings.Contains(cleaned, "?") {
		return true
	}
	lower := strings.ToLower(cleaned)
	for _, trig := range e.registry.Triggers() {
		if strings.Contains(lower, trig) {
			return true
		}
	}
	return false
}

// Run executes every tool whose trigger keywords match the message text,
// in registration order. Failures are captured per tool and do not abort
// the others.
func (e *Executor) Run(ctx context.Context, pc plugin.Context) []Outcome {
	lower := strings.ToLower(pc.Cleaned)
	var outcomes []Outcome

	for _, name := range e.registry.Names(plugin.TypeTool) {
		def, ok := e.registry.Definition(name)
		if !ok {
			continue
		}
		if !matchesTrigger(lower, def.Triggers) {
			continue
		}
		outcomes = append(outcomes, e.runOne(ctx, name, pc))
	}
	return outcomes
}

// RunNamed executes a single tool by name, used when the decision layer
// explicitly requests one.
func (e *Executor) RunNamed(ctx context.Context, name string, pc plugin.Context) Outcome {
	return e.runOne(ctx, name, pc)
}

func (e *Executor) runOne(ctx context.Context, name string, pc plugin.Context) Outcome {
	res, err := e.registry.ExecuteTool(ctx, name, pc, e.deps)
	if err != nil {
		slog.Warn("tool execution failed", "tool", name, "error", err)
		return Outcome{Tool: name, Error: err.Error()}
	}
	out := Outcome{Tool: name, Success: true}
	if res != nil {
		out.Data = res.Data
		out.Summary = res.Summary
	}
	return out
}

func matchesTrigger(lowerText string, triggers []string) bool {
	for _, trig := range triggers {
		if trig != "" && strings.Contains(lowerText, strings.ToLower(trig)) {
			return true
		}
	}
	return false
}
