package actions

import (
	"context"
	"log/slog"
	"time"

	"github.com/lunavale/selene/internal/decision"
	"github.com/lunavale/selene/internal/plugin"
)

// Outcome is the result of one action execution, reported up to the
// stats layer. Failed actions are never retried — a duplicate bot
// message is worse than a missing one.
type Outcome struct {
	Action   string
	Success  bool
	Error    string
	Summary  string
	Duration time.Duration
}

// Router maps a validated Decision onto its action plugin and runs it.
type Router struct {
	registry *plugin.Registry
	deps     plugin.Dependencies
	isTool   func(string) bool
}

// NewRouter creates a Router. isTool guards against tool-named actions
// leaking through the decision layer.
func NewRouter(registry *plugin.Registry, deps plugin.Dependencies, isTool func(string) bool) *Router {
	return &Router{registry: registry, deps: deps, isTool: isTool}
}

// Execute performs the decision's external effect exactly once.
//
// A tool name reaching this layer is a logic-bug signal: the decision
// engine should have intercepted it. Log a warning and coerce to ignore
// rather than attempt undefined behavior.
func (r *Router) Execute(ctx context.Context, d decision.Decision, pc plugin.Context) Outcome {
	start := time.Now()

	if r.isTool != nil && r.isTool(d.Action) {
		slog.Warn("tool action reached the action router, coercing to ignore",
			"action", d.Action, "channel_id", pc.Message.ChannelID)
		d = decision.Default("tool action " + d.Action + " coerced to ignore")
	}

	name := d.Action
	if name == decision.ActionReply {
		// respond and reply share one plugin; the request carries which.
		name = decision.ActionRespond
	}
	if !r.registry.IsType(name, plugin.TypeAction) {
		slog.Warn("unknown action, coercing to ignore", "action", d.Action)
		d = decision.Default("unknown action " + d.Action)
		name = decision.ActionIgnore
	}

	pc.Request = plugin.ActionRequest{
		Action:     d.Action,
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
		Emoji:      d.Emoji,
		Status:     d.Status,
		TargetUser: d.TargetUser,
	}

	res, err := r.registry.ExecuteAction(ctx, name, pc, r.deps)
	out := Outcome{Action: d.Action, Duration: time.Since(start)}
	if err != nil {
		slog.Warn("action execution failed",
			"action", d.Action, "channel_id", pc.Message.ChannelID, "error", err)
		out.Error = err.Error()
		return out
	}
	out.Success = true
	if res != nil {
		out.Summary = res.Summary
	}
	return out
}
