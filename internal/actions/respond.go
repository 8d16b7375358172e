package actions

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/lunavale/selene/internal/bus"
	"github.com/lunavale/selene/internal/config"
	"github.com/lunavale/selene/internal/decision"
	"github.com/lunavale/selene/internal/memory"
	"github.com/lunavale/selene/internal/platform"
	"github.com/lunavale/selene/internal/plugin"
	"github.com/lunavale/selene/internal/tools"
)

// ReplyGenerator produces the in-character reply text. Satisfied by
// *decision.Engine.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, dctx decision.Context) (string, decision.ReplyMeta)
}

// recentReplyWindow: with no explicit decision available, messages
// younger than this get reply linkage, older ones a plain send. The
// decision's action is otherwise authoritative.
const recentReplyWindow = 60 * time.Second

// Typing simulation bounds. Duration scales with the length of the
// generated reply, jittered so the cadence isn't robotic.
const (
	typingBase    = 800 * time.Millisecond
	typingPerChar = 25 * time.Millisecond
	typingMax     = 5 * time.Second
)

// ResponseDefinition is the built-in respond action; the router maps both
// respond and reply onto it, distinguished by the request's action value.
func ResponseDefinition() plugin.Definition {
	return plugin.Definition{
		Name:         "respond",
		Type:         plugin.TypeAction,
		Dependencies: []string{"platform", "memory", "responder", "persona"},
		Factory: func(deps plugin.Dependencies, _ map[string]any) (plugin.Plugin, error) {
			a := &ResponseAction{}
			var ok bool
			if a.client, ok = deps["platform"].(platform.Client); !ok {
				return nil, fmt.Errorf("platform dependency is not a platform.Client")
			}
			if a.store, ok = deps["memory"].(*memory.Store); !ok {
				return nil, fmt.Errorf("memory dependency is not a *memory.Store")
			}
			if a.responder, ok = deps["responder"].(ReplyGenerator); !ok {
				return nil, fmt.Errorf("responder dependency is not a ReplyGenerator")
			}
			if a.persona, ok = deps["persona"].(func() config.PersonaConfig); !ok {
				return nil, fmt.Errorf("persona dependency is not a persona accessor")
			}
			return a, nil
		},
	}
}

// ResponseAction generates and delivers a text reply.
type ResponseAction struct {
	client    platform.Client
	store     *memory.Store
	responder ReplyGenerator
	persona   func() config.PersonaConfig
}

func (a *ResponseAction) Execute(ctx context.Context, pc plugin.Context) (*plugin.Result, error) {
	msg := pc.Message

	typing := NewTyping(TypingOptions{
		MaxDuration:       60 * time.Second,
		KeepaliveInterval: 9 * time.Second,
		StartFn:           func() error { return a.client.Typing(context.WithoutCancel(ctx), msg.ChannelID) },
	})
	typing.Start()
	defer typing.Stop()

	var toolResults []tools.Outcome
	for _, tr := range pc.ToolResults {
		toolResults = append(toolResults, tools.Outcome{Tool: tr.Tool, Success: true, Summary: tr.Summary})
	}

	text, meta := a.responder.GenerateReply(ctx, decision.Context{
		Message:      msg,
		Cleaned:      pc.Cleaned,
		History:      pc.History,
		ImageSummary: pc.ImageSummary,
		EmbedSummary: pc.EmbedSummary,
		ToolResults:  toolResults,
		Persona:      a.persona(),
	})

	// A human doesn't answer instantly; pace the delivery by how much
	// there is to type. The indicator is already running, so generation
	// latency above counts toward the pause.
	select {
	case <-time.After(typingDelay(len(text))):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	sent, err := a.deliver(ctx, msg, pc.Request.Action, text)
	if err != nil {
		return nil, err
	}

	botTurn := memory.Message{
		Content:     text,
		Timestamp:   sent.Timestamp,
		ChannelID:   msg.ChannelID,
		ChannelName: msg.ChannelName,
		GuildID:     msg.GuildID,
		GuildName:   msg.GuildName,
		MessageID:   sent.MessageID,
	}
	a.store.Append(botTurn, true)

	return &plugin.Result{
		Summary: "replied",
		Data: map[string]any{
			"message_id": sent.MessageID,
			"truncated":  meta.Truncated,
			"fallback":   meta.Fallback,
			"length":     len(text),
		},
	}, nil
}

// deliver routes between reply linkage and plain send. An explicit reply
// decision that fails falls back to a plain send — losing the linkage
// beats losing the response.
func (a *ResponseAction) deliver(ctx context.Context, msg bus.InboundMessage, action, text string) (*platform.SentMessage, error) {
	useReply := false
	switch action {
	case decision.ActionReply:
		useReply = true
	case decision.ActionRespond:
		useReply = false
	default:
		// No explicit decision: reply only to recent messages.
		useReply = time.Since(msg.Timestamp) < recentReplyWindow
	}

	if useReply {
		sent, err := a.client.Reply(ctx, msg.ChannelID, msg.MessageID, text)
		if err == nil {
			return sent, nil
		}
		slog.Warn("reply failed, falling back to plain send",
			"channel_id", msg.ChannelID, "message_id", msg.MessageID, "error", err)
	}

	sent, err := a.client.Send(ctx, msg.ChannelID, text)
	if err != nil {
		return nil, fmt.Errorf("send response: %w", err)
	}
	return sent, nil
}

func typingDelay(responseHint int) time.Duration {
	d := typingBase + time.Duration(responseHint)*typingPerChar
	if d > typingMax {
		d = typingMax
	}
	// ±10% jitter
	jitter := time.Duration(rand.Int63n(int64(d)/5+1)) - d/10
	return d + jitter
}
