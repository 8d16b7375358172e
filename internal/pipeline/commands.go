package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lunavale/selene/internal/bus"
)

// handleCommand answers prefixed admin commands directly, bypassing the
// decision layer entirely. Unknown commands are ignored so the prefix
// can double as a "don't process this" escape hatch.
func (p *Pipeline) handleCommand(ctx context.Context, msg bus.InboundMessage, body string) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(fields[0])

	log := slog.With("channel_id", msg.ChannelID, "author", msg.AuthorName, "command", cmd)

	var reply string
	switch cmd {
	case "ping":
		reply = "pong"

	case "stats":
		reply = p.statsReply(ctx, msg.ChannelID)

	case "clear":
		n := p.store.Clear(msg.ChannelID)
		reply = fmt.Sprintf("Cleared %d remembered messages for this channel.", n)

	default:
		log.Debug("unknown command ignored")
		return
	}

	if _, err := p.client.Send(ctx, msg.ChannelID, reply); err != nil {
		log.Warn("command reply failed", "error", err)
		return
	}
	log.Info("command handled")
}

func (p *Pipeline) statsReply(ctx context.Context, channelID string) string {
	mem := p.store.ChannelStats(channelID)
	var b strings.Builder
	fmt.Fprintf(&b, "Memory: %d messages, ~%d tokens", mem.TotalMessages, mem.EstimatedTokens)
	if mem.ContextLimit > 0 {
		fmt.Fprintf(&b, " (%.1f%% of %d)", mem.UsagePercent, mem.ContextLimit)
	}

	if p.activity != nil {
		act, err := p.activity.Stats(ctx, channelID)
		if err != nil {
			slog.Warn("activity stats failed", "channel_id", channelID, "error", err)
		} else if act.Total > 0 {
			fmt.Fprintf(&b, "\nActivity: %d turns — %d responded, %d ignored, %d failed",
				act.Total, act.Responded, act.Ignored, act.Failed)
		}
	}
	return b.String()
}
