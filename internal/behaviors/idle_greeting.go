// Package behaviors holds proactive engagement plugins: logic that
// initiates contact instead of reacting to a message. Behaviors run from
// the scheduler, not from the message pipeline.
package behaviors

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/lunavale/selene/internal/memory"
	"github.com/lunavale/selene/internal/platform"
	"github.com/lunavale/selene/internal/plugin"
)

// defaultIdleThreshold: a channel quiet for longer than this is a
// candidate for a greeting.
const defaultIdleThreshold = 8 * time.Hour

// minGreetingGap keeps the bot from greeting the same channel twice in a
// row; the bot's own greeting resets the idle clock anyway, this is the
// floor between unanswered greetings.
const minGreetingGap = 24 * time.Hour

var greetings = []string{
	"It's gotten quiet in here... anyone around?",
	"Hey, how's everyone doing today?",
	"Feels like ages since anyone said anything. What's new?",
}

// IdleGreetingDefinition is the built-in idle-channel greeting behavior.
// Config keys: "idle_hours" (float64), "channels" ([]any of string IDs).
func IdleGreetingDefinition() plugin.Definition {
	return plugin.Definition{
		Name:         "idle_greeting",
		Type:         plugin.TypeBehavior,
		Dependencies: []string{"platform", "memory"},
		Factory: func(deps plugin.Dependencies, config map[string]any) (plugin.Plugin, error) {
			b := &idleGreeting{threshold: defaultIdleThreshold}
			var ok bool
			if b.client, ok = deps["platform"].(platform.Client); !ok {
				return nil, fmt.Errorf("platform dependency is not a platform.Client")
			}
			if b.store, ok = deps["memory"].(*memory.Store); !ok {
				return nil, fmt.Errorf("memory dependency is not a *memory.Store")
			}
			if hours, ok := config["idle_hours"].(float64); ok && hours > 0 {
				b.threshold = time.Duration(hours * float64(time.Hour))
			}
			if raw, ok := config["channels"].([]any); ok {
				for _, v := range raw {
					if id, ok := v.(string); ok {
						b.channels = append(b.channels, id)
					}
				}
			}
			return b, nil
		},
	}
}

type idleGreeting struct {
	client    platform.Client
	store     *memory.Store
	threshold time.Duration
	channels  []string

	lastGreeted map[string]time.Time
}

// Execute checks every configured channel and greets the idle ones.
// pc is unused; behaviors run on schedule, not per message.
func (b *idleGreeting) Execute(ctx context.Context, _ plugin.Context) (*plugin.Result, error) {
	if b.lastGreeted == nil {
		b.lastGreeted = make(map[string]time.Time)
	}

	greeted := 0
	for _, channelID := range b.channels {
		if !b.isIdle(channelID) {
			continue
		}
		if time.Since(b.lastGreeted[channelID]) < minGreetingGap {
			continue
		}

		text := greetings[rand.Intn(len(greetings))]
		sent, err := b.client.Send(ctx, channelID, text)
		if err != nil {
			return nil, fmt.Errorf("send idle greeting: %w", err)
		}
		b.lastGreeted[channelID] = time.Now()
		greeted++

		b.store.Append(memory.Message{
			Content:   text,
			Timestamp: sent.Timestamp,
			ChannelID: channelID,
			MessageID: sent.MessageID,
		}, true)
	}

	return &plugin.Result{
		Summary: fmt.Sprintf("greeted %d idle channels", greeted),
		Data:    map[string]any{"greeted": greeted},
	}, nil
}

// isIdle reports whether the channel's newest remembered message is older
// than the threshold. An empty history means the bot has never seen the
// channel talk; stay quiet rather than greet into the unknown.
func (b *idleGreeting) isIdle(channelID string) bool {
	hist := b.store.History(channelID)
	if len(hist) == 0 {
		return false
	}
	return time.Since(hist[len(hist)-1].Timestamp) > b.threshold
}
