package actions

import (
	"context"
	"fmt"

	"github.com/lunavale/selene/internal/platform"
	"github.com/lunavale/selene/internal/plugin"
)

// ReactionDefinition is the built-in react action: one emoji reaction on
// the triggering message.
func ReactionDefinition() plugin.Definition {
	return plugin.Definition{
		Name:         "react",
		Type:         plugin.TypeAction,
		Dependencies: []string{"platform"},
		Factory: func(deps plugin.Dependencies, _ map[string]any) (plugin.Plugin, error) {
			client, ok := deps["platform"].(platform.Client)
			if !ok {
				return nil, fmt.Errorf("platform dependency is not a platform.Client")
			}
			return &ReactionAction{client: client}, nil
		},
	}
}

// ReactionAction adds an emoji reaction.
type ReactionAction struct {
	client platform.Client
}

func (a *ReactionAction) Execute(ctx context.Context, pc plugin.Context) (*plugin.Result, error) {
	emoji := pc.Request.Emoji
	if emoji == "" {
		return nil, fmt.Errorf("react action without emoji")
	}
	if err := a.client.React(ctx, pc.Message.ChannelID, pc.Message.MessageID, emoji); err != nil {
		return nil, err
	}
	return &plugin.Result{Summary: "reacted with " + emoji}, nil
}
