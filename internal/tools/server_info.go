package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/lunavale/selene/internal/platform"
	"github.com/lunavale/selene/internal/plugin"
)

// ServerInfoDefinition is the built-in server_info tool: channel and
// guild metadata for "where am I" style questions.
func ServerInfoDefinition() plugin.Definition {
	return plugin.Definition{
		Name:         "server_info",
		Type:         plugin.TypeTool,
		Triggers:     []string{"this server", "this channel", "server info"},
		Dependencies: []string{"platform"},
		Factory: func(deps plugin.Dependencies, _ map[string]any) (plugin.Plugin, error) {
			client, ok := deps["platform"].(platform.Client)
			if !ok {
				return nil, fmt.Errorf("platform dependency is not a platform.Client")
			}
			return &serverInfo{client: client}, nil
		},
	}
}

type serverInfo struct {
	client platform.Client
}

func (t *serverInfo) Execute(ctx context.Context, pc plugin.Context) (*plugin.Result, error) {
	info, err := t.client.ChannelInfo(ctx, pc.Message.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("server info: %w", err)
	}

	var parts []string
	if info.GuildName != "" {
		parts = append(parts, "server "+info.GuildName)
	}
	if info.Name != "" {
		parts = append(parts, "channel #"+info.Name)
	}
	if info.Topic != "" {
		parts = append(parts, "topic: "+info.Topic)
	}
	if len(parts) == 0 {
		parts = append(parts, "direct message")
	}

	return &plugin.Result{
		Summary: "Location: " + strings.Join(parts, ", "),
		Data: map[string]any{
			"channel_id":   info.ID,
			"channel_name": info.Name,
			"guild_id":     info.GuildID,
			"guild_name":   info.GuildName,
		},
	}, nil
}
