package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/lunavale/selene/internal/platform"
	"github.com/lunavale/selene/internal/plugin"
)

// ProfileLookupDefinition is the built-in profile_lookup tool: resolves a
// member's profile for the decision prompt. Target is the explicit
// TargetUser, else the first mentioned user, else the author.
func ProfileLookupDefinition() plugin.Definition {
	return plugin.Definition{
		Name:         "profile_lookup",
		Type:         plugin.TypeTool,
		Triggers:     []string{"who is", "profile", "about me", "about them"},
		Dependencies: []string{"platform"},
		Factory: func(deps plugin.Dependencies, _ map[string]any) (plugin.Plugin, error) {
			client, ok := deps["platform"].(platform.Client)
			if !ok {
				return nil, fmt.Errorf("platform dependency is not a platform.Client")
			}
			return &profileLookup{client: client}, nil
		},
	}
}

type profileLookup struct {
	client platform.Client
}

func (t *profileLookup) Execute(ctx context.Context, pc plugin.Context) (*plugin.Result, error) {
	userID := pc.TargetUser
	if userID == "" && len(pc.Message.Mentions) > 0 {
		userID = pc.Message.Mentions[0].UserID
	}
	if userID == "" {
		userID = pc.Message.AuthorID
	}

	member, err := t.client.Member(ctx, pc.Message.GuildID, userID)
	if err != nil {
		return nil, fmt.Errorf("profile lookup: %w", err)
	}

	name := member.DisplayName
	if name == "" {
		name = member.Username
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%s (@%s)", name, member.Username))
	if member.IsBot {
		parts = append(parts, "bot account")
	}
	if !member.JoinedAt.IsZero() {
		parts = append(parts, "joined "+member.JoinedAt.Format("2006-01-02"))
	}
	if n := len(member.Roles); n > 0 {
		parts = append(parts, fmt.Sprintf("%d roles", n))
	}

	return &plugin.Result{
		Summary: "Profile: " + strings.Join(parts, ", "),
		Data: map[string]any{
			"user_id":      member.ID,
			"username":     member.Username,
			"display_name": name,
			"is_bot":       member.IsBot,
		},
	}, nil
}
