package actions

import (
	"context"
	"fmt"

	"github.com/lunavale/selene/internal/platform"
	"github.com/lunavale/selene/internal/plugin"
)

// StatusDefinition is the built-in status_change action: updates the
// bot's presence.
func StatusDefinition() plugin.Definition {
	return plugin.Definition{
		Name:         "status_change",
		Type:         plugin.TypeAction,
		Dependencies: []string{"platform"},
		Factory: func(deps plugin.Dependencies, _ map[string]any) (plugin.Plugin, error) {
			client, ok := deps["platform"].(platform.Client)
			if !ok {
				return nil, fmt.Errorf("platform dependency is not a platform.Client")
			}
			return &StatusAction{client: client}, nil
		},
	}
}

// StatusAction updates presence.
type StatusAction struct {
	client platform.Client
}

func (a *StatusAction) Execute(ctx context.Context, pc plugin.Context) (*plugin.Result, error) {
	status := pc.Request.Status
	if status == "" {
		return nil, fmt.Errorf("status_change action without status")
	}
	if err := a.client.SetStatus(ctx, status); err != nil {
		return nil, err
	}
	return &plugin.Result{Summary: "status set to " + status}, nil
}
