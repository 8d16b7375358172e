package actions

import (
	"context"

	"github.com/lunavale/selene/internal/plugin"
)

// IgnoreDefinition is the built-in ignore action: a no-op that still
// flows through the router so the stats layer counts it.
func IgnoreDefinition() plugin.Definition {
	return plugin.Definition{
		Name: "ignore",
		Type: plugin.TypeAction,
		Factory: func(_ plugin.Dependencies, _ map[string]any) (plugin.Plugin, error) {
			return plugin.PluginFunc(func(_ context.Context, _ plugin.Context) (*plugin.Result, error) {
				return &plugin.Result{Summary: "ignored"}, nil
			}), nil
		},
	}
}
