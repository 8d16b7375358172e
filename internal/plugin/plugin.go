// Package plugin is the catalog of tools, actions and behaviors. New
// capabilities register a Definition and the pipeline invokes them
// polymorphically through the Plugin interface — no pipeline code changes
// to add one.
package plugin

import (
	"context"

	"github.com/lunavale/selene/internal/bus"
	"github.com/lunavale/selene/internal/memory"
)

// Type classifies a plugin.
type Type string

const (
	TypeTool     Type = "tool"     // read-only context enrichment, runs before the decision
	TypeAction   Type = "action"   // terminal external effect
	TypeBehavior Type = "behavior" // proactive engagement logic
)

// Valid reports whether t is a known plugin type.
func (t Type) Valid() bool {
	switch t {
	case TypeTool, TypeAction, TypeBehavior:
		return true
	}
	return false
}

// Context is the bundle handed to an executing plugin: the triggering
// message, its cleaned text, conversation history, and — for actions —
// the chosen action request.
type Context struct {
	Message    bus.InboundMessage
	Cleaned    string
	History    []memory.Message
	TargetUser string

	// Enrichment produced upstream: vision analysis of attachments, the
	// filter's embed digest, and what the tool phase found. Empty when
	// the turn produced none.
	ImageSummary string
	EmbedSummary string
	ToolResults  []ToolResult

	// Request is set for action plugins only.
	Request ActionRequest
}

// ToolResult is one successful tool contribution, flattened so action
// plugins never depend on the tools package.
type ToolResult struct {
	Tool    string
	Summary string
}

// ActionRequest is the validated outcome of the decision layer, flattened
// so action plugins never depend on the decision package.
type ActionRequest struct {
	Action     string
	Confidence float64
	Reasoning  string
	Emoji      string
	Status     string
	TargetUser string
}

// Result is what a plugin execution produces. Tools fill Summary/Data;
// actions usually return an empty Result and report failure via error.
type Result struct {
	Summary string
	Data    map[string]any
}

// Plugin is the single capability every plugin type implements.
type Plugin interface {
	Execute(ctx context.Context, pc Context) (*Result, error)
}

// Dependencies are the named collaborators available to plugin factories
// (platform client, memory store, response generator, ...).
type Dependencies map[string]any

// Factory constructs a plugin instance from its dependencies. Called at
// most once per registered name; the instance is cached.
type Factory func(deps Dependencies, config map[string]any) (Plugin, error)

// Definition is the static descriptor registered at startup.
type Definition struct {
	Name         string
	Type         Type
	Factory      Factory
	Triggers     []string // keywords that make a tool eligible for a message
	Dependencies []string // names that must exist in Dependencies at instantiation
	Config       map[string]any
}

// PluginFunc adapts a plain function to the Plugin interface.
type PluginFunc func(ctx context.Context, pc Context) (*Result, error)

func (f PluginFunc) Execute(ctx context.Context, pc Context) (*Result, error) {
	return f(ctx, pc)
}
