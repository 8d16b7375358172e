// Package decision turns a message plus its context into exactly one
// structured Decision: a token-budgeted prompt, a tolerant line-format
// parser, and a validation pass that keeps bad decisions from ever
// reaching the action layer.
package decision

import (
	"github.com/lunavale/selene/internal/bus"
	"github.com/lunavale/selene/internal/config"
	"github.com/lunavale/selene/internal/memory"
	"github.com/lunavale/selene/internal/tools"
)

// Terminal action values. Anything else is either a tool name or garbage.
const (
	ActionRespond      = "respond"
	ActionReply        = "reply"
	ActionReact        = "react"
	ActionIgnore       = "ignore"
	ActionStatusChange = "status_change"
)

// defaultConfidence is assigned when the model's confidence is missing,
// malformed, or out of range.
const defaultConfidence = 0.1

// Decision is the structured outcome for one logical turn.
type Decision struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Emoji      string  `json:"emoji,omitempty"`
	Status     string  `json:"status,omitempty"`
	TargetUser string  `json:"target_user,omitempty"`
}

// Default is the safe decision returned whenever parsing or the LLM call
// itself fails. The pipeline always gets a Decision, never an error.
func Default(reasoning string) Decision {
	if reasoning == "" {
		reasoning = "parse failure"
	}
	return Decision{Action: ActionIgnore, Confidence: defaultConfidence, Reasoning: reasoning}
}

// Context is the ephemeral bundle a decision is made from. Built per
// message, discarded after action execution, never persisted.
type Context struct {
	Message      bus.InboundMessage
	Cleaned      string
	History      []memory.Message
	ImageSummary string
	EmbedSummary string
	ToolResults  []tools.Outcome
	Persona      config.PersonaConfig
}

// IsTerminal reports whether action is a terminal action value rather
// than a tool name.
func IsTerminal(action string) bool {
	switch action {
	case ActionRespond, ActionReply, ActionReact, ActionIgnore, ActionStatusChange:
		return true
	}
	return false
}

// knownStatuses are the presence values the platform accepts.
var knownStatuses = map[string]bool{
	"online":    true,
	"idle":      true,
	"dnd":       true,
	"invisible": true,
}
