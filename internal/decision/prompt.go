package decision

import (
	"fmt"
	"strings"

	"github.com/lunavale/selene/internal/memory"
)

// recentWindow is the history slice that is always included regardless of
// budget.
const recentWindow = 3

// PromptMeta reports what the builder managed to fit, for observability.
type PromptMeta struct {
	MessagesIncluded  int
	MessagesAvailable int
	EstimatedTokens   int
	Budget            int
}

// estimateTokens is the same cheap proxy the memory store uses — roughly
// four characters per token — plus one token per line for punctuation and
// formatting overhead.
func estimateTokens(s string) int {
	tokens := (len(s) + 3) / 4
	tokens += strings.Count(s, "\n") + 1
	return tokens
}

// BuildDecisionPrompt assembles the decision prompt within the model's
// context budget: a 10% safety reserve is held back, the persona, current
// message, last-3 window, image/embed summary and tool results are always
// present, and older history fills whatever budget remains, most recent
// first.
func BuildDecisionPrompt(dctx Context, contextLimit int, toolNames []string) (string, PromptMeta) {
	if contextLimit <= 0 {
		contextLimit = 8192
	}
	budget := contextLimit - contextLimit/10

	var b strings.Builder

	b.WriteString("You are ")
	b.WriteString(dctx.Persona.Name)
	b.WriteString(", deciding how to act on a chat message.\n")
	if dctx.Persona.Description != "" {
		b.WriteString(dctx.Persona.Description)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	writeInstructions(&b, toolNames)

	if dctx.ImageSummary != "" {
		b.WriteString("\nImage content:\n")
		b.WriteString(dctx.ImageSummary)
		b.WriteString("\n")
	}
	if dctx.EmbedSummary != "" {
		b.WriteString("\nEmbed content:\n")
		b.WriteString(dctx.EmbedSummary)
		b.WriteString("\n")
	}

	if len(dctx.ToolResults) > 0 {
		b.WriteString("\nTool results:\n")
		for _, tr := range dctx.ToolResults {
			if tr.Success {
				b.WriteString(fmt.Sprintf("- %s: %s\n", tr.Tool, tr.Summary))
			} else {
				b.WriteString(fmt.Sprintf("- %s: failed (%s)\n", tr.Tool, tr.Error))
			}
		}
	}

	current := fmt.Sprintf("\nCurrent message from %s:\n%s\n\nAnswer in the exact format above.\n",
		authorName(dctx), dctx.Cleaned)

	// Everything assembled so far plus the current message is
	// non-negotiable; history gets the remainder.
	meta := PromptMeta{MessagesAvailable: len(dctx.History), Budget: budget}
	fixed := estimateTokens(b.String()) + estimateTokens(current) + estimateTokens("\nConversation so far:\n")

	included := selectHistory(dctx.History, budget-fixed)
	meta.MessagesIncluded = len(included)

	if len(included) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, m := range included {
			b.WriteString(renderTurn(m))
		}
	}
	b.WriteString(current)

	prompt := b.String()
	meta.EstimatedTokens = estimateTokens(prompt)
	return prompt, meta
}

// selectHistory picks which history messages fit the budget. The last
// `recentWindow` messages are always kept; older ones are added most
// recent first until one no longer fits, then the walk stops. The result
// is oldest-first, ready for the prompt.
func selectHistory(history []memory.Message, budget int) []memory.Message {
	if len(history) == 0 {
		return nil
	}

	start := len(history) - recentWindow
	if start < 0 {
		start = 0
	}
	included := history[start:]

	spent := 0
	for _, m := range included {
		spent += estimateTokens(renderTurn(m))
	}

	// Walk older messages newest-to-oldest, stopping at the first one
	// that would blow the budget.
	cut := start
	for i := start - 1; i >= 0; i-- {
		cost := estimateTokens(renderTurn(history[i]))
		if spent+cost > budget {
			break
		}
		spent += cost
		cut = i
	}
	return history[cut:]
}

func renderTurn(m memory.Message) string {
	return m.Author + ": " + m.Content + "\n"
}

func authorName(dctx Context) string {
	if dctx.Message.DisplayName != "" {
		return dctx.Message.DisplayName
	}
	if dctx.Message.AuthorName != "" {
		return dctx.Message.AuthorName
	}
	return "user"
}

func writeInstructions(b *strings.Builder, toolNames []string) {
	b.WriteString("Decide on exactly one action and answer in this format:\n")
	b.WriteString("ACTION: respond | reply | react | ignore | status_change")
	for _, t := range toolNames {
		b.WriteString(" | ")
		b.WriteString(t)
	}
	b.WriteString("\n")
	b.WriteString("CONFIDENCE: a number between 0 and 1\n")
	b.WriteString("REASONING: one short sentence\n")
	b.WriteString("EMOJI: only when ACTION is react\n")
	b.WriteString("STATUS: only when ACTION is status_change (online, idle, dnd, invisible)\n")
	b.WriteString("TARGET_USER: only when a tool needs a specific user\n")
}
