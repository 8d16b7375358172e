package decision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lunavale/selene/internal/providers"
)

// FallbackGreeting is the last-resort reply when generation fails
// entirely. Silence looks like a broken bot; a canned line does not.
const FallbackGreeting = "Hey! My brain glitched for a second — mind saying that again?"

const replyTimeout = 60 * time.Second

// ReplyMeta describes how a reply was produced.
type ReplyMeta struct {
	Usage             *providers.Usage
	Truncated         bool
	Fallback          bool
	MessagesIncluded  int
	MessagesAvailable int
}

// GenerateReply asks the model for an in-character reply to the current
// context. Failures degrade to FallbackGreeting — this method never
// returns an error.
func (e *Engine) GenerateReply(ctx context.Context, dctx Context) (string, ReplyMeta) {
	settings := e.llm()
	prompt, pmeta := buildReplyPrompt(dctx, settings.ContextLimit)
	meta := ReplyMeta{
		MessagesIncluded:  pmeta.MessagesIncluded,
		MessagesAvailable: pmeta.MessagesAvailable,
	}

	callCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	resp, err := e.provider.Generate(callCtx, prompt, providers.GenerateOptions{
		Model:       settings.Model,
		Temperature: settings.Temperature,
		TopP:        settings.TopP,
		MaxTokens:   settings.MaxTokens,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		slog.Warn("reply generation failed, using fallback greeting",
			"channel_id", dctx.Message.ChannelID, "error", err)
		meta.Fallback = true
		return FallbackGreeting, meta
	}

	text := strings.TrimSpace(resp.Content)
	// Models sometimes echo the speaker label back.
	text = strings.TrimPrefix(text, dctx.Persona.Name+":")
	text = strings.TrimSpace(text)

	if settings.MaxCharacters > 0 && len(text) > settings.MaxCharacters {
		text = truncateAtWord(text, settings.MaxCharacters)
		meta.Truncated = true
	}
	meta.Usage = resp.Usage
	return text, meta
}

// buildReplyPrompt is the character-response prompt: persona card,
// example dialogue, budgeted history, current message.
func buildReplyPrompt(dctx Context, contextLimit int) (string, PromptMeta) {
	if contextLimit <= 0 {
		contextLimit = 8192
	}
	budget := contextLimit - contextLimit/10

	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(dctx.Persona.Name)
	b.WriteString(". Stay in character and reply naturally in the chat below.\n")
	if dctx.Persona.Description != "" {
		b.WriteString(dctx.Persona.Description)
		b.WriteString("\n")
	}
	if dctx.Persona.MesExample != "" {
		b.WriteString("\nExample dialogue:\n")
		b.WriteString(dctx.Persona.MesExample)
		b.WriteString("\n")
	}
	if dctx.ImageSummary != "" {
		b.WriteString("\nThe message includes an image: ")
		b.WriteString(dctx.ImageSummary)
		b.WriteString("\n")
	}
	if dctx.EmbedSummary != "" {
		b.WriteString("\nThe message includes a link preview: ")
		b.WriteString(dctx.EmbedSummary)
		b.WriteString("\n")
	}
	if len(dctx.ToolResults) > 0 {
		b.WriteString("\nThings you looked up just now:\n")
		for _, tr := range dctx.ToolResults {
			if tr.Success && tr.Summary != "" {
				b.WriteString("- ")
				b.WriteString(tr.Summary)
				b.WriteString("\n")
			}
		}
	}

	current := fmt.Sprintf("\n%s: %s\n%s:", authorName(dctx), dctx.Cleaned, dctx.Persona.Name)

	meta := PromptMeta{MessagesAvailable: len(dctx.History), Budget: budget}
	fixed := estimateTokens(b.String()) + estimateTokens(current) + estimateTokens("\nChat:\n")

	included := selectHistory(dctx.History, budget-fixed)
	meta.MessagesIncluded = len(included)

	if len(included) > 0 {
		b.WriteString("\nChat:\n")
		for _, m := range included {
			b.WriteString(renderTurn(m))
		}
	}
	b.WriteString(current)

	prompt := b.String()
	meta.EstimatedTokens = estimateTokens(prompt)
	return prompt, meta
}

// truncateAtWord cuts at the last space before the limit when one exists
// in the back half, so truncation doesn't split a word.
func truncateAtWord(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndexByte(cut, ' '); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut
}
