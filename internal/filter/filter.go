// Package filter normalizes raw inbound messages before they enter the
// pipeline: emote stripping, mention resolution, embed summarising, and
// the keep/drop verdict. Process is a pure decision over message content;
// channel-activity and bot-author gating happen upstream in the pipeline.
package filter

import (
	"context"
	"strings"

	"github.com/lunavale/selene/internal/bus"
)

// Rejection reasons surfaced in Result.Reason.
const (
	ReasonEmoteOnly     = "emote_only"
	ReasonEmptyCleaned  = "empty_after_cleaning"
)

// ImagePlaceholder substitutes for message text that was nothing but an
// image once emotes are stripped.
const ImagePlaceholder = "[Image]"

// Result is the filter verdict for one message.
type Result struct {
	ShouldProcess bool
	Reason        string // set when ShouldProcess is false
	Cleaned       string // normalized text, mention tokens resolved
	HasImages     bool
	HasEmbeds     bool
	EmbedSummary  string
}

// Filter cleans and gates inbound messages.
type Filter struct {
	resolver Resolver
}

// New creates a Filter. resolver may be nil; mention tokens then resolve
// to the opaque placeholder.
func New(resolver Resolver) *Filter {
	return &Filter{resolver: resolver}
}

// Process runs the full normalization chain and returns the verdict.
func (f *Filter) Process(ctx context.Context, msg bus.InboundMessage) Result {
	hasImages := hasImageContent(msg)
	embedSummary := summarizeEmbeds(msg.Embeds)
	hasEmbeds := embedSummary != ""

	text := msg.Content

	// Emote-only messages carry no signal unless an image or embed does.
	if text != "" && isEmoteOnly(text) {
		if !hasImages && !hasEmbeds {
			return Result{Reason: ReasonEmoteOnly, HasImages: hasImages, HasEmbeds: hasEmbeds}
		}
		text = ""
	} else {
		text = strings.TrimSpace(stripEmotes(text))
	}

	if text == "" {
		switch {
		case hasImages:
			text = ImagePlaceholder
		case hasEmbeds:
			text = embedSummary
		default:
			return Result{Reason: ReasonEmptyCleaned}
		}
	}

	text = f.resolveMentions(ctx, text, msg)

	// Embed text rides along with the cleaned content so the decision
	// layer sees everything the user saw.
	if hasEmbeds && text != embedSummary {
		text = text + "\n" + embedSummary
	}

	return Result{
		ShouldProcess: true,
		Cleaned:       text,
		HasImages:     hasImages,
		HasEmbeds:     hasEmbeds,
		EmbedSummary:  embedSummary,
	}
}

// hasImageContent detects image-bearing attachments or embeds.
func hasImageContent(msg bus.InboundMessage) bool {
	for _, att := range msg.Attachments {
		if IsImageAttachment(att) {
			return true
		}
	}
	for _, e := range msg.Embeds {
		if e.ImageURL != "" || e.ThumbnailURL != "" {
			return true
		}
	}
	return false
}

// IsImageAttachment reports whether an attachment is an image, by MIME
// type when the platform provides one, falling back to the file
// extension. Vision uses the same predicate so every attachment the
// filter counts as an image is also eligible for analysis.
func IsImageAttachment(att bus.Attachment) bool {
	if strings.HasPrefix(att.ContentType, "image/") {
		return true
	}
	name := strings.ToLower(att.Filename)
	if name == "" {
		name = strings.ToLower(att.URL)
	}
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
