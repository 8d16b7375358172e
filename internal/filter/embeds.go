package filter

import (
	"strings"

	"github.com/lunavale/selene/internal/bus"
)

// summarizeEmbeds renders rich embeds into a compact textual summary the
// prompt can carry: title, description, fields, and media markers.
func summarizeEmbeds(embeds []bus.Embed) string {
	if len(embeds) == 0 {
		return ""
	}

	parts := make([]string, 0, len(embeds))
	for _, e := range embeds {
		if s := summarizeEmbed(e); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func summarizeEmbed(e bus.Embed) string {
	var sections []string
	if e.Title != "" {
		sections = append(sections, e.Title)
	}
	if e.Description != "" {
		sections = append(sections, truncate(e.Description, 300))
	}
	for _, f := range e.Fields {
		if f.Name == "" && f.Value == "" {
			continue
		}
		sections = append(sections, f.Name+": "+truncate(f.Value, 120))
	}
	switch {
	case e.VideoURL != "":
		sections = append(sections, "[video]")
	case e.ImageURL != "":
		sections = append(sections, "[image]")
	case e.ThumbnailURL != "":
		sections = append(sections, "[thumbnail]")
	}
	if len(sections) == 0 {
		return ""
	}
	return "[Embed: " + strings.Join(sections, " | ") + "]"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
