package filter

import (
	"regexp"
	"strings"
	"unicode"
)

// customEmoteRe matches Discord custom emote tokens: <:name:id> and
// animated <a:name:id>.
var customEmoteRe = regexp.MustCompile(`<a?:\w+:\d+>`)

// stripEmotes removes custom emote tokens and unicode emoji from text.
func stripEmotes(s string) string {
	s = customEmoteRe.ReplaceAllString(s, "")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmojiRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isEmoteOnly reports whether the text consists entirely of emote tokens,
// emoji and whitespace.
func isEmoteOnly(s string) bool {
	rest := customEmoteRe.ReplaceAllString(s, "")
	for _, r := range rest {
		if unicode.IsSpace(r) || isEmojiRune(r) {
			continue
		}
		return false
	}
	return strings.TrimSpace(s) != ""
}

// isEmojiRune covers the common emoji blocks plus the joiners and
// modifiers that ride along with them. Not exhaustive — good enough for
// the emote-only gate.
func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators (flags)
		return true
	case r == 0x200D || r == 0xFE0F || r == 0xFE0E: // ZWJ, variation selectors
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	}
	return false
}
