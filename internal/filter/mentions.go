package filter

import (
	"context"
	"log/slog"
	"regexp"
	"sync"

	"github.com/lunavale/selene/internal/bus"
)

// mentionRe matches raw user-mention tokens: <@id> and <@!id>.
var mentionRe = regexp.MustCompile(`<@!?(\d+)>`)

// mentionPlaceholder stands in when a user ID cannot be resolved at all.
// The prompt layer must never see opaque snowflakes.
const mentionPlaceholder = "@user"

// Resolver turns a user ID into a display name.
type Resolver interface {
	DisplayName(ctx context.Context, guildID, userID string) (string, bool)
}

// LookupFunc fetches a display name from the platform. Used as the cache
// miss path of CachingResolver.
type LookupFunc func(ctx context.Context, guildID, userID string) (string, error)

// CachingResolver resolves display names with an in-process cache in front
// of a platform lookup. Entries never expire; display-name drift is
// cosmetic and the cache dies with the process.
type CachingResolver struct {
	lookup LookupFunc
	cache  sync.Map // userID → display name
}

// NewCachingResolver creates a resolver over the given platform lookup.
func NewCachingResolver(lookup LookupFunc) *CachingResolver {
	return &CachingResolver{lookup: lookup}
}

// Seed primes the cache, typically from the mention list the platform
// already attached to the message.
func (r *CachingResolver) Seed(userID, name string) {
	if userID != "" && name != "" {
		r.cache.Store(userID, name)
	}
}

// DisplayName resolves via cache, then platform lookup.
func (r *CachingResolver) DisplayName(ctx context.Context, guildID, userID string) (string, bool) {
	if v, ok := r.cache.Load(userID); ok {
		return v.(string), true
	}
	if r.lookup == nil {
		return "", false
	}
	name, err := r.lookup(ctx, guildID, userID)
	if err != nil || name == "" {
		if err != nil {
			slog.Debug("mention lookup failed", "user_id", userID, "error", err)
		}
		return "", false
	}
	r.cache.Store(userID, name)
	return name, true
}

// resolveMentions replaces raw mention tokens with @DisplayName, using the
// message's own mention list first, then the resolver, then a placeholder.
func (f *Filter) resolveMentions(ctx context.Context, text string, msg bus.InboundMessage) string {
	if !mentionRe.MatchString(text) {
		return text
	}

	byID := make(map[string]string, len(msg.Mentions))
	for _, m := range msg.Mentions {
		name := m.DisplayName
		if name == "" {
			name = m.Username
		}
		if name != "" {
			byID[m.UserID] = name
		}
	}

	return mentionRe.ReplaceAllStringFunc(text, func(tok string) string {
		id := mentionRe.FindStringSubmatch(tok)[1]
		if name, ok := byID[id]; ok {
			return "@" + name
		}
		if f.resolver != nil {
			if name, ok := f.resolver.DisplayName(ctx, msg.GuildID, id); ok {
				return "@" + name
			}
		}
		return mentionPlaceholder
	})
}
