package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc pulls recent messages from the external platform, newest or
// oldest first — order is normalized here.
type FetchFunc func(ctx context.Context, channelID string, limit int) ([]Message, error)

// BackfillOptions tunes LoadRecent.
type BackfillOptions struct {
	MaxAge      time.Duration // ignore fetched messages older than this
	MaxMessages int           // fetch limit
	Freshness   time.Duration // existing history younger than this counts as fresh
	SelfUserID  string        // the bot's own user ID; other bots are dropped
}

type backfillGroup struct {
	sf singleflight.Group
}

// NeedsBackfill reports whether the channel's history is stale: fewer than
// two messages, or the newest entry older than the freshness window.
func (s *Store) NeedsBackfill(channelID string, freshness time.Duration) bool {
	s.mu.RLock()
	cl, ok := s.channels[channelID]
	s.mu.RUnlock()
	if !ok {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if len(cl.msgs) < 2 {
		return true
	}
	return time.Since(cl.msgs[0].Timestamp) > freshness
}

// LoadRecent fills a stale channel from the platform. Messages from other
// bots are dropped; the bot's own prior turns are kept so conversations
// survive a restart from the user's point of view. Fetch failures are
// logged and swallowed — no history is never fatal.
//
// Concurrent calls for the same channel collapse into one fetch.
func (s *Store) LoadRecent(ctx context.Context, channelID string, fetch FetchFunc, opts BackfillOptions) {
	if !s.NeedsBackfill(channelID, opts.Freshness) {
		return
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 50
	}

	_, err, _ := s.backfill.sf.Do(channelID, func() (interface{}, error) {
		fetched, err := fetch(ctx, channelID, opts.MaxMessages)
		if err != nil {
			return nil, fmt.Errorf("fetch channel history: %w", err)
		}

		cutoff := time.Time{}
		if opts.MaxAge > 0 {
			cutoff = time.Now().Add(-opts.MaxAge)
		}

		kept := fetched[:0]
		for _, m := range fetched {
			if m.IsBot && m.UserID != opts.SelfUserID {
				continue // other bots add noise, not context
			}
			if !cutoff.IsZero() && m.Timestamp.Before(cutoff) {
				continue
			}
			m.ChannelID = channelID
			kept = append(kept, m)
		}

		// Storage is newest-first; replace wholesale rather than merging
		// with whatever partial history accumulated meanwhile.
		sortNewestFirst(kept)

		cl := s.log(channelID)
		cl.mu.Lock()
		if len(kept) > len(cl.msgs) {
			cl.msgs = append([]Message(nil), kept...)
		}
		cl.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		slog.Warn("history backfill failed, continuing without it",
			"channel_id", channelID, "error", err)
	}
}
