// Package memory is the in-process conversation store: a per-channel,
// most-recent-first message log with token-usage estimation, age-based
// eviction and lazy backfill from the platform. Nothing here survives a
// restart; durable history is the platform's job.
package memory

import (
	"sort"
	"sync"
	"time"
)

// Message is one logged conversation turn. Channel and guild fields are
// denormalized so stats and grouping never need a join. Never mutated
// after insertion.
type Message struct {
	Author          string
	IsBot           bool
	Content         string
	Timestamp       time.Time
	ChannelID       string
	ChannelName     string
	GuildID         string
	GuildName       string
	UserID          string
	UserDisplayName string
	MessageID       string
}

// Stats summarizes one channel's memory usage. EstimatedTokens is a cheap
// chars/4 proxy, not a real tokenizer count.
type Stats struct {
	TotalMessages   int
	EstimatedTokens int
	ContextLimit    int
	UsagePercent    float64
	ChannelName     string
	GuildName       string
}

// Options configures a Store. The funcs are read per call so hot-reloaded
// settings apply without rebuilding the store.
type Options struct {
	PersonaName  func() string // bot display name for bot-authored turns
	ContextLimit func() int    // model context window, for usage stats
}

// channelLog holds one channel's messages, newest first.
// Guarded by its own mutex; channels never contend with each other.
type channelLog struct {
	mu   sync.Mutex
	msgs []Message
}

// Store is the conversation memory. Safe for concurrent use; appends are
// serialized per channel only.
type Store struct {
	mu       sync.RWMutex
	channels map[string]*channelLog
	opts     Options

	backfill backfillGroup
}

// NewStore creates an empty Store.
func NewStore(opts Options) *Store {
	if opts.PersonaName == nil {
		opts.PersonaName = func() string { return "bot" }
	}
	if opts.ContextLimit == nil {
		opts.ContextLimit = func() int { return 8192 }
	}
	return &Store{
		channels: make(map[string]*channelLog),
		opts:     opts,
	}
}

// log returns the channel's log, creating it if needed.
func (s *Store) log(channelID string) *channelLog {
	s.mu.RLock()
	cl, ok := s.channels[channelID]
	s.mu.RUnlock()
	if ok {
		return cl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cl, ok = s.channels[channelID]; ok {
		return cl
	}
	cl = &channelLog{}
	s.channels[channelID] = cl
	return cl
}

// Append records a turn, newest first. When isBot is set the author is
// resolved to the persona name. Returns the stored record.
func (s *Store) Append(msg Message, isBot bool) Message {
	if isBot {
		msg.IsBot = true
		msg.Author = s.opts.PersonaName()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	cl := s.log(msg.ChannelID)
	cl.mu.Lock()
	cl.msgs = append([]Message{msg}, cl.msgs...)
	cl.mu.Unlock()
	return msg
}

// History returns the channel's messages oldest-first — the ordering a
// prompt needs. Unknown channels yield an empty slice, never an error.
func (s *Store) History(channelID string) []Message {
	s.mu.RLock()
	cl, ok := s.channels[channelID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	out := make([]Message, len(cl.msgs))
	for i, m := range cl.msgs {
		out[len(cl.msgs)-1-i] = m
	}
	return out
}

// Clear removes one channel's history and returns the number of messages
// removed. Calling it twice returns N then 0.
func (s *Store) Clear(channelID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cl, ok := s.channels[channelID]
	if !ok {
		return 0
	}
	cl.mu.Lock()
	n := len(cl.msgs)
	cl.mu.Unlock()
	delete(s.channels, channelID)
	return n
}

// ClearAll wipes every channel and returns the total removed.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, cl := range s.channels {
		cl.mu.Lock()
		total += len(cl.msgs)
		cl.mu.Unlock()
	}
	s.channels = make(map[string]*channelLog)
	return total
}

// ChannelStats reports memory usage for one channel.
func (s *Store) ChannelStats(channelID string) Stats {
	limit := s.opts.ContextLimit()
	st := Stats{ContextLimit: limit}

	s.mu.RLock()
	cl, ok := s.channels[channelID]
	s.mu.RUnlock()
	if !ok {
		return st
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	st.TotalMessages = len(cl.msgs)
	chars := 0
	for _, m := range cl.msgs {
		// "author: content" is what the prompt builder renders.
		chars += len(m.Author) + 2 + len(m.Content)
	}
	st.EstimatedTokens = (chars + 3) / 4
	if limit > 0 {
		st.UsagePercent = float64(st.EstimatedTokens) / float64(limit) * 100
	}
	if len(cl.msgs) > 0 {
		st.ChannelName = cl.msgs[0].ChannelName
		st.GuildName = cl.msgs[0].GuildName
	}
	return st
}

// CleanupOlderThan evicts messages older than maxAge. Channels left empty
// are deleted entirely. Returns the number of messages removed.
func (s *Store) CleanupOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cl := range s.channels {
		cl.mu.Lock()
		kept := cl.msgs[:0]
		for _, m := range cl.msgs {
			if m.Timestamp.After(cutoff) {
				kept = append(kept, m)
			} else {
				removed++
			}
		}
		cl.msgs = kept
		empty := len(cl.msgs) == 0
		cl.mu.Unlock()
		if empty {
			delete(s.channels, id)
		}
	}
	return removed
}

// sortNewestFirst orders messages newest first, matching storage order.
func sortNewestFirst(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.After(msgs[j].Timestamp)
	})
}
