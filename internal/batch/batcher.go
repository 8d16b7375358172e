package batch

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Item is one message entering the batcher. Payload carries the caller's
// full message value through to the flush untouched.
type Item struct {
	ChannelID string
	UserID    string
	Content   string
	Payload   any
}

// Flush is one combined logical turn: every accumulated item in arrival
// order, plus their contents joined with single spaces.
type Flush struct {
	ChannelID string
	UserID    string
	Items     []Item
	Combined  string
	Last      Item
}

// FlushFunc receives each flushed batch. Errors are logged, never fatal;
// a failing callback must not corrupt batcher state.
type FlushFunc func(Flush) error

// Batcher merges bursts of messages per (channel, user) key under a
// sliding debounce window. Messages with a missing channel or user ID
// bypass batching and flush immediately — fail open, never drop.
type Batcher struct {
	window  time.Duration
	maxWait time.Duration
	flush   FlushFunc

	deb     *Debouncer
	mu      sync.Mutex
	batches map[string]*pending
}

type pending struct {
	items []Item
}

// NewBatcher creates a Batcher. window <= 0 defaults to 3s.
func NewBatcher(window, maxWait time.Duration, flush FlushFunc) *Batcher {
	if window <= 0 {
		window = 3 * time.Second
	}
	return &Batcher{
		window:  window,
		maxWait: maxWait,
		flush:   flush,
		deb:     NewDebouncer(),
		batches: make(map[string]*pending),
	}
}

// Add accepts one message. It either joins the sender's open batch
// (resetting the debounce window) or opens a new one.
func (b *Batcher) Add(item Item) {
	if item.ChannelID == "" || item.UserID == "" {
		b.deliver(Flush{
			ChannelID: item.ChannelID,
			UserID:    item.UserID,
			Items:     []Item{item},
			Combined:  item.Content,
			Last:      item,
		})
		return
	}

	key := item.ChannelID + "\x00" + item.UserID

	b.mu.Lock()
	p, ok := b.batches[key]
	if !ok {
		p = &pending{}
		b.batches[key] = p
	}
	p.items = append(p.items, item)
	b.mu.Unlock()

	b.deb.Schedule(key, b.window, b.maxWait, func() { b.fire(key) })
}

// fire flushes the batch for key when its timer expires uninterrupted.
func (b *Batcher) fire(key string) {
	b.mu.Lock()
	p, ok := b.batches[key]
	if !ok || len(p.items) == 0 {
		delete(b.batches, key)
		b.mu.Unlock()
		return
	}
	items := p.items
	delete(b.batches, key)
	b.mu.Unlock()

	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.Content != "" {
			parts = append(parts, it.Content)
		}
	}

	b.deliver(Flush{
		ChannelID: items[0].ChannelID,
		UserID:    items[0].UserID,
		Items:     items,
		Combined:  strings.Join(parts, " "),
		Last:      items[len(items)-1],
	})
}

func (b *Batcher) deliver(f Flush) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("batch callback panicked",
				"channel_id", f.ChannelID, "user_id", f.UserID, "panic", r)
		}
	}()
	if err := b.flush(f); err != nil {
		slog.Warn("batch callback failed",
			"channel_id", f.ChannelID, "user_id", f.UserID,
			"messages", len(f.Items), "error", err)
	}
}

// PendingFor reports whether a batch is open for (channelID, userID).
func (b *Batcher) PendingFor(channelID, userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.batches[channelID+"\x00"+userID]
	return ok
}
