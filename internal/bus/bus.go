// Package bus provides the in-process message bus between the platform
// adapter and the processing pipeline. Go-channel based; one producer
// (the gateway handler), one consumer (the pipeline).
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const publishTimeout = 10 * time.Second

// Bus is an in-memory inbound message queue.
type Bus struct {
	inbound chan InboundMessage
	mu      sync.RWMutex
	closed  bool
}

// New creates a Bus with the given buffer size.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{inbound: make(chan InboundMessage, bufferSize)}
}

// Publish enqueues an inbound message. Blocks up to 10 seconds if the bus
// is full instead of dropping.
func (b *Bus) Publish(msg InboundMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed bus", "channel_id", msg.ChannelID)
		return
	}

	select {
	case b.inbound <- msg:
	default:
		slog.Warn("inbound bus full, waiting", "channel_id", msg.ChannelID, "author_id", msg.AuthorID)
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.inbound <- msg:
		case <-timer.C:
			slog.Error("message dropped: bus full",
				"channel_id", msg.ChannelID,
				"author_id", msg.AuthorID,
			)
		}
	}
}

// Consume receives the next inbound message. Returns false when the bus is
// closed and drained, or the context is canceled.
func (b *Bus) Consume(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg, ok := <-b.inbound:
		return msg, ok
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// Close shuts the bus down. Pending messages can still be consumed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.inbound)
}
