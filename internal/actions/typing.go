// Package actions executes validated decisions against the platform:
// respond/reply with typing simulation, react, status change, and the
// no-op ignore. Each action is a plugin; the Router resolves them through
// the registry.
package actions

import (
	"log/slog"
	"sync"
	"time"
)

// TypingOptions configures a typing indicator controller.
type TypingOptions struct {
	MaxDuration       time.Duration // TTL safety net against stuck indicators
	KeepaliveInterval time.Duration // platform indicators expire, re-trigger under that
	StartFn           func() error  // triggers the indicator once
}

// TypingController keeps a typing indicator alive until stopped or its
// TTL expires. Discord's indicator lasts ~10s, so keepalive every 9s.
type TypingController struct {
	opts TypingOptions
	stop chan struct{}
	once sync.Once
}

// NewTyping creates a controller; call Start to begin.
func NewTyping(opts TypingOptions) *TypingController {
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 60 * time.Second
	}
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = 9 * time.Second
	}
	return &TypingController{opts: opts, stop: make(chan struct{})}
}

// Start triggers the indicator and keeps it alive on a goroutine.
func (t *TypingController) Start() {
	if err := t.opts.StartFn(); err != nil {
		slog.Debug("typing indicator failed", "error", err)
	}

	go func() {
		ticker := time.NewTicker(t.opts.KeepaliveInterval)
		defer ticker.Stop()
		ttl := time.NewTimer(t.opts.MaxDuration)
		defer ttl.Stop()

		for {
			select {
			case <-t.stop:
				return
			case <-ttl.C:
				return
			case <-ticker.C:
				if err := t.opts.StartFn(); err != nil {
					slog.Debug("typing keepalive failed", "error", err)
				}
			}
		}
	}()
}

// Stop ends the keepalive. Safe to call more than once.
func (t *TypingController) Stop() {
	t.once.Do(func() { close(t.stop) })
}
