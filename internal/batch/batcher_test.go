package batch

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// collector gathers flushes behind a mutex for test assertions.
type collector struct {
	mu      sync.Mutex
	flushes []Flush
}

func (c *collector) add(f Flush) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes = append(c.flushes, f)
	return nil
}

func (c *collector) get() []Flush {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Flush(nil), c.flushes...)
}

func (c *collector) wait(t *testing.T, n int) []Flush {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := c.get(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d flushes, have %d", n, len(c.get()))
	return nil
}

func TestBatcher_BurstFlushesOnce(t *testing.T) {
	var c collector
	b := NewBatcher(30*time.Millisecond, 0, c.add)

	b.Add(Item{ChannelID: "ch", UserID: "u", Content: "hello"})
	b.Add(Item{ChannelID: "ch", UserID: "u", Content: "are"})
	b.Add(Item{ChannelID: "ch", UserID: "u", Content: "you there?"})

	flushes := c.wait(t, 1)
	time.Sleep(60 * time.Millisecond)
	if got := c.get(); len(got) != 1 {
		t.Fatalf("got %d flushes, want 1", len(got))
	}

	f := flushes[0]
	if f.Combined != "hello are you there?" {
		t.Errorf("Combined = %q", f.Combined)
	}
	if len(f.Items) != 3 {
		t.Errorf("Items = %d, want 3", len(f.Items))
	}
	if f.Last.Content != "you there?" {
		t.Errorf("Last = %q", f.Last.Content)
	}
}

func TestBatcher_SeparateUsersSeparateBatches(t *testing.T) {
	var c collector
	b := NewBatcher(20*time.Millisecond, 0, c.add)

	b.Add(Item{ChannelID: "ch", UserID: "u1", Content: "from alice"})
	b.Add(Item{ChannelID: "ch", UserID: "u2", Content: "from bob"})

	flushes := c.wait(t, 2)
	if len(flushes) != 2 {
		t.Fatalf("got %d flushes, want 2", len(flushes))
	}
	seen := map[string]bool{}
	for _, f := range flushes {
		seen[f.UserID] = true
	}
	if !seen["u1"] || !seen["u2"] {
		t.Errorf("missing a user's flush: %v", seen)
	}
}

func TestBatcher_MissingIDsFlushImmediately(t *testing.T) {
	var c collector
	b := NewBatcher(time.Hour, 0, c.add) // window long enough to prove no timer ran

	b.Add(Item{ChannelID: "", UserID: "u", Content: "no channel"})
	b.Add(Item{ChannelID: "ch", UserID: "", Content: "no user"})

	if got := c.get(); len(got) != 2 {
		t.Fatalf("got %d immediate flushes, want 2", len(got))
	}
}

func TestBatcher_CallbackErrorDoesNotPoison(t *testing.T) {
	var c collector
	calls := 0
	b := NewBatcher(15*time.Millisecond, 0, func(f Flush) error {
		calls++
		if calls == 1 {
			return errors.New("downstream broken")
		}
		return c.add(f)
	})

	b.Add(Item{ChannelID: "ch", UserID: "u", Content: "first"})
	time.Sleep(60 * time.Millisecond)
	b.Add(Item{ChannelID: "ch", UserID: "u", Content: "second"})

	flushes := c.wait(t, 1)
	if flushes[0].Combined != "second" {
		t.Errorf("second flush = %q", flushes[0].Combined)
	}
}

func TestBatcher_MaxWaitBoundsStream(t *testing.T) {
	var c collector
	b := NewBatcher(40*time.Millisecond, 120*time.Millisecond, c.add)

	// A steady stream faster than the window would defer forever without
	// the ceiling.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 15; i++ {
			b.Add(Item{ChannelID: "ch", UserID: "u", Content: "x"})
			time.Sleep(20 * time.Millisecond)
		}
	}()

	c.wait(t, 1)
	<-done
}

func TestBatcher_PendingFor(t *testing.T) {
	var c collector
	b := NewBatcher(50*time.Millisecond, 0, c.add)

	if b.PendingFor("ch", "u") {
		t.Error("pending before any Add")
	}
	b.Add(Item{ChannelID: "ch", UserID: "u", Content: "x"})
	if !b.PendingFor("ch", "u") {
		t.Error("not pending after Add")
	}
	c.wait(t, 1)
	if b.PendingFor("ch", "u") {
		t.Error("still pending after flush")
	}
}
