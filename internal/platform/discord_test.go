package platform

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func newTestClient(t *testing.T) *DiscordClient {
	t.Helper()
	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatal(err)
	}
	return &DiscordClient{session: session}
}

// Gateway handlers each run on their own goroutine, and tools hit the
// same caches from pipeline goroutines; the lazy guild-name cache must
// survive that.
func TestLookupGuildName_Concurrent(t *testing.T) {
	c := newTestClient(t)
	const guilds = 50

	for i := 0; i < guilds; i++ {
		g := &discordgo.Guild{
			ID:   fmt.Sprintf("g%d", i),
			Name: fmt.Sprintf("guild-%d", i),
		}
		if err := c.session.State.GuildAdd(g); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < guilds; i++ {
				id := fmt.Sprintf("g%d", i)
				if name := c.lookupGuildName(id); name != fmt.Sprintf("guild-%d", i) {
					t.Errorf("lookupGuildName(%s) = %q", id, name)
				}
			}
		}()
	}
	wg.Wait()

	if c.lookupGuildName("") != "" {
		t.Error("empty guild ID resolved to a name")
	}
	if c.lookupGuildName("unknown") != "" {
		t.Error("unknown guild resolved to a name")
	}
}

// BotUser is read by gateway handlers while Start may still be writing
// the identity.
func TestBotUser_ConcurrentWithStart(t *testing.T) {
	c := newTestClient(t)

	if got := c.BotUser(); got != (User{}) {
		t.Errorf("BotUser before Start = %+v, want zero", got)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.botUser.Store(&User{ID: "bot", Username: "selene"})
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			u := c.BotUser()
			if u.ID != "" && u.ID != "bot" {
				t.Errorf("BotUser = %+v", u)
			}
		}
	}()
	wg.Wait()

	if got := c.BotUser(); got.ID != "bot" || got.Username != "selene" {
		t.Errorf("BotUser after store = %+v", got)
	}
}

func TestIsRunning(t *testing.T) {
	c := newTestClient(t)
	if c.IsRunning() {
		t.Error("running before Start")
	}
	c.running.Store(true)
	if !c.IsRunning() {
		t.Error("not running after store")
	}
}
