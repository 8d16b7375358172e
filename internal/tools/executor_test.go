package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunavale/selene/internal/bus"
	"github.com/lunavale/selene/internal/platform"
	"github.com/lunavale/selene/internal/plugin"
)

// fakeClient implements platform.Client for tool tests.
type fakeClient struct {
	member    *platform.Member
	memberErr error
	channel   *platform.ChannelInfo
}

func (f *fakeClient) BotUser() platform.User { return platform.User{ID: "bot"} }
func (f *fakeClient) Send(context.Context, string, string) (*platform.SentMessage, error) {
	return nil, nil
}
func (f *fakeClient) Reply(context.Context, string, string, string) (*platform.SentMessage, error) {
	return nil, nil
}
func (f *fakeClient) React(context.Context, string, string, string) error { return nil }
func (f *fakeClient) Typing(context.Context, string) error                { return nil }
func (f *fakeClient) SetStatus(context.Context, string) error             { return nil }
func (f *fakeClient) Member(_ context.Context, _, userID string) (*platform.Member, error) {
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	m := *f.member
	m.ID = userID
	return &m, nil
}
func (f *fakeClient) ChannelInfo(context.Context, string) (*platform.ChannelInfo, error) {
	return f.channel, nil
}
func (f *fakeClient) RecentMessages(context.Context, string, int) ([]platform.HistoryMessage, error) {
	return nil, nil
}

func newTestExecutor(t *testing.T, client platform.Client) *Executor {
	t.Helper()
	r := plugin.NewRegistry()
	deps := plugin.Dependencies{"platform": client}
	for _, def := range []plugin.Definition{ProfileLookupDefinition(), ServerInfoDefinition()} {
		if err := r.Register(def); err != nil {
			t.Fatal(err)
		}
	}
	return NewExecutor(r, deps)
}

func TestExecutor_ShouldRun(t *testing.T) {
	e := newTestExecutor(t, &fakeClient{})

	tests := []struct {
		in   string
		want bool
	}{
		{"hey @Alice hello", true},
		{"anyone here?", true},
		{"who is that guy", true},
		{"tell me about this server", true},
		{"just chatting", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := e.ShouldRun(tt.in); got != tt.want {
			t.Errorf("ShouldRun(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExecutor_RunMatchesTriggers(t *testing.T) {
	client := &fakeClient{member: &platform.Member{
		Username:    "alice",
		DisplayName: "Alice",
		JoinedAt:    time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC),
	}}
	e := newTestExecutor(t, client)

	pc := plugin.Context{
		Message: bus.InboundMessage{AuthorID: "u1", GuildID: "g1"},
		Cleaned: "who is Alice anyway",
	}
	outcomes := e.Run(context.Background(), pc)
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outcomes))
	}
	if outcomes[0].Tool != "profile_lookup" || !outcomes[0].Success {
		t.Errorf("outcome = %+v", outcomes[0])
	}
}

func TestExecutor_RunNoMatch(t *testing.T) {
	e := newTestExecutor(t, &fakeClient{})
	outcomes := e.Run(context.Background(), plugin.Context{Cleaned: "nothing relevant"})
	if len(outcomes) != 0 {
		t.Errorf("got %d outcomes, want 0", len(outcomes))
	}
}

func TestExecutor_FailureCaptured(t *testing.T) {
	client := &fakeClient{memberErr: errors.New("member not found")}
	e := newTestExecutor(t, client)

	out := e.RunNamed(context.Background(), "profile_lookup", plugin.Context{
		Message: bus.InboundMessage{AuthorID: "u1"},
	})
	if out.Success {
		t.Error("failed lookup reported success")
	}
	if out.Error == "" {
		t.Error("error not captured")
	}
	if out.Tool != "profile_lookup" {
		t.Errorf("Tool = %q", out.Tool)
	}
}

func TestProfileLookup_TargetPrecedence(t *testing.T) {
	client := &fakeClient{member: &platform.Member{Username: "resolved"}}
	e := newTestExecutor(t, client)

	tests := []struct {
		name   string
		pc     plugin.Context
		wantID string
	}{
		{
			name: "explicit target wins",
			pc: plugin.Context{
				TargetUser: "target",
				Message: bus.InboundMessage{
					AuthorID: "author",
					Mentions: []bus.Mention{{UserID: "mentioned"}},
				},
			},
			wantID: "target",
		},
		{
			name: "mention beats author",
			pc: plugin.Context{
				Message: bus.InboundMessage{
					AuthorID: "author",
					Mentions: []bus.Mention{{UserID: "mentioned"}},
				},
			},
			wantID: "mentioned",
		},
		{
			name:   "author is the fallback",
			pc:     plugin.Context{Message: bus.InboundMessage{AuthorID: "author"}},
			wantID: "author",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.RunNamed(context.Background(), "profile_lookup", tt.pc)
			if !out.Success {
				t.Fatalf("lookup failed: %s", out.Error)
			}
			if got := out.Data["user_id"]; got != tt.wantID {
				t.Errorf("looked up %v, want %s", got, tt.wantID)
			}
		})
	}
}
