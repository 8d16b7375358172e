package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/lunavale/selene/internal/bus"
)

func TestProcess_Verdicts(t *testing.T) {
	f := New(nil)

	tests := []struct {
		name       string
		msg        bus.InboundMessage
		want       bool
		wantReason string
	}{
		{
			name: "plain text passes",
			msg:  bus.InboundMessage{Content: "hello there"},
			want: true,
		},
		{
			name:       "custom emote only rejected",
			msg:        bus.InboundMessage{Content: "<:pog:12345>"},
			want:       false,
			wantReason: ReasonEmoteOnly,
		},
		{
			name:       "unicode emoji only rejected",
			msg:        bus.InboundMessage{Content: "\U0001F602\U0001F602"},
			want:       false,
			wantReason: ReasonEmoteOnly,
		},
		{
			name:       "empty content rejected",
			msg:        bus.InboundMessage{Content: "   "},
			want:       false,
			wantReason: ReasonEmptyCleaned,
		},
		{
			name: "text with trailing emote keeps text",
			msg:  bus.InboundMessage{Content: "nice one <:pog:12345>"},
			want: true,
		},
		{
			name: "emote only with image still processed",
			msg: bus.InboundMessage{
				Content:     "<:pog:12345>",
				Attachments: []bus.Attachment{{URL: "http://x/a.png", ContentType: "image/png"}},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Process(context.Background(), tt.msg)
			if got.ShouldProcess != tt.want {
				t.Fatalf("ShouldProcess = %v, want %v (reason %q)", got.ShouldProcess, tt.want, got.Reason)
			}
			if !tt.want && got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestProcess_ImagePlaceholder(t *testing.T) {
	f := New(nil)
	got := f.Process(context.Background(), bus.InboundMessage{
		Attachments: []bus.Attachment{{URL: "http://x/shot.png", ContentType: "image/png"}},
	})
	if !got.ShouldProcess {
		t.Fatalf("image-only message rejected: %q", got.Reason)
	}
	if got.Cleaned != ImagePlaceholder {
		t.Errorf("Cleaned = %q, want %q", got.Cleaned, ImagePlaceholder)
	}
	if !got.HasImages {
		t.Error("HasImages not set")
	}
}

func TestProcess_EmbedSummaryAppended(t *testing.T) {
	f := New(nil)
	got := f.Process(context.Background(), bus.InboundMessage{
		Content: "check this out",
		Embeds:  []bus.Embed{{Title: "Big News", Description: "something happened"}},
	})
	if !got.ShouldProcess {
		t.Fatalf("rejected: %q", got.Reason)
	}
	if !strings.Contains(got.Cleaned, "check this out") {
		t.Errorf("cleaned lost original text: %q", got.Cleaned)
	}
	if !strings.Contains(got.Cleaned, "Big News") {
		t.Errorf("cleaned missing embed summary: %q", got.Cleaned)
	}
}

func TestProcess_MentionResolution(t *testing.T) {
	f := New(nil)

	t.Run("from message mention list", func(t *testing.T) {
		got := f.Process(context.Background(), bus.InboundMessage{
			Content:  "hey <@123> what's up",
			Mentions: []bus.Mention{{UserID: "123", Username: "alice", DisplayName: "Alice"}},
		})
		if got.Cleaned != "hey @Alice what's up" {
			t.Errorf("Cleaned = %q", got.Cleaned)
		}
	})

	t.Run("unresolvable falls back to placeholder", func(t *testing.T) {
		got := f.Process(context.Background(), bus.InboundMessage{Content: "hey <@999>"})
		if got.Cleaned != "hey "+mentionPlaceholder {
			t.Errorf("Cleaned = %q", got.Cleaned)
		}
	})

	t.Run("nick form resolves too", func(t *testing.T) {
		got := f.Process(context.Background(), bus.InboundMessage{
			Content:  "<@!123> hello",
			Mentions: []bus.Mention{{UserID: "123", Username: "alice"}},
		})
		if got.Cleaned != "@alice hello" {
			t.Errorf("Cleaned = %q", got.Cleaned)
		}
	})
}

func TestCachingResolver(t *testing.T) {
	calls := 0
	r := NewCachingResolver(func(_ context.Context, _, userID string) (string, error) {
		calls++
		return "Bob", nil
	})

	for i := 0; i < 3; i++ {
		name, ok := r.DisplayName(context.Background(), "g1", "u1")
		if !ok || name != "Bob" {
			t.Fatalf("DisplayName = %q, %v", name, ok)
		}
	}
	if calls != 1 {
		t.Errorf("lookup called %d times, want 1", calls)
	}

	r.Seed("u2", "Carol")
	if name, ok := r.DisplayName(context.Background(), "g1", "u2"); !ok || name != "Carol" {
		t.Errorf("seeded DisplayName = %q, %v", name, ok)
	}
	if calls != 1 {
		t.Errorf("seed triggered a lookup")
	}
}

func TestIsEmoteOnly(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"<:pog:123>", true},
		{"<a:wave:456> <:pog:123>", true},
		{"\U0001F44D", true},
		{"\U0001F44D\U0001F3FD", true}, // with skin tone
		{"lol <:pog:123>", false},
		{"", false},
		{"   ", false},
		{"hello", false},
	}
	for _, tt := range tests {
		if got := isEmoteOnly(tt.in); got != tt.want {
			t.Errorf("isEmoteOnly(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSummarizeEmbeds(t *testing.T) {
	got := summarizeEmbeds([]bus.Embed{{
		Title:       "Release",
		Description: "v2 is out",
		Fields:      []bus.EmbedField{{Name: "Link", Value: "example.com"}},
		ImageURL:    "http://x/banner.png",
	}})
	want := "[Embed: Release | v2 is out | Link: example.com | [image]]"
	if got != want {
		t.Errorf("summarizeEmbeds = %q, want %q", got, want)
	}

	if got := summarizeEmbeds(nil); got != "" {
		t.Errorf("empty embeds = %q", got)
	}
}

func TestIsImageAttachment(t *testing.T) {
	tests := []struct {
		name string
		att  bus.Attachment
		want bool
	}{
		{"mime type", bus.Attachment{URL: "http://x/a", ContentType: "image/png"}, true},
		{"filename extension only", bus.Attachment{URL: "http://x/a?ex=1", Filename: "Shot.PNG"}, true},
		{"url extension only", bus.Attachment{URL: "http://x/photo.jpeg"}, true},
		{"webp", bus.Attachment{Filename: "sticker.webp"}, true},
		{"text file", bus.Attachment{URL: "http://x/log.txt", ContentType: "text/plain"}, false},
		{"no hints", bus.Attachment{URL: "http://x/blob"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsImageAttachment(tt.att); got != tt.want {
				t.Errorf("IsImageAttachment(%+v) = %v, want %v", tt.att, got, tt.want)
			}
		})
	}
}
