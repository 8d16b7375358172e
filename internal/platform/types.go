// Package platform is the boundary to the external chat network. The
// pipeline and plugins only ever see the Client interface; the discordgo
// adapter lives behind it so tests run against fakes.
package platform

import (
	"context"
	"time"
)

// User is the bot's own identity on the platform.
type User struct {
	ID       string
	Username string
}

// Member is a guild member profile.
type Member struct {
	ID          string
	Username    string
	DisplayName string
	IsBot       bool
	JoinedAt    time.Time
	Roles       []string
}

// ChannelInfo is channel plus guild metadata.
type ChannelInfo struct {
	ID        string
	Name      string
	Topic     string
	GuildID   string
	GuildName string
}

// SentMessage identifies a message the bot delivered.
type SentMessage struct {
	MessageID string
	ChannelID string
	Timestamp time.Time
}

// HistoryMessage is one fetched prior message, platform-neutral.
type HistoryMessage struct {
	MessageID   string
	AuthorID    string
	AuthorName  string
	DisplayName string
	IsBot       bool
	Content     string
	Timestamp   time.Time
}

// Client is the narrow contract the core consumes. Every method takes a
// context because every one of them is network I/O.
type Client interface {
	BotUser() User

	Send(ctx context.Context, channelID, content string) (*SentMessage, error)
	Reply(ctx context.Context, channelID, messageID, content string) (*SentMessage, error)
	React(ctx context.Context, channelID, messageID, emoji string) error
	Typing(ctx context.Context, channelID string) error
	SetStatus(ctx context.Context, status string) error

	Member(ctx context.Context, guildID, userID string) (*Member, error)
	ChannelInfo(ctx context.Context, channelID string) (*ChannelInfo, error)
	RecentMessages(ctx context.Context, channelID string, limit int) ([]HistoryMessage, error)
}

// Gateway is the inbound side: a platform connection that converts
// gateway events into bus messages.
type Gateway interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
}
