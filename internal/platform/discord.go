package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/lunavale/selene/internal/bus"
)

// maxMessageLen is Discord's hard cap per message.
const maxMessageLen = 2000

// DiscordClient connects to Discord via the Bot API gateway and
// implements both Client and Gateway. Gateway handlers each run on
// their own goroutine, so lazily-filled state is sync.Map/atomic.
type DiscordClient struct {
	session   *discordgo.Session
	msgBus    *bus.Bus
	botUser   atomic.Pointer[User]
	running   atomic.Bool
	guildName sync.Map // guildID → name, filled lazily
}

// NewDiscord creates a Discord client from a bot token.
func NewDiscord(token string, msgBus *bus.Bus) (*DiscordClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsMessageContent

	return &DiscordClient{
		session: session,
		msgBus:  msgBus,
	}, nil
}

// Start opens the gateway connection and begins forwarding messages.
func (c *DiscordClient) Start(_ context.Context) error {
	slog.Info("starting discord connection")

	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	user, err := c.session.User("@me")
	if err != nil {
		c.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	c.botUser.Store(&User{ID: user.ID, Username: user.Username})
	c.running.Store(true)

	slog.Info("discord connected", "username", user.Username, "id", user.ID)
	return nil
}

// Stop closes the gateway connection.
func (c *DiscordClient) Stop(_ context.Context) error {
	slog.Info("stopping discord connection")
	c.running.Store(false)
	return c.session.Close()
}

func (c *DiscordClient) IsRunning() bool { return c.running.Load() }

// BotUser returns the bot's identity, zero until Start completes.
func (c *DiscordClient) BotUser() User {
	if u := c.botUser.Load(); u != nil {
		return *u
	}
	return User{}
}

// handleMessage converts gateway events into bus messages. The bot's own
// messages are dropped here; other bots are gated downstream so the
// pipeline's rejection stats see them.
func (c *DiscordClient) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == c.BotUser().ID {
		return
	}

	msg := bus.InboundMessage{
		MessageID:   m.ID,
		ChannelID:   m.ChannelID,
		GuildID:     m.GuildID,
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		DisplayName: resolveDisplayName(m),
		AuthorIsBot: m.Author.Bot,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
	}

	if ch, err := c.session.State.Channel(m.ChannelID); err == nil && ch != nil {
		msg.ChannelName = ch.Name
	}
	if name := c.lookupGuildName(m.GuildID); name != "" {
		msg.GuildName = name
	}

	for _, att := range m.Attachments {
		msg.Attachments = append(msg.Attachments, bus.Attachment{
			URL:         att.URL,
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Size:        att.Size,
		})
	}
	for _, e := range m.Embeds {
		msg.Embeds = append(msg.Embeds, convertEmbed(e))
	}
	for _, u := range m.Mentions {
		msg.Mentions = append(msg.Mentions, bus.Mention{
			UserID:      u.ID,
			Username:    u.Username,
			DisplayName: u.GlobalName,
		})
	}

	slog.Debug("discord message received",
		"channel_id", msg.ChannelID,
		"author_id", msg.AuthorID,
		"preview", truncate(msg.Content, 50),
	)

	c.msgBus.Publish(msg)
}

func convertEmbed(e *discordgo.MessageEmbed) bus.Embed {
	out := bus.Embed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
	}
	if e.Image != nil {
		out.ImageURL = e.Image.URL
	}
	if e.Thumbnail != nil {
		out.ThumbnailURL = e.Thumbnail.URL
	}
	if e.Video != nil {
		out.VideoURL = e.Video.URL
	}
	for _, f := range e.Fields {
		if f != nil {
			out.Fields = append(out.Fields, bus.EmbedField{Name: f.Name, Value: f.Value})
		}
	}
	return out
}

// resolveDisplayName prefers the per-guild nick, then global display name,
// then username.
func resolveDisplayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

func (c *DiscordClient) lookupGuildName(guildID string) string {
	if guildID == "" {
		return ""
	}
	if name, ok := c.guildName.Load(guildID); ok {
		return name.(string)
	}
	g, err := c.session.State.Guild(guildID)
	if err != nil || g == nil {
		return ""
	}
	c.guildName.Store(guildID, g.Name)
	return g.Name
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
