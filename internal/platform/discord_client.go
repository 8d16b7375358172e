package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Send delivers content to a channel, splitting into multiple messages at
// the 2000-char Discord limit. Returns the first sent message.
func (c *DiscordClient) Send(_ context.Context, channelID, content string) (*SentMessage, error) {
	if channelID == "" {
		return nil, fmt.Errorf("empty channel ID for discord send")
	}

	var first *SentMessage
	for len(content) > 0 {
		chunk, rest := splitChunk(content)
		content = rest

		m, err := c.session.ChannelMessageSend(channelID, chunk)
		if err != nil {
			return first, fmt.Errorf("send discord message: %w", err)
		}
		if first == nil {
			first = sentFrom(m)
		}
	}
	return first, nil
}

// Reply sends content with reply linkage to the referenced message. Only
// the first chunk carries the reference; follow-ups are plain sends.
func (c *DiscordClient) Reply(_ context.Context, channelID, messageID, content string) (*SentMessage, error) {
	if channelID == "" || messageID == "" {
		return nil, fmt.Errorf("empty channel or message ID for discord reply")
	}

	chunk, rest := splitChunk(content)
	m, err := c.session.ChannelMessageSendReply(channelID, chunk, &discordgo.MessageReference{
		MessageID: messageID,
		ChannelID: channelID,
	})
	if err != nil {
		return nil, fmt.Errorf("send discord reply: %w", err)
	}
	first := sentFrom(m)

	for len(rest) > 0 {
		chunk, rest = splitChunk(rest)
		if _, err := c.session.ChannelMessageSend(channelID, chunk); err != nil {
			return first, fmt.Errorf("send discord message: %w", err)
		}
	}
	return first, nil
}

// React adds an emoji reaction to a message.
func (c *DiscordClient) React(_ context.Context, channelID, messageID, emoji string) error {
	if err := c.session.MessageReactionAdd(channelID, messageID, emoji); err != nil {
		return fmt.Errorf("add discord reaction: %w", err)
	}
	return nil
}

// Typing triggers the typing indicator; Discord expires it after ~10s.
func (c *DiscordClient) Typing(_ context.Context, channelID string) error {
	if err := c.session.ChannelTyping(channelID); err != nil {
		return fmt.Errorf("send typing indicator: %w", err)
	}
	return nil
}

// SetStatus updates the bot's presence.
func (c *DiscordClient) SetStatus(_ context.Context, status string) error {
	if err := c.session.UpdateStatusComplex(discordgo.UpdateStatusData{Status: status}); err != nil {
		return fmt.Errorf("update discord status: %w", err)
	}
	return nil
}

// Member fetches a guild member's profile.
func (c *DiscordClient) Member(_ context.Context, guildID, userID string) (*Member, error) {
	if guildID == "" {
		u, err := c.session.User(userID)
		if err != nil {
			return nil, fmt.Errorf("fetch discord user: %w", err)
		}
		return &Member{ID: u.ID, Username: u.Username, DisplayName: u.GlobalName, IsBot: u.Bot}, nil
	}

	m, err := c.session.GuildMember(guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch discord member: %w", err)
	}
	out := &Member{
		ID:       userID,
		JoinedAt: m.JoinedAt,
		Roles:    m.Roles,
	}
	if m.User != nil {
		out.Username = m.User.Username
		out.DisplayName = m.User.GlobalName
		out.IsBot = m.User.Bot
	}
	if m.Nick != "" {
		out.DisplayName = m.Nick
	}
	return out, nil
}

// ChannelInfo fetches channel plus guild metadata.
func (c *DiscordClient) ChannelInfo(_ context.Context, channelID string) (*ChannelInfo, error) {
	ch, err := c.session.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch discord channel: %w", err)
	}
	info := &ChannelInfo{
		ID:      ch.ID,
		Name:    ch.Name,
		Topic:   ch.Topic,
		GuildID: ch.GuildID,
	}
	info.GuildName = c.lookupGuildName(ch.GuildID)
	return info, nil
}

// RecentMessages fetches up to limit recent messages, newest first as the
// API returns them.
func (c *DiscordClient) RecentMessages(_ context.Context, channelID string, limit int) ([]HistoryMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	msgs, err := c.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("fetch discord history: %w", err)
	}

	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Author == nil {
			continue
		}
		out = append(out, HistoryMessage{
			MessageID:   m.ID,
			AuthorID:    m.Author.ID,
			AuthorName:  m.Author.Username,
			DisplayName: m.Author.GlobalName,
			IsBot:       m.Author.Bot,
			Content:     m.Content,
			Timestamp:   m.Timestamp,
		})
	}
	return out, nil
}

// splitChunk cuts content at the Discord message limit, preferring a
// newline break in the back half of the chunk.
func splitChunk(content string) (chunk, rest string) {
	if len(content) <= maxMessageLen {
		return content, ""
	}
	cutAt := maxMessageLen
	if idx := strings.LastIndexByte(content[:maxMessageLen], '\n'); idx > maxMessageLen/2 {
		cutAt = idx + 1
	}
	return content[:cutAt], content[cutAt:]
}

func sentFrom(m *discordgo.Message) *SentMessage {
	if m == nil {
		return nil
	}
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &SentMessage{MessageID: m.ID, ChannelID: m.ChannelID, Timestamp: ts}
}
