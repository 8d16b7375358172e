package bus

import "time"

// InboundMessage is a platform message normalized into the bot's own shape.
// The platform adapter builds one per gateway event; nothing downstream
// touches the native SDK object.
type InboundMessage struct {
	MessageID   string    `json:"message_id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name,omitempty"`
	GuildID     string    `json:"guild_id,omitempty"`
	GuildName   string    `json:"guild_name,omitempty"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	DisplayName string    `json:"display_name,omitempty"`
	AuthorIsBot bool      `json:"author_is_bot,omitempty"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`

	Attachments []Attachment `json:"attachments,omitempty"`
	Embeds      []Embed      `json:"embeds,omitempty"`
	Mentions    []Mention    `json:"mentions,omitempty"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	URL         string `json:"url"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size,omitempty"`
}

// Embed is a rich embed carried by a message.
type Embed struct {
	Title        string       `json:"title,omitempty"`
	Description  string       `json:"description,omitempty"`
	URL          string       `json:"url,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	ThumbnailURL string       `json:"thumbnail_url,omitempty"`
	VideoURL     string       `json:"video_url,omitempty"`
	Fields       []EmbedField `json:"fields,omitempty"`
}

// EmbedField is one name/value pair inside an embed.
type EmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Mention is a user referenced by a raw <@id> token in message content.
type Mention struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}
