package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

type channelSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts notifications to a channel as a bot.
type Discord struct {
	ChannelID string

	session channelSender
}

func NewDiscord(token, channelID string) (*Discord, error) {
	if channelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: %w", err)
	}
	return &Discord{ChannelID: channelID, session: s}, nil
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Notify(ctx context.Context, n Notification) error {
	content := n.Subject + "\n\n" + n.Body
	if _, err := d.session.ChannelMessageSend(d.ChannelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}
