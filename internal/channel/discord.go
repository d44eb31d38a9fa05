// Package channel contains the chat-platform adapters that bridge platform
// events onto the message bus.
package channel

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"murmur/internal/domain"
)

const discordMaxMsgLen = 2000

// Discord implements domain.Channel for Discord.
type Discord struct {
	token   string
	status  string
	session *discordgo.Session
	bus     domain.MessageBus
	logger  *slog.Logger
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Token  string
	Status string // custom presence text, optional
	Logger *slog.Logger
}

// NewDiscord creates a new Discord channel adapter.
func NewDiscord(cfg DiscordConfig) *Discord {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Discord{
		token:  cfg.Token,
		status: cfg.Status,
		logger: cfg.Logger,
	}
}

func (d *Discord) Name() string { return "discord" }

// SelfID returns the bot's own user ID once connected, empty before Start.
func (d *Discord) SelfID() string {
	if d.session == nil || d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}

// Start connects to Discord using a bot token and relays messages both ways
// until ctx is cancelled.
func (d *Discord) Start(ctx context.Context, bus domain.MessageBus) error {
	d.bus = bus

	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	d.session = session

	bus.OnOutbound("discord", func(msg domain.OutboundMessage) {
		d.deliver(msg)
	})

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		d.onMessage(s, m)
	})

	session.AddHandler(func(s *discordgo.Session, _ *discordgo.Ready) {
		if d.status != "" {
			if err := s.UpdateCustomStatus(d.status); err != nil {
				d.logger.Warn("failed to set presence", "err", err)
			}
		}
		d.logger.Info("discord bot ready", "user", s.State.User.Username, "id", s.State.User.ID)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return session.Close()
}

// onMessage translates a Discord message event into a bus publish. Gating is
// the engine's job; the adapter only reports the facts the gate needs.
func (d *Discord) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}

	mentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			mentioned = true
			break
		}
	}

	attachments := make([]domain.Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, domain.Attachment{
			Filename: a.Filename,
			URL:      a.URL,
			Size:     a.Size,
		})
	}

	d.logger.Debug("discord message received",
		"author", m.Author.Username,
		"channel_id", m.ChannelID,
		"dm", m.GuildID == "",
		"content_len", len(m.Content),
	)

	d.bus.Publish(domain.InboundMessage{
		Channel:       "discord",
		ChatID:        m.ChannelID,
		SenderID:      m.Author.ID,
		SenderMention: m.Author.Mention(),
		Content:       m.Content,
		DM:            m.GuildID == "",
		BotMentioned:  mentioned,
		Attachments:   attachments,
		Timestamp:     time.Now(),
	})
}

func (d *Discord) deliver(msg domain.OutboundMessage) {
	if msg.Typing {
		if err := d.session.ChannelTyping(msg.ChatID); err != nil {
			d.logger.Warn("typing indicator failed", "channel", msg.ChatID, "err", err)
		}
		return
	}

	if msg.File != nil {
		_, err := d.session.ChannelFileSendWithMessage(msg.ChatID, msg.Content, msg.File.Name, bytes.NewReader(msg.File.Data))
		if err != nil {
			d.logger.Error("discord file send failed", "channel", msg.ChatID, "err", err)
		}
		return
	}

	if msg.Content == "" {
		return
	}
	for _, chunk := range splitMessage(msg.Content, discordMaxMsgLen) {
		if _, err := d.session.ChannelMessageSend(msg.ChatID, chunk); err != nil {
			d.logger.Error("discord send failed", "channel", msg.ChatID, "err", err)
		}
	}
}

// splitMessage splits content into chunks within the platform's hard message
// limit, cutting on a newline when one falls in the back half of the window.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}
		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}
		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}
