package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/warden/internal/reply"
	"github.com/keshon/warden/pkg/retrylimit"
)

// Discord message and embed limits, in characters.
const (
	discordMaxMessageLength = 2000
	embedMaxTitle           = 256
	embedMaxDescription     = 4096
	embedMaxFieldName       = 256
	embedMaxFieldValue      = 1024
	embedMaxFooter          = 2048
)

// Sender is the part of a discordgo session used to deliver responses.
type Sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Origin is the inbound message a response answers.
type Origin struct {
	ChannelID string
	MessageID string
	AuthorID  string
}

// Deliverer turns responses into Discord API calls, paced and retried.
type Deliverer struct {
	sender       Sender
	limiter      *retrylimit.AdaptiveLimiter
	retry        retrylimit.RetryConfig
	defaultReact string
	log          zerolog.Logger
}

func NewDeliverer(s Sender, defaultReact string, logger zerolog.Logger) *Deliverer {
	log := logger.With().Str("component", "deliver").Logger()
	retry := retrylimit.DefaultRetryConfig()
	retry.MaxAttempts = 5
	retry.Logger = log
	return &Deliverer{
		sender:       s,
		limiter:      retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry:        retry,
		defaultReact: defaultReact,
		log:          log,
	}
}

// Deliver sends resp in answer to o. KindNone sends nothing.
func (d *Deliverer) Deliver(ctx context.Context, o Origin, resp reply.Response) error {
	switch resp.Kind {
	case reply.KindNone:
		return nil
	case reply.KindText:
		return d.send(ctx, o.ChannelID, resp.Text, nil)
	case reply.KindReact:
		emoji := resp.Emoji
		if emoji == "" {
			emoji = d.defaultReact
		}
		return d.do(ctx, func() error {
			return d.sender.MessageReactionAdd(o.ChannelID, o.MessageID, reactionID(emoji))
		})
	case reply.KindDirect:
		var ch *discordgo.Channel
		if err := d.do(ctx, func() (err error) {
			ch, err = d.sender.UserChannelCreate(o.AuthorID)
			return err
		}); err != nil {
			return fmt.Errorf("open direct channel: %w", err)
		}
		return d.send(ctx, ch.ID, resp.Text, resp.Embed)
	case reply.KindError, reply.KindPanel:
		if resp.Embed == nil {
			return d.send(ctx, o.ChannelID, resp.Text, nil)
		}
		return d.send(ctx, o.ChannelID, "", resp.Embed)
	}
	return fmt.Errorf("unsupported response kind %s", resp.Kind)
}

func (d *Deliverer) send(ctx context.Context, channelID, text string, e *reply.Embed) error {
	if e != nil {
		return d.do(ctx, func() error {
			_, err := d.sender.ChannelMessageSendEmbed(channelID, toEmbed(*e))
			return err
		})
	}
	if text == "" {
		return nil
	}
	return d.do(ctx, func() error {
		_, err := d.sender.ChannelMessageSend(channelID, truncate(text, discordMaxMessageLength))
		return err
	})
}

func (d *Deliverer) do(ctx context.Context, fn func() error) error {
	return retrylimit.WithRetryConfig(ctx, func() error {
		return retrylimit.Fatal(fn())
	}, d.limiter, d.retry)
}

func toEmbed(e reply.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       truncate(e.Title, embedMaxTitle),
		Description: truncate(e.Description, embedMaxDescription),
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   truncate(f.Name, embedMaxFieldName),
			Value:  truncate(f.Value, embedMaxFieldValue),
			Inline: f.Inline,
		})
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: truncate(e.Footer, embedMaxFooter)}
	}
	return out
}

// reactionID converts a configured emoji into the form the API expects:
// unicode as is, custom emoji as name:id.
func reactionID(emoji string) string {
	emoji = strings.TrimSpace(emoji)
	emoji = strings.TrimPrefix(emoji, "<")
	emoji = strings.TrimSuffix(emoji, ">")
	emoji = strings.TrimPrefix(emoji, "a:")
	return strings.TrimPrefix(emoji, ":")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
