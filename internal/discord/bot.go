// Package discord connects the dispatcher to a Discord gateway session.
package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/warden/internal/dispatch"
	"github.com/keshon/warden/internal/reply"
	"github.com/keshon/warden/internal/scheduler"
)

const deliverTimeout = 30 * time.Second

// Handler produces the response to one inbound event.
type Handler interface {
	Handle(ctx context.Context, ev dispatch.Event) reply.Response
}

type Config struct {
	Token   string
	GuildID string
	// Status is shown as the bot's watching activity.
	Status       string
	DefaultReact string
}

// Bot is a Discord bot
type Bot struct {
	dg        *discordgo.Session
	cfg       Config
	handler   Handler
	conn      *scheduler.Connection
	directory *Directory
	deliverer *Deliverer
	log       zerolog.Logger
}

// New creates the session without connecting. The handler may be set later
// with SetHandler, before Run.
func New(cfg Config, conn *scheduler.Connection, logger zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	dg.State.TrackMembers = true

	log := logger.With().Str("component", "discord").Logger()
	b := &Bot{
		dg:        dg,
		cfg:       cfg,
		conn:      conn,
		directory: NewDirectory(dg.State, fetchMember(dg), cfg.GuildID),
		deliverer: NewDeliverer(dg, cfg.DefaultReact, logger),
		log:       log,
	}

	dg.AddHandler(b.onConnect)
	dg.AddHandler(b.onDisconnect)
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onResumed)
	dg.AddHandler(b.onMessageCreate)
	return b, nil
}

func fetchMember(dg *discordgo.Session) MemberFetcher {
	return func(guildID, userID string) (*discordgo.Member, error) {
		return dg.GuildMember(guildID, userID)
	}
}

// Directory resolves guild members for permission checks.
func (b *Bot) Directory() *Directory { return b.directory }

func (b *Bot) SetHandler(h Handler) { b.handler = h }

// Run opens the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.handler == nil {
		return fmt.Errorf("discord: no handler set")
	}
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing session")
	return nil
}

func (b *Bot) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	b.log.Debug().Msg("gateway connected")
	b.conn.Up()
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.log.Warn().Msg("gateway disconnected")
	b.conn.Down()
}

func (b *Bot) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	b.log.Info().Msg("gateway session resumed")
	b.conn.Up()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.conn.Up()

	if len(r.Guilds) > 0 && b.directory.SetGuildIfEmpty(r.Guilds[0].ID) {
		b.log.Warn().Str("guild", r.Guilds[0].ID).Msg("no home guild configured, using the first one")
	}
	if b.cfg.Status != "" {
		if err := s.UpdateWatchStatus(0, b.cfg.Status); err != nil {
			b.log.Warn().Err(err).Msg("failed to set status")
		}
	}

	username := ""
	if r.User != nil {
		username = r.User.Username
	}
	b.log.Info().Str("user", username).Int("guilds", len(r.Guilds)).Msg("discord bot is running")
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	ev, ok := b.event(m)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	resp := b.handler.Handle(ctx, ev)
	origin := Origin{ChannelID: m.ChannelID, MessageID: m.ID, AuthorID: m.Author.ID}
	if err := b.deliverer.Deliver(ctx, origin, resp); err != nil {
		b.log.Error().Err(err).Str("channel", m.ChannelID).Str("kind", resp.Kind.String()).Msg("failed to deliver response")
	}
}

// event converts messages of the home guild and direct messages. Messages
// from other guilds are ignored.
func (b *Bot) event(m *discordgo.MessageCreate) (dispatch.Event, bool) {
	ev := dispatch.Event{
		ActorID:   m.Author.ID,
		ChannelID: m.ChannelID,
		Text:      m.Content,
		IsDirect:  m.GuildID == "",
	}
	if !ev.IsDirect && m.GuildID != b.directory.GuildID() {
		return ev, false
	}
	return ev, true
}
