package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/warden/internal/command"
	"github.com/keshon/warden/internal/commands"
	"github.com/keshon/warden/internal/config"
	"github.com/keshon/warden/internal/convo"
	"github.com/keshon/warden/internal/discord"
	"github.com/keshon/warden/internal/dispatch"
	"github.com/keshon/warden/internal/metrics"
	"github.com/keshon/warden/internal/scheduler"
	"github.com/keshon/warden/internal/storage"
	"github.com/keshon/warden/internal/store"
	"github.com/keshon/warden/pkg/jobmgr"
)

const contextSweepInterval = time.Second

// run wires every component and blocks until ctx is cancelled. The store is
// flushed one last time on the way out.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) (err error) {
	m := metrics.New()

	raw, err := store.New(&store.Config{
		Dir:          cfg.StorageDir,
		BackupPrefix: cfg.BackupPrefix,
		Logger:       log,
		OnWrite:      m.StoreWrite,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := raw.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("final flush failed")
			if err == nil {
				err = cerr
			}
		}
	}()

	st, err := storage.New(raw)
	if err != nil {
		return fmt.Errorf("prepare tables: %w", err)
	}

	conn := &scheduler.Connection{}
	timers := scheduler.New(scheduler.Config{
		Period: cfg.TickInterval,
		Probe:  conn,
		Logger: log,
		OnSkip: m.TimerSkipped,
	})
	timers.Set("store", "autosave", cfg.AutosaveInterval, raw.FlushAll)

	contexts := convo.New(convo.Config{
		TTL:        cfg.ContextTTL,
		CancelWord: cfg.ContextCancelWord,
		Logger:     log,
		Observe:    m.ObserveContext,
	})
	contexts.Schedule(timers, contextSweepInterval)

	bot, err := discord.New(discord.Config{
		Token:        cfg.DiscordToken,
		GuildID:      cfg.GuildID,
		Status:       cfg.Prefix + "help",
		DefaultReact: cfg.DefaultReact,
	}, conn, log)
	if err != nil {
		return err
	}

	registry := command.NewRegistry(st, log)
	if err := commands.Register(registry, commands.Deps{
		Contexts:       contexts,
		Directory:      bot.Directory(),
		History:        st,
		OwnerID:        cfg.OwnerID,
		ContextOnReact: cfg.ContextOnReact,
		Logger:         log,
	}); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	if err := registry.Load(); err != nil {
		return fmt.Errorf("load commands: %w", err)
	}
	if cfg.OwnerID == "" {
		log.Warn().Msg("OWNER_ID is not set, owner-only commands are locked until rules are edited on disk")
	}

	bot.SetHandler(dispatch.New(dispatch.Config{
		Prefix:          cfg.Prefix,
		Registry:        registry,
		Contexts:        contexts,
		Directory:       bot.Directory(),
		Middleware:      []command.Middleware{command.WithCommandLog(st, log)},
		ContextOffReact: cfg.ContextOffReact,
		Logger:          log,
		Observe:         m.ObserveDispatch,
	}))

	jobs := jobmgr.NewManager(ctx, jobReporter(log))
	defer func() {
		jobs.StopAll()
		jobs.Wait()
	}()

	if err := jobs.StartAsync("timers", timers.Run); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		router := metrics.NewRouter(m, conn)
		if err := jobs.StartAsync("ops", func(ctx context.Context) error {
			return metrics.Serve(ctx, cfg.MetricsAddr, router, log)
		}); err != nil {
			return err
		}
	}

	log.Info().Int("commands", len(registry.Commands())).Str("prefix", cfg.Prefix).Msg("commands loaded")
	return bot.Run(ctx)
}

func jobReporter(log zerolog.Logger) jobmgr.StatusReporter {
	log = log.With().Str("component", "jobs").Logger()
	return func(msg string) {
		if rest, ok := strings.CutPrefix(msg, "error:"); ok {
			log.Error().Msg(rest)
			return
		}
		log.Debug().Msg(msg)
	}
}
