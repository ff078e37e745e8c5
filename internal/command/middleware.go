package command

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/warden/internal/reply"
	"github.com/keshon/warden/internal/storage"
)

// Middleware wraps a command (guild check, permission check, history).
type Middleware func(Command) Command

// Chain applies middlewares so that the first in the list runs first.
func Chain(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

// WithGuildOnly rejects invocations from direct messages.
func WithGuildOnly() Middleware {
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx *Context, args []string) (reply.Response, error) {
			if ctx.IsDirect {
				return reply.Error(MsgDMUnsupported), nil
			}
			return cmd.Run(ctx, args)
		})
	}
}

// WithPermissionCheck evaluates the live policy of the command before it runs.
// A denial returns the response to show together with the typed denial error.
func WithPermissionCheck(r *Registry) Middleware {
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx *Context, args []string) (reply.Response, error) {
			if !ctx.Member {
				return reply.Error(MsgMemberNotFound), nil
			}
			d := r.Evaluate(Root(cmd).Name(), ctx.Request(len(args)))
			if d.Allowed {
				return cmd.Run(ctx, args)
			}
			if d.Silent {
				return reply.None(), d.Err()
			}
			return reply.Error(d.Reason.Message()), d.Err()
		})
	}
}

// HistoryWriter records executed commands.
type HistoryWriter interface {
	AppendCommandToHistory(rec storage.CommandHistoryRecord) error
}

// WithCommandLog records every invocation that reached it, after it ran.
func WithCommandLog(h HistoryWriter, logger zerolog.Logger) Middleware {
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx *Context, args []string) (reply.Response, error) {
			resp, err := cmd.Run(ctx, args)

			rec := storage.CommandHistoryRecord{
				ChannelID: ctx.ChannelID,
				UserID:    ctx.ActorID,
				Command:   Root(cmd).Name(),
				Param:     strings.Join(args, " "),
				Datetime:  time.Now(),
			}
			if e := h.AppendCommandToHistory(rec); e != nil {
				logger.Warn().Err(e).Str("command", rec.Command).Msg("failed to log command")
			}
			return resp, err
		})
	}
}
