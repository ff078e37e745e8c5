// Package dispatch turns inbound text events into at most one response:
// context routing first, then prefix commands through the permission engine.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keshon/warden/internal/command"
	"github.com/keshon/warden/internal/convo"
	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/reply"
	"github.com/keshon/warden/internal/tokenizer"
)

// Event is one inbound text message.
type Event = convo.Input

// Directory answers membership questions about the home guild.
type Directory interface {
	permission.RoleRanker
	// Member returns the actor's roles. found is false when the user is not
	// a member.
	Member(ctx context.Context, userID string) (actor permission.Actor, found bool, err error)
}

// Outcome classifies how an event was handled.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeUnknown   Outcome = "unknown"
	OutcomeContext   Outcome = "context"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeDenied    Outcome = "denied"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeOK        Outcome = "ok"
	OutcomeFailed    Outcome = "failed"
)

// HandlerError is a command failure caught at the dispatch boundary.
type HandlerError struct {
	Command string
	ID      string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("command %s failed (invocation %s): %v", e.Command, e.ID, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Config wires a Dispatcher.
type Config struct {
	Prefix    string
	Registry  *command.Registry
	Contexts  *convo.Manager
	Directory Directory
	// Middleware runs after the guild and permission checks, closest to the handler.
	Middleware []command.Middleware
	// ContextOffReact acknowledges a cancelled context when nothing else replies.
	ContextOffReact string
	Logger          zerolog.Logger
	// Observe is called once per event. command is empty when none was resolved.
	Observe func(command string, outcome Outcome, elapsed time.Duration)
}

type Dispatcher struct {
	prefix     string
	registry   *command.Registry
	contexts   *convo.Manager
	dir        Directory
	middleware []command.Middleware
	contextOff string
	log        zerolog.Logger
	observe    func(string, Outcome, time.Duration)
	newID      func() string
}

func New(cfg Config) *Dispatcher {
	mws := []command.Middleware{command.WithGuildOnly(), command.WithPermissionCheck(cfg.Registry)}
	mws = append(mws, cfg.Middleware...)
	return &Dispatcher{
		prefix:     cfg.Prefix,
		registry:   cfg.Registry,
		contexts:   cfg.Contexts,
		dir:        cfg.Directory,
		middleware: mws,
		contextOff: cfg.ContextOffReact,
		log:        cfg.Logger.With().Str("component", "dispatch").Logger(),
		observe:    cfg.Observe,
		newID:      uuid.NewString,
	}
}

// Handle processes ev and returns the single response to deliver. It never panics.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) reply.Response {
	start := time.Now()
	name, resp, outcome := d.handle(ctx, ev)
	if d.observe != nil {
		d.observe(name, outcome, time.Since(start))
	}
	return resp
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) (string, reply.Response, Outcome) {
	cancelled := false
	if d.contexts != nil {
		resp, out := d.contexts.Route(ev)
		switch out {
		case convo.Routed:
			return "", resp, OutcomeContext
		case convo.Cancelled:
			cancelled = true
		}
	}

	name, resp, outcome := d.dispatch(ctx, ev)
	if cancelled && resp.IsNone() {
		return name, reply.React(d.contextOff), OutcomeCancelled
	}
	return name, resp, outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) (string, reply.Response, Outcome) {
	name, args, ok := tokenizer.Split(ev.Text, d.prefix)
	if !ok {
		return "", reply.None(), OutcomeIgnored
	}

	cmd, err := d.registry.Resolve(name)
	if err != nil {
		d.log.Debug().Str("command", name).Str("actor", ev.ActorID).Msg("ignoring unknown command")
		return "", reply.None(), OutcomeUnknown
	}

	cctx := d.newContext(ctx, ev, name)
	log := d.log.With().Str("command", name).Str("invocation", cctx.ID).Str("actor", ev.ActorID).Logger()

	resp, err := run(command.Chain(cmd, d.middleware...), cctx, args)
	if err == nil {
		log.Debug().Msg("command executed")
		return name, resp, OutcomeOK
	}

	var denied *permission.DeniedError
	if errors.As(err, &denied) {
		log.Debug().Str("reason", string(denied.Reason)).Bool("silent", denied.Silent).Msg("permission denied")
		return name, resp, OutcomeDenied
	}
	var invalid *permission.ValidationError
	if errors.As(err, &invalid) {
		log.Debug().Str("reason", string(invalid.Reason)).Msg("invalid arguments")
		return name, resp, OutcomeInvalid
	}

	herr := &HandlerError{Command: name, ID: cctx.ID, Err: err}
	log.Error().Err(herr).Str("text", ev.Text).Msg("command threw error")
	return name, reply.Error(command.MsgFailed, "```"+err.Error()+"```", "invocation "+cctx.ID), OutcomeFailed
}

func (d *Dispatcher) newContext(ctx context.Context, ev Event, invoked string) *command.Context {
	cctx := &command.Context{
		Ctx:       ctx,
		ID:        d.newID(),
		Invoked:   invoked,
		ActorID:   ev.ActorID,
		ChannelID: ev.ChannelID,
		Text:      ev.Text,
		IsDirect:  ev.IsDirect,
		Actor:     permission.Actor{UserID: ev.ActorID},
	}
	if d.dir == nil {
		cctx.Member = true
		return cctx
	}

	cctx.Roles = d.dir
	actor, found, err := d.dir.Member(ctx, ev.ActorID)
	if err != nil {
		d.log.Warn().Err(err).Str("actor", ev.ActorID).Msg("member lookup failed")
		return cctx
	}
	if found {
		cctx.Actor = actor
		cctx.Member = true
	}
	return cctx
}

// run invokes c, converting a panic into an error.
func run(c command.Command, ctx *command.Context, args []string) (resp reply.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = reply.None(), fmt.Errorf("panic: %v", r)
		}
	}()
	return c.Run(ctx, args)
}
