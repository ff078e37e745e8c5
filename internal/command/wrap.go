package command

import (
	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/reply"
)

// Unwrappable is implemented by commands that forward to another command.
type Unwrappable interface {
	Command
	Unwrap() Command
}

// RunFunc is the signature of Command.Run.
type RunFunc func(ctx *Context, args []string) (reply.Response, error)

// Wrapped replaces the Run of an inner command and delegates everything else.
type Wrapped struct {
	Command
	RunFunc RunFunc
}

func (w *Wrapped) Run(ctx *Context, args []string) (reply.Response, error) {
	if w.RunFunc != nil {
		return w.RunFunc(ctx, args)
	}
	return w.Command.Run(ctx, args)
}

// Unwrap returns the inner command.
func (w *Wrapped) Unwrap() Command { return w.Command }

// Wrap returns a command that runs run instead of c.Run.
func Wrap(c Command, run RunFunc) Command {
	return &Wrapped{Command: c, RunFunc: run}
}

// Root unwraps c until it reaches a command that forwards nowhere. For an
// alias this is its target.
func Root(c Command) Command {
	for {
		u, ok := c.(Unwrappable)
		if !ok {
			return c
		}
		c = u.Unwrap()
	}
}

// Alias is a second name for a command. It has no policy of its own.
type Alias struct {
	name    string
	target  Command
	dynamic bool
}

// NewAlias returns an alias named name for target. Aliases of aliases
// forward straight to the final target.
func NewAlias(name string, target Command) *Alias {
	return &Alias{name: name, target: Root(target)}
}

func (a *Alias) Name() string              { return a.name }
func (a *Alias) Details() Details          { return a.target.Details() }
func (a *Alias) Policy() permission.Policy { return a.target.Policy() }
func (a *Alias) Fixed() bool               { return true }
func (a *Alias) Unwrap() Command           { return a.target }

// Target is the name of the forwarded-to command.
func (a *Alias) Target() string { return a.target.Name() }

// Dynamic reports whether the alias was created at runtime and persisted.
func (a *Alias) Dynamic() bool { return a.dynamic }

func (a *Alias) Run(ctx *Context, args []string) (reply.Response, error) {
	return a.target.Run(ctx, args)
}
