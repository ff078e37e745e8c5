// Package command defines text commands, the aliases that forward to them,
// the middleware that guards them, and the registry that owns their policies.
package command

import (
	"context"
	"strings"

	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/reply"
)

// User-facing error texts.
const (
	MsgDMUnsupported  = "DMs currently are not supported for this bot"
	MsgMemberNotFound = "Could not find you on the guild this bot is part of!"
	MsgUnknown        = "This command does not exist."
	MsgFailed         = "Command failed to execute. Contact the Admins"
)

// Command is a named handler with a default access policy.
type Command interface {
	Name() string
	Details() Details
	// Policy is the compiled-in policy. For dynamic commands its rule lists
	// are only the first-run default; the registry holds the live copy.
	Policy() permission.Policy
	// Fixed commands cannot have their rules edited at runtime.
	Fixed() bool
	Run(ctx *Context, args []string) (reply.Response, error)
}

// Initializer is implemented by commands that need the registry after every
// command is registered and dynamic policies are hydrated.
type Initializer interface {
	Init(r *Registry) error
}

// PostInitializer is implemented by commands that need the full command set,
// aliases included, to be resolvable.
type PostInitializer interface {
	PostInit(r *Registry) error
}

// Details is the help text of a command.
type Details struct {
	Description string
	// Usage holds one argument pattern per line, without the command name.
	Usage string
}

// UsageFormatted prefixes every usage line with name.
func (d Details) UsageFormatted(name string) string {
	var b strings.Builder
	for _, line := range strings.Split(d.Usage, "\n") {
		b.WriteString(name)
		if line = strings.TrimSpace(line); line != "" {
			b.WriteByte(' ')
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Context is what a handler receives for one invocation.
type Context struct {
	Ctx context.Context
	// ID correlates log lines and failure panels of one invocation.
	ID        string
	Invoked   string
	ActorID   string
	ChannelID string
	Text      string
	IsDirect  bool

	Actor permission.Actor
	// Member is false when the actor could not be found on the home guild.
	Member bool
	Roles  permission.RoleRanker
}

// Request builds a permission request for this invocation.
func (c *Context) Request(argCount int) permission.Request {
	return permission.Request{
		Actor:     c.Actor,
		ChannelID: c.ChannelID,
		Roles:     c.Roles,
		ArgCount:  argCount,
	}
}

// Probe builds a permission-only request, ignoring argument bounds.
func (c *Context) Probe() permission.Request {
	req := c.Request(0)
	req.SkipArgs = true
	return req
}
