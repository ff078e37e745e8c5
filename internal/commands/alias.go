package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/keshon/warden/internal/command"
	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/reply"
)

// AliasCommand manages aliases persisted across restarts.
type AliasCommand struct {
	registry *command.Registry
	ownerID  string
}

func (c *AliasCommand) Name() string { return "alias" }
func (c *AliasCommand) Details() command.Details {
	return command.Details{
		Description: "Adds, removes or lists command aliases. Only aliases added here can be removed.",
		Usage:       "add <name> <command>\nremove <name>\nlist",
	}
}
func (c *AliasCommand) Policy() permission.Policy { return permission.OwnerOnly(c.ownerID).WithArgs(1, 3) }
func (c *AliasCommand) Fixed() bool               { return true }

func (c *AliasCommand) Init(r *command.Registry) error {
	c.registry = r
	return nil
}

func (c *AliasCommand) Run(ctx *command.Context, args []string) (reply.Response, error) {
	switch {
	case len(args) == 1 && args[0] == "list":
		return c.list(), nil
	case len(args) == 3 && args[0] == "add":
		return c.add(args[1], args[2])
	case len(args) == 2 && args[0] == "remove":
		return c.remove(args[1])
	}
	return reply.Error("Unknown alias action.", "```"+strings.TrimSpace(c.Details().UsageFormatted(ctx.Invoked))+"```"), nil
}

func (c *AliasCommand) list() reply.Response {
	var b strings.Builder
	for _, a := range c.registry.Aliases() {
		fmt.Fprintf(&b, "%s -> %s", a.Name(), a.Target())
		if a.Dynamic() {
			b.WriteString(" (dynamic)")
		}
		b.WriteByte('\n')
	}
	return reply.Panel(reply.Embed{
		Title:       "Aliases",
		Description: "`" + orDefault(b.String(), "No aliases.") + "`",
		Color:       reply.ColorInfo,
	})
}

func (c *AliasCommand) add(name, target string) (reply.Response, error) {
	a, err := c.registry.AddDynamicAlias(name, target)
	switch {
	case errors.Is(err, command.ErrDuplicate):
		return reply.Error("That name is already in use."), nil
	case errors.Is(err, command.ErrNotFound):
		return reply.Error(MsgUnknownCommand), nil
	case err != nil:
		return reply.None(), err
	}
	return reply.Text(fmt.Sprintf("Alias '%s' now runs '%s'", a.Name(), a.Target())), nil
}

func (c *AliasCommand) remove(name string) (reply.Response, error) {
	err := c.registry.RemoveDynamicAlias(name)
	switch {
	case errors.Is(err, command.ErrStaticAlias):
		return reply.Error("Only aliases added with this command can be removed."), nil
	case errors.Is(err, command.ErrNotFound):
		return reply.Error("Cannot find an alias with that name."), nil
	case err != nil:
		return reply.None(), err
	}
	return reply.Text(fmt.Sprintf("Removed alias '%s'", name)), nil
}
