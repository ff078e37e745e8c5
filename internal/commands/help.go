package commands

import (
	"errors"
	"strings"

	"github.com/keshon/warden/internal/command"
	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/reply"
)

const helpColor = 0xAAAAFF

type HelpCommand struct {
	registry *command.Registry
}

func (c *HelpCommand) Name() string { return "help" }
func (c *HelpCommand) Details() command.Details {
	return command.Details{Description: "Gives help for a specified command, or lists all", Usage: "[command]"}
}
func (c *HelpCommand) Policy() permission.Policy { return permission.Open().WithArgs(0, 1) }
func (c *HelpCommand) Fixed() bool               { return true }

func (c *HelpCommand) Init(r *command.Registry) error {
	c.registry = r
	return r.RegisterAlias("commands", c.Name())
}

func (c *HelpCommand) Run(ctx *command.Context, args []string) (reply.Response, error) {
	if len(args) == 0 {
		return c.list(ctx), nil
	}

	target, err := c.registry.Resolve(args[0])
	if errors.Is(err, command.ErrNotFound) {
		return reply.Error(command.MsgUnknown), nil
	}
	if err != nil {
		return reply.None(), err
	}

	color := reply.ColorAllowed
	if !c.registry.Evaluate(args[0], ctx.Probe()).Allowed {
		color = reply.ColorError
	}
	return reply.Panel(reply.Embed{
		Title:       strings.TrimSpace(target.Details().UsageFormatted(args[0])),
		Description: target.Details().Description,
		Color:       color,
	}), nil
}

func (c *HelpCommand) list(ctx *command.Context) reply.Response {
	e := reply.Embed{
		Title:  "Available Commands",
		Color:  helpColor,
		Footer: "Commands are filtered by your permissions.",
	}
	for _, cmd := range c.registry.ListInvocable(ctx.Probe()) {
		d := cmd.Details()
		desc := d.Description
		if desc == "" {
			desc = "-"
		}
		e.AddField(strings.TrimSpace(d.UsageFormatted(cmd.Name())), desc, false)
	}
	return reply.DirectPanel(e)
}
