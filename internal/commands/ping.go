package commands

import (
	"github.com/keshon/warden/internal/command"
	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/reply"
)

type PingCommand struct{}

func (c *PingCommand) Name() string { return "ping" }
func (c *PingCommand) Details() command.Details {
	return command.Details{Description: "You ping, it does a reaction."}
}
func (c *PingCommand) Policy() permission.Policy { return permission.Open().WithArgs(0, 0) }
func (c *PingCommand) Fixed() bool               { return false }

func (c *PingCommand) Run(*command.Context, []string) (reply.Response, error) {
	return reply.React(""), nil
}
