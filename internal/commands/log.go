package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/warden/internal/command"
	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/reply"
)

const (
	discordMaxMessageLength = 2000
	codeLeftBlockWrapper    = "```md"
	codeRightBlockWrapper   = "```"
)

var maxContentLength = discordMaxMessageLength - len(codeLeftBlockWrapper) - len(codeRightBlockWrapper)

type LogCommand struct {
	history HistoryReader
	dir     Directory
	ownerID string
}

func (c *LogCommand) Name() string { return "log" }
func (c *LogCommand) Details() command.Details {
	return command.Details{Description: "Review recently executed commands"}
}
func (c *LogCommand) Policy() permission.Policy { return permission.OwnerOnly(c.ownerID).WithArgs(0, 0) }
func (c *LogCommand) Fixed() bool               { return false }

func (c *LogCommand) Run(ctx *command.Context, _ []string) (reply.Response, error) {
	if c.history == nil {
		return reply.Text("No command history found."), nil
	}
	records, err := c.history.FetchCommandHistory()
	if err != nil {
		return reply.None(), fmt.Errorf("fetch command history: %w", err)
	}
	if len(records) == 0 {
		return reply.Text("No command history found."), nil
	}

	var builder strings.Builder
	header := fmt.Sprintf("%-19s\t%-15s\t%-12s\t%s\n", "# Datetime", "# Username", "# Channel", "# Command")
	builder.WriteString(header)

	for idx := len(records) - 1; idx >= 0; idx-- {
		r := records[idx]

		cmd := r.Command
		if r.Param != "" {
			cmd += " " + r.Param
		}
		line := fmt.Sprintf(
			"%-19s\t%-15s\t%-12s\t%s\n",
			r.Datetime.Format("2006-01-02 15:04:05"),
			nameOr(ctxOf(ctx), c.dir, permission.KindUser, r.UserID),
			c.channel(r.ChannelID),
			cmd,
		)

		if builder.Len()+len(line) > maxContentLength {
			break
		}

		builder.WriteString(line)
	}

	return reply.Text(codeLeftBlockWrapper + "\n" + builder.String() + codeRightBlockWrapper), nil
}

func (c *LogCommand) channel(id string) string {
	if c.dir != nil {
		if name, ok := c.dir.ChannelName(id); ok {
			return "#" + name
		}
	}
	return "#" + id
}

func ctxOf(c *command.Context) context.Context {
	if c == nil || c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}
