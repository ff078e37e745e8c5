package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/keshon/warden/internal/command"
	"github.com/keshon/warden/internal/convo"
	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/reply"
)

const permsDescription = `Applys permissions to commands that support dynamic permissions
The target needs to be mentioned with @ for user/role and # for chat channel
Exact will be ignored unless targetting a role.
` + "`exact == true`" + ` will mean ONLY that role can use the command
` + "`exact == false`" + ` will mean any role above or equal can use the command
The flag is written as ` + "`true`/`false`" + ` or ` + "`exact:true`/`exact:false`" + `.
Unspecified defaults to exact, so a role rule without the flag admits ONLY that role.

` + "`perms *`" + ` will list all active dynamic commands.

perms <command> will show permission lists numbered
perms <command> delete [id] will delete from white/blacklist with the ID of the entry or all if unspecified`

// PermsCommand shows and edits the rule lists of dynamic commands.
type PermsCommand struct {
	registry *command.Registry
	dynamic  []string

	contexts *convo.Manager
	dir      Directory
	ownerID  string
	onReact  string
	log      zerolog.Logger
}

func (c *PermsCommand) Name() string { return "perms" }
func (c *PermsCommand) Details() command.Details {
	return command.Details{
		Description: permsDescription,
		Usage:       "<command> <allow/deny> <target> [exact:true/false]\n<command> ['delete'] [id/'*']\n'*'",
	}
}
func (c *PermsCommand) Policy() permission.Policy { return permission.OwnerOnly(c.ownerID).WithArgs(1, 4) }
func (c *PermsCommand) Fixed() bool               { return true }

func (c *PermsCommand) PostInit(r *command.Registry) error {
	c.registry = r
	c.dynamic = r.Dynamic()
	return nil
}

func (c *PermsCommand) Run(ctx *command.Context, args []string) (reply.Response, error) {
	if len(args) == 0 {
		return reply.Error(MsgUnknownCommand), nil
	}
	if args[0] == "*" {
		return c.listDynamic(), nil
	}
	if _, err := c.registry.Resolve(args[0]); err != nil {
		return reply.Error(MsgUnknownCommand), nil
	}

	name := args[0]
	dynamic := c.isDynamic(name)
	if len(args) == 1 {
		e := c.panel(ctx, name)
		if !dynamic {
			e.Description = MsgNotDynamic
		}
		return reply.Panel(e), nil
	}
	if !dynamic {
		return reply.Error(MsgNotDynamic), nil
	}

	switch args[1] {
	case "delete":
		return c.delete(ctx, name, args[2:])
	case "allow":
		return c.edit(ctx, name, permission.Whitelist, args[2:])
	case "deny":
		return c.edit(ctx, name, permission.Blacklist, args[2:])
	}
	return reply.Error(MsgUnknownFilter), nil
}

func (c *PermsCommand) isDynamic(name string) bool {
	for _, d := range c.dynamic {
		if d == name {
			return true
		}
	}
	return false
}

func (c *PermsCommand) listDynamic() reply.Response {
	return reply.Panel(reply.Embed{
		Title:       "Dynamic Permission Commands",
		Description: "`" + strings.Join(c.dynamic, "\n") + "`",
		Color:       reply.ColorInfo,
	})
}

func (c *PermsCommand) panel(ctx *command.Context, name string) reply.Embed {
	p, _ := c.registry.Policy(name)

	var white strings.Builder
	for i, r := range p.Whitelist {
		fmt.Fprintf(&white, "W%d) %s -> %s", i, r.Kind, nameOr(ctx.Ctx, c.dir, r.Kind, r.ID))
		if r.Kind == permission.KindRole {
			if r.Exact {
				white.WriteString(", exact")
			} else {
				white.WriteString(", above")
			}
		}
		white.WriteByte('\n')
	}
	var black strings.Builder
	for i, r := range p.Blacklist {
		fmt.Fprintf(&black, "B%d) %s -> %s\n", i, r.Kind, nameOr(ctx.Ctx, c.dir, r.Kind, r.ID))
	}

	e := reply.Embed{Title: "Permission Settings for " + name}
	e.AddField("Whitelist", "`"+orDefault(white.String(), "No whitelist entries.")+"`", false)
	e.AddField("Blacklist", "`"+orDefault(black.String(), "No blacklist entries.")+"`", false)

	if c.registry.Evaluate(name, ctx.Probe()).Allowed {
		e.Color, e.Footer = reply.ColorAllowed, "You can use this command"
	} else {
		e.Color, e.Footer = reply.ColorDenied, "You cannot use this command"
	}
	return e
}

func (c *PermsCommand) delete(ctx *command.Context, name string, args []string) (reply.Response, error) {
	if len(args) == 0 {
		if c.contexts == nil {
			return reply.Error(MsgInvalidID), nil
		}
		c.contexts.Demand(ctx.ActorID, c.deleteReply, name)
		e := c.panel(ctx, name)
		e.Footer = strings.TrimSpace("Please reply the entry to delete " + c.onReact)
		return reply.Panel(e), nil
	}

	if args[0] == "*" {
		if err := c.registry.EditPolicy(name, func(p *permission.Policy) error {
			p.Reset()
			return nil
		}); err != nil {
			return reply.None(), err
		}
		c.log.Info().Str("command", name).Str("actor", ctx.ActorID).Msg("permissions reset")
		return reply.Text("Deleted all permissions for " + name), nil
	}

	if resp, ok := c.remove(name, args[0]); !ok {
		return resp, nil
	}
	c.log.Info().Str("command", name).Str("actor", ctx.ActorID).Str("entry", args[0]).Msg("permission deleted")
	return reply.Text(fmt.Sprintf("Deleted permission %s from %s", args[0], name)), nil
}

// deleteReply consumes the entry id the actor was asked for. Bad ids keep
// the demand open for another try.
func (c *PermsCommand) deleteReply(in convo.Input, payload any) (reply.Response, bool) {
	name, _ := payload.(string)
	id := strings.TrimSpace(in.Text)
	if resp, ok := c.remove(name, id); !ok {
		return resp, true
	}
	c.log.Info().Str("command", name).Str("actor", in.ActorID).Str("entry", id).Msg("permission deleted")
	return reply.React(""), false
}

func (c *PermsCommand) remove(name, id string) (reply.Response, bool) {
	err := c.registry.EditPolicy(name, func(p *permission.Policy) error {
		_, err := p.Remove(id)
		return err
	})
	switch {
	case err == nil:
		return reply.None(), true
	case errors.Is(err, permission.ErrRuleNumber):
		return reply.Error(MsgIDNaN), false
	case errors.Is(err, permission.ErrRuleRange):
		return reply.Error(MsgOutOfRange), false
	case errors.Is(err, permission.ErrRuleIndex):
		return reply.Error(MsgInvalidID), false
	}
	c.log.Error().Err(err).Str("command", name).Msg("failed to delete permission")
	return reply.Error(command.MsgFailed, "```"+err.Error()+"```"), false
}

func (c *PermsCommand) edit(ctx *command.Context, name string, list permission.List, args []string) (reply.Response, error) {
	if len(args) == 0 {
		return reply.Error(MsgBadTarget), nil
	}
	kind, id, ok := parseMention(args[0])
	if !ok || !c.exists(ctx.Ctx, kind, id) {
		return reply.Error(MsgBadTarget), nil
	}
	if !list.Accepts(kind) {
		if list == permission.Whitelist {
			return reply.Error(MsgNotChannel), nil
		}
		return reply.Error(MsgNotRole), nil
	}

	rule := permission.Rule{Kind: kind, ID: id}
	if kind == permission.KindRole {
		exact, err := parseExact(args[1:])
		if err != nil {
			return reply.Error(MsgUnknownFilter), nil
		}
		rule.Exact = exact
	}

	err := c.registry.EditPolicy(name, func(p *permission.Policy) error {
		if list == permission.Whitelist {
			return p.Allow(rule)
		}
		return p.Deny(rule)
	})
	if errors.Is(err, permission.ErrRuleExists) {
		if list == permission.Whitelist {
			return reply.Text("Whitelist entry already exists!"), nil
		}
		return reply.Text("Blacklist entry already exists!"), nil
	}
	if err != nil {
		return reply.None(), err
	}
	c.log.Info().Str("command", name).Str("actor", ctx.ActorID).Str("list", list.String()).
		Str("kind", string(kind)).Str("id", id).Msg("permission added")

	verb := "Whitelisted"
	if list == permission.Blacklist {
		verb = "Blacklisted"
	}
	if kind == permission.KindRole {
		return reply.Text(fmt.Sprintf("%s '%s' with target '%s' (`exact=%t`) for command '%s'", verb, kind, args[0], rule.Exact, name)), nil
	}
	return reply.Text(fmt.Sprintf("%s '%s' with target '%s' for command '%s'", verb, kind, args[0], name)), nil
}

func (c *PermsCommand) exists(ctx context.Context, kind permission.Kind, id string) bool {
	_, ok := displayName(ctx, c.dir, kind, id)
	return ok
}

// parseExact reads the optional exact flag, bare or as exact:<bool>.
// Unspecified means exact.
func parseExact(args []string) (bool, error) {
	if len(args) == 0 {
		return true, nil
	}
	v := args[0]
	if len(v) > len("exact:") && strings.EqualFold(v[:len("exact:")], "exact:") {
		v = v[len("exact:"):]
	}
	return strconv.ParseBool(v)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
