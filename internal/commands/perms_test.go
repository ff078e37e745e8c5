package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/warden/internal/convo"
	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/reply"
)

func TestPermsListsDynamicCommands(t *testing.T) {
	e := newEnv(t)
	resp := e.run(t, "owner", "perms", "*")
	require.Equal(t, reply.KindPanel, resp.Kind)
	assert.Equal(t, "`log\nping`", resp.Embed.Description)
}

func TestPermsShowsNumberedLists(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.reg.EditPolicy("log", func(p *permission.Policy) error {
		if err := p.Allow(permission.Rule{Kind: permission.KindRole, ID: "r1"}); err != nil {
			return err
		}
		return p.Deny(permission.Rule{Kind: permission.KindChannel, ID: "c1"})
	}))

	resp := e.run(t, "owner", "perms", "log")
	require.Equal(t, reply.KindPanel, resp.Kind)
	require.Len(t, resp.Embed.Fields, 2)
	assert.Equal(t, "`W0) user -> Boss\nW1) role -> mods, above\n`", resp.Embed.Fields[0].Value)
	assert.Equal(t, "`B0) channel -> #general\n`", resp.Embed.Fields[1].Value)
	// The owner runs from the blacklisted channel.
	assert.Equal(t, "You cannot use this command", resp.Embed.Footer)
	assert.Equal(t, reply.ColorDenied, resp.Embed.Color)
	assert.Empty(t, resp.Embed.Description)

	resp = e.run(t, "owner", "perms", "help")
	assert.Equal(t, MsgNotDynamic, resp.Embed.Description)
	assert.Equal(t, "`No blacklist entries.`", resp.Embed.Fields[1].Value)
	assert.Equal(t, "You can use this command", resp.Embed.Footer)
}

func TestPermsRejectsBadInvocations(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, MsgUnknownCommand, e.run(t, "owner", "perms", "nosuch").Text)
	assert.Equal(t, MsgNotDynamic, e.run(t, "owner", "perms", "help", "allow", "<@u1>").Text)
	assert.Equal(t, MsgNotDynamic, e.run(t, "owner", "perms", "commands", "delete").Text)
	assert.Equal(t, MsgUnknownFilter, e.run(t, "owner", "perms", "ping", "grant", "<@u1>").Text)
	assert.Equal(t, MsgBadTarget, e.run(t, "owner", "perms", "ping", "allow").Text)
	assert.Equal(t, MsgBadTarget, e.run(t, "owner", "perms", "ping", "allow", "<@ghost>").Text)
	assert.Equal(t, MsgBadTarget, e.run(t, "owner", "perms", "ping", "allow", "everyone").Text)
	assert.Equal(t, MsgNotChannel, e.run(t, "owner", "perms", "ping", "allow", "<#c1>").Text)
	assert.Equal(t, MsgNotRole, e.run(t, "owner", "perms", "ping", "deny", "<@&r1>").Text)
	assert.Equal(t, MsgUnknownFilter, e.run(t, "owner", "perms", "ping", "allow", "<@&r1>", "maybe").Text)
}

func TestPermsAllowAndDeny(t *testing.T) {
	e := newEnv(t)

	resp := e.run(t, "owner", "perms", "ping", "allow", "<@&r1>")
	assert.Equal(t, reply.Text("Whitelisted 'role' with target '<@&r1>' (`exact=true`) for command 'ping'"), resp)
	resp = e.run(t, "owner", "perms", "ping", "allow", "<@&r1>", "false")
	assert.Equal(t, reply.Text("Whitelist entry already exists!"), resp)

	resp = e.run(t, "owner", "perms", "ping", "deny", "<@!u1>")
	assert.Equal(t, reply.Text("Blacklisted 'user' with target '<@!u1>' for command 'ping'"), resp)
	assert.Equal(t, reply.Text("Blacklist entry already exists!"), e.run(t, "owner", "perms", "ping", "deny", "<@u1>"))

	// Allowing a blacklisted user moves the entry.
	resp = e.run(t, "owner", "perms", "ping", "allow", "<@u1>")
	assert.Equal(t, reply.Text("Whitelisted 'user' with target '<@u1>' for command 'ping'"), resp)

	rec, ok, err := e.st.LoadPolicy("ping")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []permission.Rule{
		{Kind: permission.KindRole, ID: "r1", Exact: true},
		{Kind: permission.KindUser, ID: "u1"},
	}, rec.Whitelist)
	assert.Empty(t, rec.Blacklist)
}

func TestPermsExactFlagForms(t *testing.T) {
	e := newEnv(t)

	resp := e.run(t, "owner", "perms", "ping", "allow", "<@&r1>", "exact:false")
	assert.Equal(t, reply.Text("Whitelisted 'role' with target '<@&r1>' (`exact=false`) for command 'ping'"), resp)
	assert.Equal(t, MsgUnknownFilter, e.run(t, "owner", "perms", "ping", "allow", "<@&r1>", "exact:maybe").Text)
	assert.Equal(t, MsgUnknownFilter, e.run(t, "owner", "perms", "ping", "allow", "<@&r1>", "exact:").Text)

	rec, ok, err := e.st.LoadPolicy("ping")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, rec.Whitelist, permission.Rule{Kind: permission.KindRole, ID: "r1", Exact: false})
}

func TestPermsDeleteByID(t *testing.T) {
	e := newEnv(t)
	e.run(t, "owner", "perms", "ping", "deny", "<@u1>")
	e.run(t, "owner", "perms", "ping", "deny", "<#c1>")

	assert.Equal(t, MsgIDNaN, e.run(t, "owner", "perms", "ping", "delete", "Bx").Text)
	assert.Equal(t, MsgOutOfRange, e.run(t, "owner", "perms", "ping", "delete", "B2").Text)
	assert.Equal(t, MsgInvalidID, e.run(t, "owner", "perms", "ping", "delete", "X0").Text)

	assert.Equal(t, reply.Text("Deleted permission B0 from ping"), e.run(t, "owner", "perms", "ping", "delete", "B0"))
	p, _ := e.reg.Policy("ping")
	assert.Equal(t, []permission.Rule{{Kind: permission.KindChannel, ID: "c1"}}, p.Blacklist)

	assert.Equal(t, reply.Text("Deleted all permissions for ping"), e.run(t, "owner", "perms", "ping", "delete", "*"))
	p, _ = e.reg.Policy("ping")
	assert.Empty(t, p.Blacklist)
	assert.Empty(t, p.Whitelist)
}

func TestPermsDeleteByContext(t *testing.T) {
	e := newEnv(t)
	e.run(t, "owner", "perms", "log", "deny", "<@u1>")

	resp := e.run(t, "owner", "perms", "log", "delete")
	require.Equal(t, reply.KindPanel, resp.Kind)
	assert.Equal(t, "Please reply the entry to delete on", resp.Embed.Footer)
	require.True(t, e.contexts.Active("owner"))

	// A bad id keeps the demand alive.
	out, outcome := e.contexts.Route(convo.Input{ActorID: "owner", Text: "B9"})
	assert.Equal(t, convo.Routed, outcome)
	assert.Equal(t, MsgOutOfRange, out.Text)
	assert.True(t, e.contexts.Active("owner"))

	out, _ = e.contexts.Route(convo.Input{ActorID: "owner", Text: " B0 "})
	assert.Equal(t, reply.React(""), out)
	assert.False(t, e.contexts.Active("owner"))

	rec, _, err := e.st.LoadPolicy("log")
	require.NoError(t, err)
	assert.Empty(t, rec.Blacklist)
}
