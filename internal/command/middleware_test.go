package command

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/reply"
	"github.com/keshon/warden/internal/storage"
)

type historyRecorder struct {
	records []storage.CommandHistoryRecord
	err     error
}

func (h *historyRecorder) AppendCommandToHistory(rec storage.CommandHistoryRecord) error {
	h.records = append(h.records, rec)
	return h.err
}

func memberContext(userID string) *Context {
	return &Context{ActorID: userID, ChannelID: "c", Actor: permission.Actor{UserID: userID}, Member: true}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(c Command) Command {
			return Wrap(c, func(ctx *Context, args []string) (reply.Response, error) {
				order = append(order, name)
				return c.Run(ctx, args)
			})
		}
	}
	inner := &fakeCommand{name: "ping"}
	wrapped := Chain(inner, mark("first"), mark("second"))

	_, err := wrapped.Run(&Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "ping", wrapped.Name())
	assert.Same(t, inner, Root(wrapped))
}

func TestWithGuildOnly(t *testing.T) {
	inner := &fakeCommand{name: "ping", resp: reply.React("")}
	c := WithGuildOnly()(inner)

	resp, err := c.Run(&Context{IsDirect: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, reply.KindError, resp.Kind)
	assert.Equal(t, MsgDMUnsupported, resp.Text)
	assert.Zero(t, inner.calls)

	resp, err = c.Run(&Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, reply.React(""), resp)
}

func TestWithPermissionCheck(t *testing.T) {
	r := NewRegistry(nil, zerolog.Nop())
	inner := &fakeCommand{name: "secret", policy: permission.OwnerOnly("owner").WithArgs(1, 1), resp: reply.Text("ok")}
	require.NoError(t, r.Register(inner))
	require.NoError(t, r.RegisterAlias("s", "secret"))
	alias, err := r.Resolve("s")
	require.NoError(t, err)
	c := WithPermissionCheck(r)(alias)

	resp, err := c.Run(memberContext("stranger"), []string{"x"})
	var denied *permission.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, permission.ReasonNoPermission, denied.Reason)
	assert.Equal(t, "You do not have permission to use this", resp.Text)
	assert.Zero(t, inner.calls)

	resp, err = c.Run(memberContext("owner"), nil)
	var invalid *permission.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "There is not enough arguments", resp.Text)

	resp, err = c.Run(memberContext("owner"), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, reply.Text("ok"), resp)
	assert.Equal(t, 1, inner.calls)

	resp, err = c.Run(&Context{ActorID: "ghost"}, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, MsgMemberNotFound, resp.Text)
}

func TestWithPermissionCheckSilentChannel(t *testing.T) {
	r := NewRegistry(nil, zerolog.Nop())
	p := permission.Open()
	p.Blacklist = []permission.Rule{{Kind: permission.KindChannel, ID: "c"}}
	require.NoError(t, r.Register(&fakeCommand{name: "ping", policy: p}))
	ping, _ := r.Command("ping")

	resp, err := WithPermissionCheck(r)(ping).Run(memberContext("u"), nil)
	assert.True(t, resp.IsNone())
	var denied *permission.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.True(t, denied.Silent)
}

func TestWithCommandLog(t *testing.T) {
	h := &historyRecorder{err: errors.New("disk full")}
	inner := &fakeCommand{name: "ping", resp: reply.React("")}
	c := WithCommandLog(h, zerolog.Nop())(NewAlias("p", inner))

	resp, err := c.Run(memberContext("u"), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, reply.React(""), resp)

	require.Len(t, h.records, 1)
	assert.Equal(t, "ping", h.records[0].Command)
	assert.Equal(t, "a b", h.records[0].Param)
	assert.Equal(t, "u", h.records[0].UserID)
}
