package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowRemovesFromBlacklist(t *testing.T) {
	p := Open()
	require.NoError(t, p.Deny(Rule{Kind: KindUser, ID: "u1"}))
	require.NoError(t, p.Deny(Rule{Kind: KindChannel, ID: "c1"}))

	require.NoError(t, p.Allow(Rule{Kind: KindUser, ID: "u1"}))
	assert.Equal(t, []Rule{{Kind: KindUser, ID: "u1"}}, p.Whitelist)
	assert.Equal(t, []Rule{{Kind: KindChannel, ID: "c1"}}, p.Blacklist)
}

func TestDenyRemovesFromWhitelist(t *testing.T) {
	p := Open()
	require.NoError(t, p.Allow(Rule{Kind: KindUser, ID: "u1"}))
	require.NoError(t, p.Allow(Rule{Kind: KindRole, ID: "r1", Exact: true}))

	require.NoError(t, p.Deny(Rule{Kind: KindUser, ID: "u1"}))
	assert.Equal(t, []Rule{{Kind: KindRole, ID: "r1", Exact: true}}, p.Whitelist)
	assert.Equal(t, []Rule{{Kind: KindUser, ID: "u1"}}, p.Blacklist)
}

func TestDuplicateRuleIsNoop(t *testing.T) {
	p := Open()
	require.NoError(t, p.Allow(Rule{Kind: KindRole, ID: "r1", Exact: false}))

	err := p.Allow(Rule{Kind: KindRole, ID: "r1", Exact: true})
	assert.ErrorIs(t, err, ErrRuleExists)
	assert.Contains(t, err.Error(), "already exists")
	assert.Equal(t, []Rule{{Kind: KindRole, ID: "r1", Exact: false}}, p.Whitelist)

	require.NoError(t, p.Deny(Rule{Kind: KindChannel, ID: "c1"}))
	assert.ErrorIs(t, p.Deny(Rule{Kind: KindChannel, ID: "c1"}), ErrRuleExists)
	assert.Len(t, p.Blacklist, 1)
}

func TestRuleKindRestrictions(t *testing.T) {
	p := Open()
	assert.ErrorIs(t, p.Allow(Rule{Kind: KindChannel, ID: "c1"}), ErrRuleKind)
	assert.ErrorIs(t, p.Deny(Rule{Kind: KindRole, ID: "r1"}), ErrRuleKind)
	assert.Empty(t, p.Whitelist)
	assert.Empty(t, p.Blacklist)
}

func TestExactOnlyKeptForRoles(t *testing.T) {
	p := Open()
	require.NoError(t, p.Allow(Rule{Kind: KindUser, ID: "u1", Exact: true}))
	assert.False(t, p.Whitelist[0].Exact)
}

func TestRemove(t *testing.T) {
	p := Open()
	require.NoError(t, p.Allow(Rule{Kind: KindUser, ID: "u1"}))
	require.NoError(t, p.Allow(Rule{Kind: KindUser, ID: "u2"}))
	require.NoError(t, p.Deny(Rule{Kind: KindChannel, ID: "c1"}))

	removed, err := p.Remove("W0")
	require.NoError(t, err)
	assert.Equal(t, "u1", removed.ID)
	assert.Equal(t, []Rule{{Kind: KindUser, ID: "u2"}}, p.Whitelist)

	_, err = p.Remove("B1")
	assert.ErrorIs(t, err, ErrRuleRange)
	_, err = p.Remove("Bx")
	assert.ErrorIs(t, err, ErrRuleNumber)
	_, err = p.Remove("X0")
	assert.ErrorIs(t, err, ErrRuleIndex)
	_, err = p.Remove("")
	assert.ErrorIs(t, err, ErrRuleIndex)

	_, err = p.Remove("B0")
	require.NoError(t, err)
	assert.Empty(t, p.Blacklist)
}

func TestResetKeepsMode(t *testing.T) {
	p := OwnerOnly("owner").WithArgs(0, 3)
	require.NoError(t, p.Deny(Rule{Kind: KindChannel, ID: "c"}))

	p.Reset()
	assert.Empty(t, p.Whitelist)
	assert.Empty(t, p.Blacklist)
	assert.True(t, p.UseWhitelist)
	assert.Equal(t, 3, p.ArgMax)
}

func TestCloneIsIndependent(t *testing.T) {
	p := OwnerOnly("owner")
	c := p.Clone()
	require.NoError(t, c.Allow(Rule{Kind: KindUser, ID: "other"}))
	assert.Len(t, p.Whitelist, 1)
	assert.Len(t, c.Whitelist, 2)
}
