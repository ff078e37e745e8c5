package discord

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/warden/internal/permission"
)

// MemberFetcher loads a member over REST when the state cache misses.
type MemberFetcher func(guildID, userID string) (*discordgo.Member, error)

// Directory answers member, role and channel questions about the home guild
// from the gateway state cache.
type Directory struct {
	state *discordgo.State
	fetch MemberFetcher

	mu      sync.RWMutex
	guildID string
}

func NewDirectory(state *discordgo.State, fetch MemberFetcher, guildID string) *Directory {
	return &Directory{state: state, fetch: fetch, guildID: guildID}
}

// GuildID returns the home guild, empty until one is known.
func (d *Directory) GuildID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.guildID
}

// SetGuildIfEmpty adopts id as the home guild unless one is configured.
func (d *Directory) SetGuildIfEmpty(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.guildID != "" {
		return false
	}
	d.guildID = id
	return true
}

// Member resolves userID on the home guild. found is false when the user is
// not a member.
func (d *Directory) Member(_ context.Context, userID string) (permission.Actor, bool, error) {
	m, err := d.member(userID)
	if err != nil || m == nil {
		return permission.Actor{}, false, err
	}

	actor := permission.Actor{UserID: userID, RoleIDs: append([]string(nil), m.Roles...)}
	for _, id := range m.Roles {
		if rank, ok := d.RoleRank(id); ok && rank > actor.HighestRank {
			actor.HighestRank = rank
		}
	}
	return actor, true, nil
}

func (d *Directory) member(userID string) (*discordgo.Member, error) {
	guildID := d.GuildID()
	if guildID == "" {
		return nil, nil
	}
	if m, err := d.state.Member(guildID, userID); err == nil {
		return m, nil
	}
	if d.fetch == nil {
		return nil, nil
	}

	m, err := d.fetch(guildID, userID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.state.TrackMembers {
		m.GuildID = guildID
		_ = d.state.MemberAdd(m)
	}
	return m, nil
}

// RoleRank is the position of a role in the hierarchy.
func (d *Directory) RoleRank(roleID string) (int, bool) {
	r, err := d.state.Role(d.GuildID(), roleID)
	if err != nil {
		return 0, false
	}
	return r.Position, true
}

// MemberName is the nickname of a member, or the username without one.
func (d *Directory) MemberName(_ context.Context, userID string) (string, bool) {
	m, err := d.member(userID)
	if err != nil || m == nil {
		return "", false
	}
	if m.Nick != "" {
		return m.Nick, true
	}
	if m.User != nil {
		return m.User.Username, true
	}
	return userID, true
}

func (d *Directory) RoleName(roleID string) (string, bool) {
	r, err := d.state.Role(d.GuildID(), roleID)
	if err != nil {
		return "", false
	}
	return r.Name, true
}

// ChannelName resolves channels of the home guild only.
func (d *Directory) ChannelName(channelID string) (string, bool) {
	c, err := d.state.Channel(channelID)
	if err != nil || c.GuildID != d.GuildID() {
		return "", false
	}
	return c.Name, true
}

func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMember {
		return true
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}
