// Package commands holds the built-in text commands of the bot.
package commands

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/keshon/warden/internal/command"
	"github.com/keshon/warden/internal/convo"
	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/storage"
)

// User-facing error texts of the permission editor.
const (
	MsgNotDynamic     = "This command does not use dynamic permissions. It may be an alias of the real command."
	MsgNotRole        = "Roles cannot be blacklisted"
	MsgNotChannel     = "Channels cannot be whitelisted"
	MsgUnknownFilter  = "Unknown filter. Allowed values are `allow` or `deny`, using `*` and `delete` as seperate commands."
	MsgInvalidID      = "Cannot find a permission with that ID."
	MsgIDNaN          = "Specified ID did not use a valid number."
	MsgOutOfRange     = "Specified ID number is too large for the list."
	MsgUnknownCommand = "Command used as argument does not exist."
	MsgBadTarget      = "Whatever you targetted is voodoo, and this bot ignores it."
)

// Directory resolves ids of the home guild into display names.
type Directory interface {
	MemberName(ctx context.Context, userID string) (string, bool)
	RoleName(roleID string) (string, bool)
	ChannelName(channelID string) (string, bool)
}

// HistoryReader returns the recent command history, oldest first.
type HistoryReader interface {
	FetchCommandHistory() ([]storage.CommandHistoryRecord, error)
}

// Deps are the collaborators of the built-in commands.
type Deps struct {
	Contexts  *convo.Manager
	Directory Directory
	History   HistoryReader
	OwnerID   string
	// ContextOnReact is shown to the actor when a command waits for a reply.
	ContextOnReact string
	Logger         zerolog.Logger
}

// All returns every built-in command.
func All(d Deps) []command.Command {
	log := d.Logger.With().Str("component", "commands").Logger()
	return []command.Command{
		&PingCommand{},
		&HelpCommand{},
		&PermsCommand{
			contexts: d.Contexts,
			dir:      d.Directory,
			ownerID:  d.OwnerID,
			onReact:  d.ContextOnReact,
			log:      log,
		},
		&AliasCommand{ownerID: d.OwnerID},
		&LogCommand{history: d.History, dir: d.Directory, ownerID: d.OwnerID},
	}
}

// Register adds every built-in command to r.
func Register(r *command.Registry, d Deps) error {
	for _, c := range All(d) {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// parseMention splits a mention such as <@id>, <@!id>, <@&id> or <#id> into
// the rule kind and the raw id.
func parseMention(s string) (permission.Kind, string, bool) {
	s = strings.NewReplacer("<", "", ">", "").Replace(s)

	var kind permission.Kind
	switch {
	case strings.HasPrefix(s, "@&"):
		kind, s = permission.KindRole, s[2:]
	case strings.HasPrefix(s, "@!"):
		kind, s = permission.KindUser, s[2:]
	case strings.HasPrefix(s, "@"):
		kind, s = permission.KindUser, s[1:]
	case strings.HasPrefix(s, "#"):
		kind, s = permission.KindChannel, s[1:]
	default:
		return "", "", false
	}
	if s == "" {
		return "", "", false
	}
	return kind, s, true
}

// displayName looks up the name of a rule subject. ok is false when the
// subject does not exist on the guild.
func displayName(ctx context.Context, dir Directory, kind permission.Kind, id string) (string, bool) {
	if dir == nil {
		return id, true
	}
	if ctx == nil {
		ctx = context.Background()
	}
	switch kind {
	case permission.KindUser:
		return dir.MemberName(ctx, id)
	case permission.KindRole:
		return dir.RoleName(id)
	case permission.KindChannel:
		name, ok := dir.ChannelName(id)
		return "#" + name, ok
	}
	return "", false
}

// nameOr returns the display name of a subject, falling back to its id.
func nameOr(ctx context.Context, dir Directory, kind permission.Kind, id string) string {
	if name, ok := displayName(ctx, dir, kind, id); ok {
		return name
	}
	return id
}
