// Package permission evaluates whether an actor may invoke a command and edits
// the whitelist/blacklist rule sets that decide it.
package permission

// Kind is the subject a Rule matches.
type Kind string

const (
	KindUser    Kind = "user"
	KindRole    Kind = "role"
	KindChannel Kind = "channel"
)

// Unbounded disables an argument count bound.
const Unbounded = -1

// Rule matches one subject. Exact is only meaningful for role rules: true
// requires the actor to hold that role, false admits that role or any
// higher-ranked one.
type Rule struct {
	Kind  Kind   `json:"type"`
	ID    string `json:"id"`
	Exact bool   `json:"exact"`
}

func (r Rule) same(o Rule) bool {
	return r.Kind == o.Kind && r.ID == o.ID
}

// Policy governs whether a command may run.
type Policy struct {
	// UseWhitelist makes the policy default-deny unless a whitelist rule matches.
	UseWhitelist bool
	Whitelist    []Rule
	Blacklist    []Rule
	ArgMin       int
	ArgMax       int
}

// Open returns a default-allow policy with no argument bounds.
func Open() Policy {
	return Policy{ArgMin: Unbounded, ArgMax: Unbounded}
}

// OwnerOnly returns a whitelist policy admitting only ownerID, the default
// for commands whose rules have not been edited yet.
func OwnerOnly(ownerID string) Policy {
	p := Policy{UseWhitelist: true, ArgMin: Unbounded, ArgMax: Unbounded}
	if ownerID != "" {
		p.Whitelist = []Rule{{Kind: KindUser, ID: ownerID}}
	}
	return p
}

// WithArgs returns a copy of p with argument bounds set.
func (p Policy) WithArgs(min, max int) Policy {
	p.ArgMin, p.ArgMax = min, max
	return p
}

// Clone returns a deep copy of p.
func (p Policy) Clone() Policy {
	out := p
	out.Whitelist = append([]Rule(nil), p.Whitelist...)
	out.Blacklist = append([]Rule(nil), p.Blacklist...)
	return out
}

// Actor is who is attempting the invocation.
type Actor struct {
	UserID  string
	RoleIDs []string
	// HighestRank is the rank of the actor's most privileged role.
	HighestRank int
}

func (a Actor) hasRole(id string) bool {
	for _, r := range a.RoleIDs {
		if r == id {
			return true
		}
	}
	return false
}

// RoleRanker resolves a role id to its position in the role hierarchy. A
// higher rank is more privileged.
type RoleRanker interface {
	RoleRank(roleID string) (rank int, ok bool)
}

// Request is the input of one evaluation.
type Request struct {
	Actor     Actor
	ChannelID string
	Roles     RoleRanker
	ArgCount  int
	// SkipArgs evaluates permission only, for listings and probes.
	SkipArgs bool
}

// Evaluate decides whether req may run under p.
//
// The blacklist is checked first and always wins. A blacklisted user is told
// so; a blacklisted channel denies silently. Without UseWhitelist everyone
// else is allowed. With it, a user rule must match the actor, an exact role
// rule must be held, or a ranked role rule must not outrank the actor.
// Argument bounds are applied last.
func (p *Policy) Evaluate(req Request) Decision {
	for _, r := range p.Blacklist {
		switch r.Kind {
		case KindUser:
			if r.ID == req.Actor.UserID {
				return deny(ReasonBlacklistedUser)
			}
		case KindChannel:
			if r.ID == req.ChannelID {
				return deny(ReasonBlacklistedChannel)
			}
		}
	}

	if p.UseWhitelist && !p.whitelisted(req) {
		return deny(ReasonNoPermission)
	}

	if !req.SkipArgs {
		if p.ArgMin != Unbounded && req.ArgCount < p.ArgMin {
			return deny(ReasonTooFewArgs)
		}
		if p.ArgMax != Unbounded && req.ArgCount > p.ArgMax {
			return deny(ReasonTooManyArgs)
		}
	}
	return Decision{Allowed: true}
}

func (p *Policy) whitelisted(req Request) bool {
	for _, r := range p.Whitelist {
		switch r.Kind {
		case KindUser:
			if r.ID == req.Actor.UserID {
				return true
			}
		case KindRole:
			if r.Exact {
				if req.Actor.hasRole(r.ID) {
					return true
				}
				continue
			}
			// Only the actor's highest role is compared. An unknown role never matches.
			if req.Roles == nil {
				continue
			}
			if rank, ok := req.Roles.RoleRank(r.ID); ok && req.Actor.HighestRank >= rank {
				return true
			}
		}
	}
	return false
}
