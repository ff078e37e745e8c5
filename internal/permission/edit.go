package permission

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrRuleExists = errors.New("entry already exists")
	ErrRuleKind   = errors.New("rule kind not allowed in this list")
	ErrRuleIndex  = errors.New("cannot find a permission with that id")
	ErrRuleNumber = errors.New("permission id does not use a valid number")
	ErrRuleRange  = errors.New("permission id number is too large for the list")
)

// List selects the whitelist or the blacklist.
type List byte

const (
	Whitelist List = 'W'
	Blacklist List = 'B'
)

func (l List) String() string {
	if l == Whitelist {
		return "whitelist"
	}
	return "blacklist"
}

// Accepts reports whether rules of kind k may be stored in l.
func (l List) Accepts(k Kind) bool {
	switch l {
	case Whitelist:
		return k == KindUser || k == KindRole
	case Blacklist:
		return k == KindUser || k == KindChannel
	}
	return false
}

// Allow appends r to the whitelist, removing the same subject from the
// blacklist first.
func (p *Policy) Allow(r Rule) error {
	return p.add(Whitelist, r)
}

// Deny appends r to the blacklist, removing the same subject from the
// whitelist first.
func (p *Policy) Deny(r Rule) error {
	return p.add(Blacklist, r)
}

func (p *Policy) add(l List, r Rule) error {
	if !l.Accepts(r.Kind) {
		return fmt.Errorf("%w: %s in %s", ErrRuleKind, r.Kind, l)
	}
	if r.Kind != KindRole {
		r.Exact = false
	}

	target, opposite := &p.Whitelist, &p.Blacklist
	if l == Blacklist {
		target, opposite = opposite, target
	}
	for _, existing := range *target {
		if existing.same(r) {
			return fmt.Errorf("%w: %s %s", ErrRuleExists, r.Kind, r.ID)
		}
	}

	kept := (*opposite)[:0]
	for _, existing := range *opposite {
		if !existing.same(r) {
			kept = append(kept, existing)
		}
	}
	*opposite = kept
	*target = append(*target, r)
	return nil
}

// Remove deletes the entry addressed by id, a list letter followed by a
// zero-based index such as "W0" or "B2".
func (p *Policy) Remove(id string) (Rule, error) {
	if id == "" {
		return Rule{}, ErrRuleIndex
	}

	var list *[]Rule
	switch List(id[0]) {
	case Whitelist:
		list = &p.Whitelist
	case Blacklist:
		list = &p.Blacklist
	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrRuleIndex, id)
	}

	n, err := strconv.Atoi(id[1:])
	if err != nil || n < 0 {
		return Rule{}, fmt.Errorf("%w: %q", ErrRuleNumber, id)
	}
	if n >= len(*list) {
		return Rule{}, fmt.Errorf("%w: %q", ErrRuleRange, id)
	}

	removed := (*list)[n]
	*list = append((*list)[:n], (*list)[n+1:]...)
	return removed, nil
}

// Reset clears both rule lists. UseWhitelist and argument bounds are kept.
func (p *Policy) Reset() {
	p.Whitelist = nil
	p.Blacklist = nil
}
