package command

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/storage"
)

var (
	ErrNotFound    = errors.New("command not found")
	ErrDuplicate   = errors.New("name already registered")
	ErrFixedPolicy = errors.New("command does not use dynamic permissions")
	ErrStaticAlias = errors.New("alias is not dynamic")
)

// Store persists dynamic policies and aliases.
type Store interface {
	HydratePolicy(command string, def storage.PolicyRecord) (storage.PolicyRecord, bool, error)
	SavePolicy(command string, rec storage.PolicyRecord) error
	Aliases() ([]storage.AliasRecord, error)
	AddAlias(rec storage.AliasRecord) error
	RemoveAlias(name string) (bool, error)
}

// Registry holds every command and alias under one namespace together with the
// live policy of each command.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	aliases  map[string]*Alias
	policies map[string]permission.Policy

	store Store
	log   zerolog.Logger
}

// NewRegistry returns an empty registry persisting through st. A nil st keeps
// every policy and alias in memory only.
func NewRegistry(st Store, logger zerolog.Logger) *Registry {
	return &Registry{
		commands: make(map[string]Command),
		aliases:  make(map[string]*Alias),
		policies: make(map[string]permission.Policy),
		store:    st,
		log:      logger.With().Str("component", "commands").Logger(),
	}
}

// Register adds a command with its compiled-in policy.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if r.takenLocked(name) {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.commands[name] = c
	r.policies[name] = c.Policy().Clone()
	r.log.Debug().Str("command", name).Msg("loaded command")
	return nil
}

// RegisterAlias adds a static alias for target.
func (r *Registry) RegisterAlias(name, target string) error {
	_, err := r.registerAlias(name, target, false)
	return err
}

func (r *Registry) registerAlias(name, target string, dynamic bool) (*Alias, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.takenLocked(name) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	c, ok := r.resolveLocked(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	a := NewAlias(name, c)
	a.dynamic = dynamic
	r.aliases[name] = a
	r.log.Info().Str("alias", name).Str("target", a.Target()).Bool("dynamic", dynamic).Msg("alias registered")
	return a, nil
}

// AddDynamicAlias registers an alias and persists it.
func (r *Registry) AddDynamicAlias(name, target string) (*Alias, error) {
	a, err := r.registerAlias(name, target, true)
	if err != nil {
		return nil, err
	}
	if r.store == nil {
		return a, nil
	}
	if err := r.store.AddAlias(storage.AliasRecord{Name: name, Link: a.Target()}); err != nil {
		r.mu.Lock()
		delete(r.aliases, name)
		r.mu.Unlock()
		return nil, fmt.Errorf("persist alias %s: %w", name, err)
	}
	return a, nil
}

// RemoveDynamicAlias unregisters a persisted alias. Static aliases cannot be removed.
func (r *Registry) RemoveDynamicAlias(name string) error {
	r.mu.Lock()
	a, ok := r.aliases[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if !a.dynamic {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStaticAlias, name)
	}
	delete(r.aliases, name)
	r.mu.Unlock()

	if r.store != nil {
		if _, err := r.store.RemoveAlias(name); err != nil {
			return fmt.Errorf("persist alias removal %s: %w", name, err)
		}
	}
	r.log.Info().Str("alias", name).Msg("alias removed")
	return nil
}

// Resolve returns the command or alias registered under name.
func (r *Registry) Resolve(name string) (Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.resolveLocked(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c, nil
}

// Command returns the non-alias command named name.
func (r *Registry) Command(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

// Commands returns every non-alias command sorted by name.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Dynamic returns the names of commands whose rules may be edited, sorted.
func (r *Registry) Dynamic() []string {
	var out []string
	for _, c := range r.Commands() {
		if !c.Fixed() {
			out = append(out, c.Name())
		}
	}
	return out
}

// Aliases returns every alias sorted by name.
func (r *Registry) Aliases() []*Alias {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Alias, 0, len(r.aliases))
	for _, a := range r.aliases {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// AliasesOf returns the alias names that forward to command, sorted.
func (r *Registry) AliasesOf(command string) []string {
	var out []string
	for _, a := range r.Aliases() {
		if a.Target() == command {
			out = append(out, a.Name())
		}
	}
	return out
}

// Policy returns a copy of the live policy of a command. Aliases resolve to
// their target's policy.
func (r *Registry) Policy(name string) (permission.Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.resolveLocked(name)
	if !ok {
		return permission.Policy{}, false
	}
	p, ok := r.policies[Root(c).Name()]
	return p.Clone(), ok
}

// Evaluate checks req against the live policy of the named command or alias.
func (r *Registry) Evaluate(name string, req permission.Request) permission.Decision {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.resolveLocked(name)
	if !ok {
		return permission.Decision{Reason: permission.ReasonNoPermission}
	}
	p := r.policies[Root(c).Name()]
	return p.Evaluate(req)
}

// EditPolicy applies fn to the live policy of a dynamic command and persists
// the rule lists. The policy is unchanged when fn fails.
func (r *Registry) EditPolicy(name string, fn func(p *permission.Policy) error) error {
	r.mu.Lock()
	c, ok := r.commands[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if c.Fixed() {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrFixedPolicy, name)
	}
	next := r.policies[name].Clone()
	if err := fn(&next); err != nil {
		r.mu.Unlock()
		return err
	}
	r.policies[name] = next
	r.mu.Unlock()

	return r.savePolicy(name, next)
}

// ListInvocable returns every non-alias command the request may use, ignoring
// argument bounds.
func (r *Registry) ListInvocable(req permission.Request) []Command {
	req.SkipArgs = true

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Command
	for name, c := range r.commands {
		p := r.policies[name]
		if p.Evaluate(req).Allowed {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func (r *Registry) savePolicy(name string, p permission.Policy) error {
	if r.store == nil {
		return nil
	}
	rec := storage.PolicyRecord{Whitelist: p.Whitelist, Blacklist: p.Blacklist}
	if err := r.store.SavePolicy(name, rec); err != nil {
		return fmt.Errorf("persist policy %s: %w", name, err)
	}
	r.log.Info().Str("command", name).Msg("saved new permissions")
	return nil
}

func (r *Registry) takenLocked(name string) bool {
	_, cmd := r.commands[name]
	_, alias := r.aliases[name]
	return cmd || alias
}

func (r *Registry) resolveLocked(name string) (Command, bool) {
	if c, ok := r.commands[name]; ok {
		return c, true
	}
	if a, ok := r.aliases[name]; ok {
		return a, true
	}
	return nil, false
}
