package command

import (
	"fmt"

	"github.com/keshon/warden/internal/permission"
	"github.com/keshon/warden/internal/storage"
)

// Load runs the startup protocol over every registered command:
//
//  1. dynamic policies hydrate their rule lists from the store, storing the
//     compiled-in lists as the default on first run;
//  2. Init hooks run;
//  3. persisted dynamic aliases are registered;
//  4. PostInit hooks run.
//
// Hook errors abort loading. Store errors and broken aliases are logged and
// skipped, leaving the compiled-in defaults in place.
func (r *Registry) Load() error {
	cmds := r.Commands()

	for _, c := range cmds {
		if !c.Fixed() {
			r.hydrate(c)
		}
	}

	for _, c := range cmds {
		if h, ok := c.(Initializer); ok {
			if err := h.Init(r); err != nil {
				return fmt.Errorf("init %s: %w", c.Name(), err)
			}
		}
	}

	r.loadDynamicAliases()

	for _, c := range cmds {
		if h, ok := c.(PostInitializer); ok {
			if err := h.PostInit(r); err != nil {
				return fmt.Errorf("post-init %s: %w", c.Name(), err)
			}
		}
	}

	r.log.Info().Int("commands", len(cmds)).Int("aliases", len(r.Aliases())).Msg("commands loaded")
	return nil
}

func (r *Registry) hydrate(c Command) {
	if r.store == nil {
		return
	}
	name := c.Name()
	def := c.Policy()
	rec, created, err := r.store.HydratePolicy(name, storage.PolicyRecord{Whitelist: def.Whitelist, Blacklist: def.Blacklist})
	if err != nil {
		r.log.Error().Err(err).Str("command", name).Msg("failed to load permission data, using defaults")
		return
	}
	if created {
		r.log.Info().Str("command", name).Msg("permission data does not exist, created with default permissions")
	}

	r.mu.Lock()
	p := r.policies[name]
	p.Whitelist = append([]permission.Rule(nil), rec.Whitelist...)
	p.Blacklist = append([]permission.Rule(nil), rec.Blacklist...)
	r.policies[name] = p
	r.mu.Unlock()
}

func (r *Registry) loadDynamicAliases() {
	if r.store == nil {
		return
	}
	records, err := r.store.Aliases()
	if err != nil {
		r.log.Error().Err(err).Msg("failed to load dynamic aliases")
		return
	}
	for _, rec := range records {
		if _, err := r.registerAlias(rec.Name, rec.Link, true); err != nil {
			r.log.Warn().Err(err).Str("alias", rec.Name).Str("target", rec.Link).Msg("skipping dynamic alias")
		}
	}
}
