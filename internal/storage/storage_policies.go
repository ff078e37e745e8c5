package storage

import (
	"sort"

	"github.com/keshon/warden/internal/permission"
)

// PolicyRecord is the persisted part of a dynamic command policy.
type PolicyRecord struct {
	Whitelist []permission.Rule `json:"whitelist"`
	Blacklist []permission.Rule `json:"blacklist"`
}

// LoadPolicy returns the stored rules for command. ok is false when none are stored.
func (s *Storage) LoadPolicy(command string) (rec PolicyRecord, ok bool, err error) {
	err = s.view(PolicyTable, func(data map[string]any) error {
		raw, exists := data[command]
		if !exists || raw == nil {
			return nil
		}
		ok = true
		return decode(raw, &rec)
	})
	return rec, ok, err
}

// HydratePolicy returns the stored rules for command, storing and committing
// def first when the command has none yet.
func (s *Storage) HydratePolicy(command string, def PolicyRecord) (PolicyRecord, bool, error) {
	rec, ok, err := s.LoadPolicy(command)
	if err != nil || ok {
		return rec, false, err
	}
	if err := s.SavePolicy(command, def); err != nil {
		return def, false, err
	}
	return def, true, nil
}

// SavePolicy stores the rules of command and commits the table.
func (s *Storage) SavePolicy(command string, rec PolicyRecord) error {
	if rec.Whitelist == nil {
		rec.Whitelist = []permission.Rule{}
	}
	if rec.Blacklist == nil {
		rec.Blacklist = []permission.Rule{}
	}
	enc, err := encode(rec)
	if err != nil {
		return err
	}
	if err := s.update(PolicyTable, func(data map[string]any) error {
		data[command] = enc
		return nil
	}); err != nil {
		return err
	}
	return s.st.Commit(PolicyTable)
}

// PolicyCommands lists the commands with stored rules.
func (s *Storage) PolicyCommands() ([]string, error) {
	var out []string
	err := s.view(PolicyTable, func(data map[string]any) error {
		for name := range data {
			out = append(out, name)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// DecodePolicy reads the stored rules of one command from raw table data, as
// returned by store.ReadData.
func DecodePolicy(data map[string]any, command string) (PolicyRecord, bool, error) {
	var rec PolicyRecord
	raw, ok := data[command]
	if !ok || raw == nil {
		return rec, false, nil
	}
	return rec, true, decode(raw, &rec)
}
