package storage

import "fmt"

// aliasesKey holds the alias sequence. Store documents are JSON objects, so
// the table body is {"aliases": [{name, link}, ...]}.
const aliasesKey = "aliases"

// AliasRecord is a persisted dynamic alias.
type AliasRecord struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

func readAliases(data map[string]any) ([]AliasRecord, error) {
	raw, ok := data[aliasesKey]
	if !ok || raw == nil {
		return []AliasRecord{}, nil
	}
	var out []AliasRecord
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeAliases(data map[string]any, aliases []AliasRecord) error {
	enc, err := encode(aliases)
	if err != nil {
		return err
	}
	data[aliasesKey] = enc
	return nil
}

// Aliases returns every persisted dynamic alias in insertion order.
func (s *Storage) Aliases() ([]AliasRecord, error) {
	var out []AliasRecord
	err := s.view(AliasTable, func(data map[string]any) error {
		var err error
		out, err = readAliases(data)
		return err
	})
	return out, err
}

// AddAlias persists a new alias and commits the table.
func (s *Storage) AddAlias(rec AliasRecord) error {
	if err := s.update(AliasTable, func(data map[string]any) error {
		aliases, err := readAliases(data)
		if err != nil {
			return err
		}
		for _, a := range aliases {
			if a.Name == rec.Name {
				return fmt.Errorf("%w: %s", ErrAliasExists, rec.Name)
			}
		}
		return writeAliases(data, append(aliases, rec))
	}); err != nil {
		return err
	}
	return s.st.Commit(AliasTable)
}

// RemoveAlias deletes a persisted alias. It reports whether one was removed.
func (s *Storage) RemoveAlias(name string) (bool, error) {
	removed := false
	if err := s.update(AliasTable, func(data map[string]any) error {
		aliases, err := readAliases(data)
		if err != nil {
			return err
		}
		kept := aliases[:0]
		for _, a := range aliases {
			if a.Name == name {
				removed = true
				continue
			}
			kept = append(kept, a)
		}
		if !removed {
			return nil
		}
		return writeAliases(data, kept)
	}); err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}
	return true, s.st.Commit(AliasTable)
}

// DecodeAliases reads the alias table from raw data, as returned by store.ReadData.
func DecodeAliases(data map[string]any) ([]AliasRecord, error) {
	return readAliases(data)
}
