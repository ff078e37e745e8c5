// Package storage gives the bot's tables typed schemas on top of the opaque
// documents held by the store.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/keshon/warden/internal/store"
)

// Well-known document names.
const (
	PolicyTable  = "cmd_lists"
	AliasTable   = "cmd_dynamic_alias"
	HistoryTable = "cmd_history"
)

const commandHistoryLimit int = 20

var ErrAliasExists = errors.New("alias already exists")

type Storage struct {
	st *store.Store
}

// New prepares every table document in st.
func New(st *store.Store) (*Storage, error) {
	for _, name := range []string{PolicyTable, AliasTable, HistoryTable} {
		if _, err := st.Prepare(name); err != nil {
			return nil, fmt.Errorf("prepare %s: %w", name, err)
		}
	}
	return &Storage{st: st}, nil
}

// Store returns the underlying document store.
func (s *Storage) Store() *store.Store {
	return s.st
}

func (s *Storage) update(table string, fn func(data map[string]any) error) error {
	doc, err := s.st.Get(table)
	if err != nil {
		return err
	}
	var ferr error
	doc.Update(func(data map[string]any) { ferr = fn(data) })
	return ferr
}

func (s *Storage) view(table string, fn func(data map[string]any) error) error {
	doc, err := s.st.Get(table)
	if err != nil {
		return err
	}
	var ferr error
	doc.View(func(data map[string]any) { ferr = fn(data) })
	return ferr
}

// decode fills out from the loose JSON shape held by a document.
func decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("error decoding record: %w", err)
	}
	return nil
}

// encode converts v into the loose JSON shape so the in-memory document
// matches what a fresh load would produce.
func encode(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error marshalling record: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("error unmarshalling record: %w", err)
	}
	return out, nil
}
