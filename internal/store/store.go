// Package store keeps named JSON documents in memory and persists each one to
// its own file with a shadow backup of the previous generation.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrCorrupt     = errors.New("document corrupt: primary and backup unreadable")
	ErrClosed      = errors.New("store is closed")
	ErrInvalidName = errors.New("invalid document name")
	// ErrShape marks a well-formed file whose data is not a JSON object.
	ErrShape       = errors.New("document data is not a mapping")
)

// Config holds configuration options for the Store
type Config struct {
	Dir          string
	BackupPrefix string
	Logger       zerolog.Logger
	// OnWrite is called after every attempted write that was not skipped.
	OnWrite func(name string, err error)
}

// DefaultConfig returns a default configuration
func DefaultConfig(dir string) *Config {
	return &Config{
		Dir:          dir,
		BackupPrefix: "~",
		Logger:       zerolog.Nop(),
	}
}

// Store owns every loaded document. It never persists a mutation on its own;
// documents reach disk through Commit or FlushAll.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]*Document
	cfg    *Config
	log    zerolog.Logger
	closed bool
}

// envelope is the on-disk body of a document. Data stays raw until the
// identity field has been checked.
type envelope struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// New creates a Store rooted at cfg.Dir, creating the directory if needed.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("storage directory cannot be empty")
	}
	if cfg.BackupPrefix == "" {
		return nil, fmt.Errorf("backup prefix cannot be empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Store{
		docs: make(map[string]*Document),
		cfg:  cfg,
		log:  cfg.Logger.With().Str("component", "store").Logger(),
	}, nil
}

// Prepare ensures the named document is loaded. It is idempotent. A document
// that exists on neither path is created empty; one whose primary and backup
// are both unreadable is recreated empty and a data-loss warning is logged.
func (s *Store) Prepare(name string) (*Document, error) {
	if err := s.validName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if doc, ok := s.docs[name]; ok {
		return doc, nil
	}

	doc, err := s.load(name)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		s.log.Info().Str("document", name).Msg("creating new document")
		doc = newDocument(name, nil)
	case errors.Is(err, ErrCorrupt) && doc.primaryBad:
		s.log.Warn().Str("document", name).Msg("DATA LOSS: primary and backup unreadable, starting empty")
	case errors.Is(err, ErrCorrupt):
		s.log.Warn().Str("document", name).Msg("document data has an unexpected shape, starting empty; the old file is kept as the backup")
	default:
		return nil, err
	}

	s.docs[name] = doc
	if doc.checksum == "" {
		if err := s.save(doc); err != nil {
			s.log.Error().Err(err).Str("document", name).Msg("initial save failed, will retry on next flush")
		}
	}
	return doc, nil
}

// Get returns the live document or ErrNotFound when it was never prepared.
func (s *Store) Get(name string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	doc, ok := s.docs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return doc, nil
}

// Commit persists the named document now. Write failures are logged and the
// document stays pending so the next FlushAll retries it; only lookup errors
// are returned.
func (s *Store) Commit(name string) error {
	doc, err := s.Get(name)
	if err != nil {
		return err
	}
	if err := s.save(doc); err != nil {
		s.log.Error().Err(err).Str("document", name).Msg("commit failed, will retry on next flush")
		return nil
	}
	s.log.Debug().Str("document", name).Msg("committed")
	return nil
}

// FlushAll persists every loaded document whose content changed since its
// last write. Failures of individual documents do not stop the others.
func (s *Store) FlushAll() error {
	s.mu.RLock()
	docs := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	s.mu.RUnlock()

	var errs []error
	for _, doc := range docs {
		if err := s.save(doc); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", doc.name, err))
		}
	}
	return errors.Join(errs...)
}

// Pending lists documents whose last write failed.
func (s *Store) Pending() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for name, doc := range s.docs {
		doc.mu.Lock()
		if doc.dirty {
			out = append(out, name)
		}
		doc.mu.Unlock()
	}
	sort.Strings(out)
	return out
}

// Names returns the loaded document names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.docs))
	for name := range s.docs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Close flushes everything one last time and rejects further use.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.FlushAll()
}

// Stats returns statistics about the Store
func (s *Store) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"documents": len(s.docs),
		"dir":       s.cfg.Dir,
		"closed":    s.closed,
	}
}

func (s *Store) validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, s.cfg.BackupPrefix) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (s *Store) primaryPath(name string) string {
	return filepath.Join(s.cfg.Dir, name+".json")
}

func (s *Store) backupPath(name string) string {
	return filepath.Join(s.cfg.Dir, s.cfg.BackupPrefix+name+".json")
}

// load materializes a document from its primary file, falling back to the
// backup. It returns ErrNotFound when neither file exists. On ErrCorrupt it
// still returns an empty document, flagged primaryBad unless the primary only
// has the wrong shape and is worth keeping as the next backup.
func (s *Store) load(name string) (*Document, error) {
	primary, backup := s.primaryPath(name), s.backupPath(name)

	data, raw, perr := readData(primary, name)
	if perr == nil {
		doc := newDocument(name, data)
		doc.checksum = checksum(raw)
		s.log.Info().Str("document", name).Msg("loaded")
		return doc, nil
	}
	primaryMissing := errors.Is(perr, os.ErrNotExist)
	primaryBad := !primaryMissing && !errors.Is(perr, ErrShape)
	if primaryMissing {
		s.log.Debug().Str("path", primary).Msg("cannot find main document file")
	} else {
		s.log.Warn().Err(perr).Str("path", primary).Msg("main document file is invalid")
	}

	data, _, berr := readData(backup, name)
	if berr == nil {
		s.log.Warn().Str("document", name).Str("path", backup).Msg("recovered document from backup")
		doc := newDocument(name, data)
		doc.primaryBad = primaryBad
		return doc, nil
	}
	backupMissing := errors.Is(berr, os.ErrNotExist)
	if !backupMissing {
		s.log.Warn().Err(berr).Str("path", backup).Msg("backup document file is invalid")
	}

	if primaryMissing && backupMissing {
		return nil, ErrNotFound
	}
	doc := newDocument(name, nil)
	doc.primaryBad = primaryBad
	return doc, fmt.Errorf("%w: %s", ErrCorrupt, name)
}

// save writes doc unless its serialized form matches the last write. The
// current primary is copied to the backup slot before the new primary is
// written, so the backup always holds the previous generation.
func (s *Store) save(doc *Document) error {
	doc.mu.Lock()
	defer doc.mu.Unlock()

	var data []byte
	body, err := json.Marshal(doc.data)
	if err == nil {
		data, err = json.Marshal(envelope{Name: doc.name, Data: body})
	}
	if err != nil {
		doc.dirty = true
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	sum := checksum(data)
	if sum == doc.checksum && !doc.dirty {
		return nil
	}

	err = s.write(doc, data)
	if s.cfg.OnWrite != nil {
		s.cfg.OnWrite(doc.name, err)
	}
	if err != nil {
		doc.dirty = true
		return err
	}

	doc.checksum = sum
	doc.dirty = false
	doc.primaryBad = false
	return nil
}

func (s *Store) write(doc *Document, data []byte) error {
	primary := s.primaryPath(doc.name)

	// A primary known to be corrupt is not worth preserving over a good backup.
	if !doc.primaryBad {
		if err := copyFile(primary, s.backupPath(doc.name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}
	return writeFileAtomic(primary, data)
}

// readEnvelope parses a document file and checks that it belongs to name.
func readEnvelope(path, name string) (*envelope, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON format: %w", err)
	}
	if env.Name == "" {
		return nil, nil, fmt.Errorf("missing document name")
	}
	if env.Name != name {
		return nil, nil, fmt.Errorf("document name %q does not match %q", env.Name, name)
	}
	return &env, raw, nil
}

// readData is readEnvelope plus decoding of the data into a mapping. Missing
// or null data is an empty mapping.
func readData(path, name string) (map[string]any, []byte, error) {
	env, raw, err := readEnvelope(path, name)
	if err != nil {
		return nil, nil, err
	}
	body := bytes.TrimSpace(env.Data)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, raw, nil
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	return data, raw, nil
}

// writeFileAtomic performs atomic file write using temporary file and rename
func writeFileAtomic(path string, data []byte) error {
	tmpFile := path + ".tmp"

	file, err := os.OpenFile(tmpFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// checksum computes SHA-256 checksum of data
func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
