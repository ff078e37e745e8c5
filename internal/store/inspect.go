package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileState describes one on-disk slot of a document.
type FileState string

const (
	StateOK      FileState = "ok"
	StateMissing FileState = "missing"
	StateInvalid FileState = "invalid"
)

// Report is the read-only health of a document's primary and backup files.
type Report struct {
	Name    string
	Primary FileState
	Backup  FileState
	Err     error
}

// Readable reports whether a load would succeed from either slot.
func (r Report) Readable() bool {
	return r.Primary == StateOK || r.Backup == StateOK
}

// List returns the document names found in dir, backups folded into their
// primary name.
func List(dir, backupPrefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		name = strings.TrimPrefix(name, backupPrefix)
		if name != "" {
			seen[name] = true
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Inspect checks both slots of a document without loading it into a Store.
func Inspect(dir, backupPrefix, name string) Report {
	r := Report{Name: name}
	r.Primary, r.Err = probe(filepath.Join(dir, name+".json"), name)
	var berr error
	r.Backup, berr = probe(filepath.Join(dir, backupPrefix+name+".json"), name)
	if r.Err == nil {
		r.Err = berr
	}
	return r
}

// ReadData returns the data of a document the same way a load would: the
// primary first, then the backup.
func ReadData(dir, backupPrefix, name string) (map[string]any, error) {
	data, _, perr := readData(filepath.Join(dir, name+".json"), name)
	if perr == nil {
		return ensureMap(data), nil
	}
	data, _, berr := readData(filepath.Join(dir, backupPrefix+name+".json"), name)
	if berr == nil {
		return ensureMap(data), nil
	}
	if errors.Is(perr, os.ErrNotExist) && errors.Is(berr, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil, fmt.Errorf("%w: %s", ErrCorrupt, name)
}

func ensureMap(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}

func probe(path, name string) (FileState, error) {
	_, _, err := readData(path, name)
	switch {
	case err == nil:
		return StateOK, nil
	case errors.Is(err, os.ErrNotExist):
		return StateMissing, nil
	default:
		return StateInvalid, err
	}
}
