package store

import "sync"

// Document is a named mutable mapping owned by the Store. Callers mutate it
// through Update and must call Store.Commit to persist the change right away.
type Document struct {
	mu   sync.Mutex
	name string
	data map[string]any

	checksum   string // of the last successful write or load
	dirty      bool   // last write failed
	primaryBad bool   // primary file on disk is known to be unreadable
}

func newDocument(name string, data map[string]any) *Document {
	if data == nil {
		data = make(map[string]any)
	}
	return &Document{name: name, data: data}
}

// Name returns the document name.
func (d *Document) Name() string {
	return d.name
}

// Update runs fn with exclusive access to the live data.
func (d *Document) Update(fn func(data map[string]any)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.data)
}

// View runs fn with the live data. fn must not retain or mutate it.
func (d *Document) View(fn func(data map[string]any)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.data)
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.data)
}
