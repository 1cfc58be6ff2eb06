package store

import "sync"

// MemoryBackend is an in-memory Backend for tests and ephemeral use.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[Key]*Record
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{records: make(map[Key]*Record)}
}

// Get returns a copy of the stored record, or (nil, nil) when absent.
func (b *MemoryBackend) Get(key Key) (*Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.records[key]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

// Put stores a copy of the record, preserving the original creation
// timestamp on replacement.
func (b *MemoryBackend) Put(rec *Record) error {
	if !rec.Key.Valid() {
		return ErrIncompleteKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	stored := copyRecord(rec)
	if prev, ok := b.records[rec.Key]; ok {
		stored.CreatedAtNs = prev.CreatedAtNs
	}
	b.records[rec.Key] = stored
	return nil
}

// Delete removes one record.
func (b *MemoryBackend) Delete(key Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.records, key)
	return nil
}

// DeleteScope removes every record matching the scope.
func (b *MemoryBackend) DeleteScope(scope Scope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key := range b.records {
		if scope.Context != "" && key.Context != scope.Context {
			continue
		}
		if scope.Identity != "" && key.Identity != scope.Identity {
			continue
		}
		delete(b.records, key)
	}
	return nil
}

// Close is a no-op for the in-memory backend.
func (b *MemoryBackend) Close() error { return nil }

func copyRecord(rec *Record) *Record {
	out := &Record{
		Key:         rec.Key,
		Payload:     append([]byte(nil), rec.Payload...),
		Tag:         append([]byte(nil), rec.Tag...),
		CreatedAtNs: rec.CreatedAtNs,
		UpdatedAtNs: rec.UpdatedAtNs,
	}
	return out
}
