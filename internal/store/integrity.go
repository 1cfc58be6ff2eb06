package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

// tagDomain separates record tags from any other HMAC use of the same
// secret.
const tagDomain = "cadenced-record-v1"

// minKeySize is the minimum HMAC key length in bytes.
const minKeySize = 32

// IntegrityStore wraps a Backend and authenticates every record with an
// HMAC-SHA256 tag over its full key and payload. Binding the tag to the
// key means a valid record copied under a different identity or context
// fails verification there.
type IntegrityStore struct {
	backend Backend
	key     []byte
}

// NewIntegrityStore wraps backend with tag computation under key.
func NewIntegrityStore(backend Backend, key []byte) (*IntegrityStore, error) {
	if len(key) < minKeySize {
		return nil, ErrKeyTooShort
	}
	return &IntegrityStore{
		backend: backend,
		key:     append([]byte(nil), key...),
	}, nil
}

// tag computes the record tag. Components are length-prefixed so no two
// distinct (key, payload) tuples serialize to the same byte stream.
func (s *IntegrityStore) tag(key Key, payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	writeField(mac, []byte(tagDomain))
	writeField(mac, []byte(key.Context))
	writeField(mac, []byte(key.Identity))
	writeField(mac, []byte(key.Kind))
	writeField(mac, payload)
	return mac.Sum(nil)
}

func writeField(mac io.Writer, field []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(field)))
	mac.Write(length[:])
	mac.Write(field)
}

// Persist tags and stores the payload under key, replacing any previous
// record.
func (s *IntegrityStore) Persist(key Key, payload []byte) error {
	if !key.Valid() {
		return ErrIncompleteKey
	}
	rec := &Record{
		Key:     key,
		Payload: payload,
		Tag:     s.tag(key, payload),
	}
	if err := s.backend.Put(rec); err != nil {
		return fmt.Errorf("persist %s: %w", key.Kind, err)
	}
	return nil
}

// Load returns the verified payload for key, or (nil, nil) when absent.
// A tag mismatch returns ErrIntegrity and no payload.
func (s *IntegrityStore) Load(key Key) ([]byte, error) {
	rec, err := s.backend.Get(key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key.Kind, err)
	}
	if rec == nil {
		return nil, nil
	}

	want := s.tag(key, rec.Payload)
	if !hmac.Equal(rec.Tag, want) {
		return nil, ErrIntegrity
	}
	return rec.Payload, nil
}

// Delete removes one record. Deleting an absent key is not an error.
func (s *IntegrityStore) Delete(key Key) error {
	return s.backend.Delete(key)
}

// DeleteIdentity removes every record kind for one identity within a
// context.
func (s *IntegrityStore) DeleteIdentity(context, identity string) error {
	return s.backend.DeleteScope(Scope{Context: context, Identity: identity})
}

// DeleteContext removes every identity's records within a context.
func (s *IntegrityStore) DeleteContext(context string) error {
	return s.backend.DeleteScope(Scope{Context: context})
}

// Wipe removes every record in the store.
func (s *IntegrityStore) Wipe() error {
	return s.backend.DeleteScope(Scope{})
}

// Close releases the underlying backend.
func (s *IntegrityStore) Close() error {
	return s.backend.Close()
}
