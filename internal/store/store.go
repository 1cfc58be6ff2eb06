// Package store provides keyed, tamper-evident persistence for
// biometric profiles.
//
// Security model:
//  1. Every record carries an HMAC-SHA256 tag over its key and payload,
//     keyed by a secret known only to the local installation.
//  2. Tags are recomputed and checked on every load; a mismatch fails
//     closed - unverified data is never returned.
//  3. The tag provides tamper-evidence only, not confidentiality.
//
// The byte-oriented Backend interface is the external persistence
// boundary; IntegrityStore is its only consumer.
package store

import "errors"

// Store errors.
var (
	// ErrIntegrity indicates a stored tag did not match the recomputed
	// tag. Callers treat the record as absent.
	ErrIntegrity = errors.New("store: integrity tag mismatch")

	// ErrKeyTooShort indicates an HMAC key below the minimum size.
	ErrKeyTooShort = errors.New("store: HMAC key must be at least 32 bytes")

	// ErrIncompleteKey indicates a record key with an empty component.
	ErrIncompleteKey = errors.New("store: record key has empty component")
)

// RecordKind names what a record holds.
type RecordKind string

const (
	// KindKeystrokeProfile is a trained keystroke model record.
	KindKeystrokeProfile RecordKind = "keystroke-profile"
	// KindVoiceProfile is a voice template record.
	KindVoiceProfile RecordKind = "voice-profile"
	// KindKeystrokeSamples is an in-progress keystroke enrollment.
	KindKeystrokeSamples RecordKind = "keystroke-samples"
	// KindVoiceSamples is an in-progress voice enrollment.
	KindVoiceSamples RecordKind = "voice-samples"
)

// Key is the structured composite record key. Using a struct rather
// than a delimited string rules out delimiter-collision between
// identities and contexts.
type Key struct {
	// Context is the origin scope the profile belongs to, isolating
	// unrelated contexts from each other.
	Context string
	// Identity is the claimed identity within the context.
	Identity string
	// Kind is the record kind stored under this key.
	Kind RecordKind
}

// Valid reports whether every key component is populated.
func (k Key) Valid() bool {
	return k.Context != "" && k.Identity != "" && k.Kind != ""
}

// Record is the storage envelope for one payload.
type Record struct {
	Key         Key
	Payload     []byte
	Tag         []byte
	CreatedAtNs int64
	UpdatedAtNs int64
}

// Scope selects records for deletion. Identity empty means every
// identity in the context; Context empty as well means a global wipe.
// All record kinds in scope are always removed together.
type Scope struct {
	Context  string
	Identity string
}

// Backend is the byte-oriented keyed store the integrity layer writes
// through. Implementations must make Put atomic: a failed write leaves
// the previous record intact.
type Backend interface {
	// Get returns the stored record, or (nil, nil) when absent.
	Get(key Key) (*Record, error)

	// Put stores or replaces the record atomically.
	Put(rec *Record) error

	// Delete removes one record; deleting an absent key is not an error.
	Delete(key Key) error

	// DeleteScope removes every record kind within the scope.
	DeleteScope(scope Scope) error

	// Close releases backend resources.
	Close() error
}
