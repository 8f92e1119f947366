package records

import (
	"context"
	"errors"
)

// Key names one persisted collection (or the profile singleton) of an owner.
type Key string

const (
	KeyProfile     Key = "profile"
	KeyMedications Key = "medications"
	KeyAllergies   Key = "allergies"
	KeySymptoms    Key = "symptoms"
	KeyResults     Key = "scan_results"
)

// Keys lists every key the application writes.
var Keys = []Key{KeyProfile, KeyMedications, KeyAllergies, KeySymptoms, KeyResults}

// ErrNotFound is returned by Store.Get when nothing is stored under the key.
var ErrNotFound = errors.New("record not found")

// UpdateFunc receives the current value (nil when absent) and returns the
// value to store.
type UpdateFunc func(current []byte) ([]byte, error)

// Store port (interface untuk persistence). Values are whole JSON blobs,
// replaced on every write.
type Store interface {
	Get(ctx context.Context, owner string, key Key) ([]byte, error)
	Put(ctx context.Context, owner string, key Key, value []byte) error
	Delete(ctx context.Context, owner string, key Key) error

	// Update is an atomic read-modify-write: no other write to the same
	// owner/key can land between the read and the write.
	Update(ctx context.Context, owner string, key Key, fn UpdateFunc) error
}
