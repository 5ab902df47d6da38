package animal

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no animal has the requested id.
	ErrNotFound = errors.New("animal not found")

	// ErrInvalidInput indicates a request failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownOwnerKind indicates an owner type outside the known set.
	ErrUnknownOwnerKind = errors.New("unknown owner kind")

	// ErrNoResolver indicates no resolver is registered for an owner kind.
	ErrNoResolver = errors.New("no resolver registered for owner kind")

	// ErrOwnerNotFound is returned by resolvers when the owner record is absent.
	ErrOwnerNotFound = errors.New("owner not found")
)

// StoredOwnerError reports an animalable_type read from the database that
// is not a known owner kind, such as a row written by another application.
// It matches ErrUnknownOwnerKind with errors.Is.
type StoredOwnerError struct {
	Type string
	ID   int64
}

func (e *StoredOwnerError) Error() string {
	return fmt.Sprintf("stored owner %s#%d: animalable_type %q is not one of Person, Shelter, Zoo", e.Type, e.ID, e.Type)
}

func (e *StoredOwnerError) Unwrap() error { return ErrUnknownOwnerKind }
