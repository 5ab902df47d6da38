package animal

import (
	"fmt"
	"strconv"
	"strings"
)

// OwnerKind names the kind of record that owns an animal. The value is
// what gets stored in animals.animalable_type, so it follows the Rails
// class-name convention.
type OwnerKind string

// Known owner kinds.
const (
	KindPerson  OwnerKind = "Person"
	KindShelter OwnerKind = "Shelter"
	KindZoo     OwnerKind = "Zoo"
)

// OwnerKinds returns every known kind in a stable order.
func OwnerKinds() []OwnerKind {
	return []OwnerKind{KindPerson, KindShelter, KindZoo}
}

// ParseOwnerKind accepts a kind name case-insensitively and returns its
// canonical form.
func ParseOwnerKind(s string) (OwnerKind, error) {
	for _, k := range OwnerKinds() {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownOwnerKind, s)
}

// Valid reports whether k is a known kind.
func (k OwnerKind) Valid() bool {
	switch k {
	case KindPerson, KindShelter, KindZoo:
		return true
	default:
		return false
	}
}

func (k OwnerKind) String() string { return string(k) }

// Owner is the tagged reference held in the animalable pair.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   int64     `json:"id"`
}

// Validate checks that the kind is known and the id positive.
func (o Owner) Validate() error {
	if !o.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOwnerKind, o.Kind)
	}

	if o.ID <= 0 {
		return fmt.Errorf("%w: owner id must be positive, got %d", ErrInvalidInput, o.ID)
	}

	return nil
}

func (o Owner) String() string {
	return string(o.Kind) + "#" + strconv.FormatInt(o.ID, 10)
}

// ownerFromColumns rebuilds an Owner from the nullable column pair.
// Only a fully populated pair counts as an owner. A stored type outside
// the known kinds comes back as a *StoredOwnerError.
func ownerFromColumns(kind *string, id *int64) (*Owner, error) {
	if kind == nil || id == nil {
		return nil, nil //nolint:nilnil // no owner is not an error
	}

	k, err := ParseOwnerKind(*kind)
	if err != nil {
		return nil, &StoredOwnerError{Type: *kind, ID: *id}
	}

	return &Owner{Kind: k, ID: *id}, nil
}

// ownerColumns flattens o into column values, both nil when o is nil.
func ownerColumns(o *Owner) (*string, *int64) {
	if o == nil {
		return nil, nil
	}

	kind := string(o.Kind)
	id := o.ID

	return &kind, &id
}
