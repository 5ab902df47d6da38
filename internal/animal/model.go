// Package animal stores animals and the polymorphic owner each may have.
package animal

import "time"

// Animal is one row of the animals table. Name and Owner are optional;
// a nil Owner leaves both animalable columns NULL.
type Animal struct {
	ID        int64     `json:"id"`
	Name      *string   `json:"name"`
	Owner     *Owner    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the name, or an empty string for unnamed animals.
func (a Animal) DisplayName() string {
	if a.Name == nil {
		return ""
	}

	return *a.Name
}
