package migration

import "sort"

// Sort returns a new slice of migrations sorted by Version in lexicographic order.
// The sort is stable to preserve insertion order for equal versions.
func Sort(migrations []Migration) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	return sorted
}

// Pending returns, in version order, the migrations whose version is not in applied.
func Pending(migrations []Migration, applied map[string]bool) []Migration {
	var pending []Migration

	for _, m := range Sort(migrations) {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}

	return pending
}

// Index maps each migration version to its position in migrations.
func Index(migrations []Migration) map[string]*Migration {
	idx := make(map[string]*Migration, len(migrations))

	for i := range migrations {
		idx[migrations[i].Version] = &migrations[i]
	}

	return idx
}
