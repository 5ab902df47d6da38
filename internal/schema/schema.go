// Package schema describes the expected shape of the animals table and
// compares it with what a live database reports.
package schema

// Data types as reported by information_schema.columns.data_type.
const (
	TypeBigint    = "bigint"
	TypeVarchar   = "character varying"
	TypeTimestamp = "timestamp without time zone"
)

// AnimalsTableName is the table built by the embedded migrations.
const AnimalsTableName = "animals"

// PolymorphicIndexName is the composite index on the owner reference pair.
const PolymorphicIndexName = "index_animals_on_animalable_type_and_animalable_id"

// Column is one column of a table.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// Table is a table's columns in ordinal order plus its index names.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Indexes []string `json:"indexes,omitempty"`
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}

	return Column{}, false
}

// HasIndex reports whether the table has an index called name.
func (t Table) HasIndex(name string) bool {
	for _, idx := range t.Indexes {
		if idx == name {
			return true
		}
	}

	return false
}

// AnimalsTable returns the shape of animals after both migrations.
func AnimalsTable() Table {
	return Table{
		Name: AnimalsTableName,
		Columns: []Column{
			{Name: "id", DataType: TypeBigint, Nullable: false},
			{Name: "animalable_type", DataType: TypeVarchar, Nullable: true},
			{Name: "animalable_id", DataType: TypeBigint, Nullable: true},
			{Name: "created_at", DataType: TypeTimestamp, Nullable: false},
			{Name: "updated_at", DataType: TypeTimestamp, Nullable: false},
			{Name: "name", DataType: TypeVarchar, Nullable: true},
		},
		Indexes: []string{"animals_pkey", PolymorphicIndexName},
	}
}
