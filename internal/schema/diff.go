package schema

import (
	"fmt"
	"strconv"
)

// MismatchKind classifies a difference between two tables.
type MismatchKind string

// Mismatch kinds reported by Diff.
const (
	MissingColumn       MismatchKind = "missing_column"
	UnexpectedColumn    MismatchKind = "unexpected_column"
	TypeMismatch        MismatchKind = "type_mismatch"
	NullabilityMismatch MismatchKind = "nullability_mismatch"
	MissingIndex        MismatchKind = "missing_index"
)

// Mismatch is one difference found by Diff.
type Mismatch struct {
	Kind     MismatchKind `json:"kind"`
	Name     string       `json:"name"`
	Expected string       `json:"expected,omitempty"`
	Actual   string       `json:"actual,omitempty"`
}

func (m Mismatch) String() string {
	switch m.Kind {
	case MissingColumn:
		return fmt.Sprintf("column %s is missing (want %s)", m.Name, m.Expected)
	case UnexpectedColumn:
		return fmt.Sprintf("column %s is not expected (found %s)", m.Name, m.Actual)
	case TypeMismatch:
		return fmt.Sprintf("column %s has type %s, want %s", m.Name, m.Actual, m.Expected)
	case NullabilityMismatch:
		return fmt.Sprintf("column %s has nullable=%s, want %s", m.Name, m.Actual, m.Expected)
	case MissingIndex:
		return fmt.Sprintf("index %s is missing", m.Name)
	default:
		return fmt.Sprintf("%s: %s", m.Kind, m.Name)
	}
}

// Diff lists how actual departs from expected. Column order is ignored.
// Extra indexes on actual are allowed; missing expected ones are not.
// An empty result means the shapes match.
func Diff(expected, actual Table) []Mismatch {
	var out []Mismatch

	for _, want := range expected.Columns {
		got, ok := actual.Column(want.Name)
		if !ok {
			out = append(out, Mismatch{Kind: MissingColumn, Name: want.Name, Expected: want.DataType})
			continue
		}

		if got.DataType != want.DataType {
			out = append(out, Mismatch{Kind: TypeMismatch, Name: want.Name, Expected: want.DataType, Actual: got.DataType})
		}

		if got.Nullable != want.Nullable {
			out = append(out, Mismatch{
				Kind:     NullabilityMismatch,
				Name:     want.Name,
				Expected: strconv.FormatBool(want.Nullable),
				Actual:   strconv.FormatBool(got.Nullable),
			})
		}
	}

	for _, got := range actual.Columns {
		if _, ok := expected.Column(got.Name); !ok {
			out = append(out, Mismatch{Kind: UnexpectedColumn, Name: got.Name, Actual: got.DataType})
		}
	}

	for _, idx := range expected.Indexes {
		if !actual.HasIndex(idx) {
			out = append(out, Mismatch{Kind: MissingIndex, Name: idx})
		}
	}

	return out
}
