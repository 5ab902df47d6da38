package schema

import "errors"

// ErrTableNotFound indicates the inspected table does not exist.
var ErrTableNotFound = errors.New("table not found")
