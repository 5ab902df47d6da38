package analyzer

import "errors"

// ErrUnknownSeverity indicates a severity label that is not one of SAFE, LOW, MEDIUM, HIGH, CRITICAL.
var ErrUnknownSeverity = errors.New("unknown severity")
