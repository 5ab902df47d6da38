package analyzer

import (
	"fmt"
	"strings"
)

// Severity is the danger level of a finding. Higher values are worse.
type Severity int

const (
	Safe Severity = iota
	Low
	Medium
	// High blocks apply unless --force is given.
	High
	// Critical means data loss.
	Critical
)

var severityNames = [...]string{ //nolint:gochecknoglobals // lookup table
	Safe:     "SAFE",
	Low:      "LOW",
	Medium:   "MEDIUM",
	High:     "HIGH",
	Critical: "CRITICAL",
}

// String returns the uppercase label for the severity level.
func (s Severity) String() string {
	if s < Safe || s > Critical {
		return "UNKNOWN"
	}

	return severityNames[s]
}

// ParseSeverity accepts a label in any case, e.g. "high".
func ParseSeverity(label string) (Severity, error) {
	for i, name := range severityNames {
		if strings.EqualFold(name, strings.TrimSpace(label)) {
			return Severity(i), nil
		}
	}

	return Safe, fmt.Errorf("%w: %q", ErrUnknownSeverity, label)
}

// MarshalText encodes the severity as its label.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a label produced by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
