package config

import (
	"net/url"
	"regexp"
	"strings"
)

// dsnPassword matches the password entry of a keyword/value connection string.
var dsnPassword = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`) //nolint:gochecknoglobals // compiled once

// RedactURL hides the password in a PostgreSQL connection string.
// Both postgres:// URLs and keyword/value DSNs (password=...) are handled.
// Anything without a password comes back unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	if !strings.Contains(raw, "://") {
		return dsnPassword.ReplaceAllString(raw, "${1}***")
	}

	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	// Splice on the raw string so percent-encoding elsewhere survives.
	afterScheme := strings.Index(raw, "://") + len("://")

	atIdx := strings.Index(raw[afterScheme:], "@")
	if atIdx < 0 {
		return raw
	}

	userinfo := raw[afterScheme : afterScheme+atIdx]

	colonIdx := strings.Index(userinfo, ":")
	if colonIdx < 0 {
		return raw
	}

	return raw[:afterScheme] + userinfo[:colonIdx+1] + "***" + raw[afterScheme+atIdx:]
}
