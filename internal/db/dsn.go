package db

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	kvPairRegex = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)
	kvPassword  = regexp.MustCompile(`(?i)(password=)(\S+)`)
	urlPassword = regexp.MustCompile(`(://[^:/@]+:)([^@]+)(@)`)
)

// NormalizeDSN accepts a postgres:// URL or a key=value list, trims quotes
// and whitespace, and adds sslmode=disable to key=value lists without one.
func NormalizeDSN(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), "\"'")
	if s == "" || isURLDSN(s) || !kvPairRegex.MatchString(s) {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

// ToURLDSN converts a key=value DSN into URL form, which golang-migrate expects.
// Input that is already a URL, or lacks host, user or dbname, is returned as is.
func ToURLDSN(kvDSN string) string {
	if kvDSN == "" || isURLDSN(kvDSN) {
		return kvDSN
	}
	m := map[string]string{}
	for _, part := range strings.Fields(kvDSN) {
		if k, v, ok := strings.Cut(part, "="); ok {
			m[strings.ToLower(k)] = v
		}
	}
	if m["host"] == "" || m["user"] == "" || m["dbname"] == "" {
		return kvDSN
	}
	u := &url.URL{Scheme: "postgres", Host: m["host"], Path: "/" + m["dbname"]}
	if m["port"] != "" {
		u.Host += ":" + m["port"]
	}
	if m["password"] != "" {
		u.User = url.UserPassword(m["user"], m["password"])
	} else {
		u.User = url.User(m["user"])
	}
	if sslmode, ok := m["sslmode"]; ok {
		u.RawQuery = url.Values{"sslmode": {sslmode}}.Encode()
	}
	return u.String()
}

// MaskDSN hides the password in either DSN form, for logging.
func MaskDSN(dsn string) string {
	if isURLDSN(dsn) {
		return urlPassword.ReplaceAllString(dsn, "${1}***${3}")
	}
	return kvPassword.ReplaceAllString(dsn, "${1}***")
}

func isURLDSN(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}
