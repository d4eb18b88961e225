package logger

import (
	"log/slog"
	"strings"
)

// sensitiveQueryMarkers flag query strings that must never reach the request
// log verbatim. Reset and verification links put one-time tokens in URLs, so
// "token" alone covers both; "email" keeps PII out of the log stream.
var sensitiveQueryMarkers = []string{
	"password",
	"token",
	"secret",
	"email",
	"auth",
	"session",
	"cookie",
}

// SanitizedEmail masks an address for logging: first character of the local
// part and the TLD survive, the rest is starred out ("j***@*******.com").
// Enough to correlate log lines for one account, not enough to harvest.
func SanitizedEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "[invalid-email]"
	}

	local := email[:at]
	domain := email[at+1:]

	masked := string(local[0])
	if len(local) > 1 {
		masked += strings.Repeat("*", len(local)-1)
	}

	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", len(labels[i]))
	}

	return masked + "@" + strings.Join(labels, ".")
}

// EmailAttr is the one sanctioned way to put an email address in a log record.
func EmailAttr(email string) slog.Attr {
	return slog.String("email", SanitizedEmail(email))
}

// SanitizeQueryString reports whether a raw query string smells of
// credentials or tokens and should be replaced wholesale in the request log.
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, marker := range sensitiveQueryMarkers {
		if strings.Contains(query, marker) {
			return true
		}
	}
	return false
}
