package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data
const RedactedText = "[REDACTED]"

var (
	// URL credentials in postgres://, postgresql://, redis:// and rediss://
	// DSNs. The user is kept; only the password is replaced. Redis URLs may
	// carry a password with an empty user (redis://:secret@host).
	dsnPasswordPattern = regexp.MustCompile(`(?i)\b((?:postgres(?:ql)?|rediss?)://[^:/@\s]*):[^@\s]+@`)

	// pgx keyword/value DSNs: password=secret or password='quoted secret',
	// including sslpassword for client keys.
	keywordPasswordPattern = regexp.MustCompile(`(?i)\b((?:ssl)?password)=(?:'(?:[^'\\]|\\.)*'|[^\s'` + "`" + `]+)`)

	// Bearer credentials echoed back by identity providers or JWKS fetches.
	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)
)

// SanitizeConnectionString removes passwords from a PostgreSQL or Redis DSN.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := dsnPasswordPattern.ReplaceAllString(connStr, "${1}:"+RedactedText+"@")
	return keywordPasswordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Persistence and Redis errors pass through here before they are logged.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := SanitizeConnectionString(err.Error())
	return jwtPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
