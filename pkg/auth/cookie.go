package auth

import (
	"net/url"
	"strings"
)

// CookieSettings contains cookie security settings derived from base URL.
type CookieSettings struct {
	// Secure indicates whether the cookie should only be sent over HTTPS.
	Secure bool
	// Domain is the cookie domain scope. Empty scopes the cookie to the exact host.
	Domain string
}

// DeriveCookieSettings determines cookie security settings from base URL:
//   - http://localhost:3443 → Secure: false
//   - https://catalog.example.org → Secure: true
//   - invalid or empty → Secure: true
//
// The configCookieDomain parameter allows explicit override for deployments
// that share the identity cookie across subdomains.
func DeriveCookieSettings(baseURL string, configCookieDomain string) CookieSettings {
	return CookieSettings{
		Secure: isHTTPS(baseURL),
		Domain: strings.TrimSpace(configCookieDomain),
	}
}

// isHTTPS determines if the given base URL uses HTTPS protocol.
// Returns true for HTTPS, false for HTTP, true for empty/invalid URLs (safe default).
func isHTTPS(baseURL string) bool {
	if baseURL == "" {
		return true
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return true
	}

	return parsedURL.Scheme != "http"
}
