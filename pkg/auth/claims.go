// Package auth verifies bearer credentials and turns their claims into the
// principal every catalog operation runs as.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// PrincipalKey is the context key for storing the verified principal.
const PrincipalKey contextKey = "principal"

// Claims represents the JWT claims structure issued by the identity provider.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds the display name and catalog roles.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`  // Display name, used as author name
	Email string   `json:"email,omitempty"` // User email address
	Roles []string `json:"roles,omitempty"` // Catalog roles: contributor, premier, admin
}

// Principal converts verified claims into a principal. Claims without a
// subject yield a guest. The highest recognised role wins; an authenticated
// subject with no recognised role is a contributor.
func (c *Claims) Principal() models.Principal {
	if c == nil || strings.TrimSpace(c.Subject) == "" {
		return models.Guest()
	}

	role := models.HighestRole(c.Roles)
	if role == models.RoleGuest {
		role = models.RoleContributor
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = c.Email
	}
	return models.Principal{ID: c.Subject, Name: name, Role: role}
}
