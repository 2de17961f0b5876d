package auth

import (
	"context"

	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// WithPrincipal stores the verified principal in ctx.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext returns the principal set by the auth middleware.
// Requests that never passed through the middleware act as guests.
func PrincipalFromContext(ctx context.Context) models.Principal {
	p, ok := ctx.Value(PrincipalKey).(models.Principal)
	if !ok {
		return models.Guest()
	}
	return p
}

// GetUserIDFromContext returns the principal's subject, or "" for guests.
func GetUserIDFromContext(ctx context.Context) string {
	p := PrincipalFromContext(ctx)
	if p.IsGuest() {
		return ""
	}
	return p.ID
}
