// Package policy holds the authorization rules shared by the definition and
// implementation registries. Every function is pure: decisions depend only on
// the verified principal and the resource passed in.
package policy

import (
	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// CanMutate reports whether actor may change or soft-delete a resource owned by ownerID.
// Guests can mutate nothing.
func CanMutate(actor models.Principal, ownerID string) bool {
	if actor.IsElevated() {
		return true
	}
	if actor.IsGuest() {
		return false
	}
	return ownerID != "" && actor.ID == ownerID
}

// CanView reports whether actor may see impl. definitionDeleted suppresses
// implementations of a soft-deleted definition for everyone but elevated actors.
func CanView(actor models.Principal, impl *models.PatternImplementation, definitionDeleted bool) bool {
	if actor.IsElevated() {
		return true
	}
	if impl.IsDeleted() || definitionDeleted {
		return false
	}
	if impl.Status == models.ImplementationStatusActive {
		return true
	}
	return !actor.IsGuest() && actor.ID == impl.AuthorID
}

// CanSeeDeleted reports whether actor may opt in to soft-deleted records.
func CanSeeDeleted(actor models.Principal) bool {
	return actor.IsElevated()
}

// RequireAuthenticated fails with an Unauthenticated error for guests.
func RequireAuthenticated(actor models.Principal) error {
	if actor.IsGuest() {
		return apperrors.Unauthenticated("sign in required")
	}
	return nil
}

// RequireElevated fails with Unauthenticated for guests and Forbidden for
// authenticated principals without the admin role.
func RequireElevated(actor models.Principal, resourceID string) error {
	if err := RequireAuthenticated(actor); err != nil {
		return err
	}
	if !actor.IsElevated() {
		return apperrors.Forbidden(resourceID, "admin role required")
	}
	return nil
}

// RequireMutate fails with Forbidden unless CanMutate holds. Guests get
// Forbidden as well: the resource exists and they have no rights on it.
func RequireMutate(actor models.Principal, ownerID, resourceID string) error {
	if !CanMutate(actor, ownerID) {
		return apperrors.Forbidden(resourceID, "only the author or an admin may change this resource")
	}
	return nil
}
