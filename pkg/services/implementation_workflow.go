package services

import (
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// nextStatus applies the approval workflow to an edit.
//
//	elevated, status supplied     -> supplied status
//	elevated, no status           -> unchanged
//	author edit of active content -> pending (back to review)
//	author edit otherwise         -> unchanged
//
// Callers have already checked that only elevated actors supply a status.
func nextStatus(current string, actor models.Principal, update ImplementationUpdate) string {
	if actor.IsElevated() {
		if update.Status != nil {
			return *update.Status
		}
		return current
	}
	if current == models.ImplementationStatusActive {
		return models.ImplementationStatusPending
	}
	return current
}

// canReview reports whether an explicit approve/reject is valid from current to target.
func canReview(current, target string) bool {
	if current != models.ImplementationStatusPending {
		return false
	}
	return target == models.ImplementationStatusActive || target == models.ImplementationStatusRejected
}
