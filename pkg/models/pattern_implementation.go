package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Implementation status constants.
const (
	ImplementationStatusPending  = "pending"
	ImplementationStatusActive   = "active"
	ImplementationStatusRejected = "rejected"
)

// SystemDefaultAuthor is the reserved author name marking the implementation
// that seeds new curation sessions for its pattern.
const SystemDefaultAuthor = "System"

// IsValidImplementationStatus checks if the given status is one of the workflow states.
func IsValidImplementationStatus(status string) bool {
	switch status {
	case ImplementationStatusPending, ImplementationStatusActive, ImplementationStatusRejected:
		return true
	}
	return false
}

// PatternImplementation is one author's concrete SAS/R code pair for a definition.
type PatternImplementation struct {
	UUID           uuid.UUID `json:"uuid"`
	PatternID      string    `json:"pattern_id"`
	AuthorID       string    `json:"author_id"`
	AuthorName     string    `json:"author_name"`
	SASCode        string    `json:"sas_code"`
	RCode          string    `json:"r_code"`
	Considerations []string  `json:"considerations"`
	Variations     []string  `json:"variations"`
	Status         string    `json:"status"`
	IsPremium      bool      `json:"is_premium"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Deleted        *Deletion `json:"deleted,omitempty"`
}

// IsDeleted reports whether the implementation has been soft-deleted.
func (i *PatternImplementation) IsDeleted() bool {
	return i.Deleted != nil
}

// IsSystemDefault reports whether the implementation carries the reserved author name.
func (i *PatternImplementation) IsSystemDefault() bool {
	return i.AuthorName == SystemDefaultAuthor
}

// HasCode reports whether at least one of the two code fields is present.
func (i *PatternImplementation) HasCode() bool {
	return strings.TrimSpace(i.SASCode) != "" || strings.TrimSpace(i.RCode) != ""
}
