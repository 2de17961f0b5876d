// Package curation holds the per-user basket: a map from pattern id to the
// implementation the user picked for it, seeded with system defaults.
package curation

import (
	"sort"

	"github.com/google/uuid"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// Selections maps a pattern id to the uuid of the implementation chosen for it.
type Selections map[string]uuid.UUID

// Clone returns an independent copy.
func (s Selections) Clone() Selections {
	out := make(Selections, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// PatternIDs returns the keys in sorted order.
func (s Selections) PatternIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Session is one user's curation state over an indexed view of the catalog.
// Every selected implementation belongs to the pattern it is keyed under.
// A Session is not safe for concurrent use.
type Session struct {
	definitions     map[string]*models.PatternDefinition
	implementations map[uuid.UUID]*models.PatternImplementation
	selections      Selections
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		definitions:     make(map[string]*models.PatternDefinition),
		implementations: make(map[uuid.UUID]*models.PatternImplementation),
		selections:      make(Selections),
	}
}

// Initialize indexes the given records and seeds one selection per live
// definition that has an active system default.
func (s *Session) Initialize(defs []*models.PatternDefinition, impls []*models.PatternImplementation) {
	s.index(defs, impls)
	s.selections = s.systemDefaults()
}

// Select records implID as the choice for patternID, replacing any prior choice.
func (s *Session) Select(patternID string, implID uuid.UUID) error {
	def, ok := s.definitions[patternID]
	if !ok || def.IsDeleted() {
		return apperrors.Validation(patternID, "pattern is not available")
	}
	impl, ok := s.implementations[implID]
	if !ok || impl.IsDeleted() {
		return apperrors.Validation(patternID, "implementation %s is not available", implID)
	}
	if impl.PatternID != patternID {
		return apperrors.Validation(patternID, "implementation %s belongs to %s", implID, impl.PatternID)
	}
	s.selections[patternID] = implID
	return nil
}

// Remove drops the selection for patternID. Removing an absent entry is a no-op.
func (s *Session) Remove(patternID string) {
	delete(s.selections, patternID)
}

// ResetToSystemDefault reselects the system default for patternID, or removes
// the entry when the pattern has none.
func (s *Session) ResetToSystemDefault(patternID string) (uuid.UUID, bool) {
	id, ok := s.systemDefault(patternID)
	if !ok {
		delete(s.selections, patternID)
		return uuid.Nil, false
	}
	s.selections[patternID] = id
	return id, true
}

// Selections returns a copy of the current choices.
func (s *Session) Selections() Selections {
	return s.selections.Clone()
}

// Len returns the number of selected patterns.
func (s *Session) Len() int {
	return len(s.selections)
}

// Implementation returns an indexed implementation.
func (s *Session) Implementation(id uuid.UUID) (*models.PatternImplementation, bool) {
	impl, ok := s.implementations[id]
	return impl, ok
}

// Definition returns an indexed definition.
func (s *Session) Definition(id string) (*models.PatternDefinition, bool) {
	def, ok := s.definitions[id]
	return def, ok
}

func (s *Session) index(defs []*models.PatternDefinition, impls []*models.PatternImplementation) {
	s.definitions = make(map[string]*models.PatternDefinition, len(defs))
	for _, d := range defs {
		s.definitions[d.ID] = d
	}
	s.implementations = make(map[uuid.UUID]*models.PatternImplementation, len(impls))
	for _, i := range impls {
		s.implementations[i.UUID] = i
	}
}

// systemDefaults maps every live definition that has one to its system default.
func (s *Session) systemDefaults() Selections {
	best := make(map[string]*models.PatternImplementation)
	for _, impl := range s.implementations {
		if !s.isDefaultCandidate(impl) {
			continue
		}
		if cur, ok := best[impl.PatternID]; !ok || earlier(impl, cur) {
			best[impl.PatternID] = impl
		}
	}
	out := make(Selections, len(best))
	for patternID, impl := range best {
		out[patternID] = impl.UUID
	}
	return out
}

// systemDefault finds the earliest-created live, active System implementation
// of a live definition.
func (s *Session) systemDefault(patternID string) (uuid.UUID, bool) {
	def, ok := s.definitions[patternID]
	if !ok || def.IsDeleted() {
		return uuid.Nil, false
	}

	var best *models.PatternImplementation
	for _, impl := range s.implementations {
		if impl.PatternID != patternID || !s.isDefaultCandidate(impl) {
			continue
		}
		if best == nil || earlier(impl, best) {
			best = impl
		}
	}
	if best == nil {
		return uuid.Nil, false
	}
	return best.UUID, true
}

func (s *Session) isDefaultCandidate(impl *models.PatternImplementation) bool {
	if !impl.IsSystemDefault() || impl.IsDeleted() || impl.Status != models.ImplementationStatusActive {
		return false
	}
	def, ok := s.definitions[impl.PatternID]
	return ok && !def.IsDeleted()
}

// earlier orders by creation time, then by uuid string.
func earlier(a, b *models.PatternImplementation) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.UUID.String() < b.UUID.String()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
