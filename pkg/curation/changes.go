package curation

import (
	"sort"

	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// Changes is the persisted form of a basket: how its selections differ from
// the system-default seed. A basket that still matches the seed stores nothing
// but an empty Changes, whatever the size of the catalog.
type Changes struct {
	// FromEmpty marks a basket stored in full. Overrides then holds every
	// selection and Removed is empty.
	FromEmpty bool
	// Overrides are selections that differ from the seed.
	Overrides Selections
	// Removed are seeded patterns the user took out of the basket, sorted.
	Removed []string
}

// Size is the number of entries the changes carry.
func (c Changes) Size() int {
	return len(c.Overrides) + len(c.Removed)
}

// Changes describes the session relative to the current system defaults, or
// in full when that is smaller.
func (s *Session) Changes() Changes {
	defaults := s.systemDefaults()

	diff := Changes{Overrides: make(Selections)}
	for patternID, implID := range s.selections {
		if d, ok := defaults[patternID]; !ok || d != implID {
			diff.Overrides[patternID] = implID
		}
	}
	for patternID := range defaults {
		if _, ok := s.selections[patternID]; !ok {
			diff.Removed = append(diff.Removed, patternID)
		}
	}
	sort.Strings(diff.Removed)

	if diff.Size() > len(s.selections) {
		return Changes{FromEmpty: true, Overrides: s.selections.Clone()}
	}
	return diff
}

// Restore indexes the given records and rebuilds the session from stored
// changes: the system-default seed (unless the changes are FromEmpty), minus
// removed patterns, plus overrides. Overrides that no longer validate are
// dropped together with their entry; their pattern ids are returned sorted.
func (s *Session) Restore(defs []*models.PatternDefinition, impls []*models.PatternImplementation, stored Changes) []string {
	if stored.FromEmpty {
		s.index(defs, impls)
		s.selections = make(Selections)
	} else {
		s.Initialize(defs, impls)
		for _, patternID := range stored.Removed {
			delete(s.selections, patternID)
		}
	}

	var dropped []string
	for _, patternID := range stored.Overrides.PatternIDs() {
		if err := s.Select(patternID, stored.Overrides[patternID]); err != nil {
			delete(s.selections, patternID)
			dropped = append(dropped, patternID)
		}
	}
	return dropped
}
