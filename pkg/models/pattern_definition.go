package models

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// definitionIDPattern matches {CATEGORY}-{3-digit-number}, e.g. IMP-002.
var definitionIDPattern = regexp.MustCompile(`^([A-Z]{3})-([0-9]{3})$`)

// Deletion marks a soft-deleted record. A nil *Deletion means the record is live.
type Deletion struct {
	At time.Time `json:"at"`
	By string    `json:"by"`
}

// PatternDefinition identifies a reusable problem/solution pair.
type PatternDefinition struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Title     string    `json:"title"`
	Problem   string    `json:"problem"`
	WhenToUse string    `json:"when_to_use"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Deleted   *Deletion `json:"deleted,omitempty"`
}

// IsDeleted reports whether the definition has been soft-deleted.
func (d *PatternDefinition) IsDeleted() bool {
	return d.Deleted != nil
}

// Number returns the numeric part of the id, or -1 if the id is malformed.
func (d *PatternDefinition) Number() int {
	return DefinitionNumber(d.ID)
}

// ParseDefinitionID splits a definition id into its category prefix and number.
func ParseDefinitionID(id string) (Category, int, bool) {
	m := definitionIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return Category(m[1]), n, true
}

// DefinitionNumber returns the numeric part of a definition id, or -1.
func DefinitionNumber(id string) int {
	_, n, ok := ParseDefinitionID(id)
	if !ok {
		return -1
	}
	return n
}

// DefinitionLess orders definitions by category declaration order, then numeric id.
func DefinitionLess(a, b *PatternDefinition) bool {
	if oa, ob := a.Category.Order(), b.Category.Order(); oa != ob {
		return oa < ob
	}
	if na, nb := a.Number(), b.Number(); na != nb {
		return na < nb
	}
	return a.ID < b.ID
}

// SortDefinitions sorts in place using DefinitionLess.
func SortDefinitions(defs []*PatternDefinition) {
	sort.SliceStable(defs, func(i, j int) bool { return DefinitionLess(defs[i], defs[j]) })
}

// Normalize trims whitespace from the free-text fields and upper-cases the id.
func (d *PatternDefinition) Normalize() {
	d.ID = strings.ToUpper(strings.TrimSpace(d.ID))
	d.Category = Category(strings.ToUpper(strings.TrimSpace(string(d.Category))))
	d.Title = strings.TrimSpace(d.Title)
	d.Problem = strings.TrimSpace(d.Problem)
	d.WhenToUse = strings.TrimSpace(d.WhenToUse)
}
