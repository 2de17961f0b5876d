package export

import (
	"context"

	"github.com/google/uuid"

	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// IndexResolver resolves entries against records loaded up front.
// It is read-only after construction and safe for concurrent use.
type IndexResolver struct {
	definitions     map[string]*models.PatternDefinition
	implementations map[uuid.UUID]*models.PatternImplementation
}

var _ Resolver = (*IndexResolver)(nil)

// NewIndexResolver indexes the given records.
func NewIndexResolver(defs []*models.PatternDefinition, impls []*models.PatternImplementation) *IndexResolver {
	r := &IndexResolver{
		definitions:     make(map[string]*models.PatternDefinition, len(defs)),
		implementations: make(map[uuid.UUID]*models.PatternImplementation, len(impls)),
	}
	for _, d := range defs {
		r.definitions[d.ID] = d
	}
	for _, i := range impls {
		r.implementations[i.UUID] = i
	}
	return r
}

func (r *IndexResolver) Resolve(_ context.Context, patternID string, implID uuid.UUID) (*models.PatternDefinition, *models.PatternImplementation, error) {
	return r.definitions[patternID], r.implementations[implID], nil
}
