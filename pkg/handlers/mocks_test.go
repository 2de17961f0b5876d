package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/curation"
	"github.com/ekaya-inc/pattern-catalog/pkg/export"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

// ============================================================================
// Service mocks
// ============================================================================

type mockDefinitionService struct {
	defs      []*models.PatternDefinition
	err       error
	gotActor  models.Principal
	gotID     string
	gotFilter services.DefinitionListFilter
	gotUpdate services.DefinitionUpdate
	created   *models.PatternDefinition
}

var _ services.DefinitionService = (*mockDefinitionService)(nil)

func (m *mockDefinitionService) Create(_ context.Context, actor models.Principal, def *models.PatternDefinition) (*models.PatternDefinition, error) {
	m.gotActor = actor
	if m.err != nil {
		return nil, m.err
	}
	m.created = def
	return def, nil
}

func (m *mockDefinitionService) Get(_ context.Context, actor models.Principal, id string, _ bool) (*models.PatternDefinition, error) {
	m.gotActor, m.gotID = actor, id
	if m.err != nil {
		return nil, m.err
	}
	for _, d := range m.defs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (m *mockDefinitionService) List(_ context.Context, actor models.Principal, filter services.DefinitionListFilter) ([]*models.PatternDefinition, error) {
	m.gotActor, m.gotFilter = actor, filter
	if m.err != nil {
		return nil, m.err
	}
	return m.defs, nil
}

func (m *mockDefinitionService) Update(_ context.Context, actor models.Principal, id string, update services.DefinitionUpdate) (*models.PatternDefinition, error) {
	m.gotActor, m.gotID, m.gotUpdate = actor, id, update
	if m.err != nil {
		return nil, m.err
	}
	return &models.PatternDefinition{ID: id}, nil
}

func (m *mockDefinitionService) SoftDelete(_ context.Context, actor models.Principal, id string) error {
	m.gotActor, m.gotID = actor, id
	return m.err
}

type mockImplementationService struct {
	impls     []*models.PatternImplementation
	err       error
	gotActor  models.Principal
	gotID     uuid.UUID
	gotInput  services.CreateImplementationInput
	gotUpdate services.ImplementationUpdate
	gotStatus string
	gotFilter services.ImplementationListFilter

	gotIncludeDeleted bool
}

var _ services.ImplementationService = (*mockImplementationService)(nil)

func (m *mockImplementationService) Create(_ context.Context, actor models.Principal, input services.CreateImplementationInput) (*models.PatternImplementation, error) {
	m.gotActor, m.gotInput = actor, input
	if m.err != nil {
		return nil, m.err
	}
	return &models.PatternImplementation{UUID: uuid.New(), PatternID: input.PatternID, AuthorID: actor.ID, Status: models.ImplementationStatusPending}, nil
}

func (m *mockImplementationService) Get(_ context.Context, actor models.Principal, id uuid.UUID, includeDeleted bool) (*models.PatternImplementation, error) {
	m.gotActor, m.gotID, m.gotIncludeDeleted = actor, id, includeDeleted
	if m.err != nil {
		return nil, m.err
	}
	return &models.PatternImplementation{UUID: id}, nil
}

func (m *mockImplementationService) Update(_ context.Context, actor models.Principal, id uuid.UUID, update services.ImplementationUpdate) (*models.PatternImplementation, error) {
	m.gotActor, m.gotID, m.gotUpdate = actor, id, update
	if m.err != nil {
		return nil, m.err
	}
	return &models.PatternImplementation{UUID: id}, nil
}

func (m *mockImplementationService) SetStatus(_ context.Context, actor models.Principal, id uuid.UUID, status string) (*models.PatternImplementation, error) {
	m.gotActor, m.gotID, m.gotStatus = actor, id, status
	if m.err != nil {
		return nil, m.err
	}
	return &models.PatternImplementation{UUID: id, Status: status}, nil
}

func (m *mockImplementationService) List(_ context.Context, actor models.Principal, filter services.ImplementationListFilter) ([]*models.PatternImplementation, error) {
	m.gotActor, m.gotFilter = actor, filter
	if m.err != nil {
		return nil, m.err
	}
	return m.impls, nil
}

func (m *mockImplementationService) SoftDelete(_ context.Context, actor models.Principal, id uuid.UUID) error {
	m.gotActor, m.gotID = actor, id
	return m.err
}

// stubExportService packages through the real packager over fixed records.
type stubExportService struct {
	defs          []*models.PatternDefinition
	impls         []*models.PatternImplementation
	gotSelections map[string]uuid.UUID
	err           error
}

var _ services.ExportService = (*stubExportService)(nil)

func (s *stubExportService) Export(ctx context.Context, _ models.Principal, selections map[string]uuid.UUID) (*export.Bundle, error) {
	s.gotSelections = selections
	if s.err != nil {
		return nil, s.err
	}
	return export.NewPackager(export.NewIndexResolver(s.defs, s.impls), "", 1).Package(ctx, selections)
}

func (s *stubExportService) RenderPattern(_ context.Context, _ models.Principal, patternID string, implID *uuid.UUID) (*services.PatternDocument, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, d := range s.defs {
		if d.ID != patternID {
			continue
		}
		for _, i := range s.impls {
			if i.PatternID == patternID && (implID == nil || *implID == i.UUID) {
				entry := export.Entry{Definition: d, Implementation: i}
				content, err := export.RenderDocument(entry)
				if err != nil {
					return nil, err
				}
				return &services.PatternDocument{PatternID: patternID, ImplementationUUID: i.UUID, Path: entry.Path(), Content: string(content)}, nil
			}
		}
	}
	return nil, apperrors.NotFound(patternID, "pattern definition not found")
}

// ============================================================================
// Store mocks
// ============================================================================

// failingStore fails loads with err and saves with saveErr.
type failingStore struct{ err, saveErr error }

var _ curation.Store = failingStore{}

func (f failingStore) Load(*http.Request) (curation.Changes, bool, error) {
	return curation.Changes{}, false, f.err
}

func (f failingStore) Save(http.ResponseWriter, *http.Request, curation.Changes) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.err
}

// noScope stands in for the database scope middleware.
func noScope(next http.HandlerFunc) http.HandlerFunc { return next }
