package tools

import (
	"context"

	"github.com/google/uuid"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/export"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

type mockDefinitionService struct {
	defs      []*models.PatternDefinition
	listErr   error
	gotActor  models.Principal
	gotFilter services.DefinitionListFilter
}

func (m *mockDefinitionService) Create(ctx context.Context, actor models.Principal, def *models.PatternDefinition) (*models.PatternDefinition, error) {
	return nil, nil
}

func (m *mockDefinitionService) Get(ctx context.Context, actor models.Principal, id string, includeDeleted bool) (*models.PatternDefinition, error) {
	return nil, nil
}

func (m *mockDefinitionService) List(ctx context.Context, actor models.Principal, filter services.DefinitionListFilter) ([]*models.PatternDefinition, error) {
	m.gotActor = actor
	m.gotFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.defs, nil
}

func (m *mockDefinitionService) Update(ctx context.Context, actor models.Principal, id string, update services.DefinitionUpdate) (*models.PatternDefinition, error) {
	return nil, nil
}

func (m *mockDefinitionService) SoftDelete(ctx context.Context, actor models.Principal, id string) error {
	return nil
}

type mockImplementationService struct {
	impls   []*models.PatternImplementation
	listErr error
}

func (m *mockImplementationService) Create(ctx context.Context, actor models.Principal, input services.CreateImplementationInput) (*models.PatternImplementation, error) {
	return nil, nil
}

func (m *mockImplementationService) Get(ctx context.Context, actor models.Principal, id uuid.UUID, includeDeleted bool) (*models.PatternImplementation, error) {
	return nil, nil
}

func (m *mockImplementationService) Update(ctx context.Context, actor models.Principal, id uuid.UUID, update services.ImplementationUpdate) (*models.PatternImplementation, error) {
	return nil, nil
}

func (m *mockImplementationService) SetStatus(ctx context.Context, actor models.Principal, id uuid.UUID, status string) (*models.PatternImplementation, error) {
	return nil, nil
}

func (m *mockImplementationService) List(ctx context.Context, actor models.Principal, filter services.ImplementationListFilter) ([]*models.PatternImplementation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.impls, nil
}

func (m *mockImplementationService) SoftDelete(ctx context.Context, actor models.Principal, id uuid.UUID) error {
	return nil
}

type mockExportService struct {
	docs       map[string]*services.PatternDocument
	gotActor   models.Principal
	gotPattern string
	gotImplID  *uuid.UUID
}

func (m *mockExportService) Export(ctx context.Context, actor models.Principal, selections map[string]uuid.UUID) (*export.Bundle, error) {
	return nil, apperrors.Packaging("", "not supported in tests")
}

func (m *mockExportService) RenderPattern(ctx context.Context, actor models.Principal, patternID string, implID *uuid.UUID) (*services.PatternDocument, error) {
	m.gotActor = actor
	m.gotPattern = patternID
	m.gotImplID = implID
	doc, ok := m.docs[patternID]
	if !ok {
		return nil, apperrors.NotFound(patternID, "pattern definition not found")
	}
	return doc, nil
}
