package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/audit"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/policy"
	"github.com/ekaya-inc/pattern-catalog/pkg/repositories"
)

// DefinitionUpdate carries the optional fields of a definition edit.
// ID and Category may be supplied but must match the stored values.
type DefinitionUpdate struct {
	ID        *string `json:"id,omitempty"`
	Category  *string `json:"category,omitempty"`
	Title     *string `json:"title,omitempty"`
	Problem   *string `json:"problem,omitempty"`
	WhenToUse *string `json:"when_to_use,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u DefinitionUpdate) IsEmpty() bool {
	return u.ID == nil && u.Category == nil && u.Title == nil && u.Problem == nil && u.WhenToUse == nil
}

// DefinitionListFilter narrows a definition listing.
type DefinitionListFilter struct {
	Category       string
	IncludeDeleted bool
}

// DefinitionService is the registry of pattern definitions.
type DefinitionService interface {
	Create(ctx context.Context, actor models.Principal, def *models.PatternDefinition) (*models.PatternDefinition, error)
	// Get returns a live definition. Deleted definitions are returned only to
	// elevated actors that ask for them.
	Get(ctx context.Context, actor models.Principal, id string, includeDeleted bool) (*models.PatternDefinition, error)
	// List returns definitions in category declaration order, then numeric id.
	List(ctx context.Context, actor models.Principal, filter DefinitionListFilter) ([]*models.PatternDefinition, error)
	Update(ctx context.Context, actor models.Principal, id string, update DefinitionUpdate) (*models.PatternDefinition, error)
	// SoftDelete marks a definition deleted. Deleting an already deleted definition succeeds.
	SoftDelete(ctx context.Context, actor models.Principal, id string) error
}

type definitionService struct {
	repo    repositories.DefinitionRepository
	auditor *audit.SecurityAuditor
	now     func() time.Time
	logger  *zap.Logger
}

// DefinitionServiceDeps contains dependencies for DefinitionService.
type DefinitionServiceDeps struct {
	Repo    repositories.DefinitionRepository
	Auditor *audit.SecurityAuditor // Optional
	Now     func() time.Time       // Optional: defaults to time.Now
	Logger  *zap.Logger
}

// NewDefinitionService creates a new DefinitionService.
func NewDefinitionService(deps *DefinitionServiceDeps) DefinitionService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &definitionService{
		repo:    deps.Repo,
		auditor: deps.Auditor,
		now:     now,
		logger:  deps.Logger.Named("definitions"),
	}
}

var _ DefinitionService = (*definitionService)(nil)

func (s *definitionService) Create(ctx context.Context, actor models.Principal, def *models.PatternDefinition) (*models.PatternDefinition, error) {
	if err := s.requireElevated(actor, "create_definition", def.ID); err != nil {
		return nil, err
	}

	created := *def
	created.Normalize()
	created.Deleted = nil
	if err := validateDefinition(&created); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := s.repo.Create(ctx, &created); err != nil {
		return nil, s.wrap("create pattern definition", created.ID, err)
	}

	s.logger.Info("Created pattern definition",
		zap.String("pattern_id", created.ID),
		zap.String("actor_id", actor.ID))

	return &created, nil
}

func (s *definitionService) Get(ctx context.Context, actor models.Principal, id string, includeDeleted bool) (*models.PatternDefinition, error) {
	def, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrap("get pattern definition", id, err)
	}
	if def == nil {
		return nil, apperrors.NotFound(id, "pattern definition not found")
	}
	if def.IsDeleted() && !(includeDeleted && policy.CanSeeDeleted(actor)) {
		return nil, apperrors.NotFound(id, "pattern definition not found")
	}
	return def, nil
}

func (s *definitionService) List(ctx context.Context, actor models.Principal, filter DefinitionListFilter) ([]*models.PatternDefinition, error) {
	repoFilter := repositories.DefinitionFilter{
		IncludeDeleted: filter.IncludeDeleted && policy.CanSeeDeleted(actor),
	}
	if filter.Category != "" {
		category, ok := models.ParseCategory(filter.Category)
		if !ok {
			return nil, apperrors.Validation(filter.Category, "unknown category")
		}
		repoFilter.Category = category
	}

	defs, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, s.wrap("list pattern definitions", "", err)
	}

	models.SortDefinitions(defs)
	return defs, nil
}

func (s *definitionService) Update(ctx context.Context, actor models.Principal, id string, update DefinitionUpdate) (*models.PatternDefinition, error) {
	if err := s.requireElevated(actor, "update_definition", id); err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, apperrors.Validation(id, "update carries no fields")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrap("get pattern definition", id, err)
	}
	if existing == nil || existing.IsDeleted() {
		return nil, apperrors.NotFound(id, "pattern definition not found")
	}

	updated := *existing
	if update.ID != nil && strings.ToUpper(strings.TrimSpace(*update.ID)) != existing.ID {
		return nil, apperrors.Validation(id, "definition id cannot be changed")
	}
	if update.Category != nil {
		category, ok := models.ParseCategory(*update.Category)
		if !ok || category != existing.Category {
			return nil, apperrors.Validation(id, "definition category cannot be changed")
		}
	}
	if update.Title != nil {
		updated.Title = *update.Title
	}
	if update.Problem != nil {
		updated.Problem = *update.Problem
	}
	if update.WhenToUse != nil {
		updated.WhenToUse = *update.WhenToUse
	}

	updated.Normalize()
	if err := validateDefinitionText(&updated); err != nil {
		return nil, err
	}

	updated.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, s.wrap("update pattern definition", id, err)
	}

	return &updated, nil
}

func (s *definitionService) SoftDelete(ctx context.Context, actor models.Principal, id string) error {
	if err := s.requireElevated(actor, "delete_definition", id); err != nil {
		return err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.wrap("get pattern definition", id, err)
	}
	if existing == nil {
		return apperrors.NotFound(id, "pattern definition not found")
	}
	if existing.IsDeleted() {
		return nil
	}

	if _, err := s.repo.SoftDelete(ctx, id, actor.ID, s.now().UTC()); err != nil {
		return s.wrap("delete pattern definition", id, err)
	}

	s.logger.Info("Soft-deleted pattern definition",
		zap.String("pattern_id", id),
		zap.String("actor_id", actor.ID))

	return nil
}

func (s *definitionService) requireElevated(actor models.Principal, operation, id string) error {
	if err := policy.RequireElevated(actor, id); err != nil {
		s.auditor.LogAccessDenied(actor, operation, id, "admin role required")
		return err
	}
	return nil
}

func (s *definitionService) wrap(op, id string, err error) error {
	wrapped := apperrors.Wrap(op, id, err)
	logPersistenceError(s.logger, op, id, wrapped)
	return wrapped
}

// validateDefinition checks id format, category membership, prefix agreement and text fields.
func validateDefinition(def *models.PatternDefinition) error {
	if !def.Category.IsValid() {
		return apperrors.Validation(def.ID, "unknown category %q", def.Category)
	}
	prefix, _, ok := models.ParseDefinitionID(def.ID)
	if !ok {
		return apperrors.Validation(def.ID, "definition id must look like %s-001", def.Category)
	}
	if prefix != def.Category {
		return apperrors.Validation(def.ID, "definition id prefix must equal category %s", def.Category)
	}
	return validateDefinitionText(def)
}

func validateDefinitionText(def *models.PatternDefinition) error {
	switch {
	case def.Title == "":
		return apperrors.Validation(def.ID, "title is required")
	case def.Problem == "":
		return apperrors.Validation(def.ID, "problem is required")
	case def.WhenToUse == "":
		return apperrors.Validation(def.ID, "when_to_use is required")
	}
	return nil
}
