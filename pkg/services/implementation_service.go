package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/audit"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/policy"
	"github.com/ekaya-inc/pattern-catalog/pkg/repositories"
)

// CreateImplementationInput is the payload for a new implementation.
type CreateImplementationInput struct {
	PatternID      string   `json:"pattern_id"`
	SASCode        string   `json:"sas_code"`
	RCode          string   `json:"r_code"`
	Considerations []string `json:"considerations"`
	Variations     []string `json:"variations"`
	// AsSystemDefault files the implementation under the reserved System author.
	// Elevated actors only.
	AsSystemDefault bool `json:"as_system_default"`
}

// ImplementationUpdate carries the optional fields of an implementation edit.
type ImplementationUpdate struct {
	SASCode        *string   `json:"sas_code,omitempty"`
	RCode          *string   `json:"r_code,omitempty"`
	Considerations *[]string `json:"considerations,omitempty"`
	Variations     *[]string `json:"variations,omitempty"`
	IsPremium      *bool     `json:"is_premium,omitempty"`
	Status         *string   `json:"status,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u ImplementationUpdate) IsEmpty() bool {
	return u.SASCode == nil && u.RCode == nil && u.Considerations == nil &&
		u.Variations == nil && u.IsPremium == nil && u.Status == nil
}

// ImplementationListFilter narrows an implementation listing.
type ImplementationListFilter struct {
	PatternID      string
	Status         string
	AuthorID       string
	IncludeDeleted bool
}

// ImplementationService is the registry of pattern implementations and owns
// their approval workflow.
type ImplementationService interface {
	Create(ctx context.Context, actor models.Principal, input CreateImplementationInput) (*models.PatternImplementation, error)
	// Get returns one implementation. Soft-deleted ones are returned only when
	// includeDeleted is set and actor is elevated.
	Get(ctx context.Context, actor models.Principal, id uuid.UUID, includeDeleted bool) (*models.PatternImplementation, error)
	Update(ctx context.Context, actor models.Principal, id uuid.UUID, update ImplementationUpdate) (*models.PatternImplementation, error)
	// SetStatus approves or rejects a pending implementation.
	SetStatus(ctx context.Context, actor models.Principal, id uuid.UUID, status string) (*models.PatternImplementation, error)
	// List returns the implementations visible to actor.
	List(ctx context.Context, actor models.Principal, filter ImplementationListFilter) ([]*models.PatternImplementation, error)
	SoftDelete(ctx context.Context, actor models.Principal, id uuid.UUID) error
}

type implementationService struct {
	repo    repositories.ImplementationRepository
	defRepo repositories.DefinitionRepository
	auditor *audit.SecurityAuditor
	now     func() time.Time
	logger  *zap.Logger
}

// ImplementationServiceDeps contains dependencies for ImplementationService.
type ImplementationServiceDeps struct {
	Repo           repositories.ImplementationRepository
	DefinitionRepo repositories.DefinitionRepository
	Auditor        *audit.SecurityAuditor // Optional
	Now            func() time.Time       // Optional: defaults to time.Now
	Logger         *zap.Logger
}

// NewImplementationService creates a new ImplementationService.
func NewImplementationService(deps *ImplementationServiceDeps) ImplementationService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &implementationService{
		repo:    deps.Repo,
		defRepo: deps.DefinitionRepo,
		auditor: deps.Auditor,
		now:     now,
		logger:  deps.Logger.Named("implementations"),
	}
}

var _ ImplementationService = (*implementationService)(nil)

func (s *implementationService) Create(ctx context.Context, actor models.Principal, input CreateImplementationInput) (*models.PatternImplementation, error) {
	patternID := strings.ToUpper(strings.TrimSpace(input.PatternID))

	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	authorName := actor.Name
	if authorName == "" {
		authorName = actor.ID
	}
	if input.AsSystemDefault {
		if !actor.IsElevated() {
			s.auditor.LogAccessDenied(actor, "create_system_default", patternID, "admin role required")
			return nil, apperrors.Forbidden(patternID, "only admins may file system defaults")
		}
		authorName = models.SystemDefaultAuthor
	} else if authorName == models.SystemDefaultAuthor && !actor.IsElevated() {
		return nil, apperrors.Validation(patternID, "author name %q is reserved", models.SystemDefaultAuthor)
	}

	now := s.now().UTC()
	impl := &models.PatternImplementation{
		UUID:           uuid.New(),
		PatternID:      patternID,
		AuthorID:       actor.ID,
		AuthorName:     authorName,
		SASCode:        input.SASCode,
		RCode:          input.RCode,
		Considerations: copyStrings(input.Considerations),
		Variations:     copyStrings(input.Variations),
		Status:         models.ImplementationStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if !impl.HasCode() {
		return nil, apperrors.Validation(patternID, "at least one of sas_code or r_code is required")
	}

	def, err := s.defRepo.GetByID(ctx, patternID)
	if err != nil {
		return nil, s.wrap("get pattern definition", patternID, err)
	}
	if def == nil || def.IsDeleted() {
		return nil, apperrors.Validation(patternID, "pattern definition does not exist")
	}

	if err := s.repo.Create(ctx, impl); err != nil {
		return nil, s.wrap("create pattern implementation", patternID, err)
	}

	s.logger.Info("Created pattern implementation",
		zap.String("implementation_id", impl.UUID.String()),
		zap.String("pattern_id", patternID),
		zap.String("actor_id", actor.ID))

	return impl, nil
}

func (s *implementationService) Get(ctx context.Context, actor models.Principal, id uuid.UUID, includeDeleted bool) (*models.PatternImplementation, error) {
	impl, err := s.repo.GetByUUID(ctx, id)
	if err != nil {
		return nil, s.wrap("get pattern implementation", id.String(), err)
	}
	if impl == nil {
		return nil, apperrors.NotFound(id.String(), "pattern implementation not found")
	}
	if impl.IsDeleted() && !(includeDeleted && policy.CanSeeDeleted(actor)) {
		return nil, apperrors.NotFound(id.String(), "pattern implementation not found")
	}

	definitionDeleted := false
	if !actor.IsElevated() {
		def, err := s.defRepo.GetByID(ctx, impl.PatternID)
		if err != nil {
			return nil, s.wrap("get pattern definition", impl.PatternID, err)
		}
		definitionDeleted = def == nil || def.IsDeleted()
	}

	if !policy.CanView(actor, impl, definitionDeleted) {
		return nil, apperrors.NotFound(id.String(), "pattern implementation not found")
	}
	return impl, nil
}

func (s *implementationService) Update(ctx context.Context, actor models.Principal, id uuid.UUID, update ImplementationUpdate) (*models.PatternImplementation, error) {
	existing, err := s.getLive(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.RequireMutate(actor, existing.AuthorID, id.String()); err != nil {
		s.auditor.LogAccessDenied(actor, "update_implementation", id.String(), "not the author")
		return nil, err
	}
	if !actor.IsElevated() && (update.Status != nil || update.IsPremium != nil) {
		s.auditor.LogAccessDenied(actor, "update_implementation", id.String(), "status and tier are admin-only")
		return nil, apperrors.Forbidden(id.String(), "only admins may set status or premium tier")
	}
	if update.IsEmpty() {
		return nil, apperrors.Validation(id.String(), "update carries no fields")
	}
	if update.Status != nil && !models.IsValidImplementationStatus(*update.Status) {
		return nil, apperrors.Validation(id.String(), "unknown status %q", *update.Status)
	}

	updated := *existing
	if update.SASCode != nil {
		updated.SASCode = *update.SASCode
	}
	if update.RCode != nil {
		updated.RCode = *update.RCode
	}
	if update.Considerations != nil {
		updated.Considerations = copyStrings(*update.Considerations)
	}
	if update.Variations != nil {
		updated.Variations = copyStrings(*update.Variations)
	}
	if update.IsPremium != nil {
		updated.IsPremium = *update.IsPremium
	}
	if !updated.HasCode() {
		return nil, apperrors.Validation(id.String(), "at least one of sas_code or r_code is required")
	}

	updated.Status = nextStatus(existing.Status, actor, update)
	updated.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, s.wrap("update pattern implementation", id.String(), err)
	}

	s.auditor.LogStatusChange(actor, &updated, existing.Status, updated.Status)
	return &updated, nil
}

func (s *implementationService) SetStatus(ctx context.Context, actor models.Principal, id uuid.UUID, status string) (*models.PatternImplementation, error) {
	if err := policy.RequireElevated(actor, id.String()); err != nil {
		s.auditor.LogAccessDenied(actor, "set_implementation_status", id.String(), "admin role required")
		return nil, err
	}

	existing, err := s.getLive(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canReview(existing.Status, status) {
		return nil, apperrors.Validation(id.String(), "cannot move implementation from %s to %s", existing.Status, status)
	}

	updated := *existing
	updated.Status = status
	updated.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, s.wrap("set implementation status", id.String(), err)
	}

	s.auditor.LogStatusChange(actor, &updated, existing.Status, updated.Status)
	return &updated, nil
}

func (s *implementationService) List(ctx context.Context, actor models.Principal, filter ImplementationListFilter) ([]*models.PatternImplementation, error) {
	if filter.Status != "" && !models.IsValidImplementationStatus(filter.Status) {
		return nil, apperrors.Validation(filter.Status, "unknown status")
	}

	repoFilter := repositories.ImplementationFilter{
		PatternID: strings.ToUpper(strings.TrimSpace(filter.PatternID)),
		Status:    filter.Status,
		AuthorID:  filter.AuthorID,
	}
	if actor.IsElevated() {
		repoFilter.IncludeDeleted = filter.IncludeDeleted
	} else {
		repoFilter.LiveDefinitionsOnly = true
	}

	impls, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, s.wrap("list pattern implementations", filter.PatternID, err)
	}

	// Rows returned for non-elevated actors already belong to live definitions.
	visible := make([]*models.PatternImplementation, 0, len(impls))
	for _, impl := range impls {
		if policy.CanView(actor, impl, false) {
			visible = append(visible, impl)
		}
	}
	return visible, nil
}

func (s *implementationService) SoftDelete(ctx context.Context, actor models.Principal, id uuid.UUID) error {
	existing, err := s.repo.GetByUUID(ctx, id)
	if err != nil {
		return s.wrap("get pattern implementation", id.String(), err)
	}
	if existing == nil {
		return apperrors.NotFound(id.String(), "pattern implementation not found")
	}

	if err := policy.RequireMutate(actor, existing.AuthorID, id.String()); err != nil {
		s.auditor.LogAccessDenied(actor, "delete_implementation", id.String(), "not the author")
		return err
	}
	if existing.IsDeleted() {
		return nil
	}

	if _, err := s.repo.SoftDelete(ctx, id, actor.ID, s.now().UTC()); err != nil {
		return s.wrap("delete pattern implementation", id.String(), err)
	}

	s.logger.Info("Soft-deleted pattern implementation",
		zap.String("implementation_id", id.String()),
		zap.String("pattern_id", existing.PatternID),
		zap.String("actor_id", actor.ID))

	return nil
}

// getLive loads an implementation for mutation. Deleted rows are not found.
func (s *implementationService) getLive(ctx context.Context, id uuid.UUID) (*models.PatternImplementation, error) {
	impl, err := s.repo.GetByUUID(ctx, id)
	if err != nil {
		return nil, s.wrap("get pattern implementation", id.String(), err)
	}
	if impl == nil || impl.IsDeleted() {
		return nil, apperrors.NotFound(id.String(), "pattern implementation not found")
	}
	return impl, nil
}

func (s *implementationService) wrap(op, id string, err error) error {
	wrapped := apperrors.Wrap(op, id, err)
	logPersistenceError(s.logger, op, id, wrapped)
	return wrapped
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
