package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/export"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/policy"
	"github.com/ekaya-inc/pattern-catalog/pkg/repositories"
)

// PatternDocument is a single rendered export document.
type PatternDocument struct {
	PatternID          string    `json:"pattern_id"`
	ImplementationUUID uuid.UUID `json:"implementation_uuid"`
	Path               string    `json:"path"`
	Content            string    `json:"content"`
}

// ExportService packages curated selections into bundles.
type ExportService interface {
	// Export resolves selections against live records visible to actor and
	// builds the bundle. Entries the actor cannot see fail like missing ones.
	Export(ctx context.Context, actor models.Principal, selections map[string]uuid.UUID) (*export.Bundle, error)
	// RenderPattern renders one document. A nil implID picks the pattern's
	// active system default.
	RenderPattern(ctx context.Context, actor models.Principal, patternID string, implID *uuid.UUID) (*PatternDocument, error)
}

type exportService struct {
	defRepo     repositories.DefinitionRepository
	implRepo    repositories.ImplementationRepository
	title       string
	maxParallel int
	logger      *zap.Logger
}

// ExportServiceDeps contains dependencies for ExportService.
type ExportServiceDeps struct {
	DefinitionRepo     repositories.DefinitionRepository
	ImplementationRepo repositories.ImplementationRepository
	Title              string // Optional: manifest title
	MaxParallel        int    // Optional: concurrent resolutions per export
	Logger             *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(deps *ExportServiceDeps) ExportService {
	return &exportService{
		defRepo:     deps.DefinitionRepo,
		implRepo:    deps.ImplementationRepo,
		title:       deps.Title,
		maxParallel: deps.MaxParallel,
		logger:      deps.Logger.Named("export"),
	}
}

var _ ExportService = (*exportService)(nil)

func (s *exportService) Export(ctx context.Context, actor models.Principal, selections map[string]uuid.UUID) (*export.Bundle, error) {
	if len(selections) == 0 {
		return nil, apperrors.Packaging("", "nothing selected for export")
	}

	patternIDs := make([]string, 0, len(selections))
	implIDs := make([]uuid.UUID, 0, len(selections))
	for patternID, implID := range selections {
		patternIDs = append(patternIDs, patternID)
		implIDs = append(implIDs, implID)
	}
	sort.Strings(patternIDs)

	// Bulk-load up front so resolution does not share the request's connection.
	defs, err := s.defRepo.GetByIDs(ctx, patternIDs)
	if err != nil {
		return nil, s.wrap("load definitions for export", "", err)
	}
	impls, err := s.implRepo.GetByUUIDs(ctx, implIDs)
	if err != nil {
		return nil, s.wrap("load implementations for export", "", err)
	}

	bundle, err := export.NewPackager(s.resolverFor(actor, defs, impls), s.title, s.maxParallel).Package(ctx, selections)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exported bundle",
		zap.String("actor_id", actor.ID),
		zap.Int("pattern_count", len(bundle.Files)-1))

	return bundle, nil
}

func (s *exportService) RenderPattern(ctx context.Context, actor models.Principal, patternID string, implID *uuid.UUID) (*PatternDocument, error) {
	def, err := s.defRepo.GetByID(ctx, patternID)
	if err != nil {
		return nil, s.wrap("get pattern definition", patternID, err)
	}
	if def == nil || def.IsDeleted() {
		return nil, apperrors.NotFound(patternID, "pattern definition not found")
	}

	var impl *models.PatternImplementation
	if implID != nil {
		impl, err = s.implRepo.GetByUUID(ctx, *implID)
		if err != nil {
			return nil, s.wrap("get pattern implementation", implID.String(), err)
		}
		if impl == nil || impl.IsDeleted() || impl.PatternID != patternID || !policy.CanView(actor, impl, false) {
			return nil, apperrors.NotFound(implID.String(), "pattern implementation not found")
		}
	} else {
		impl, err = s.systemDefault(ctx, patternID)
		if err != nil {
			return nil, err
		}
	}

	entry := export.Entry{Definition: def, Implementation: impl}
	content, err := export.RenderDocument(entry)
	if err != nil {
		return nil, apperrors.Packaging(patternID, "failed to render document: %v", err)
	}

	return &PatternDocument{
		PatternID:          patternID,
		ImplementationUUID: impl.UUID,
		Path:               entry.Path(),
		Content:            string(content),
	}, nil
}

// resolverFor indexes only the records actor may see, so anything else
// resolves as missing.
func (s *exportService) resolverFor(actor models.Principal, defs []*models.PatternDefinition, impls []*models.PatternImplementation) export.Resolver {
	deleted := make(map[string]bool, len(defs))
	for _, d := range defs {
		deleted[d.ID] = d.IsDeleted()
	}

	visible := make([]*models.PatternImplementation, 0, len(impls))
	for _, impl := range impls {
		defDeleted, known := deleted[impl.PatternID]
		if policy.CanView(actor, impl, defDeleted || !known) {
			visible = append(visible, impl)
		}
	}
	return export.NewIndexResolver(defs, visible)
}

func (s *exportService) systemDefault(ctx context.Context, patternID string) (*models.PatternImplementation, error) {
	impls, err := s.implRepo.List(ctx, repositories.ImplementationFilter{
		PatternID:           patternID,
		Status:              models.ImplementationStatusActive,
		LiveDefinitionsOnly: true,
	})
	if err != nil {
		return nil, s.wrap("list pattern implementations", patternID, err)
	}

	var best *models.PatternImplementation
	for _, impl := range impls {
		if !impl.IsSystemDefault() {
			continue
		}
		if best == nil || impl.CreatedAt.Before(best.CreatedAt) ||
			(impl.CreatedAt.Equal(best.CreatedAt) && impl.UUID.String() < best.UUID.String()) {
			best = impl
		}
	}
	if best == nil {
		return nil, apperrors.NotFound(patternID, "pattern has no system default implementation")
	}
	return best, nil
}

func (s *exportService) wrap(op, id string, err error) error {
	wrapped := apperrors.Wrap(op, id, err)
	logPersistenceError(s.logger, op, id, wrapped)
	return wrapped
}
