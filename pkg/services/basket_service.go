package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/curation"
	"github.com/ekaya-inc/pattern-catalog/pkg/export"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// BasketItem is one selected pattern as shown to the user.
type BasketItem struct {
	PatternID          string    `json:"pattern_id"`
	Category           string    `json:"category"`
	Title              string    `json:"title"`
	ImplementationUUID uuid.UUID `json:"implementation_uuid"`
	AuthorName         string    `json:"author_name"`
	IsSystemDefault    bool      `json:"is_system_default"`
}

// Basket is the rendered view of a curation session.
type Basket struct {
	Items []BasketItem `json:"items"`
	// Dropped lists stored selections that no longer resolve.
	Dropped []string `json:"dropped,omitempty"`
}

// BasketService builds curation sessions over the catalog as the actor sees it.
type BasketService interface {
	// Open rebuilds the session from stored changes when found, otherwise seeds
	// a new session with system defaults. It returns the pattern ids dropped on restore.
	Open(ctx context.Context, actor models.Principal, stored curation.Changes, found bool) (*curation.Session, []string, error)
	// View renders a session for display.
	View(session *curation.Session, dropped []string) *Basket
	// Export packages the session's selections.
	Export(ctx context.Context, actor models.Principal, session *curation.Session) (*export.Bundle, error)
}

type basketService struct {
	definitions     DefinitionService
	implementations ImplementationService
	exporter        ExportService
	logger          *zap.Logger
}

// BasketServiceDeps contains dependencies for BasketService.
type BasketServiceDeps struct {
	Definitions     DefinitionService
	Implementations ImplementationService
	Exporter        ExportService
	Logger          *zap.Logger
}

// NewBasketService creates a new BasketService.
func NewBasketService(deps *BasketServiceDeps) BasketService {
	return &basketService{
		definitions:     deps.Definitions,
		implementations: deps.Implementations,
		exporter:        deps.Exporter,
		logger:          deps.Logger.Named("basket"),
	}
}

var _ BasketService = (*basketService)(nil)

func (s *basketService) Open(ctx context.Context, actor models.Principal, stored curation.Changes, found bool) (*curation.Session, []string, error) {
	defs, err := s.definitions.List(ctx, actor, DefinitionListFilter{})
	if err != nil {
		return nil, nil, err
	}
	impls, err := s.implementations.List(ctx, actor, ImplementationListFilter{})
	if err != nil {
		return nil, nil, err
	}

	session := curation.NewSession()
	if !found {
		session.Initialize(defs, impls)
		return session, nil, nil
	}

	dropped := session.Restore(defs, impls, stored)
	if len(dropped) > 0 {
		s.logger.Debug("Dropped stale basket entries",
			zap.String("actor_id", actor.ID),
			zap.Strings("pattern_ids", dropped))
	}
	return session, dropped, nil
}

func (s *basketService) View(session *curation.Session, dropped []string) *Basket {
	sel := session.Selections()

	defs := make([]*models.PatternDefinition, 0, len(sel))
	for patternID := range sel {
		if def, ok := session.Definition(patternID); ok {
			defs = append(defs, def)
		}
	}
	models.SortDefinitions(defs)

	basket := &Basket{Items: make([]BasketItem, 0, len(defs)), Dropped: dropped}
	for _, def := range defs {
		impl, ok := session.Implementation(sel[def.ID])
		if !ok {
			continue
		}
		basket.Items = append(basket.Items, BasketItem{
			PatternID:          def.ID,
			Category:           string(def.Category),
			Title:              def.Title,
			ImplementationUUID: impl.UUID,
			AuthorName:         impl.AuthorName,
			IsSystemDefault:    impl.IsSystemDefault(),
		})
	}
	return basket
}

func (s *basketService) Export(ctx context.Context, actor models.Principal, session *curation.Session) (*export.Bundle, error) {
	return s.exporter.Export(ctx, actor, session.Selections())
}
