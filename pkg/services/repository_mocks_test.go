package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/repositories"
)

// ============================================================================
// In-memory repositories for service tests
// ============================================================================

type mockDefinitionRepo struct {
	defs      map[string]*models.PatternDefinition
	createErr error
	getErr    error
}

func newMockDefinitionRepo() *mockDefinitionRepo {
	return &mockDefinitionRepo{defs: make(map[string]*models.PatternDefinition)}
}

var _ repositories.DefinitionRepository = (*mockDefinitionRepo)(nil)

func (m *mockDefinitionRepo) put(def *models.PatternDefinition) {
	stored := *def
	m.defs[def.ID] = &stored
}

func (m *mockDefinitionRepo) Create(_ context.Context, def *models.PatternDefinition) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.defs[def.ID]; exists {
		return apperrors.ErrConflict
	}
	m.put(def)
	return nil
}

func (m *mockDefinitionRepo) Update(_ context.Context, def *models.PatternDefinition) error {
	existing, ok := m.defs[def.ID]
	if !ok || existing.IsDeleted() {
		return apperrors.ErrNotFound
	}
	m.put(def)
	return nil
}

func (m *mockDefinitionRepo) SoftDelete(_ context.Context, id, deletedBy string, at time.Time) (bool, error) {
	existing, ok := m.defs[id]
	if !ok || existing.IsDeleted() {
		return false, nil
	}
	existing.Deleted = &models.Deletion{At: at, By: deletedBy}
	return true, nil
}

func (m *mockDefinitionRepo) GetByID(_ context.Context, id string) (*models.PatternDefinition, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	def, ok := m.defs[id]
	if !ok {
		return nil, nil
	}
	out := *def
	return &out, nil
}

func (m *mockDefinitionRepo) GetByIDs(_ context.Context, ids []string) ([]*models.PatternDefinition, error) {
	var out []*models.PatternDefinition
	for _, id := range ids {
		if def, ok := m.defs[id]; ok {
			c := *def
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockDefinitionRepo) List(_ context.Context, filter repositories.DefinitionFilter) ([]*models.PatternDefinition, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]*models.PatternDefinition, 0)
	for _, def := range m.defs {
		if def.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.Category != "" && def.Category != filter.Category {
			continue
		}
		c := *def
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockImplementationRepo struct {
	impls     map[uuid.UUID]*models.PatternImplementation
	defs      *mockDefinitionRepo
	createErr error
	updateErr error
	updates   int
}

func newMockImplementationRepo(defs *mockDefinitionRepo) *mockImplementationRepo {
	return &mockImplementationRepo{impls: make(map[uuid.UUID]*models.PatternImplementation), defs: defs}
}

var _ repositories.ImplementationRepository = (*mockImplementationRepo)(nil)

func (m *mockImplementationRepo) put(impl *models.PatternImplementation) {
	stored := *impl
	m.impls[impl.UUID] = &stored
}

func (m *mockImplementationRepo) Create(_ context.Context, impl *models.PatternImplementation) error {
	if m.createErr != nil {
		return m.createErr
	}
	if impl.IsSystemDefault() {
		for _, other := range m.impls {
			if other.PatternID == impl.PatternID && other.IsSystemDefault() && !other.IsDeleted() {
				return apperrors.ErrConflict
			}
		}
	}
	m.put(impl)
	return nil
}

func (m *mockImplementationRepo) Update(_ context.Context, impl *models.PatternImplementation) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.impls[impl.UUID]
	if !ok || existing.IsDeleted() {
		return apperrors.ErrNotFound
	}
	m.updates++
	m.put(impl)
	return nil
}

func (m *mockImplementationRepo) SoftDelete(_ context.Context, id uuid.UUID, deletedBy string, at time.Time) (bool, error) {
	existing, ok := m.impls[id]
	if !ok || existing.IsDeleted() {
		return false, nil
	}
	existing.Deleted = &models.Deletion{At: at, By: deletedBy}
	return true, nil
}

func (m *mockImplementationRepo) GetByUUID(_ context.Context, id uuid.UUID) (*models.PatternImplementation, error) {
	impl, ok := m.impls[id]
	if !ok {
		return nil, nil
	}
	out := *impl
	return &out, nil
}

func (m *mockImplementationRepo) GetByUUIDs(_ context.Context, ids []uuid.UUID) ([]*models.PatternImplementation, error) {
	var out []*models.PatternImplementation
	for _, id := range ids {
		if impl, ok := m.impls[id]; ok {
			c := *impl
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockImplementationRepo) List(_ context.Context, filter repositories.ImplementationFilter) ([]*models.PatternImplementation, error) {
	out := make([]*models.PatternImplementation, 0)
	for _, impl := range m.impls {
		if impl.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.PatternID != "" && impl.PatternID != filter.PatternID {
			continue
		}
		if filter.Status != "" && impl.Status != filter.Status {
			continue
		}
		if filter.AuthorID != "" && impl.AuthorID != filter.AuthorID {
			continue
		}
		if filter.LiveDefinitionsOnly {
			def, ok := m.defs.defs[impl.PatternID]
			if !ok || def.IsDeleted() {
				continue
			}
		}
		c := *impl
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ============================================================================
// Fixtures
// ============================================================================

var (
	guest = models.Guest()
	alice = models.Principal{ID: "alice", Name: "Alice", Role: models.RoleContributor}
	bob   = models.Principal{ID: "bob", Name: "Bob", Role: models.RoleContributor}
	admin = models.Principal{ID: "root", Name: "Catalog Admin", Role: models.RoleAdmin}
)

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	t := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
