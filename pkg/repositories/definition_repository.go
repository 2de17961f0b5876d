package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/database"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// DefinitionFilter narrows a definition listing.
type DefinitionFilter struct {
	Category       models.Category
	IncludeDeleted bool
}

// DefinitionRepository provides data access for pattern definitions.
type DefinitionRepository interface {
	Create(ctx context.Context, def *models.PatternDefinition) error
	Update(ctx context.Context, def *models.PatternDefinition) error
	SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) (bool, error)
	// GetByID returns the definition whether or not it is soft-deleted, or nil if it never existed.
	GetByID(ctx context.Context, id string) (*models.PatternDefinition, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.PatternDefinition, error)
	List(ctx context.Context, filter DefinitionFilter) ([]*models.PatternDefinition, error)
}

type definitionRepository struct{}

// NewDefinitionRepository creates a new DefinitionRepository.
func NewDefinitionRepository() DefinitionRepository {
	return &definitionRepository{}
}

var _ DefinitionRepository = (*definitionRepository)(nil)

const definitionColumns = `
	id, category, title, problem, when_to_use,
	is_deleted, deleted_at, deleted_by, created_at, updated_at`

func (r *definitionRepository) Create(ctx context.Context, def *models.PatternDefinition) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		INSERT INTO pattern_definitions (
			id, category, title, problem, when_to_use, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := scope.Conn.Exec(ctx, query,
		def.ID,
		string(def.Category),
		def.Title,
		def.Problem,
		def.WhenToUse,
		def.CreatedAt,
		def.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create pattern definition: %w", err)
	}

	return nil
}

func (r *definitionRepository) Update(ctx context.Context, def *models.PatternDefinition) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE pattern_definitions
		SET title = $2, problem = $3, when_to_use = $4, updated_at = $5
		WHERE id = $1 AND NOT is_deleted`

	result, err := scope.Conn.Exec(ctx, query,
		def.ID,
		def.Title,
		def.Problem,
		def.WhenToUse,
		def.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update pattern definition: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SoftDelete marks a live definition deleted. It reports false when the row
// was already deleted or does not exist.
func (r *definitionRepository) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) (bool, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return false, fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE pattern_definitions
		SET is_deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2
		WHERE id = $1 AND NOT is_deleted`

	result, err := scope.Conn.Exec(ctx, query, id, at, deletedBy)
	if err != nil {
		return false, fmt.Errorf("failed to delete pattern definition: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *definitionRepository) GetByID(ctx context.Context, id string) (*models.PatternDefinition, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT` + definitionColumns + `
		FROM pattern_definitions
		WHERE id = $1`

	def, err := scanDefinition(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return def, nil
}

func (r *definitionRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.PatternDefinition, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT` + definitionColumns + `
		FROM pattern_definitions
		WHERE id = ANY($1)`

	rows, err := scope.Conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern definitions: %w", err)
	}
	defer rows.Close()

	return collectDefinitions(rows)
}

func (r *definitionRepository) List(ctx context.Context, filter DefinitionFilter) ([]*models.PatternDefinition, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	var conditions []string
	var args []any
	argIdx := 1

	if !filter.IncludeDeleted {
		conditions = append(conditions, "NOT is_deleted")
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, string(filter.Category))
		argIdx++
	}

	query := `SELECT` + definitionColumns + `
		FROM pattern_definitions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern definitions: %w", err)
	}
	defer rows.Close()

	defs, err := collectDefinitions(rows)
	if err != nil {
		return nil, err
	}

	models.SortDefinitions(defs)
	return defs, nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func collectDefinitions(rows pgx.Rows) ([]*models.PatternDefinition, error) {
	defs := make([]*models.PatternDefinition, 0)
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pattern definitions: %w", err)
	}

	return defs, nil
}

func scanDefinition(row pgx.Row) (*models.PatternDefinition, error) {
	var d models.PatternDefinition
	var category string
	var isDeleted bool
	var deletedAt *time.Time
	var deletedBy *string

	err := row.Scan(
		&d.ID,
		&category,
		&d.Title,
		&d.Problem,
		&d.WhenToUse,
		&isDeleted,
		&deletedAt,
		&deletedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan pattern definition: %w", err)
	}

	d.Category = models.Category(category)
	d.Deleted = deletionFromColumns(isDeleted, deletedAt, deletedBy)

	return &d, nil
}
