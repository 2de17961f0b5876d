package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/database"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// ImplementationFilter narrows an implementation listing. Zero values mean "any".
type ImplementationFilter struct {
	PatternID      string
	Status         string
	AuthorID       string
	IncludeDeleted bool
	// LiveDefinitionsOnly drops rows whose definition is soft-deleted.
	LiveDefinitionsOnly bool
}

// ImplementationRepository provides data access for pattern implementations.
type ImplementationRepository interface {
	Create(ctx context.Context, impl *models.PatternImplementation) error
	Update(ctx context.Context, impl *models.PatternImplementation) error
	SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string, at time.Time) (bool, error)
	// GetByUUID returns the implementation whether or not it is soft-deleted, or nil if it never existed.
	GetByUUID(ctx context.Context, id uuid.UUID) (*models.PatternImplementation, error)
	GetByUUIDs(ctx context.Context, ids []uuid.UUID) ([]*models.PatternImplementation, error)
	List(ctx context.Context, filter ImplementationFilter) ([]*models.PatternImplementation, error)
}

type implementationRepository struct{}

// NewImplementationRepository creates a new ImplementationRepository.
func NewImplementationRepository() ImplementationRepository {
	return &implementationRepository{}
}

var _ ImplementationRepository = (*implementationRepository)(nil)

const implementationColumns = `
	i.uuid, i.pattern_id, i.author_id, i.author_name, i.sas_code, i.r_code,
	i.considerations, i.variations, i.status, i.is_premium,
	i.is_deleted, i.deleted_at, i.deleted_by, i.created_at, i.updated_at`

func (r *implementationRepository) Create(ctx context.Context, impl *models.PatternImplementation) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if impl.UUID == uuid.Nil {
		impl.UUID = uuid.New()
	}

	query := `
		INSERT INTO pattern_implementations (
			uuid, pattern_id, author_id, author_name, sas_code, r_code,
			considerations, variations, status, is_premium, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := scope.Conn.Exec(ctx, query,
		impl.UUID,
		impl.PatternID,
		impl.AuthorID,
		impl.AuthorName,
		impl.SASCode,
		impl.RCode,
		nonNilStrings(impl.Considerations),
		nonNilStrings(impl.Variations),
		impl.Status,
		impl.IsPremium,
		impl.CreatedAt,
		impl.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return apperrors.Validation(impl.PatternID, "pattern definition does not exist")
		}
		return fmt.Errorf("failed to create pattern implementation: %w", err)
	}

	return nil
}

func (r *implementationRepository) Update(ctx context.Context, impl *models.PatternImplementation) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE pattern_implementations
		SET sas_code = $2, r_code = $3, considerations = $4, variations = $5,
		    status = $6, is_premium = $7, updated_at = $8
		WHERE uuid = $1 AND NOT is_deleted`

	result, err := scope.Conn.Exec(ctx, query,
		impl.UUID,
		impl.SASCode,
		impl.RCode,
		nonNilStrings(impl.Considerations),
		nonNilStrings(impl.Variations),
		impl.Status,
		impl.IsPremium,
		impl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update pattern implementation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SoftDelete marks a live implementation deleted. It reports false when the
// row was already deleted or does not exist.
func (r *implementationRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string, at time.Time) (bool, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return false, fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE pattern_implementations
		SET is_deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2
		WHERE uuid = $1 AND NOT is_deleted`

	result, err := scope.Conn.Exec(ctx, query, id, at, deletedBy)
	if err != nil {
		return false, fmt.Errorf("failed to delete pattern implementation: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *implementationRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*models.PatternImplementation, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT` + implementationColumns + `
		FROM pattern_implementations i
		WHERE i.uuid = $1`

	impl, err := scanImplementation(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return impl, nil
}

func (r *implementationRepository) GetByUUIDs(ctx context.Context, ids []uuid.UUID) ([]*models.PatternImplementation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `SELECT` + implementationColumns + `
		FROM pattern_implementations i
		WHERE i.uuid = ANY($1)`

	rows, err := scope.Conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern implementations: %w", err)
	}
	defer rows.Close()

	return collectImplementations(rows)
}

func (r *implementationRepository) List(ctx context.Context, filter ImplementationFilter) ([]*models.PatternImplementation, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	var conditions []string
	var args []any
	argIdx := 1

	if !filter.IncludeDeleted {
		conditions = append(conditions, "NOT i.is_deleted")
	}
	if filter.PatternID != "" {
		conditions = append(conditions, fmt.Sprintf("i.pattern_id = $%d", argIdx))
		args = append(args, filter.PatternID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("i.author_id = $%d", argIdx))
		args = append(args, filter.AuthorID)
		argIdx++
	}

	query := `SELECT` + implementationColumns + `
		FROM pattern_implementations i`
	if filter.LiveDefinitionsOnly {
		query += `
		JOIN pattern_definitions d ON d.id = i.pattern_id AND NOT d.is_deleted`
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY i.pattern_id, i.created_at, i.uuid"

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern implementations: %w", err)
	}
	defer rows.Close()

	return collectImplementations(rows)
}

// ============================================================================
// Helper Functions
// ============================================================================

func collectImplementations(rows pgx.Rows) ([]*models.PatternImplementation, error) {
	impls := make([]*models.PatternImplementation, 0)
	for rows.Next() {
		impl, err := scanImplementation(rows)
		if err != nil {
			return nil, err
		}
		impls = append(impls, impl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pattern implementations: %w", err)
	}

	return impls, nil
}

func scanImplementation(row pgx.Row) (*models.PatternImplementation, error) {
	var i models.PatternImplementation
	var isDeleted bool
	var deletedAt *time.Time
	var deletedBy *string

	err := row.Scan(
		&i.UUID,
		&i.PatternID,
		&i.AuthorID,
		&i.AuthorName,
		&i.SASCode,
		&i.RCode,
		&i.Considerations,
		&i.Variations,
		&i.Status,
		&i.IsPremium,
		&isDeleted,
		&deletedAt,
		&deletedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan pattern implementation: %w", err)
	}

	i.Deleted = deletionFromColumns(isDeleted, deletedAt, deletedBy)

	return &i, nil
}
