package repositories

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// PostgreSQL error codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// deletionFromColumns rebuilds the soft-delete marker from its three columns.
func deletionFromColumns(isDeleted bool, at *time.Time, by *string) *models.Deletion {
	if !isDeleted {
		return nil
	}
	d := &models.Deletion{}
	if at != nil {
		d.At = *at
	}
	if by != nil {
		d.By = *by
	}
	return d
}

// nonNilStrings keeps TEXT[] columns from receiving NULL.
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
