package services

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/logging"
)

// logPersistenceError logs storage failures. Errors of any other kind are
// expected outcomes and are left to the caller.
func logPersistenceError(logger *zap.Logger, op, id string, err error) {
	if !errors.Is(err, apperrors.ErrPersistence) {
		return
	}
	logger.Error("Persistence failure",
		zap.String("operation", op),
		zap.String("resource_id", id),
		zap.String("error", logging.SanitizeError(err)))
}
