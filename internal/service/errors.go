package service

import (
	"errors"

	"github.com/supportdesk/helpdesk-service/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util/errorutil"
)

// mapRepoError translates repository sentinels into domain errors. Anything
// unrecognised becomes an internal error with the cause kept for logging.
func mapRepoError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(resource+" was modified concurrently, reload and retry", nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewValidationError("user already exists", map[string]any{"email": "already registered"})
	default:
		return apperrors.NewInternalError(err)
	}
}
