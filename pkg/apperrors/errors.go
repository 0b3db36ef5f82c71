package apperrors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateContributor = errors.New("contributor already exists for user and project")
	ErrProjectMismatch      = errors.New("contributor does not belong to project")
)
