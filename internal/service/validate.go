// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"errors"

	"littletimes/internal/models"
	"littletimes/internal/validation"
)

// validateInput runs struct validation and maps the first failure to a
// validation AppError carrying its user-facing message.
func validateInput(v any) error {
	err := validation.Struct(v)
	if err == nil {
		return nil
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		return models.NewValidationError(verr.Message)
	}
	return models.NewValidationError(err.Error())
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// errLoginRequired is returned when an operation needs a signed-in user.
func errLoginRequired() error {
	return models.NewUnauthorizedError("로그인이 필요합니다.")
}
