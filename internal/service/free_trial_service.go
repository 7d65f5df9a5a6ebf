package service

import (
	"context"
	"strings"

	"littletimes/internal/models"
	"littletimes/internal/repository"
	"littletimes/internal/validation"
)

type FreeTrialService struct {
	repo repository.FreeTrialRepository
}

func NewFreeTrialService(repo repository.FreeTrialRepository) *FreeTrialService {
	return &FreeTrialService{repo: repo}
}

// Create stores a pending sample-issue request.
func (s *FreeTrialService) Create(ctx context.Context, in models.FreeTrialRequest) (*models.FreeTrial, error) {
	in.Name = validation.SanitizeText(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = validation.SanitizeText(in.Address)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	ft := &models.FreeTrial{
		Name:    in.Name,
		Phone:   in.Phone,
		Address: in.Address,
		Status:  models.FreeTrialPending,
	}
	if err := s.repo.Create(ctx, ft); err != nil {
		return nil, &models.AppError{Code: models.CodeInternal, Message: "신청에 실패했습니다. 다시 시도해주세요.", Err: err}
	}
	return ft, nil
}
