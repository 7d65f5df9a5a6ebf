package service

import (
	"context"
	"strings"

	"littletimes/internal/models"
	"littletimes/internal/repository"
	"littletimes/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// IsAdmin reports whether the user holds the admin role. Lookup failures
// count as not admin.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, nil
	}
	return user.IsAdmin(), nil
}

// UpdateProfile applies the non-nil fields of in.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in models.ProfileUpdate) (*models.User, error) {
	if userID == 0 {
		return nil, errLoginRequired()
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = validation.SanitizeText(*in.Name)
	}
	if in.Grade != nil {
		fields["grade"] = strings.TrimSpace(*in.Grade)
	}
	if in.Avatar != nil {
		fields["avatar"] = strings.TrimSpace(*in.Avatar)
	}
	if in.Phone != nil {
		fields["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		fields["address"] = validation.SanitizeText(*in.Address)
	}

	if len(fields) > 0 {
		if err := s.userRepo.Updates(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.userRepo.GetByID(ctx, userID)
}
