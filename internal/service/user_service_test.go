package service

import (
	"context"
	"errors"
	"testing"

	"littletimes/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserServiceIsAdmin(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		switch id {
		case 1:
			return &models.User{ID: 1, Role: models.RoleAdmin}, nil
		case 2:
			return &models.User{ID: 2, Role: models.RoleUser}, nil
		}
		return nil, errors.New("db down")
	}
	svc := NewUserService(repo)

	tests := []struct {
		id   uint
		want bool
	}{
		{id: 1, want: true},
		{id: 2, want: false},
		{id: 3, want: false},
		{id: 0, want: false},
	}
	for _, tt := range tests {
		got, err := svc.IsAdmin(context.Background(), tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "user %d", tt.id)
	}
}

func TestUserServiceUpdateProfile(t *testing.T) {
	t.Parallel()

	var fields map[string]interface{}
	repo := noopUserRepo()
	repo.updatesFn = func(_ context.Context, id uint, f map[string]interface{}) error {
		fields = f
		return nil
	}
	svc := NewUserService(repo)

	_, err := svc.UpdateProfile(context.Background(), 5, models.ProfileUpdate{
		Name:    strPtr(" <b>하린</b> "),
		Avatar:  strPtr("🦊"),
		Address: strPtr("서울시 <i>강남구</i>"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"name":    "하린",
		"avatar":  "🦊",
		"address": "서울시 강남구",
	}, fields)
}

func TestUserServiceUpdateProfileValidation(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.updatesFn = func(context.Context, uint, map[string]interface{}) error {
		t.Fatal("repository must not be called for invalid input")
		return nil
	}
	svc := NewUserService(repo)

	_, err := svc.UpdateProfile(context.Background(), 5, models.ProfileUpdate{Name: strPtr(" 가 ")})
	appErr := assertValidationError(t, err)
	assert.Equal(t, "이름을 2자 이상 입력해주세요.", appErr.Message)

	_, err = svc.UpdateProfile(context.Background(), 0, models.ProfileUpdate{Name: strPtr("하린")})
	assertUnauthorizedError(t, err)
}

func TestUserServiceUpdateProfileEmptySkipsWrite(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.updatesFn = func(context.Context, uint, map[string]interface{}) error {
		t.Fatal("no columns to write")
		return nil
	}
	svc := NewUserService(repo)

	user, err := svc.UpdateProfile(context.Background(), 5, models.ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, uint(5), user.ID)
}
