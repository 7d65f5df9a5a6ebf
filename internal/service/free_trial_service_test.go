package service

import (
	"context"
	"errors"
	"testing"

	"littletimes/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeTrialServiceCreateValidation(t *testing.T) {
	t.Parallel()

	repo := noopFreeTrialRepo()
	repo.createFn = func(context.Context, *models.FreeTrial) error {
		t.Fatal("repository must not be called for invalid input")
		return nil
	}
	svc := NewFreeTrialService(repo)

	tests := []struct {
		name string
		in   models.FreeTrialRequest
		msg  string
	}{
		{
			name: "short name",
			in:   models.FreeTrialRequest{Name: " 김 ", Phone: "010-1234-5678", Address: "서울시 마포구 1"},
			msg:  "이름은 2글자 이상 입력해주세요.",
		},
		{
			name: "short phone",
			in:   models.FreeTrialRequest{Name: "김하늘", Phone: "0101234", Address: "서울시 마포구 1"},
			msg:  "올바른 연락처를 입력해주세요.",
		},
		{
			name: "short address",
			in:   models.FreeTrialRequest{Name: "김하늘", Phone: "010-1234-5678", Address: "서울"},
			msg:  "상세한 주소를 입력해주세요.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Create(context.Background(), tt.in)
			appErr := assertValidationError(t, err)
			assert.Equal(t, tt.msg, appErr.Message)
		})
	}
}

func TestFreeTrialServiceCreate(t *testing.T) {
	t.Parallel()

	var stored models.FreeTrial
	repo := noopFreeTrialRepo()
	repo.createFn = func(_ context.Context, ft *models.FreeTrial) error {
		ft.ID = 3
		stored = *ft
		return nil
	}
	svc := NewFreeTrialService(repo)

	ft, err := svc.Create(context.Background(), models.FreeTrialRequest{
		Name: " 김하늘 ", Phone: " 010-1234-5678 ", Address: " 서울시 마포구 1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), ft.ID)
	assert.Equal(t, "김하늘", stored.Name)
	assert.Equal(t, "010-1234-5678", stored.Phone)
	assert.Equal(t, "서울시 마포구 1", stored.Address)
	assert.Equal(t, models.FreeTrialPending, stored.Status)
}

func TestFreeTrialServiceCreateRepoFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("insert failed")
	repo := noopFreeTrialRepo()
	repo.createFn = func(context.Context, *models.FreeTrial) error { return boom }
	svc := NewFreeTrialService(repo)

	_, err := svc.Create(context.Background(), models.FreeTrialRequest{
		Name: "김하늘", Phone: "010-1234-5678", Address: "서울시 마포구 1",
	})
	appErr := assertAppError(t, err, models.CodeInternal)
	assert.Equal(t, "신청에 실패했습니다. 다시 시도해주세요.", appErr.Message)
	assert.ErrorIs(t, err, boom)
}
