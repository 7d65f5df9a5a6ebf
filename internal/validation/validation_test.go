package validation

import (
	"errors"
	"strings"
	"testing"

	"littletimes/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() models.RegisterRequest {
	return models.RegisterRequest{
		Email:           "reader@example.com",
		Password:        "secret1",
		PasswordConfirm: "secret1",
		Name:            "김하늘",
		Grade:           "초등 3학년",
		Avatar:          "🐰",
	}
}

func TestStruct_Registration(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *models.RegisterRequest)
		wantMsg string
	}{
		{"valid", func(r *models.RegisterRequest) {}, ""},
		{"mismatch wins over short", func(r *models.RegisterRequest) {
			r.Password = "abc"
			r.PasswordConfirm = "abd"
		}, "비밀번호가 일치하지 않습니다."},
		{"short password", func(r *models.RegisterRequest) {
			r.Password = "abc12"
			r.PasswordConfirm = "abc12"
		}, "비밀번호는 6자 이상이어야 합니다."},
		{"name is spaces", func(r *models.RegisterRequest) { r.Name = "  김  " }, "이름을 2자 이상 입력해주세요."},
		{"no grade", func(r *models.RegisterRequest) { r.Grade = "" }, "학년을 선택해주세요."},
		{"no avatar", func(r *models.RegisterRequest) { r.Avatar = "" }, "아바타를 선택해주세요."},
		{"bad email", func(r *models.RegisterRequest) { r.Email = "reader" }, "올바른 이메일 주소를 입력해주세요."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRegistration()
			tt.mutate(&r)
			err := Struct(r)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantMsg, verr.Message)
		})
	}
}

func TestStruct_TwoRuneKoreanNameIsEnough(t *testing.T) {
	r := validRegistration()
	r.Name = "하늘"
	assert.NoError(t, Struct(r))
}

func TestStruct_PostContentCountsRunes(t *testing.T) {
	assert.NoError(t, Struct(models.PostRequest{Title: "후기", Content: "열 글자가 넘는 후기입니다"}))
	err := Struct(models.PostRequest{Title: "후기", Content: "   짧은 글   "})
	assert.EqualError(t, err, "내용을 10자 이상 입력해주세요.")
	err = Struct(models.PostRequest{Title: "   ", Content: strings.Repeat("가", 10)})
	assert.EqualError(t, err, "제목을 입력해주세요.")
}

func TestStruct_NestedDelivery(t *testing.T) {
	err := Struct(models.SubscriptionRequest{
		PlanID:   "3months",
		Delivery: models.DeliveryInfo{Name: "김하늘", Phone: "01012345678"},
	})
	assert.EqualError(t, err, "배송 정보를 모두 입력해주세요.")
}

func TestStruct_ProfileUpdateSkipsUnsetFields(t *testing.T) {
	assert.NoError(t, Struct(models.ProfileUpdate{}))
	short := "김"
	assert.EqualError(t, Struct(models.ProfileUpdate{Name: &short}), "이름을 2자 이상 입력해주세요.")
	empty := ""
	assert.EqualError(t, Struct(models.ProfileUpdate{Grade: &empty}), "학년을 선택해주세요.")
}

func TestStruct_FreeTrial(t *testing.T) {
	assert.NoError(t, Struct(models.FreeTrialRequest{Name: "박보람", Phone: "010-1234-5678", Address: "서울시 마포구 1"}))
	assert.EqualError(t, Struct(models.FreeTrialRequest{Name: "박보람", Phone: "0101234", Address: "서울시 마포구 1"}), "올바른 연락처를 입력해주세요.")
	assert.EqualError(t, Struct(models.FreeTrialRequest{Name: "박보람", Phone: "01012345678", Address: "서울"}), "상세한 주소를 입력해주세요.")
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email(" reader@example.com "))
	assert.Error(t, Email(""))
	assert.Error(t, Email("not-an-email"))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeText("<b>hello</b> <script>alert(1)</script>world"))
	assert.Equal(t, "A & B", SanitizeText("  A & B "))
	assert.Equal(t, `"민준's" 일기`, SanitizeText(`"민준's" 일기`))
}

func TestSanitizeTextKeepsEncodedMarkupInert(t *testing.T) {
	for _, in := range []string{
		"&lt;script&gt;alert(1)&lt;/script&gt; 안녕하세요 반갑습니다",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;",
		"&#60;b&#62;굵게&#60;/b&#62;",
	} {
		out := SanitizeText(in)
		assert.NotContains(t, out, "<", in)
		assert.NotContains(t, out, ">", in)
	}
}
