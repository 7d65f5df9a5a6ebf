package models

// Request bodies shared by the API handlers and the Go client. The msg tag
// is the message shown when the field fails validation.

// RegisterRequest is the sign-up form. Fields are validated in declaration
// order, so a password mismatch is reported before anything else.
type RegisterRequest struct {
	PasswordConfirm string `json:"password_confirm" validate:"eqfield=Password" msg:"비밀번호가 일치하지 않습니다."`
	Password        string `json:"password" validate:"min=6" msg:"비밀번호는 6자 이상이어야 합니다."`
	Name            string `json:"name" validate:"trimmed_min=2,max=50" msg:"이름을 2자 이상 입력해주세요."`
	Grade           string `json:"grade" validate:"required" msg:"학년을 선택해주세요."`
	Avatar          string `json:"avatar" validate:"required" msg:"아바타를 선택해주세요."`
	Email           string `json:"email" validate:"required,email" msg:"올바른 이메일 주소를 입력해주세요."`
	Phone           string `json:"phone,omitempty" validate:"max=32" msg:"연락처가 너무 깁니다."`
	Address         string `json:"address,omitempty" validate:"max=300" msg:"주소가 너무 깁니다."`
}

// LoginRequest is the e-mail/password sign-in form.
type LoginRequest struct {
	Email    string `json:"email" validate:"required" msg:"이메일과 비밀번호를 입력해주세요."`
	Password string `json:"password" validate:"required" msg:"이메일과 비밀번호를 입력해주세요."`
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	Name    *string `json:"name,omitempty" validate:"omitnil,trimmed_min=2,max=50" msg:"이름을 2자 이상 입력해주세요."`
	Grade   *string `json:"grade,omitempty" validate:"omitnil,trimmed_min=1" msg:"학년을 선택해주세요."`
	Avatar  *string `json:"avatar,omitempty" validate:"omitnil,trimmed_min=1" msg:"아바타를 선택해주세요."`
	Phone   *string `json:"phone,omitempty" validate:"omitnil,max=32" msg:"연락처가 너무 깁니다."`
	Address *string `json:"address,omitempty" validate:"omitnil,max=300" msg:"주소가 너무 깁니다."`
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Grade == nil && p.Avatar == nil && p.Phone == nil && p.Address == nil
}

// PostRequest is the body of post create and update.
type PostRequest struct {
	Title   string `json:"title" validate:"trimmed_min=1,max=200" msg:"제목을 입력해주세요."`
	Content string `json:"content" validate:"trimmed_min=10" msg:"내용을 10자 이상 입력해주세요."`
}

// CommentRequest is the body of comment create and update.
type CommentRequest struct {
	Content string `json:"content" validate:"trimmed_min=1,max=2000" msg:"댓글 내용을 입력해주세요."`
}

// FreeTrialRequest is the public sample-issue form.
type FreeTrialRequest struct {
	Name    string `json:"name" validate:"trimmed_min=2,max=50" msg:"이름은 2글자 이상 입력해주세요."`
	Phone   string `json:"phone" validate:"trimmed_min=10,max=32" msg:"올바른 연락처를 입력해주세요."`
	Address string `json:"address" validate:"trimmed_min=5,max=300" msg:"상세한 주소를 입력해주세요."`
}

// SubscriptionRequest starts checkout for a plan.
type SubscriptionRequest struct {
	PlanID   string       `json:"plan_id" validate:"required" msg:"유효하지 않은 구독 플랜입니다."`
	Delivery DeliveryInfo `json:"delivery"`
}

// PaymentRequestInput asks for the checkout widget parameters of an order.
type PaymentRequestInput struct {
	OrderID string `json:"order_id" validate:"required" msg:"주문 번호가 필요합니다."`
	Method  string `json:"method" validate:"oneof=card virtual_account" msg:"지원하지 않는 결제 수단입니다."`
}

// PaymentConfirmInput is what the success redirect hands back.
type PaymentConfirmInput struct {
	PaymentKey string `json:"payment_key" validate:"required" msg:"결제 정보가 올바르지 않습니다."`
	OrderID    string `json:"order_id" validate:"required" msg:"결제 정보가 올바르지 않습니다."`
	Amount     int64  `json:"amount" validate:"gt=0" msg:"결제 금액이 올바르지 않습니다."`
}

// PaymentFailInput is what the fail redirect hands back.
type PaymentFailInput struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}

// RoleUpdate is the admin role change body.
type RoleUpdate struct {
	Role string `json:"role" validate:"oneof=user admin" msg:"유효하지 않은 권한입니다."`
}

// FreeTrialStatusUpdate is the admin status change body.
type FreeTrialStatusUpdate struct {
	Status string `json:"status" validate:"oneof=pending contacted completed cancelled" msg:"유효하지 않은 상태입니다."`
}
