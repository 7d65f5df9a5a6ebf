package models

import (
	"time"
)

// Subscription statuses.
const (
	SubscriptionPending   = "pending"
	SubscriptionPaid      = "paid"
	SubscriptionCancelled = "cancelled"
)

// Payment methods accepted at checkout. PaymentMethodPending marks an order
// that has not been confirmed yet.
const (
	PaymentMethodPending        = "pending"
	PaymentMethodCard           = "card"
	PaymentMethodVirtualAccount = "virtual_account"
)

// Subscription is a newspaper delivery order. It is created pending before
// checkout and becomes paid only after the gateway confirms it.
type Subscription struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	PlanType        string     `gorm:"not null" json:"plan_type"`
	PlanName        string     `gorm:"not null" json:"plan_name"`
	Amount          int64      `gorm:"not null" json:"amount"`
	PaymentMethod   string     `gorm:"not null;default:pending" json:"payment_method"`
	PaymentKey      string     `json:"payment_key,omitempty"`
	OrderID         string     `gorm:"uniqueIndex;not null" json:"order_id"`
	Status          string     `gorm:"not null;default:pending;index" json:"status"`
	DeliveryName    string     `gorm:"not null" json:"delivery_name"`
	DeliveryPhone   string     `gorm:"not null" json:"delivery_phone"`
	DeliveryAddress string     `gorm:"not null" json:"delivery_address"`
	VABankCode      string     `gorm:"column:virtual_account_bank_code" json:"virtual_account_bank_code,omitempty"`
	VAAccountNumber string     `gorm:"column:virtual_account_number" json:"virtual_account_number,omitempty"`
	VACustomerName  string     `gorm:"column:virtual_account_customer_name" json:"virtual_account_customer_name,omitempty"`
	VADueDate       *time.Time `gorm:"column:virtual_account_due_date" json:"virtual_account_due_date,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `gorm:"index" json:"end_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DeliveryInfo is where the paper is shipped.
type DeliveryInfo struct {
	Name    string `json:"name" validate:"trimmed_min=1" msg:"배송 정보를 모두 입력해주세요."`
	Phone   string `json:"phone" validate:"trimmed_min=1" msg:"배송 정보를 모두 입력해주세요."`
	Address string `json:"address" validate:"trimmed_min=1" msg:"배송 정보를 모두 입력해주세요."`
}

// CheckoutResult is returned when a pending order is created.
type CheckoutResult struct {
	Subscription *Subscription `json:"subscription"`
	OrderID      string        `json:"order_id"`
	Amount       int64         `json:"amount"`
	PlanName     string        `json:"plan_name"`
}

// PaymentRequest carries what the browser checkout widget needs to open the
// hosted payment window. It never includes the secret key.
type PaymentRequest struct {
	ClientKey       string `json:"client_key"`
	Method          string `json:"method"`
	Amount          int64  `json:"amount"`
	OrderID         string `json:"order_id"`
	OrderName       string `json:"order_name"`
	CustomerName    string `json:"customer_name"`
	SuccessURL      string `json:"success_url"`
	FailURL         string `json:"fail_url"`
	ValidHours      int    `json:"valid_hours,omitempty"`
	CashReceiptType string `json:"cash_receipt_type,omitempty"`
}

// PaymentFailure is the body of the payment failure route.
type PaymentFailure struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	OrderID string   `json:"order_id,omitempty"`
	Tips    []string `json:"tips"`
}

// PaymentFailureTips are shown whenever checkout fails.
var PaymentFailureTips = []string{
	"카드 한도 및 잔액이 충분한지 확인해주세요",
	"카드 정보를 정확하게 입력했는지 확인해주세요",
	"인터넷 연결이 안정적인지 확인해주세요",
	"문제가 계속되면 고객센터로 문의해주세요",
}
