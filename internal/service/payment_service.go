package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"littletimes/internal/featureflags"
	"littletimes/internal/middleware"
	"littletimes/internal/models"
	"littletimes/internal/observability"
	"littletimes/internal/payment"
	"littletimes/internal/repository"
	"littletimes/internal/validation"
)

// Virtual account checkout settings.
const (
	VirtualAccountValidHours = 72
	CashReceiptType          = "소득공제"
)

// PaymentConfirmer performs the server-side confirmation exchange.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*payment.Confirmation, error)
}

// PaymentConfig holds the public checkout settings. The secret key lives in
// the confirmer only.
type PaymentConfig struct {
	ClientKey       string
	PublicBaseURL   string
	PendingOrderTTL time.Duration
}

type PaymentService struct {
	subRepo  repository.SubscriptionRepository
	userRepo repository.UserRepository
	gateway  PaymentConfirmer
	flags    *featureflags.Manager
	cfg      PaymentConfig
	now      func() time.Time
}

func NewPaymentService(
	subRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	gateway PaymentConfirmer,
	flags *featureflags.Manager,
	cfg PaymentConfig,
) *PaymentService {
	if cfg.PendingOrderTTL <= 0 {
		cfg.PendingOrderTTL = VirtualAccountValidHours * time.Hour
	}
	return &PaymentService{
		subRepo:  subRepo,
		userRepo: userRepo,
		gateway:  gateway,
		flags:    flags,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Plans returns the product table.
func (s *PaymentService) Plans() []models.Plan {
	return models.Plans
}

// CreateSubscription stores a pending order for planID.
func (s *PaymentService) CreateSubscription(ctx context.Context, userID uint, in models.SubscriptionRequest) (*models.CheckoutResult, error) {
	if userID == 0 {
		return nil, errLoginRequired()
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	plan, ok := models.FindPlan(in.PlanID)
	if !ok {
		return nil, models.NewValidationError("유효하지 않은 구독 플랜입니다.")
	}

	sub := &models.Subscription{
		UserID:          userID,
		PlanType:        plan.ID,
		PlanName:        plan.Name,
		Amount:          plan.Price,
		PaymentMethod:   models.PaymentMethodPending,
		OrderID:         payment.NewOrderID(s.now()),
		Status:          models.SubscriptionPending,
		DeliveryName:    validation.SanitizeText(in.Delivery.Name),
		DeliveryPhone:   strings.TrimSpace(in.Delivery.Phone),
		DeliveryAddress: validation.SanitizeText(in.Delivery.Address),
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, err
	}
	return &models.CheckoutResult{
		Subscription: sub,
		OrderID:      sub.OrderID,
		Amount:       sub.Amount,
		PlanName:     sub.PlanName,
	}, nil
}

// ownedOrder loads orderID and checks it belongs to userID.
func (s *PaymentService) ownedOrder(ctx context.Context, userID uint, orderID string) (*models.Subscription, error) {
	sub, err := s.subRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, models.NewForbiddenError("본인의 주문만 결제할 수 있습니다.")
	}
	return sub, nil
}

// RequestPayment returns the parameters the checkout widget needs.
func (s *PaymentService) RequestPayment(ctx context.Context, userID uint, in models.PaymentRequestInput) (*models.PaymentRequest, error) {
	if userID == 0 {
		return nil, errLoginRequired()
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Method == models.PaymentMethodVirtualAccount && !s.flags.Enabled(featureflags.VirtualAccount, userID) {
		return nil, models.NewValidationError("지원하지 않는 결제 수단입니다.")
	}

	sub, err := s.ownedOrder(ctx, userID, in.OrderID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubscriptionPending {
		return nil, models.NewValidationError("결제할 수 없는 주문입니다.")
	}

	customer := sub.DeliveryName
	if user, err := s.userRepo.GetByID(ctx, userID); err == nil && user.Name != "" {
		customer = user.Name
	}

	req := &models.PaymentRequest{
		ClientKey:    s.cfg.ClientKey,
		Method:       payment.TossMethodCard,
		Amount:       sub.Amount,
		OrderID:      sub.OrderID,
		OrderName:    sub.PlanName,
		CustomerName: customer,
		SuccessURL:   s.cfg.PublicBaseURL + "/payment/success",
		FailURL:      s.cfg.PublicBaseURL + "/payment/fail",
	}
	if in.Method == models.PaymentMethodVirtualAccount {
		req.Method = payment.TossMethodVirtualAccount
		req.ValidHours = VirtualAccountValidHours
		req.CashReceiptType = CashReceiptType
	}
	return req, nil
}

// ConfirmPayment approves the payment with the gateway and marks the order
// paid. The amount must match the stored order before the gateway is called.
// Confirming an already paid order returns it unchanged.
func (s *PaymentService) ConfirmPayment(ctx context.Context, userID uint, in models.PaymentConfirmInput) (*models.Subscription, error) {
	if userID == 0 {
		return nil, errLoginRequired()
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	sub, err := s.ownedOrder(ctx, userID, in.OrderID)
	if err != nil {
		return nil, err
	}
	switch sub.Status {
	case models.SubscriptionPaid:
		return sub, nil
	case models.SubscriptionCancelled:
		return nil, models.NewValidationError("취소된 주문입니다.")
	}
	if sub.Amount != in.Amount {
		return nil, models.NewValidationError("결제 금액이 주문 금액과 일치하지 않습니다.")
	}

	conf, err := s.gateway.Confirm(ctx, in.PaymentKey, in.OrderID, in.Amount)
	if err != nil {
		observability.PaymentConfirmations.WithLabelValues("unknown", observability.ResultError).Inc()
		middleware.Logger.WarnContext(ctx, "payment confirmation failed",
			slog.String("order_id", in.OrderID),
			slog.String("error", err.Error()),
		)
		msg := "결제 승인에 실패했습니다."
		if gwErr, ok := payment.AsGatewayError(err); ok && gwErr.Message != "" {
			msg = gwErr.Message
		}
		return nil, models.NewPaymentError(msg, err)
	}

	start := s.now()
	end := models.SubscriptionEnd(sub.PlanType, start)
	sub.PaymentKey = in.PaymentKey
	sub.PaymentMethod = conf.NormalizedMethod()
	sub.Status = models.SubscriptionPaid
	sub.StartDate = &start
	sub.EndDate = &end
	if va := conf.VirtualAccount; va != nil {
		sub.VABankCode = va.BankCode
		sub.VAAccountNumber = va.AccountNumber
		sub.VACustomerName = va.CustomerName
		if due := va.DueTime(); !due.IsZero() {
			sub.VADueDate = &due
		}
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}

	observability.PaymentConfirmations.WithLabelValues(sub.PaymentMethod, observability.ResultOK).Inc()
	middleware.Logger.InfoContext(ctx, "payment confirmed",
		slog.String("order_id", sub.OrderID),
		slog.String("method", sub.PaymentMethod),
		slog.Int64("amount", sub.Amount),
	)
	return sub, nil
}

// FailPayment records a checkout failure. A pending order owned by the
// caller is cancelled; any other order is left alone.
func (s *PaymentService) FailPayment(ctx context.Context, userID uint, in models.PaymentFailInput) *models.PaymentFailure {
	out := &models.PaymentFailure{
		Code:    strings.TrimSpace(in.Code),
		Message: strings.TrimSpace(in.Message),
		OrderID: strings.TrimSpace(in.OrderID),
		Tips:    models.PaymentFailureTips,
	}
	if out.Message == "" {
		out.Message = "결제 처리 중 문제가 발생했습니다."
	}
	if out.OrderID == "" || userID == 0 {
		return out
	}

	sub, err := s.subRepo.GetByOrderID(ctx, out.OrderID)
	if err != nil || sub.UserID != userID || sub.Status != models.SubscriptionPending {
		return out
	}
	sub.Status = models.SubscriptionCancelled
	if err := s.subRepo.Save(ctx, sub); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to cancel order after payment failure",
			slog.String("order_id", sub.OrderID),
			slog.String("error", err.Error()),
		)
	}
	return out
}

func (s *PaymentService) UserSubscriptions(ctx context.Context, userID uint) ([]models.Subscription, error) {
	if userID == 0 {
		return nil, errLoginRequired()
	}
	subs, err := s.subRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	return subs, nil
}

// ActiveSubscription returns the current paid subscription or nil.
func (s *PaymentService) ActiveSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	if userID == 0 {
		return nil, errLoginRequired()
	}
	return s.subRepo.Active(ctx, userID, s.now())
}

// SweepPendingOrders cancels orders left unpaid past the payment window.
func (s *PaymentService) SweepPendingOrders(ctx context.Context) (int64, error) {
	n, err := s.subRepo.CancelPendingBefore(ctx, s.now().Add(-s.cfg.PendingOrderTTL))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.PendingOrdersCancelled.Add(float64(n))
	}
	return n, nil
}
