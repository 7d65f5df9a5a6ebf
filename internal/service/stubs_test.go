package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"littletimes/internal/models"
	"littletimes/internal/notify"
	"littletimes/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn           func(context.Context, uint) (*models.User, error)
	getByEmailFn        func(context.Context, string) (*models.User, error)
	getByOAuthSubjectFn func(context.Context, string, string) (*models.User, error)
	createFn            func(context.Context, *models.User) error
	updatesFn           func(context.Context, uint, map[string]interface{}) error
	updateRoleFn        func(context.Context, uint, string) error
	listFn              func(context.Context, int, int) ([]models.User, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByOAuthSubject(ctx context.Context, provider, subject string) (*models.User, error) {
	return s.getByOAuthSubjectFn(ctx, provider, subject)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Updates(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updatesFn(ctx, id, fields)
}
func (s *userRepoStub) UpdateRole(ctx context.Context, id uint, role string) error {
	return s.updateRoleFn(ctx, id, role)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	return s.listFn(ctx, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Name: "테스터", Role: models.RoleUser}, nil
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", email)
		},
		getByOAuthSubjectFn: func(_ context.Context, p, s string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", p+":"+s)
		},
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			return nil
		},
		updatesFn:    func(_ context.Context, _ uint, _ map[string]interface{}) error { return nil },
		updateRoleFn: func(_ context.Context, _ uint, _ string) error { return nil },
		listFn:       func(_ context.Context, _, _ int) ([]models.User, int64, error) { return nil, 0, nil },
	}
}

// confirmationRepoStub is a stub for repository.ConfirmationRepository.
type confirmationRepoStub struct {
	createFn  func(context.Context, *models.EmailConfirmation) error
	consumeFn func(context.Context, string, time.Time) (uint, error)
}

func (s *confirmationRepoStub) Create(ctx context.Context, c *models.EmailConfirmation) error {
	return s.createFn(ctx, c)
}
func (s *confirmationRepoStub) Consume(ctx context.Context, hash string, now time.Time) (uint, error) {
	return s.consumeFn(ctx, hash, now)
}

func noopConfirmationRepo() *confirmationRepoStub {
	return &confirmationRepoStub{
		createFn:  func(_ context.Context, _ *models.EmailConfirmation) error { return nil },
		consumeFn: func(_ context.Context, _ string, _ time.Time) (uint, error) { return 1, nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	listFn          func(context.Context, int, int) ([]models.Post, int64, error)
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	incrementViewFn func(context.Context, uint) error
	createFn        func(context.Context, *models.Post) error
	updateFn        func(context.Context, *models.Post) error
	deleteFn        func(context.Context, uint) error
	toggleLikeFn    func(context.Context, uint, uint) (*models.LikeResult, error)
	hasLikedFn      func(context.Context, uint, uint) (bool, error)
}

func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) IncrementView(ctx context.Context, id uint) error {
	return s.incrementViewFn(ctx, id)
}
func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, userID, postID uint) (*models.LikeResult, error) {
	return s.toggleLikeFn(ctx, userID, postID)
}
func (s *postRepoStub) HasLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.hasLikedFn(ctx, userID, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		listFn: func(_ context.Context, _, _ int) ([]models.Post, int64, error) { return nil, 0, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1}, nil
		},
		incrementViewFn: func(_ context.Context, _ uint) error { return nil },
		createFn:        func(_ context.Context, _ *models.Post) error { return nil },
		updateFn:        func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		toggleLikeFn: func(_ context.Context, _, postID uint) (*models.LikeResult, error) {
			return &models.LikeResult{PostID: postID, Liked: true, LikeCount: 1}, nil
		},
		hasLikedFn: func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByPostFn func(context.Context, uint) ([]models.Comment, error)
	listFn       func(context.Context, int, int) ([]models.Comment, int64, error)
	updateFn     func(context.Context, *models.Comment) error
	deleteFn     func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) List(ctx context.Context, limit, offset int) ([]models.Comment, int64, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *commentRepoStub) Update(ctx context.Context, c *models.Comment) error {
	return s.updateFn(ctx, c)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, UserID: 1, PostID: 1}, nil
		},
		listByPostFn: func(_ context.Context, _ uint) ([]models.Comment, error) { return nil, nil },
		listFn:       func(_ context.Context, _, _ int) ([]models.Comment, int64, error) { return nil, 0, nil },
		updateFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
	}
}

// subRepoStub is an in-memory repository.SubscriptionRepository keyed by
// order id.
type subRepoStub struct {
	mu      sync.Mutex
	byOrder map[string]*models.Subscription
	saves   int
	nextID  uint
	cancel  func(context.Context, time.Time) (int64, error)
}

func newSubRepoStub(subs ...*models.Subscription) *subRepoStub {
	s := &subRepoStub{byOrder: map[string]*models.Subscription{}}
	for _, sub := range subs {
		s.byOrder[sub.OrderID] = sub
	}
	return s
}

func (s *subRepoStub) Create(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub.ID = s.nextID
	cp := *sub
	s.byOrder[sub.OrderID] = &cp
	return nil
}

func (s *subRepoStub) GetByOrderID(_ context.Context, orderID string) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.byOrder[orderID]
	if !ok {
		return nil, models.NewNotFoundError("Subscription", orderID)
	}
	cp := *sub
	return &cp, nil
}

func (s *subRepoStub) Save(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	cp := *sub
	s.byOrder[sub.OrderID] = &cp
	return nil
}

func (s *subRepoStub) ListByUser(_ context.Context, userID uint) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Subscription
	for _, sub := range s.byOrder {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *subRepoStub) Active(_ context.Context, userID uint, now time.Time) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.Subscription
	for _, sub := range s.byOrder {
		if sub.UserID != userID || sub.Status != models.SubscriptionPaid || sub.EndDate == nil || sub.EndDate.Before(now) {
			continue
		}
		if best == nil || sub.EndDate.After(*best.EndDate) {
			best = sub
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *subRepoStub) CancelPendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.cancel(ctx, cutoff)
}

func (s *subRepoStub) get(orderID string) *models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byOrder[orderID]
}

// freeTrialRepoStub is a stub for repository.FreeTrialRepository.
type freeTrialRepoStub struct {
	createFn       func(context.Context, *models.FreeTrial) error
	listFn         func(context.Context, int, int) ([]models.FreeTrial, int64, error)
	updateStatusFn func(context.Context, uint, string) error
}

func (s *freeTrialRepoStub) Create(ctx context.Context, ft *models.FreeTrial) error {
	return s.createFn(ctx, ft)
}
func (s *freeTrialRepoStub) List(ctx context.Context, limit, offset int) ([]models.FreeTrial, int64, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *freeTrialRepoStub) UpdateStatus(ctx context.Context, id uint, status string) error {
	return s.updateStatusFn(ctx, id, status)
}

func noopFreeTrialRepo() *freeTrialRepoStub {
	return &freeTrialRepoStub{
		createFn:       func(_ context.Context, _ *models.FreeTrial) error { return nil },
		listFn:         func(_ context.Context, _, _ int) ([]models.FreeTrial, int64, error) { return nil, 0, nil },
		updateStatusFn: func(_ context.Context, _ uint, _ string) error { return nil },
	}
}

type statsRepoStub struct {
	stats *models.Stats
	err   error
}

func (s *statsRepoStub) Get(context.Context) (*models.Stats, error) { return s.stats, s.err }

// mailerStub records every message it is asked to deliver.
type mailerStub struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *mailerStub) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *mailerStub) Transport() string { return "stub" }

func (m *mailerStub) messages() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.sent...)
}

// gatewayStub is a stub PaymentConfirmer that counts calls.
type gatewayStub struct {
	calls     int
	confirmFn func(context.Context, string, string, int64) (*payment.Confirmation, error)
}

func (g *gatewayStub) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*payment.Confirmation, error) {
	g.calls++
	return g.confirmFn(ctx, paymentKey, orderID, amount)
}

func isAdminStub(admin bool) func(context.Context, uint) (bool, error) {
	return func(context.Context, uint) (bool, error) { return admin, nil }
}

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) *models.AppError {
	t.Helper()
	return assertAppError(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) *models.AppError {
	t.Helper()
	return assertAppError(t, err, models.CodeUnauthorized)
}

func assertForbiddenError(t *testing.T, err error) *models.AppError {
	t.Helper()
	return assertAppError(t, err, models.CodeForbidden)
}
