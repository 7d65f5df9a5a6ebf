package service

import (
	"context"

	"littletimes/internal/models"
	"littletimes/internal/repository"
)

// AdminPageSize is the fixed page size of every admin list.
const AdminPageSize = 20

// AdminService backs the back-office. Callers are checked for the admin
// role by the route middleware.
type AdminService struct {
	userRepo      repository.UserRepository
	postRepo      repository.PostRepository
	commentRepo   repository.CommentRepository
	freeTrialRepo repository.FreeTrialRepository
	statsRepo     repository.StatsRepository
}

func NewAdminService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	freeTrialRepo repository.FreeTrialRepository,
	statsRepo repository.StatsRepository,
) *AdminService {
	return &AdminService{
		userRepo:      userRepo,
		postRepo:      postRepo,
		commentRepo:   commentRepo,
		freeTrialRepo: freeTrialRepo,
		statsRepo:     statsRepo,
	}
}

func (s *AdminService) Stats(ctx context.Context) (*models.Stats, error) {
	return s.statsRepo.Get(ctx)
}

func adminOffset(page int) (int, int) {
	page = normalizePage(page)
	return page, (page - 1) * AdminPageSize
}

// Posts lists every post with the author's e-mail.
func (s *AdminService) Posts(ctx context.Context, page int) (*models.Page[models.PostView], error) {
	page, offset := adminOffset(page)
	posts, total, err := s.postRepo.List(ctx, AdminPageSize, offset)
	if err != nil {
		return nil, err
	}
	views := make([]models.PostView, len(posts))
	for i := range posts {
		views[i] = models.NewPostView(&posts[i])
		views[i].Author.Email = posts[i].User.Email
	}
	out := models.NewPage(views, total, page, AdminPageSize)
	return &out, nil
}

// Comments lists every comment with its post title and author e-mail.
func (s *AdminService) Comments(ctx context.Context, page int) (*models.Page[models.CommentView], error) {
	page, offset := adminOffset(page)
	comments, total, err := s.commentRepo.List(ctx, AdminPageSize, offset)
	if err != nil {
		return nil, err
	}
	views := make([]models.CommentView, len(comments))
	for i := range comments {
		views[i] = models.NewCommentView(&comments[i])
		views[i].Author.Email = comments[i].User.Email
	}
	out := models.NewPage(views, total, page, AdminPageSize)
	return &out, nil
}

func (s *AdminService) Users(ctx context.Context, page int) (*models.Page[models.User], error) {
	page, offset := adminOffset(page)
	users, total, err := s.userRepo.List(ctx, AdminPageSize, offset)
	if err != nil {
		return nil, err
	}
	out := models.NewPage(users, total, page, AdminPageSize)
	return &out, nil
}

func (s *AdminService) FreeTrials(ctx context.Context, page int) (*models.Page[models.FreeTrial], error) {
	page, offset := adminOffset(page)
	items, total, err := s.freeTrialRepo.List(ctx, AdminPageSize, offset)
	if err != nil {
		return nil, err
	}
	out := models.NewPage(items, total, page, AdminPageSize)
	return &out, nil
}

func (s *AdminService) DeletePost(ctx context.Context, id uint) error {
	return s.postRepo.Delete(ctx, id)
}

func (s *AdminService) DeleteComment(ctx context.Context, id uint) error {
	return s.commentRepo.Delete(ctx, id)
}

// UpdateUserRole sets the target's role. Admins cannot demote themselves.
func (s *AdminService) UpdateUserRole(ctx context.Context, actorID, targetID uint, in models.RoleUpdate) (*models.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if actorID == targetID && in.Role != models.RoleAdmin {
		return nil, models.NewValidationError("자신의 관리자 권한은 해제할 수 없습니다.")
	}
	if err := s.userRepo.UpdateRole(ctx, targetID, in.Role); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}

func (s *AdminService) UpdateFreeTrialStatus(ctx context.Context, id uint, in models.FreeTrialStatusUpdate) error {
	if err := validateInput(in); err != nil {
		return err
	}
	return s.freeTrialRepo.UpdateStatus(ctx, id, in.Status)
}
