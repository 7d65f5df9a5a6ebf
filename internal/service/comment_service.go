package service

import (
	"context"

	"littletimes/internal/models"
	"littletimes/internal/repository"
	"littletimes/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
}

type CreateCommentInput struct {
	UserID  uint
	PostID  uint
	Content string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		isAdmin:     isAdmin,
	}
}

// ListComments returns a post's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]models.CommentView, error) {
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	out := make([]models.CommentView, len(comments))
	for i := range comments {
		out[i] = models.NewCommentView(&comments[i])
	}
	return out, nil
}

func cleanComment(content string) (models.CommentRequest, error) {
	req := models.CommentRequest{Content: validation.SanitizeText(content)}
	return req, validateInput(req)
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.CommentView, error) {
	if in.UserID == 0 {
		return nil, errLoginRequired()
	}
	req, err := cleanComment(in.Content)
	if err != nil {
		return nil, err
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	comment := &models.Comment{Content: req.Content, UserID: in.UserID, PostID: in.PostID}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.view(ctx, comment.ID)
}

// UpdateComment lets the author change the content.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.CommentView, error) {
	if in.UserID == 0 {
		return nil, errLoginRequired()
	}
	req, err := cleanComment(in.Content)
	if err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("본인이 작성한 댓글만 수정할 수 있습니다.")
	}

	comment.Content = req.Content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.view(ctx, comment.ID)
}

// DeleteComment removes a comment for its author or an admin.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	if userID == 0 {
		return errLoginRequired()
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewForbiddenError("본인이 작성한 댓글만 삭제할 수 있습니다.")
		}
	}
	return s.commentRepo.Delete(ctx, commentID)
}

func (s *CommentService) view(ctx context.Context, id uint) (*models.CommentView, error) {
	c, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := models.NewCommentView(c)
	return &v, nil
}
