package service

import (
	"context"
	"strconv"

	"littletimes/internal/cache"
	"littletimes/internal/models"
	"littletimes/internal/observability"
	"littletimes/internal/repository"
	"littletimes/internal/validation"
)

// Board page sizes.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type PostService struct {
	postRepo repository.PostRepository
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
}

type CreatePostInput struct {
	UserID  uint
	Title   string
	Content string
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   string
	Content string
}

func NewPostService(
	postRepo repository.PostRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		postRepo: postRepo,
		isAdmin:  isAdmin,
	}
}

// ListPosts returns one board page, newest first. Pages are cached briefly
// and dropped on every board write.
func (s *PostService) ListPosts(ctx context.Context, page, limit int) (*models.Page[models.PostView], error) {
	page = normalizePage(page)
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	var out models.Page[models.PostView]
	err := cache.Aside(ctx, cache.PostsListKey(page, limit), &out, cache.ListTTL, func() error {
		posts, total, err := s.postRepo.List(ctx, limit, (page-1)*limit)
		if err != nil {
			return err
		}
		views := make([]models.PostView, len(posts))
		for i := range posts {
			views[i] = models.NewPostView(&posts[i])
		}
		out = models.NewPage(views, total, page, limit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPost counts a view and returns the post. viewerID may be zero.
func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*models.PostView, error) {
	if err := s.postRepo.IncrementView(ctx, id); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := models.NewPostView(post)
	if viewerID != 0 {
		liked, err := s.postRepo.HasLiked(ctx, viewerID, id)
		if err != nil {
			return nil, err
		}
		view.Liked = liked
	}
	return &view, nil
}

func cleanPost(title, content string) (models.PostRequest, error) {
	req := models.PostRequest{
		Title:   validation.SanitizeText(title),
		Content: validation.SanitizeText(content),
	}
	return req, validateInput(req)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.PostView, error) {
	if in.UserID == 0 {
		return nil, errLoginRequired()
	}
	req, err := cleanPost(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	post := &models.Post{Title: req.Title, Content: req.Content, UserID: in.UserID}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.view(ctx, post.ID)
}

// UpdatePost lets the author change title and content.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.PostView, error) {
	if in.UserID == 0 {
		return nil, errLoginRequired()
	}
	req, err := cleanPost(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("본인이 작성한 글만 수정할 수 있습니다.")
	}

	post.Title, post.Content = req.Title, req.Content
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.view(ctx, post.ID)
}

// DeletePost removes a post for its author or an admin.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	if userID == 0 {
		return errLoginRequired()
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewForbiddenError("본인이 작성한 글만 삭제할 수 있습니다.")
		}
	}
	return s.postRepo.Delete(ctx, postID)
}

// ToggleLike flips the caller's like. Repeated calls alternate.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*models.LikeResult, error) {
	if userID == 0 {
		return nil, errLoginRequired()
	}
	res, err := s.postRepo.ToggleLike(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	observability.LikeToggles.WithLabelValues(strconv.FormatBool(res.Liked)).Inc()
	return res, nil
}

// LikeStatus reports whether the caller liked the post and its like count.
func (s *PostService) LikeStatus(ctx context.Context, userID, postID uint) (*models.LikeResult, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	res := &models.LikeResult{PostID: postID, LikeCount: post.LikeCount}
	if userID != 0 {
		if res.Liked, err = s.postRepo.HasLiked(ctx, userID, postID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *PostService) view(ctx context.Context, id uint) (*models.PostView, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := models.NewPostView(post)
	return &v, nil
}
