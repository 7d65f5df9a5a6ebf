package repository

import (
	"context"
	"errors"
	"time"

	"littletimes/internal/cache"
	"littletimes/internal/models"
	"littletimes/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	List(ctx context.Context, limit, offset int) ([]models.Post, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	IncrementView(ctx context.Context, id uint) error
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, userID, postID uint) (*models.LikeResult, error)
	HasLiked(ctx context.Context, userID, postID uint) (bool, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withCommentCount selects posts with their computed comment count.
func withCommentCount(db *gorm.DB) *gorm.DB {
	return db.Select("posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count")
}

// List returns posts newest first with authors and comment counts.
func (r *postRepository) List(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	defer observability.TrackQuery("list", "posts")()

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	err := withCommentCount(r.db.WithContext(ctx).Model(&models.Post{})).
		Preload("User").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()

	var post models.Post
	err := withCommentCount(r.db.WithContext(ctx).Model(&models.Post{})).
		Preload("User").
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// IncrementView bumps the view counter in the database, never from a value
// read by the caller.
func (r *postRepository) IncrementView(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePostsList(ctx)
	return nil
}

// Update writes title and content only.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{"title": post.Title, "content": post.Content, "updated_at": time.Now()})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	cache.InvalidatePostsList(ctx)
	return nil
}

// Delete removes the post with its comments and likes.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePostsList(ctx)
	return nil
}

// ToggleLike flips the caller's like in a single transaction. The counter
// moves only by the rows the delete or insert actually affected, so it
// stays equal to the number of like rows under concurrent toggles.
func (r *postRepository) ToggleLike(ctx context.Context, userID, postID uint) (*models.LikeResult, error) {
	defer observability.TrackQuery("toggle_like", "likes")()

	result := &models.LikeResult{PostID: postID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", postID)
			}
			return err
		}

		del := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if del.Error != nil {
			return del.Error
		}

		if del.RowsAffected > 0 {
			result.Liked = false
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("like_count", gorm.Expr("like_count - ?", del.RowsAffected)).Error; err != nil {
				return err
			}
		} else {
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Like{PostID: postID, UserID: userID})
			if ins.Error != nil {
				return ins.Error
			}
			result.Liked = true
			if ins.RowsAffected > 0 {
				if err := tx.Model(&models.Post{}).Where("id = ?", postID).
					UpdateColumn("like_count", gorm.Expr("like_count + ?", ins.RowsAffected)).Error; err != nil {
					return err
				}
			}
		}

		return tx.Model(&models.Post{}).Select("like_count").Where("id = ?", postID).
			Row().Scan(&result.LikeCount)
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	cache.InvalidatePostsList(ctx)
	return result, nil
}

func (r *postRepository) HasLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}
