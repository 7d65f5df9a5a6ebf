// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Post represents a review on the board.
type Post struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Title     string `gorm:"not null" json:"title"`
	Content   string `gorm:"type:text;not null" json:"content"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	User      User   `gorm:"foreignKey:UserID" json:"-"`
	ViewCount int    `gorm:"not null;default:0" json:"view_count"`
	// LikeCount is denormalized; it always equals the number of Like rows.
	LikeCount int `gorm:"not null;default:0" json:"like_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int       `gorm:"->;-:migration" json:"comments_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Comment is a reply scoped to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Post      Post      `gorm:"foreignKey:PostID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Like marks that a user liked a post. A user holds at most one per post.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Author is the denormalized author block attached to posts and comments.
type Author struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Grade  string `json:"grade"`
	Avatar string `json:"avatar"`
	Email  string `json:"email,omitempty"`
}

// AuthorOf builds the public author block for u.
func AuthorOf(u User) Author {
	return Author{ID: u.ID, Name: u.Name, Grade: u.Grade, Avatar: u.Avatar}
}

// PostView is the response shape for a post.
type PostView struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Author        Author    `json:"author"`
	ViewCount     int       `json:"view_count"`
	LikeCount     int       `json:"like_count"`
	CommentsCount int       `json:"comments_count"`
	Liked         bool      `json:"liked"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewPostView maps a post with its preloaded user into a view.
func NewPostView(p *Post) PostView {
	return PostView{
		ID:            p.ID,
		Title:         p.Title,
		Content:       p.Content,
		Author:        AuthorOf(p.User),
		ViewCount:     p.ViewCount,
		LikeCount:     p.LikeCount,
		CommentsCount: p.CommentsCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// CommentView is the response shape for a comment.
type CommentView struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	PostTitle string    `json:"post_title,omitempty"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCommentView maps a comment with its preloaded user into a view.
func NewCommentView(c *Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		PostTitle: c.Post.Title,
		Content:   c.Content,
		Author:    AuthorOf(c.User),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// LikeResult reports the state after a like toggle.
type LikeResult struct {
	PostID    uint `json:"post_id"`
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// Page is a page of results with offset pagination metadata.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// NewPage computes total pages with ceiling division.
func NewPage[T any](items []T, total int64, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page[T]{Items: items, Total: total, Page: page, Limit: limit, TotalPages: pages}
}
