package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"littletimes/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "재미있어요", Content: "이번 호 신문이 정말 재미있었어요", UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_IncrementViewUsesExpression(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		rowsAffected int64
		expectedCode string
	}{
		{name: "Existing post", rowsAffected: 1},
		{name: "Missing post", rowsAffected: 0, expectedCode: models.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "view_count"=view_count + 1 WHERE id = $1`)).
				WithArgs(7).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))
			mock.ExpectCommit()

			err := repo.IncrementView(ctx, 7)
			if tt.expectedCode != "" {
				assert.True(t, models.HasCode(err, tt.expectedCode), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: "독자 " + email[:1], Grade: "초등 2학년", Avatar: "🐰"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedPost(t *testing.T, db *gorm.DB, userID uint, title string, created time.Time) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Content: "아이와 함께 읽기 좋은 신문이에요", UserID: userID, CreatedAt: created}
	require.NoError(t, db.Omit("User").Create(p).Error)
	return p
}

func TestPostRepository_ListAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "a@example.com")
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	older := seedPost(t, db, author.ID, "첫 번째", base)
	newer := seedPost(t, db, author.ID, "두 번째", base.Add(time.Hour))
	require.NoError(t, db.Create(&models.Comment{PostID: older.ID, UserID: author.ID, Content: "좋아요"}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: older.ID, UserID: author.ID, Content: "저도요"}).Error)

	posts, total, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, posts, 2)
	assert.Equal(t, newer.ID, posts[0].ID)
	assert.Equal(t, 0, posts[0].CommentsCount)
	assert.Equal(t, 2, posts[1].CommentsCount)
	assert.Equal(t, author.Name, posts[1].User.Name)

	page2, _, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, older.ID, page2[0].ID)

	got, err := repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "첫 번째", got.Title)
	assert.Equal(t, 2, got.CommentsCount)
	assert.Equal(t, "🐰", got.User.Avatar)

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_ListPagesNewestFirst(t *testing.T) {
	day := func(n int) time.Time { return time.Date(2026, 3, n, 9, 0, 0, 0, time.UTC) }

	tests := []struct {
		name      string
		posts     int
		page      int
		limit     int
		wantDays  []int
		wantTotal int64
	}{
		{name: "25 posts page 2 of 10", posts: 25, page: 2, limit: 10, wantDays: []int{15, 14, 13, 12, 11, 10, 9, 8, 7, 6}, wantTotal: 25},
		{name: "25 posts last page", posts: 25, page: 3, limit: 10, wantDays: []int{5, 4, 3, 2, 1}, wantTotal: 25},
		{name: "3 posts page 1 of 2", posts: 3, page: 1, limit: 2, wantDays: []int{3, 2}, wantTotal: 3},
		{name: "3 posts page 2 of 2", posts: 3, page: 2, limit: 2, wantDays: []int{1}, wantTotal: 3},
		{name: "past the end", posts: 3, page: 3, limit: 2, wantDays: []int{}, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTestDB(t)
			repo := NewPostRepository(db)
			author := seedUser(t, db, "p@example.com")

			byID := map[uint]int{}
			for d := 1; d <= tt.posts; d++ {
				p := seedPost(t, db, author.ID, "게시글", day(d))
				byID[p.ID] = d
			}

			posts, total, err := repo.List(context.Background(), tt.limit, (tt.page-1)*tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			gotDays := make([]int, 0, len(posts))
			for _, p := range posts {
				gotDays = append(gotDays, byID[p.ID])
			}
			assert.Equal(t, tt.wantDays, gotDays)
		})
	}
}

func TestPostRepository_IncrementViewAndUpdate(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "a@example.com")
	post := seedPost(t, db, author.ID, "제목", time.Now())

	require.NoError(t, repo.IncrementView(ctx, post.ID))
	require.NoError(t, repo.IncrementView(ctx, post.ID))

	post.Title = "바뀐 제목"
	post.Content = "바뀐 내용도 열 글자를 넘어요"
	require.NoError(t, repo.Update(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount)
	assert.Equal(t, "바뀐 제목", got.Title)

	err = repo.Update(ctx, &models.Post{ID: 999, Title: "x", Content: "y"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_ToggleLikeAlternates(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "a@example.com")
	post := seedPost(t, db, author.ID, "좋아요 테스트", time.Now())

	res, err := repo.ToggleLike(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, res.LikeCount)

	liked, err := repo.HasLiked(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	res, err = repo.ToggleLike(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, 0, res.LikeCount)

	liked, err = repo.HasLiked(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestPostRepository_ToggleLikeCounterMatchesRows(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "a@example.com")
	post := seedPost(t, db, author.ID, "인기 글", time.Now())
	readers := []*models.User{author, seedUser(t, db, "b@example.com"), seedUser(t, db, "c@example.com")}

	for _, u := range readers {
		_, err := repo.ToggleLike(ctx, u.ID, post.ID)
		require.NoError(t, err)
	}
	res, err := repo.ToggleLike(ctx, readers[1].ID, post.ID)
	require.NoError(t, err)
	assert.False(t, res.Liked)

	var rows int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&rows).Error)
	assert.EqualValues(t, 2, rows)
	assert.Equal(t, int(rows), res.LikeCount)
}

func TestPostRepository_ToggleLikeMissingPost(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepository(db)

	_, err := repo.ToggleLike(context.Background(), 1, 404)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_DeleteCascades(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "a@example.com")
	post := seedPost(t, db, author.ID, "삭제될 글", time.Now())
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: author.ID, Content: "댓글"}).Error)
	_, err := repo.ToggleLike(ctx, author.ID, post.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, post.ID))

	var comments, likes int64
	db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments)
	db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes)
	assert.Zero(t, comments)
	assert.Zero(t, likes)

	err = repo.Delete(ctx, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
