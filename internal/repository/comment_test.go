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
)

func TestCommentRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	comment := &models.Comment{Content: "저도 재밌게 읽었어요!", PostID: 1, UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, comment)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ListByPostOldestFirst(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" WHERE post_id = $1 ORDER BY created_at ASC, id ASC`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "user_id"}).
			AddRow(1, "Comment 1", 101).
			AddRow(2, "Comment 2", 102))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" IN ($1,$2)`)).
		WithArgs(101, 102).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(101, "user101").
			AddRow(102, "user102"))

	comments, err := repo.ListByPost(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, comments, 2)
	assert.Equal(t, "Comment 1", comments[0].Content)
	assert.Equal(t, "user102", comments[1].User.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_AdminListCarriesPostTitle(t *testing.T) {
	db := openTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "a@example.com")
	post := seedPost(t, db, author.ID, "우리 동네 소식", time.Now())
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.Comment{
			PostID: post.ID, UserID: author.ID, Content: "댓글", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	items, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))
	assert.Equal(t, "우리 동네 소식", items[0].Post.Title)
	assert.Equal(t, author.Name, items[0].User.Name)
}

func TestCommentRepository_UpdateAndDelete(t *testing.T) {
	db := openTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "a@example.com")
	post := seedPost(t, db, author.ID, "글", time.Now())
	c := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "처음"}
	require.NoError(t, repo.Create(ctx, c))

	c.Content = "고쳤어요"
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "고쳤어요", got.Content)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.GetByID(ctx, c.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.True(t, models.HasCode(repo.Delete(ctx, c.ID), models.CodeNotFound))
}
