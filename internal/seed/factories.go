// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"littletimes/internal/models"
	"littletimes/internal/payment"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{
		db:   db,
		opts: opts,
		//nolint:gosec // Weak random number generator is fine for seeding
		rng:    rand.New(rand.NewSource(seed)),
		nextID: 1000,
	}
}

func (f *Factory) assignID(id *uint) {
	f.nextID++
	*id = f.nextID
}

// createdAt returns a timestamp spread over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

func (f *Factory) koreanName() string {
	return gofakeit.RandomString(familyNames) + gofakeit.RandomString(givenNames)
}

// CreateUser constructs and persists a sample reader.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	confirmed := time.Now()
	user := &models.User{
		Email:            gofakeit.Email(),
		Name:             f.koreanName(),
		Grade:            gofakeit.RandomString(models.Grades),
		Avatar:           gofakeit.RandomString(avatars),
		Phone:            fmt.Sprintf("010-%04d-%04d", gofakeit.Number(0, 9999), gofakeit.Number(0, 9999)),
		Address:          fmt.Sprintf("%s %s", gofakeit.RandomString(regions), gofakeit.Street()),
		Role:             models.RoleUser,
		EmailConfirmedAt: &confirmed,
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = DemoPassword
	} else {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.assignID(&user.ID)
		log.Printf("[dry-run] CreateUser: %s <%s>", user.Name, user.Email)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a review by user without persisting it.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	created := f.createdAt()
	post := &models.Post{
		Title:     gofakeit.RandomString(reviewTitles),
		Content:   fmt.Sprintf(gofakeit.RandomString(reviewBodies), gofakeit.RandomString(topics)),
		UserID:    user.ID,
		ViewCount: f.rng.Intn(300),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.assignID(&p.ID)
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	return f.db.CreateInBatches(posts, 100).Error
}

// CreatePost constructs and persists a sample review for the given user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, overrides...)
	if err := f.CreatePostsBatch([]*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment constructs and persists a sample comment on the provided
// post authored by the provided user.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Content:   gofakeit.RandomString(comments),
		UserID:    user.ID,
		PostID:    post.ID,
		CreatedAt: post.CreatedAt.Add(time.Duration(f.rng.Intn(72)) * time.Hour),
	}
	comment.UpdatedAt = comment.CreatedAt

	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		f.assignID(&comment.ID)
		return comment, nil
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on post and bumps its counter in the
// same transaction.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		post.LikeCount++
		return nil
	}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		return err
	}
	post.LikeCount++
	return nil
}

// CreateFreeTrial persists a sample-issue request in a random status.
func (f *Factory) CreateFreeTrial(overrides ...func(*models.FreeTrial)) (*models.FreeTrial, error) {
	created := f.createdAt()
	ft := &models.FreeTrial{
		Name:      f.koreanName(),
		Phone:     fmt.Sprintf("010-%04d-%04d", gofakeit.Number(0, 9999), gofakeit.Number(0, 9999)),
		Address:   fmt.Sprintf("%s %s", gofakeit.RandomString(regions), gofakeit.Street()),
		Status:    gofakeit.RandomString(models.FreeTrialStatuses),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(ft)
	}

	if f.opts.DryRun {
		f.assignID(&ft.ID)
		return ft, nil
	}
	if err := f.db.Create(ft).Error; err != nil {
		return nil, err
	}
	return ft, nil
}

// CreateSubscription persists a paid card subscription to plan for user.
func (f *Factory) CreateSubscription(user *models.User, plan models.Plan, overrides ...func(*models.Subscription)) (*models.Subscription, error) {
	start := time.Now().AddDate(0, 0, -f.rng.Intn(20))
	end := models.SubscriptionEnd(plan.ID, start)
	sub := &models.Subscription{
		UserID:          user.ID,
		PlanType:        plan.ID,
		PlanName:        plan.Name,
		Amount:          plan.Price,
		PaymentMethod:   models.PaymentMethodCard,
		PaymentKey:      "seed_" + gofakeit.UUID(),
		OrderID:         payment.NewOrderID(start),
		Status:          models.SubscriptionPaid,
		DeliveryName:    user.Name,
		DeliveryPhone:   user.Phone,
		DeliveryAddress: user.Address,
		StartDate:       &start,
		EndDate:         &end,
		CreatedAt:       start,
		UpdatedAt:       start,
	}
	for _, override := range overrides {
		override(sub)
	}

	if f.opts.DryRun {
		f.assignID(&sub.ID)
		return sub, nil
	}
	if err := f.db.Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}
