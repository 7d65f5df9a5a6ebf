// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"littletimes/internal/models"

	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers      int
	NumPosts      int
	NumFreeTrials int
	ShouldClean   bool
	// SkipBcrypt stores the plain demo password. Development only.
	SkipBcrypt bool
	// DryRun builds entities without writing them.
	DryRun bool
	// MaxDays spreads created_at over the last MaxDays days.
	MaxDays int
}

// Report counts what a run created.
type Report struct {
	Users         int
	Posts         int
	Comments      int
	Likes         int
	FreeTrials    int
	Subscriptions int
}

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

var (
	familyNames = []string{"김", "이", "박", "최", "정", "강", "조", "윤", "장", "임", "한", "오", "서", "신", "권"}
	givenNames  = []string{
		"민준", "서연", "도윤", "서윤", "하준", "지우", "시우", "하은", "주원", "지유",
		"예준", "수아", "지호", "지아", "준우", "윤서", "건우", "채원", "우진", "다은",
	}
	avatars = []string{"🐻", "🐰", "🦊", "🐼", "🐯", "🐨", "🐸", "🐧", "🦁", "🐶"}

	reviewTitles = []string{
		"이번 주 과학 기사가 정말 재미있었어요",
		"우리 반 친구들과 같이 읽었어요",
		"환경 이야기를 읽고 분리수거를 시작했어요",
		"낱말 퍼즐이 너무 좋아요",
		"역사 만화 코너 최고예요",
		"엄마랑 같이 읽는 신문",
		"우주 특집 또 해주세요",
		"동물 기사 보고 사육사가 꿈이 됐어요",
	}
	reviewBodies = []string{
		"매주 신문이 오는 날만 기다려요. 오늘은 %s 기사를 읽고 가족들에게 설명해 줬어요.",
		"어려운 뉴스도 쉽게 풀어 줘서 좋아요. 특히 %s 이야기가 기억에 남아요.",
		"학교 발표 시간에 %s 기사를 소개했더니 선생님이 칭찬해 주셨어요!",
		"동생이랑 %s 코너를 오려서 스크랩북을 만들었어요. 다음 호도 기대돼요.",
	}
	topics   = []string{"공룡", "화성 탐사", "기후 변화", "올림픽", "한글날", "바다 생물", "로봇", "세계 여러 나라"}
	comments = []string{
		"저도 그 기사 좋았어요!",
		"다음 호도 같이 읽어요 😊",
		"우와 대단해요!",
		"저희 반에서도 읽었어요.",
		"스크랩북 아이디어 좋네요.",
		"저는 퍼즐이 제일 재밌어요.",
	}
	regions = []string{"서울시 강남구", "부산시 해운대구", "대구시 수성구", "인천시 연수구", "경기도 성남시 분당구", "광주시 서구", "대전시 유성구"}
)

// Seed populates the database with demo data.
func Seed(db *gorm.DB, opts Options) (*Report, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			log.Printf("⚠️  Warning: could not clear existing data: %v", err)
		}
	}

	f := NewFactory(db, opts)
	report := &Report{}
	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser(func(u *models.User) {
			u.Email = fmt.Sprintf("reader%03d@littletimes.test", i+1)
		})
		if err != nil {
			return report, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)
	}
	report.Users = len(users)
	log.Printf("✓ %d readers created", report.Users)
	if len(users) == 0 {
		return report, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		posts = append(posts, f.BuildPost(users[r.Intn(len(users))]))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return report, fmt.Errorf("failed to create posts: %w", err)
	}
	report.Posts = len(posts)
	log.Printf("✓ %d reviews created", report.Posts)

	for _, post := range posts {
		for n := r.Intn(4); n > 0; n-- {
			if _, err := f.CreateComment(users[r.Intn(len(users))], post); err != nil {
				return report, fmt.Errorf("failed to create comments: %w", err)
			}
			report.Comments++
		}
		// Distinct likers only; a user likes a post at most once.
		for _, idx := range r.Perm(len(users))[:r.Intn(len(users)+1)] {
			if err := f.CreateLike(users[idx], post); err != nil {
				return report, fmt.Errorf("failed to create likes: %w", err)
			}
			report.Likes++
		}
	}
	log.Printf("✓ %d comments and %d likes created", report.Comments, report.Likes)

	for i := 0; i < opts.NumFreeTrials; i++ {
		if _, err := f.CreateFreeTrial(); err != nil {
			return report, fmt.Errorf("failed to create free trials: %w", err)
		}
		report.FreeTrials++
	}

	// Every third reader gets a paid subscription.
	for i := 0; i < len(users); i += 3 {
		plan := models.Plans[r.Intn(len(models.Plans))]
		if _, err := f.CreateSubscription(users[i], plan); err != nil {
			return report, fmt.Errorf("failed to create subscriptions: %w", err)
		}
		report.Subscriptions++
	}

	log.Println("🎉 Database seeding completed successfully!")
	return report, nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE likes, comments, posts, subscriptions, free_trials, email_confirmations, users RESTART IDENTITY CASCADE;`).Error
	}
	for _, model := range []interface{}{
		&models.Like{}, &models.Comment{}, &models.Post{}, &models.Subscription{},
		&models.FreeTrial{}, &models.EmailConfirmation{}, &models.User{},
	} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
