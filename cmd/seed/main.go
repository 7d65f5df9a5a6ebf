// Command main runs the database seeder for Little Times.
package main

import (
	"flag"
	"log"

	"littletimes/internal/config"
	"littletimes/internal/database"
	"littletimes/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of readers to create")
	numPosts := flag.Int("posts", 60, "Number of reviews to create")
	numTrials := flag.Int("trials", 10, "Number of free-trial requests to create")
	maxDays := flag.Int("days", 90, "Spread content over the last N days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store the demo password unhashed (faster, logins will fail)")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, %d trials, clean=%v\n", *numUsers, *numPosts, *numTrials, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	report, err := seed.Seed(db, seed.Options{
		NumUsers:      *numUsers,
		NumPosts:      *numPosts,
		NumFreeTrials: *numTrials,
		MaxDays:       *maxDays,
		ShouldClean:   *shouldClean,
		SkipBcrypt:    *skipBcrypt,
		DryRun:        *dryRun,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("users=%d posts=%d comments=%d likes=%d trials=%d subscriptions=%d",
		report.Users, report.Posts, report.Comments, report.Likes, report.FreeTrials, report.Subscriptions)
	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DemoPassword)
}
