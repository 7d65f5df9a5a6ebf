// Package main provides admin management utilities for Little Times.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"littletimes/internal/config"
	"littletimes/internal/database"
	"littletimes/internal/models"
	"littletimes/internal/repository"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin promote <email>   - Promote user to admin")
		fmt.Println("  go run ./cmd/admin demote <email>    - Demote admin to user")
		fmt.Println("  go run ./cmd/admin list-admins       - List all admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	users := repository.NewUserRepository(db)
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <email>\n", command)
			os.Exit(1)
		}
		role := models.RoleAdmin
		if command == "demote" {
			role = models.RoleUser
		}
		if err := setRole(ctx, users, os.Args[2], role); err != nil {
			log.Fatal(err)
		}
	case "list-admins":
		listAdmins(db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setRole(ctx context.Context, users repository.UserRepository, email, role string) error {
	user, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return fmt.Errorf("user with email %s not found", email)
		}
		return fmt.Errorf("database error: %w", err)
	}

	if user.Role == role {
		fmt.Printf("%s (ID: %d) already has role %s\n", user.Email, user.ID, role)
		return nil
	}
	if err := users.UpdateRole(ctx, user.ID, role); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	fmt.Printf("✅ %s (ID: %d) is now %s\n", user.Email, user.ID, role)
	return nil
}

func listAdmins(db *gorm.DB) {
	var admins []models.User
	if err := db.Where("role = ?", models.RoleAdmin).Order("id").Find(&admins).Error; err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("\n📋 Current Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Name: %s | Email: %s\n", admin.ID, admin.Name, admin.Email)
	}
	fmt.Println("─────────────────────────────────────")
}
