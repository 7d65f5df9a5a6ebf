// Command migrate manages the Little Times database schema.
//
//	go run ./cmd/migrate create-db   create DB_NAME if it is missing
//	go run ./cmd/migrate up          apply pending SQL migrations
//	go run ./cmd/migrate auto        run GORM AutoMigrate
//	go run ./cmd/migrate status      show the schema plan and pending versions
//	go run ./cmd/migrate down <n>    roll back migration n
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"littletimes/internal/config"
	"littletimes/internal/database"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: go run ./cmd/migrate <create-db|up|auto|status|down> [version]")

func main() {
	flag.Parse()
	if err := run(context.Background(), flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cmd := strings.ToLower(strings.TrimSpace(args[0]))
	if cmd == "create-db" {
		created, err := database.EnsureDatabase(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		log.Printf("database %s ready (created=%t)", cfg.DBName, created)
		return nil
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		return printStatus(ctx, db, cfg)
	case "down":
		if len(args) < 2 {
			return errUsage
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back migration %d", version)
	default:
		return errUsage
	}
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	log.Printf("mode=%s env=%s sql=%t auto=%t applied=%d pending=%d current=%t",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
		len(status.AppliedVersions), len(status.PendingMigrations), status.Current())
	for _, m := range status.PendingMigrations {
		log.Printf("pending: %s", m.String())
	}
	for _, v := range status.UnknownVersions {
		log.Printf("applied but unknown to this build: %06d", v)
	}
	return nil
}
