package database

import (
	"context"
	"fmt"

	"littletimes/internal/config"
	"littletimes/internal/middleware"

	"github.com/jackc/pgx/v5"
)

// EnsureDatabase creates cfg.DBName through the maintenance database when
// it does not exist yet.
func EnsureDatabase(ctx context.Context, cfg *config.Config) (bool, error) {
	conn, err := pgx.Connect(ctx, DSN(cfg, "postgres"))
	if err != nil {
		return false, fmt.Errorf("connect maintenance database: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName).Scan(&exists); err != nil {
		return false, fmt.Errorf("look up database %q: %w", cfg.DBName, err)
	}
	if exists {
		return false, nil
	}

	// CREATE DATABASE does not accept bind parameters.
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{cfg.DBName}.Sanitize()); err != nil {
		return false, fmt.Errorf("create database %q: %w", cfg.DBName, err)
	}
	middleware.Logger.Info("Database created", "name", cfg.DBName)
	return true, nil
}
