package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"littletimes/internal/config"
	"littletimes/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	// SchemaModeHybrid applies the SQL migrations and, outside production
	// and staging, lets AutoMigrate add columns the migrations lag behind on.
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan is what ApplySchema will run for a config.
type schemaPlan struct {
	mode string
	sql  bool
	auto bool
}

// SchemaStatus describes what ApplySchema would do.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	// UnknownVersions are applied versions with no registered migration,
	// usually left behind by a newer build.
	UnknownVersions []int
}

// Current reports whether no registered migration is pending.
func (s *SchemaStatus) Current() bool {
	return len(s.PendingMigrations) == 0
}

var protectedEnvs = []string{"production", "prod", "staging", "stage"}

func isProtectedEnv(env string) bool {
	return slices.Contains(protectedEnvs, strings.ToLower(strings.TrimSpace(env)))
}

func normalizedSchemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{mode: normalizedSchemaMode(cfg)}
	protected := isProtectedEnv(cfg.Env)

	switch plan.mode {
	case SchemaModeSQL:
		plan.sql = true
	case SchemaModeHybrid:
		plan.sql, plan.auto = true, !protected
	case SchemaModeAuto:
		if protected && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %q unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.auto = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q (want %s, %s or %s)", plan.mode, SchemaModeHybrid, SchemaModeSQL, SchemaModeAuto)
	}
	return plan, nil
}

// ApplySchema brings the board, subscription and free-trial tables up to
// date according to the configured mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.auto {
		return nil
	}

	middleware.Logger.Info("Running GORM AutoMigrate",
		slog.String("mode", plan.mode),
		slog.String("env", cfg.Env),
		slog.Int("models", len(PersistentModels())),
	)
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema plan and the state of the SQL
// migrations. Versions are only read when the plan runs SQL.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.sql,
		WillRunAutoMigrate: plan.auto,
	}
	if !plan.sql {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	registered := GetMigrations()
	status.AppliedVersions = applied
	status.PendingMigrations, status.UnknownVersions = diffMigrations(applied, registered)
	return status, nil
}

// diffMigrations splits registered migrations not yet applied from applied
// versions this build does not know about.
func diffMigrations(applied []int, registered []Migration) (pending []Migration, unknown []int) {
	known := make(map[int]bool, len(registered))
	for _, m := range registered {
		known[m.Version] = true
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
		if !known[v] {
			unknown = append(unknown, v)
		}
	}
	for _, m := range registered {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending, unknown
}
