package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shape/pkg/database"
	"shape/pkg/logger"
)

type Migration struct {
	Name string
	// Statements holds the DDL per dialect, applied in order.
	Statements map[database.Dialect][]string
}

type MigrationService struct {
	db      *sql.DB
	dialect database.Dialect
	logger  logger.Logger
}

func NewMigrationService(db *sql.DB, dialect database.Dialect, logger logger.Logger) *MigrationService {
	return &MigrationService{
		db:      db,
		dialect: dialect,
		logger:  logger.Named("migrations"),
	}
}

var migrations = []Migration{
	{
		Name: "create_users_table",
		Statements: map[database.Dialect][]string{
			database.DialectPostgres: {
				`CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(60) NOT NULL,
					email VARCHAR(120) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL,
					CONSTRAINT users_email_key UNIQUE (email)
				)`,
			},
			database.DialectSQLite: {
				`CREATE TABLE IF NOT EXISTS users (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name VARCHAR(60) NOT NULL,
					email VARCHAR(120) NOT NULL UNIQUE,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
			},
		},
	},
}

func (m *MigrationService) initMigrationTable(ctx context.Context) error {
	appliedAtType := "TIMESTAMPTZ"
	if m.dialect == database.DialectSQLite {
		appliedAtType = "DATETIME"
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name VARCHAR(255) PRIMARY KEY,
		applied_at %s NOT NULL
	)`, appliedAtType)

	if _, err := m.db.ExecContext(ctx, query); err != nil {
		m.logger.Error("Failed to create migration table", map[string]interface{}{"error": err.Error()})
		return err
	}

	return nil
}

func (m *MigrationService) isApplied(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE name = $1", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	return count > 0, nil
}

// apply runs one migration and its bookkeeping row in a single transaction.
// It reports whether anything was applied.
func (m *MigrationService) apply(ctx context.Context, migration Migration) (applied bool, err error) {
	statements, ok := migration.Statements[m.dialect]
	if !ok {
		return false, fmt.Errorf("migration %s has no statements for dialect %s", migration.Name, m.dialect)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			m.logger.Error("Migration rolled back", map[string]interface{}{"name": migration.Name, "error": err.Error()})
		}
	}()

	done, err := m.isApplied(ctx, tx, migration.Name)
	if err != nil {
		return false, err
	}
	if done {
		err = tx.Rollback()
		return false, err
	}

	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("failed to apply migration %s: %w", migration.Name, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (name, applied_at) VALUES ($1, $2)",
		migration.Name, time.Now().UTC(),
	); err != nil {
		return false, fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit migration %s: %w", migration.Name, err)
	}

	return true, nil
}

// RunMigrations applies every pending migration and returns how many ran.
func (m *MigrationService) RunMigrations(ctx context.Context) (int, error) {
	if m.dialect == database.DialectMemory {
		m.logger.Info("In-memory store needs no migrations", nil)
		return 0, nil
	}

	if err := m.initMigrationTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migration table: %w", err)
	}

	count := 0
	for _, migration := range migrations {
		applied, err := m.apply(ctx, migration)
		if err != nil {
			return count, err
		}
		if applied {
			count++
			m.logger.Info("Migration applied", map[string]interface{}{"name": migration.Name})
		} else {
			m.logger.Debug("Migration already applied", map[string]interface{}{"name": migration.Name})
		}
	}

	return count, nil
}
