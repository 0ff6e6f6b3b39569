package db

import (
	"embed"
	"errors"
	"fmt"
	"regexp"

	"github.com/diewo77/go-submittals/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var identRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Migrate runs AutoMigrate for all models and, on postgres, makes sure the
// quote number sequence exists.
// Call this at application startup or as part of a migration step.
func Migrate(db *gorm.DB, sequenceName string, sequenceStart int64) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	if IsPostgres(db) {
		return EnsureSequence(db, sequenceName, sequenceStart)
	}
	return nil
}

// EnsureSequence creates the named postgres sequence when missing.
func EnsureSequence(db *gorm.DB, name string, start int64) error {
	if !identRegex.MatchString(name) {
		return fmt.Errorf("invalid sequence name %q", name)
	}
	return db.Exec(fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START WITH %d", name, start)).Error
}

// RunSQLMigrations applies the embedded SQL migrations with golang-migrate.
// dsn may be in either form; it is converted to a URL.
func RunSQLMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, ToURLDSN(NormalizeDSN(dsn)))
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// HasCoreTables reports whether the tables the workflow needs exist.
func HasCoreTables(db *gorm.DB) error {
	for _, table := range []string{"customers", "submittals", "quote_options", "jobs"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}
