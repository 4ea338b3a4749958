package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/slok/taskflow/internal/log"
)

//go:embed sql/*.sql
var schemaFS embed.FS

const schemaDir = "sql"

// MigratorConfig is the configuration of the blob schema migrator.
type MigratorConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *MigratorConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "sqlite.Migrator"})

	return nil
}

// Migrator keeps the blob tables schema of a database up to date.
type Migrator struct {
	db     *sql.DB
	logger log.Logger
}

// NewMigrator returns a migrator of the embedded blob schema.
func NewMigrator(cfg MigratorConfig) (*Migrator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Migrator{db: cfg.DB, logger: cfg.Logger}, nil
}

// Up moves the schema to the latest version.
func (m *Migrator) Up(ctx context.Context) error {
	return m.step(ctx, "up", (*migrate.Migrate).Up)
}

// Down removes the whole schema, blobs included.
func (m *Migrator) Down(ctx context.Context) error {
	return m.step(ctx, "down", (*migrate.Migrate).Down)
}

// Version returns the applied schema version, 0 when nothing has been applied yet.
// Dirty is set when a migration failed in the middle.
func (m *Migrator) Version(ctx context.Context) (version uint, dirty bool, err error) {
	err = m.withMigrate(ctx, func(mg *migrate.Migrate) error {
		version, dirty, err = mg.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("could not get schema version: %w", err)
	}

	return version, dirty, nil
}

func (m *Migrator) step(ctx context.Context, direction string, fn func(*migrate.Migrate) error) error {
	changed := true
	err := m.withMigrate(ctx, func(mg *migrate.Migrate) error {
		err := fn(mg)
		if errors.Is(err, migrate.ErrNoChange) {
			changed = false
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("could not migrate schema %s: %w", direction, err)
	}

	if changed {
		m.logger.Debugf("Blob schema migrated %s", direction)
	}
	return nil
}

// withMigrate runs fn with a migrate instance over the embedded schema files.
// The database is not closed afterwards, it's owned by the caller.
func (m *Migrator) withMigrate(_ context.Context, fn func(*migrate.Migrate) error) error {
	src, err := iofs.New(schemaFS, schemaDir)
	if err != nil {
		return fmt.Errorf("could not load schema files: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			m.logger.Warningf("could not close schema files: %s", err)
		}
	}()

	driver, err := sqlite3.WithInstance(m.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite driver: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	return fn(mg)
}
