package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
	// TimeNow is used to set the blob update time, mainly for testing.
	TimeNow func() time.Time
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	return nil
}

// Repository is a SQLite implementation of storage.BlobRepository.
//
// Multiple processes can share the same database file, each one sees the
// writes of the others through ListBlobsSince.
type Repository struct {
	db      *sql.DB
	timeNow func() time.Time
	logger  log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", blobsDSN(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	version, err := migrateBlobSchema(ctx, db, cfg.Logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cfg.Logger.Debugf("Blob store ready at %s (schema v%d)", cfg.DBPath, version)

	return &Repository{db: db, timeNow: cfg.TimeNow, logger: cfg.Logger}, nil
}

// blobsDSN enables WAL so the tabs of other processes can read while one writes,
// and takes the write lock at the start of each transaction to keep revisions ordered.
func blobsDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

func migrateBlobSchema(ctx context.Context, db *sql.DB, logger log.Logger) (uint, error) {
	migrator, err := migrations.NewMigrator(migrations.MigratorConfig{DB: db, Logger: logger})
	if err != nil {
		return 0, fmt.Errorf("could not create migrator: %w", err)
	}

	if err := migrator.Up(ctx); err != nil {
		return 0, fmt.Errorf("could not migrate blob schema: %w", err)
	}

	version, dirty, err := migrator.Version(ctx)
	if err != nil {
		return 0, err
	}
	if dirty {
		return 0, fmt.Errorf("blob schema v%d is dirty", version)
	}

	return version, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// GetBlob retrieves the blob of a key.
func (r *Repository) GetBlob(ctx context.Context, key string) (*model.Blob, error) {
	query := `
		SELECT key, value, revision, writer_id, updated_at
		FROM blobs
		WHERE key = ?
	`

	b, err := scanRow(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("blob %s: %w", key, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query blob: %w", err)
	}

	return &b, nil
}

// PutBlob stores a blob assigning it the next revision.
func (r *Repository) PutBlob(ctx context.Context, b model.Blob) (model.Blob, error) {
	if b.Key == "" {
		return model.Blob{}, fmt.Errorf("blob key is required: %w", model.ErrNotValid)
	}
	if b.Value == nil {
		b.Value = []byte{}
	}
	b.UpdatedAt = r.timeNow().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Blob{}, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO blob_revisions (key) VALUES (?)`, b.Key)
	if err != nil {
		return model.Blob{}, fmt.Errorf("could not insert revision: %w", err)
	}
	b.Revision, err = res.LastInsertId()
	if err != nil {
		return model.Blob{}, fmt.Errorf("could not get revision: %w", err)
	}

	query := `
		INSERT INTO blobs (key, value, revision, writer_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			revision = excluded.revision,
			writer_id = excluded.writer_id,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query, b.Key, b.Value, b.Revision, b.WriterID, b.UpdatedAt.UnixMilli())
	if err != nil {
		return model.Blob{}, fmt.Errorf("could not upsert blob: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Blob{}, fmt.Errorf("could not commit blob: %w", err)
	}

	r.logger.Debugf("Stored blob %s at revision %d", b.Key, b.Revision)
	return b, nil
}

// ListBlobsSince returns the blobs written after the revision.
func (r *Repository) ListBlobsSince(ctx context.Context, revision int64) ([]model.Blob, error) {
	query := `
		SELECT key, value, revision, writer_id, updated_at
		FROM blobs
		WHERE revision > ?
		ORDER BY revision ASC
	`

	rows, err := r.db.QueryContext(ctx, query, revision)
	if err != nil {
		return nil, fmt.Errorf("could not query blobs: %w", err)
	}
	defer rows.Close()

	blobs := []model.Blob{}
	for rows.Next() {
		b, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		blobs = append(blobs, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return blobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (model.Blob, error) {
	var b model.Blob
	var updatedAt int64

	err := s.Scan(&b.Key, &b.Value, &b.Revision, &b.WriterID, &updatedAt)
	if err != nil {
		return model.Blob{}, err
	}
	b.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return b, nil
}
