package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/arturoeanton/go-rag-qa/internal/adapter/store/migrations"
	"github.com/arturoeanton/go-rag-qa/internal/domain"
	"github.com/arturoeanton/go-rag-qa/internal/port"
)

// Dialect identifies the SQL database behind a Store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var (
	_ port.DocumentStore    = (*Store)(nil)
	_ port.InteractionStore = (*Store)(nil)
	_ port.Purger           = (*Store)(nil)
)

// Store handles all relational database operations: documents, chunks and interactions.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open picks the driver from databaseURL: postgres:// and postgresql:// URLs use
// Postgres, anything else is treated as a SQLite file path (an optional
// sqlite:// prefix is stripped). The schema is migrated before returning.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	var (
		s   *Store
		err error
	)
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		s, err = NewPostgresStore(databaseURL)
	} else {
		s, err = NewSQLiteStore(strings.TrimPrefix(databaseURL, "sqlite://"))
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore opens a Postgres connection pool.
func NewPostgresStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, dialect: DialectPostgres}, nil
}

// NewSQLiteStore opens (creating if needed) a SQLite database file in WAL mode
// with foreign keys enforced on every connection.
func NewSQLiteStore(path string) (*Store, error) {
	if path == "" {
		path = "rag.db"
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, dialect: DialectSQLite}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the database flavour.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// --- Migrations ---

// Migrate applies every pending NNN_*.up.sql file for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	dir := string(s.dialect)
	entries, err := fs.ReadDir(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		body, err := fs.ReadFile(migrations.FS, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := s.applyMigration(ctx, version, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, version int, body string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO schema_migrations (version) VALUES (?)"), version); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Interactions ---

// AppendInteraction stores one answered question. ID and CreatedAt are filled when empty.
func (s *Store) AppendInteraction(ctx context.Context, in *domain.Interaction) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	query := s.rebind(`INSERT INTO interactions (id, question, answer, context, created_at)
	                   VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, in.ID, in.Question, in.Answer, in.Context, in.CreatedAt); err != nil {
		return fmt.Errorf("%w: append interaction: %w", port.ErrStorage, err)
	}
	return nil
}

// ListInteractions returns interactions newest first. limit <= 0 returns all of them.
func (s *Store) ListInteractions(ctx context.Context, limit int) ([]domain.Interaction, error) {
	query := `SELECT id, question, answer, context, created_at
	          FROM interactions
	          ORDER BY created_at DESC, seq DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list interactions: %w", port.ErrStorage, err)
	}
	defer rows.Close()

	interactions := []domain.Interaction{}
	for rows.Next() {
		var in domain.Interaction
		if err := rows.Scan(&in.ID, &in.Question, &in.Answer, &in.Context, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan interaction: %w", port.ErrStorage, err)
		}
		interactions = append(interactions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list interactions: %w", port.ErrStorage, err)
	}
	return interactions, nil
}

// --- Purge ---

// PurgeAll deletes chunks, documents and interactions in one transaction.
func (s *Store) PurgeAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin purge: %w", port.ErrStorage, err)
	}
	defer tx.Rollback()

	for _, table := range []string{"chunks", "documents", "interactions"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("%w: purge %s: %w", port.ErrStorage, table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit purge: %w", port.ErrStorage, err)
	}
	return nil
}
