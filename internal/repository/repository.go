package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrStatusConflict       = errors.New("order status changed concurrently")
)

type Credentials struct {
	Driver            string // postgres, pgx or sqlite
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	Path              string // sqlite file, ":memory:" for tests
	MigrationsDirPath string
}

type Repository struct {
	db     *sql.DB
	driver string
}

func NewRepository(cred *Credentials) (*Repository, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cred.Driver {
	case "sqlite":
		db, err = sql.Open("sqlite", cred.Path)
	case "postgres", "pgx", "":
		psqlconn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cred.Host,
			cred.Port,
			cred.User,
			cred.Password,
			cred.DBName)
		driverName := "postgres"
		if cred.Driver == "pgx" {
			driverName = "pgx"
		}
		db, err = sql.Open(driverName, psqlconn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cred.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	if cred.Driver == "sqlite" {
		// every connection to an in-memory sqlite database is a new database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
	}
	return NewWithDB(db, cred.Driver), nil
}

// NewWithDB wraps an already opened handle.
func NewWithDB(db *sql.DB, driver string) *Repository {
	if driver == "" {
		driver = "postgres"
	}
	return &Repository{db: db, driver: driver}
}

func (r *Repository) dialect() string {
	if r.driver == "sqlite" {
		return "sqlite"
	}
	return "postgres"
}

// RunMigrations applies the migrations found in the dialect subdirectory of
// MigrationsDirPath.
func (r *Repository) RunMigrations(cred *Credentials) error {
	var (
		driver database.Driver
		err    error
	)
	dialect := r.dialect()
	if dialect == "sqlite" {
		driver, err = migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	} else {
		driver, err = postgres.WithInstance(r.db, &postgres.Config{
			MigrationsTable: "storefront_schema_migrations",
		})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", filepath.Join(cred.MigrationsDirPath, dialect)),
		dialect,
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// withTx runs fn in a transaction. Inside fn every statement must go through
// tx: the sqlite pool holds a single connection.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
