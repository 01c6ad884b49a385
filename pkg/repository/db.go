package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// Config holds database connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the lib/pq connection string.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

// NewDB opens a Postgres connection pool and checks that it is reachable.
func NewDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Querier is implemented by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqConnectionClass     = "08"

	cardsHouseholdKey = "cards_household_id_key"
	usersEmailKey     = "users_email_key"
)

// actorForeignKeys reference users(id) from rows written on behalf of the
// caller. A violation means the token outlived its user.
var actorForeignKeys = map[string]bool{
	"cards_created_by_id_fkey": true,
	"cards_updated_by_id_fkey": true,
	"audit_logs_user_id_fkey":  true,
}

// translateError maps driver errors to coded domain errors. Errors that
// already carry a code pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var coded *domain.Error
	if errors.As(err, &coded) {
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.StoreUnavailable(err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == pqUniqueViolation && pqErr.Constraint == cardsHouseholdKey:
			return domain.ErrHouseholdAlreadyCarded
		case pqErr.Code == pqUniqueViolation && pqErr.Constraint == usersEmailKey:
			return domain.ErrUserAlreadyExists
		case pqErr.Code == pqUniqueViolation:
			return domain.WrapError(err, domain.CodeConflict, "duplicate record")
		case pqErr.Code == pqForeignKeyViolation && actorForeignKeys[pqErr.Constraint]:
			return domain.WrapError(err, domain.CodeUnauthenticated, domain.ErrUnauthenticated.Message)
		case pqErr.Code == pqForeignKeyViolation:
			return domain.WrapError(err, domain.CodeConflict, "record is referenced or references a missing record")
		case pqErr.Code.Class() == pqConnectionClass:
			return domain.StoreUnavailable(err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.StoreUnavailable(err)
	}
	return err
}

// isForeignKeyViolation reports whether err is a Postgres foreign key violation.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}

// rowsAffected returns notFound when a statement touched no row.
func rowsAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return translateError(err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
