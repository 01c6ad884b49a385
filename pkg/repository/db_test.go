package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.Code
		is   error
	}{
		{name: "nil", err: nil, want: ""},
		{
			name: "card household unique",
			err:  &pq.Error{Code: "23505", Constraint: "cards_household_id_key"},
			want: domain.CodeConflict,
			is:   domain.ErrHouseholdAlreadyCarded,
		},
		{
			name: "user email unique",
			err:  &pq.Error{Code: "23505", Constraint: "users_email_key"},
			want: domain.CodeConflict,
			is:   domain.ErrUserAlreadyExists,
		},
		{name: "other unique", err: &pq.Error{Code: "23505", Constraint: "plans_pkey"}, want: domain.CodeConflict},
		{name: "foreign key", err: &pq.Error{Code: "23503"}, want: domain.CodeConflict},
		{
			name: "card updater removed",
			err:  &pq.Error{Code: "23503", Constraint: "cards_updated_by_id_fkey"},
			want: domain.CodeUnauthenticated,
			is:   domain.ErrUnauthenticated,
		},
		{
			name: "audit user removed",
			err:  &pq.Error{Code: "23503", Constraint: "audit_logs_user_id_fkey"},
			want: domain.CodeUnauthenticated,
			is:   domain.ErrUnauthenticated,
		},
		{
			name: "connection failure",
			err:  &pq.Error{Code: "08006"},
			want: domain.CodeUnavailable,
			is:   domain.ErrStoreUnavailable,
		},
		{name: "bad conn", err: driver.ErrBadConn, want: domain.CodeUnavailable},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: domain.CodeUnavailable},
		{name: "syntax error", err: &pq.Error{Code: "42601"}, want: domain.CodeInternal},
		{name: "plain error", err: errors.New("boom"), want: domain.CodeInternal},
		{name: "already coded", err: domain.ErrCardNotFound, want: domain.CodeNotFound, is: domain.ErrCardNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			assert.Equal(t, tt.want, domain.CodeOf(got))
			if tt.is != nil {
				assert.ErrorIs(t, got, tt.is)
			}
		})
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "app", Password: "secret", DBName: "healthcard"}
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=healthcard sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestMigrator_ListsEmbeddedMigrations(t *testing.T) {
	db, mock := setupMockDB(t)

	provider, err := newMigrator(db)
	require.NoError(t, err)

	sources := provider.ListSources()
	require.Len(t, sources, 1)
	assert.Equal(t, int64(1), sources[0].Version)
	assert.Equal(t, goose.TypeSQL, sources[0].Type)
	assert.Equal(t, "001_init.sql", filepath.Base(sources[0].Path))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrations_AreGooseAnnotated(t *testing.T) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		body, err := migrationFiles.ReadFile(name)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(body), "-- +goose Up"), name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}
}
