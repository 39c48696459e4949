package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docgateway/internal/errcode"
)

func TestWrapPgError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errcode.Code
	}{
		{"unique violation", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, errcode.DuplicateKey},
		{"statement timeout", &pgconn.PgError{Code: "57014", Message: "canceling statement"}, errcode.ExceededTimeLimit},
		{"auth class", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}, errcode.AuthenticationFailed},
		{"serialization failure", &pgconn.PgError{Code: "40001", Message: "could not serialize"}, errcode.WriteConflict},
		{"other pg error", &pgconn.PgError{Code: "42601", Message: "syntax error"}, errcode.InternalError},
		{"non-pg error", errors.New("connection refused"), errcode.InternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapPgError(tt.err)

			var derr *errcode.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.wantCode, derr.Code)
		})
	}
}

func TestWrapPgErrorKeepsBackendMessage(t *testing.T) {
	err := wrapPgError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	var derr *errcode.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "duplicate key value violates unique constraint", derr.Message)
}

func TestQueryCatalogCoversDispatchTable(t *testing.T) {
	catalog := NewQueryCatalog()
	queries := []string{
		catalog.Delete, catalog.Insert, catalog.Update,
		catalog.Find, catalog.Aggregate, catalog.ListCollections,
		catalog.ListDatabases, catalog.FindAndModify, catalog.Distinct,
		catalog.Count, catalog.Validate, catalog.CurrentOp, catalog.Compact,
		catalog.CollStats, catalog.DbStats, catalog.GetParameter, catalog.KillOp,
	}
	for _, q := range queries {
		assert.NotEmpty(t, q)
		assert.Contains(t, q, "documentdb_api.")
	}
}
