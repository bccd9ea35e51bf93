package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
)

func TestManifest(t *testing.T) {
	d := New(Options{})
	m := d.Manifest()
	assert.Equal(t, "postgres", m.ID)
	assert.Equal(t, 5432, m.DefaultPort)
	assert.Equal(t, "postgres", m.DefaultUsername)
	assert.True(t, m.IsBuiltin)
	assert.True(t, m.Capabilities.Schemas)
	assert.Equal(t, `"`, m.Capabilities.IdentifierQuote)
	assert.Equal(t, "SERIAL", m.Capabilities.SerialType)
	assert.Empty(t, m.Capabilities.AutoIncrementKeyword)
}

func TestConnectionURL(t *testing.T) {
	d := New(Options{})

	tests := []struct {
		name   string
		params driver.ConnectionParams
		want   string
	}{
		{
			name: "full parameters",
			params: driver.ConnectionParams{
				Host: "db.internal", Port: 5433,
				Username: "app", Password: "secret", Database: "orders",
			},
			want: "host=db.internal port=5433 user=app password=secret dbname=orders sslmode=prefer",
		},
		{
			name: "default port",
			params: driver.ConnectionParams{
				Host: "localhost", Username: "postgres", Database: "test",
			},
			want: "host=localhost port=5432 user=postgres password= dbname=test sslmode=prefer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ConnectionURL(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "sales", schemaName(driver.ConnectionParams{}, "sales"))
	assert.Equal(t, "app", schemaName(driver.ConnectionParams{DefaultSchema: "app"}, ""))
	assert.Equal(t, "public", schemaName(driver.ConnectionParams{}, ""))
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"users"`, quoteIdent("users"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
	assert.Equal(t, `"sales"."orders"`, qualify("sales", "orders"))
}

func TestDDLPreview(t *testing.T) {
	d := New(Options{})
	ctx := context.Background()

	stmts, err := d.CreateTableSQL(ctx, "users", []driver.ColumnDefinition{
		{Name: "id", DataType: "INTEGER", IsPK: true},
		{Name: "name", DataType: "TEXT", IsNullable: true},
	}, "")
	require.NoError(t, err)
	assert.Contains(t, stmts[0], `CREATE TABLE "users"`)
	assert.Contains(t, stmts[0], `PRIMARY KEY ("id")`)

	_, err = d.AlterColumnSQL(ctx, "users",
		driver.ColumnDefinition{Name: "a", DataType: "INTEGER"},
		driver.ColumnDefinition{Name: "a", DataType: "INTEGER"}, "")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want func(error) bool
	}{
		{name: "nil passes through", err: nil, want: nil},
		{name: "invalid password", err: &pgconn.PgError{Code: pgErrInvalidPassword}, want: errs.IsConnection},
		{name: "unknown database", err: &pgconn.PgError{Code: pgErrUnknownDatabase}, want: errs.IsConnection},
		{name: "syntax error", err: &pgconn.PgError{Code: pgErrSyntaxError}, want: errs.IsStatement},
		{name: "undefined table", err: &pgconn.PgError{Code: pgErrUndefinedTable}, want: errs.IsStatement},
		{name: "query canceled", err: &pgconn.PgError{Code: pgErrQueryCanceled}, want: errs.IsTimeout},
		{name: "other sqlstate", err: &pgconn.PgError{Code: "23505"}, want: errs.IsStatement},
		{name: "no rows", err: pgx.ErrNoRows, want: errs.IsNotFound},
		{name: "context deadline", err: context.DeadlineExceeded, want: errs.IsTimeout},
		{name: "anything else", err: errors.New("boom"), want: func(err error) bool { return !errs.IsConnection(err) && !errs.IsStatement(err) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op failed")
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			require.Error(t, got)
			assert.True(t, tt.want(got))
		})
	}
}

func TestConvertValue(t *testing.T) {
	ts := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "nil", in: nil, want: nil},
		{name: "int64", in: int64(42), want: int64(42)},
		{name: "string", in: "hello", want: "hello"},
		{name: "bool", in: true, want: true},
		{name: "timestamp", in: ts, want: "2024-03-15 09:30:00"},
		{
			name: "uuid bytes",
			in:   [16]byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8},
			want: "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertValue(tt.in))
		})
	}
}

func TestConvertValueEncodesBytea(t *testing.T) {
	got := convertValue([]byte{0x89, 0x50, 0x4E, 0x47})
	s, ok := got.(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(s, "BLOB:4:"))
}

func TestBinderValues(t *testing.T) {
	b := binder{}

	t.Run("placeholders are numbered", func(t *testing.T) {
		var sb strings.Builder
		var args []any
		require.NoError(t, b.bindValue(&sb, &args, "a"))
		sb.WriteString(", ")
		require.NoError(t, b.bindValue(&sb, &args, int64(7)))
		assert.Equal(t, "$1, $2", sb.String())
		assert.Equal(t, []any{"a", int64(7)}, args)
	})

	t.Run("nil renders NULL", func(t *testing.T) {
		var sb strings.Builder
		var args []any
		require.NoError(t, b.bindValue(&sb, &args, nil))
		assert.Equal(t, "NULL", sb.String())
		assert.Empty(t, args)
	})

	t.Run("default sentinel renders DEFAULT", func(t *testing.T) {
		var sb strings.Builder
		var args []any
		require.NoError(t, b.bindValue(&sb, &args, "__USE_DEFAULT__"))
		assert.Equal(t, "DEFAULT", sb.String())
		assert.Empty(t, args)
	})

	t.Run("blob wire strings bind as bytes", func(t *testing.T) {
		var sb strings.Builder
		var args []any
		require.NoError(t, b.bindValue(&sb, &args, "BLOB:3:application/octet-stream:YWJj"))
		assert.Equal(t, "$1", sb.String())
		require.Len(t, args, 1)
		assert.Equal(t, []byte("abc"), args[0])
	})

	t.Run("blob over the ceiling is rejected", func(t *testing.T) {
		capped := binder{maxBlobSize: 2}
		var sb strings.Builder
		var args []any
		err := capped.bindValue(&sb, &args, "BLOB:3:application/octet-stream:YWJj")
		require.Error(t, err)
		assert.True(t, errs.IsInvalidInput(err))
	})

	t.Run("composite values are rejected", func(t *testing.T) {
		var sb strings.Builder
		var args []any
		err := b.bindValue(&sb, &args, map[string]any{"nested": 1})
		require.Error(t, err)
		assert.True(t, errs.IsInvalidInput(err))
	})

	t.Run("composite keys are rejected", func(t *testing.T) {
		var sb strings.Builder
		var args []any
		err := b.bindKey(&sb, &args, "id", []any{1, 2})
		require.Error(t, err)
		assert.True(t, errs.IsInvalidInput(err))
	})
}

func TestRoutineDefinitionRejectsUnknownType(t *testing.T) {
	d := New(Options{})
	// Validation happens before any connection attempt, so no server is needed.
	_, err := d.RoutineDefinition(context.Background(), driver.ConnectionParams{Driver: "postgres"}, "p", "TRIGGER", "")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}
