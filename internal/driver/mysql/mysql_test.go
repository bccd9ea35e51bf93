package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/pool"
)

func TestManifest(t *testing.T) {
	d := New(Options{})
	m := d.Manifest()
	assert.Equal(t, "mysql", m.ID)
	assert.Equal(t, 3306, m.DefaultPort)
	assert.Equal(t, "root", m.DefaultUsername)
	assert.True(t, m.IsBuiltin)
	assert.True(t, m.Capabilities.Routines)
	assert.Equal(t, "`", m.Capabilities.IdentifierQuote)
	assert.Equal(t, "AUTO_INCREMENT", m.Capabilities.AutoIncrementKeyword)
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
				Host: "db.internal", Port: 3307,
				Username: "app", Password: "secret", Database: "orders",
			},
			want: "app:secret@tcp(db.internal:3307)/orders?parseTime=true&multiStatements=true",
		},
		{
			name: "default port",
			params: driver.ConnectionParams{
				Host: "localhost", Username: "root", Database: "test",
			},
			want: "root:@tcp(localhost:3306)/test?parseTime=true&multiStatements=true",
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

func TestDatabasesUsesCallerPool(t *testing.T) {
	d := New(Options{})

	// Record the database each pool open targets instead of dialing a server.
	var opened []string
	d.pools = pool.NewManager(
		func(ctx context.Context, params driver.ConnectionParams) (*sqlx.DB, error) {
			opened = append(opened, params.Database)
			return nil, errs.New(errs.ErrKindConnection, "no server in tests")
		},
		func(db *sqlx.DB) {},
		nil,
	)

	params := driver.ConnectionParams{Driver: "mysql", ConnectionID: "c1", Database: "appdb"}
	_, err := d.Databases(context.Background(), params)
	require.Error(t, err)
	_, err = d.Tables(context.Background(), params, "")
	require.Error(t, err)

	// A saved connection keys its pool by connection id alone, so every
	// operation must open against the user's database. A rewritten lookup
	// database here would get cached under the same key and hijack the
	// connection.
	assert.Equal(t, []string{"appdb", "appdb"}, opened)
}

func TestSchemasIsNoOp(t *testing.T) {
	d := New(Options{})
	schemas, err := d.Schemas(context.Background(), driver.ConnectionParams{})
	require.NoError(t, err)
	assert.Empty(t, schemas)
}

func TestDDLPreview(t *testing.T) {
	d := New(Options{})
	ctx := context.Background()

	stmts, err := d.CreateTableSQL(ctx, "users", []driver.ColumnDefinition{
		{Name: "id", DataType: "INT", IsPK: true, IsAutoIncrement: true},
	}, "")
	require.NoError(t, err)
	assert.Contains(t, stmts[0], "CREATE TABLE `users`")
	assert.Contains(t, stmts[0], "AUTO_INCREMENT")

	_, err = d.AlterColumnSQL(ctx, "users",
		driver.ColumnDefinition{Name: "a", DataType: "INT"},
		driver.ColumnDefinition{Name: "a", DataType: "INT"}, "")
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
		{name: "access denied", err: &gomysql.MySQLError{Number: errAccessDenied}, want: errs.IsConnection},
		{name: "unknown database", err: &gomysql.MySQLError{Number: errUnknownDatabase}, want: errs.IsConnection},
		{name: "parse error", err: &gomysql.MySQLError{Number: errParseError}, want: errs.IsStatement},
		{name: "missing table", err: &gomysql.MySQLError{Number: errNoSuchTable}, want: errs.IsStatement},
		{name: "no rows", err: sql.ErrNoRows, want: errs.IsNotFound},
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

func TestAsString(t *testing.T) {
	assert.Equal(t, "abc", asString("abc"))
	assert.Equal(t, "abc", asString([]byte("abc")))
	assert.Equal(t, "42", asString(42))
}

func TestRoutineDefinitionRejectsUnknownType(t *testing.T) {
	d := New(Options{})
	// Validation happens before any connection attempt, so no server is needed.
	_, err := d.RoutineDefinition(context.Background(), driver.ConnectionParams{Driver: "mysql"}, "p", "TRIGGER", "")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}
