package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
)

func newTestDriver(t *testing.T) (*Driver, driver.ConnectionParams) {
	t.Helper()
	d := New(Options{})
	t.Cleanup(func() { d.Shutdown(context.Background()) })

	params := driver.ConnectionParams{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "test.db"),
	}
	return d, params
}

func seed(t *testing.T, params driver.ConnectionParams, stmts ...string) {
	t.Helper()
	db, err := sqlx.Open("sqlite", params.Database)
	require.NoError(t, err)
	defer db.Close()
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
}

func TestManifest(t *testing.T) {
	d, _ := newTestDriver(t)
	m := d.Manifest()
	assert.Equal(t, "sqlite", m.ID)
	assert.True(t, m.IsBuiltin)
	assert.True(t, m.Capabilities.FileBased)
	assert.False(t, m.Capabilities.Routines)
	assert.Equal(t, `"`, m.Capabilities.IdentifierQuote)
}

func TestTestConnection(t *testing.T) {
	d, params := newTestDriver(t)
	require.NoError(t, d.TestConnection(context.Background(), params))

	err := d.TestConnection(context.Background(), driver.ConnectionParams{Driver: "sqlite"})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestDiscovery(t *testing.T) {
	d, params := newTestDriver(t)
	seed(t, params,
		`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, age INTEGER DEFAULT 18)`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES users(id) ON DELETE CASCADE)`,
		`CREATE INDEX idx_users_name ON users(name)`,
	)
	ctx := context.Background()

	tables, err := d.Tables(ctx, params, "")
	require.NoError(t, err)
	assert.Equal(t, []driver.TableInfo{{Name: "orders"}, {Name: "users"}}, tables)

	schemas, err := d.Schemas(ctx, params)
	require.NoError(t, err)
	assert.Empty(t, schemas)

	cols, err := d.Columns(ctx, params, "users", "")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, cols[0].IsPK)
	assert.True(t, cols[0].IsAutoIncrement)
	assert.Equal(t, "name", cols[1].Name)
	assert.False(t, cols[1].IsNullable)
	require.NotNil(t, cols[2].DefaultValue)
	assert.Equal(t, "18", *cols[2].DefaultValue)

	fks, err := d.ForeignKeys(ctx, params, "orders", "")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "user_id", fks[0].Column)
	assert.Equal(t, "users", fks[0].ReferencedTable)
	assert.Equal(t, "id", fks[0].ReferencedColumn)
	assert.Equal(t, "CASCADE", fks[0].OnDelete)

	indexes, err := d.Indexes(ctx, params, "users", "")
	require.NoError(t, err)
	var found bool
	for _, ix := range indexes {
		if ix.Name == "idx_users_name" {
			found = true
			assert.Equal(t, []string{"name"}, ix.Columns)
			assert.False(t, ix.IsUnique)
		}
	}
	assert.True(t, found)
}

func TestViews(t *testing.T) {
	d, params := newTestDriver(t)
	seed(t, params, `CREATE TABLE t (a INTEGER)`)
	ctx := context.Background()

	require.NoError(t, d.CreateView(ctx, params, "v", "SELECT a FROM t", ""))

	views, err := d.Views(ctx, params, "")
	require.NoError(t, err)
	assert.Equal(t, []driver.ViewInfo{{Name: "v"}}, views)

	def, err := d.ViewDefinition(ctx, params, "v", "")
	require.NoError(t, err)
	assert.Contains(t, def, "SELECT a FROM t")

	cols, err := d.ViewColumns(ctx, params, "v", "")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "a", cols[0].Name)

	require.NoError(t, d.AlterView(ctx, params, "v", "SELECT a AS b FROM t", ""))
	require.NoError(t, d.DropView(ctx, params, "v", ""))

	views, err = d.Views(ctx, params, "")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestRoutinesUnsupported(t *testing.T) {
	d, params := newTestDriver(t)
	_, err := d.Routines(context.Background(), params, "")
	require.Error(t, err)
	assert.True(t, errs.IsUnsupported(err))
}

// Mirrors the end-to-end scenario: a table without a declared primary key
// gains a rowid column and pagination metadata.
func TestExecuteQueryInjectsRowID(t *testing.T) {
	d, params := newTestDriver(t)
	seed(t, params,
		`CREATE TABLE users (id INTEGER, name VARCHAR)`,
		`INSERT INTO users (id, name) VALUES (1, 'a'), (2, 'b'), (3, 'c')`,
	)

	res, err := d.ExecuteQuery(context.Background(), params, "SELECT * FROM users", 10, 1, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"rowid", "id", "name"}, res.Columns)
	require.NotNil(t, res.Pagination)
	assert.Equal(t, 1, res.Pagination.Page)
	assert.Equal(t, 10, res.Pagination.PageSize)
	assert.Equal(t, uint64(3), res.Pagination.TotalRows)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, int64(1), res.Rows[0][0])
}

func TestExecuteQueryLeavesKeyedTablesAlone(t *testing.T) {
	d, params := newTestDriver(t)
	seed(t, params,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR)`,
		`INSERT INTO users (id, name) VALUES (1, 'a')`,
	)

	res, err := d.ExecuteQuery(context.Background(), params, "SELECT * FROM users", 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Nil(t, res.Pagination)
}

func TestCRUD(t *testing.T) {
	d, params := newTestDriver(t)
	seed(t, params, `CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`)
	ctx := context.Background()

	affected, err := d.InsertRecord(ctx, params, "notes", map[string]any{"body": "hello"}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), affected)

	affected, err = d.UpdateRecord(ctx, params, "notes", "id", int64(1), "body", "bye", "", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), affected)

	res, err := d.ExecuteQuery(ctx, params, "SELECT body FROM notes", 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, "bye", res.Rows[0][0])

	affected, err = d.DeleteRecord(ctx, params, "notes", "id", int64(1), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), affected)
}

func TestBlobHelpers(t *testing.T) {
	d, params := newTestDriver(t)
	seed(t, params,
		`CREATE TABLE files (id INTEGER PRIMARY KEY, data BLOB)`,
		`INSERT INTO files (id, data) VALUES (1, x'89504E470D0A1A0A')`,
	)
	ctx := context.Background()

	out := filepath.Join(t.TempDir(), "export.bin")
	require.NoError(t, d.SaveBlobToFile(ctx, params, "files", "data", "id", int64(1), "", out))

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, written)

	url, err := d.FetchBlobAsDataURL(ctx, params, "files", "data", "id", int64(1), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestDDLPreview(t *testing.T) {
	d, _ := newTestDriver(t)
	ctx := context.Background()

	stmts, err := d.CreateTableSQL(ctx, "t", []driver.ColumnDefinition{
		{Name: "id", DataType: "INTEGER", IsPK: true},
	}, "")
	require.NoError(t, err)
	assert.Contains(t, stmts[0], `CREATE TABLE "t"`)

	_, err = d.AlterColumnSQL(ctx, "t", driver.ColumnDefinition{Name: "a"}, driver.ColumnDefinition{Name: "b"}, "")
	require.Error(t, err)
	assert.True(t, errs.IsUnsupported(err))

	_, err = d.CreateForeignKeySQL(ctx, "t", "fk", "a", "r", "id", "", "", "")
	require.Error(t, err)
	assert.True(t, errs.IsUnsupported(err))
}

func TestSchemaSnapshot(t *testing.T) {
	d, params := newTestDriver(t)
	seed(t, params,
		`CREATE TABLE a (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE b (id INTEGER PRIMARY KEY, a_id INTEGER REFERENCES a(id))`,
	)
	ctx := context.Background()

	snapshot, err := d.SchemaSnapshot(ctx, params, "")
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "a", snapshot[0].Name)
	assert.Len(t, snapshot[1].ForeignKeys, 1)

	cols, err := d.AllColumns(ctx, params, "")
	require.NoError(t, err)
	assert.Len(t, cols["a"], 1)
	assert.Len(t, cols["b"], 2)

	fks, err := d.AllForeignKeys(ctx, params, "")
	require.NoError(t, err)
	assert.Empty(t, fks["a"])
	assert.Len(t, fks["b"], 1)
}
