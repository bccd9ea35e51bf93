package sqlexec

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mosaic-db/mosaic/internal/blob"
	"github.com/mosaic-db/mosaic/internal/errs"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUsers(t *testing.T, db *sqlx.DB, n int) {
	t.Helper()
	_, err := db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	for i := 1; i <= n; i++ {
		_, err := db.Exec(`INSERT INTO users (name) VALUES (?)`, "user")
		require.NoError(t, err)
	}
}

func TestExecuteNonSelect(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db, 3)

	res, err := Execute(context.Background(), db, `UPDATE users SET name = 'x'`, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.AffectedRows)
	assert.Empty(t, res.Columns)
	assert.Empty(t, res.Rows)
	assert.Nil(t, res.Pagination)
}

func TestExecuteSelectNoLimit(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db, 5)

	res, err := Execute(context.Background(), db, `SELECT id, name FROM users`, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Len(t, res.Rows, 5)
	assert.Nil(t, res.Pagination)
	assert.False(t, res.Truncated)
}

func TestExecutePaginated(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db, 25)

	res, err := Execute(context.Background(), db, `SELECT id FROM users`, 10, 2)
	require.NoError(t, err)

	require.NotNil(t, res.Pagination)
	assert.Equal(t, 2, res.Pagination.Page)
	assert.Equal(t, 10, res.Pagination.PageSize)
	assert.Equal(t, uint64(25), res.Pagination.TotalRows)
	assert.True(t, res.Truncated)

	require.Len(t, res.Rows, 10)
	assert.Equal(t, int64(11), res.Rows[0][0])
}

func TestExecuteCapsUnwrappableStatements(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db, 5)

	// EXPLAIN returns rows but cannot live inside SELECT * FROM (...).
	// The limit is enforced while reading instead of by rewriting.
	res, err := Execute(context.Background(), db, `EXPLAIN SELECT * FROM users`, 2, 1)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.True(t, res.Truncated)
	assert.Nil(t, res.Pagination)
}

func TestExecutePageZeroMeansFirst(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db, 5)

	res, err := Execute(context.Background(), db, `SELECT id FROM users`, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pagination.Page)
	assert.Equal(t, int64(1), res.Rows[0][0])
}

func TestExecutePreservesOrderBy(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db, 10)

	res, err := Execute(context.Background(), db, `SELECT id FROM users ORDER BY id DESC`, 3, 1)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, int64(10), res.Rows[0][0])
	assert.Equal(t, int64(8), res.Rows[2][0])
}

func TestExecuteStatementError(t *testing.T) {
	db := openTestDB(t)

	_, err := Execute(context.Background(), db, `SELECT * FROM missing_table`, 0, 0)
	require.Error(t, err)
	assert.True(t, errs.IsStatement(err))
}

func TestExecuteBlobColumn(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE files (data BLOB)`)
	require.NoError(t, err)
	payload := []byte{0x00, 0x01, 0xFF, 0xFE}
	_, err = db.Exec(`INSERT INTO files (data) VALUES (?)`, payload)
	require.NoError(t, err)

	res, err := Execute(context.Background(), db, `SELECT data FROM files`, 0, 0)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	encoded, ok := res.Rows[0][0].(string)
	require.True(t, ok)
	decoded, ok := blob.Decode(encoded)
	require.True(t, ok)
	assert.Equal(t, payload, decoded)
}

func TestConvert(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name   string
		in     any
		dbType string
		want   any
	}{
		{name: "nil stays nil", in: nil, want: nil},
		{name: "int64 passthrough", in: int64(7), want: int64(7)},
		{name: "float passthrough", in: 3.5, want: 3.5},
		{name: "bool passthrough", in: true, want: true},
		{name: "time formatted", in: ts, want: "2026-03-14 09:26:53"},
		{name: "text bytes become string", in: []byte("hello"), dbType: "VARCHAR", want: "hello"},
		{name: "blob bytes become wire format", in: []byte("hello"), dbType: "BLOB", want: blob.Encode([]byte("hello"))},
		{name: "invalid utf8 becomes wire format", in: []byte{0xFF, 0x00}, dbType: "TEXT", want: blob.Encode([]byte{0xFF, 0x00})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Convert(tt.in, tt.dbType))
		})
	}
}
