package sqlexec

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-db/mosaic/internal/blob"
	"github.com/mosaic-db/mosaic/internal/errs"
)

var testBinder = Binder{Quote: `"`, EmptyInsert: "DEFAULT VALUES"}

func seedNotes(t *testing.T, db *sqlx.DB) {
	t.Helper()
	_, err := db.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT, attachment BLOB)`)
	require.NoError(t, err)
}

func TestInsert(t *testing.T) {
	db := openTestDB(t)
	seedNotes(t, db)

	affected, err := testBinder.Insert(context.Background(), db, "notes", map[string]any{
		"body": "first",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), affected)

	var body string
	require.NoError(t, db.Get(&body, `SELECT body FROM notes`))
	assert.Equal(t, "first", body)
}

func TestInsertEmptyUsesDefaults(t *testing.T) {
	db := openTestDB(t)
	seedNotes(t, db)

	affected, err := testBinder.Insert(context.Background(), db, "notes", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), affected)
}

func TestInsertDecodesBlobWireFormat(t *testing.T) {
	db := openTestDB(t)
	seedNotes(t, db)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	_, err := testBinder.Insert(context.Background(), db, "notes", map[string]any{
		"attachment": blob.EncodeFull(payload),
	})
	require.NoError(t, err)

	var stored []byte
	require.NoError(t, db.Get(&stored, `SELECT attachment FROM notes`))
	assert.Equal(t, payload, stored)
}

func TestInsertBlobOverCeiling(t *testing.T) {
	db := openTestDB(t)
	seedNotes(t, db)

	capped := Binder{Quote: `"`, EmptyInsert: "DEFAULT VALUES", MaxBlobSize: 2}
	_, err := capped.Insert(context.Background(), db, "notes", map[string]any{
		"attachment": blob.EncodeFull([]byte{1, 2, 3, 4}),
	})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestInsertRejectsCompositeValues(t *testing.T) {
	db := openTestDB(t)
	seedNotes(t, db)

	_, err := testBinder.Insert(context.Background(), db, "notes", map[string]any{
		"body": []string{"not", "scalar"},
	})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestUpdate(t *testing.T) {
	db := openTestDB(t)
	seedNotes(t, db)
	_, err := db.Exec(`INSERT INTO notes (body) VALUES ('old')`)
	require.NoError(t, err)

	affected, err := testBinder.Update(context.Background(), db, "notes", "id", int64(1), "body", "new")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), affected)

	var body string
	require.NoError(t, db.Get(&body, `SELECT body FROM notes WHERE id = 1`))
	assert.Equal(t, "new", body)
}

func TestUpdateToNull(t *testing.T) {
	db := openTestDB(t)
	seedNotes(t, db)
	_, err := db.Exec(`INSERT INTO notes (body) VALUES ('x')`)
	require.NoError(t, err)

	_, err = testBinder.Update(context.Background(), db, "notes", "id", int64(1), "body", nil)
	require.NoError(t, err)

	var body *string
	require.NoError(t, db.Get(&body, `SELECT body FROM notes WHERE id = 1`))
	assert.Nil(t, body)
}

func TestUpdateRejectsNonScalarKey(t *testing.T) {
	db := openTestDB(t)
	seedNotes(t, db)

	_, err := testBinder.Update(context.Background(), db, "notes", "id", map[string]any{}, "body", "v")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)
	seedNotes(t, db)
	_, err := db.Exec(`INSERT INTO notes (body) VALUES ('x'), ('y')`)
	require.NoError(t, err)

	affected, err := testBinder.Delete(context.Background(), db, "notes", "id", int64(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), affected)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM notes`))
	assert.Equal(t, 1, count)
}

func TestGeometryHelpers(t *testing.T) {
	assert.True(t, isWKTGeometry("POINT(1 2)"))
	assert.True(t, isWKTGeometry("  polygon((0 0, 1 1, 0 1, 0 0))"))
	assert.False(t, isWKTGeometry("pointless"))

	assert.True(t, isRawSQLFunction("ST_GeomFromText('POINT(1 2)', 4326)"))
	assert.True(t, isRawSQLFunction("GeomFromText('POINT(1 2)')"))
	assert.False(t, isRawSQLFunction("ST_INVALID"))
	assert.False(t, isRawSQLFunction("plain text"))
}
