// Package sqlite implements the driver contract for SQLite database files
// using the pure-Go modernc.org/sqlite driver.
//
// SQLite has no schemas, no stored routines and no server to authenticate
// against; the database name in the connection parameters is the file path.
// Tables without a declared primary key are queried with an injected rowid
// column so callers always have a stable per-row identifier.
package sqlite

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mosaic-db/mosaic/internal/blob"
	"github.com/mosaic-db/mosaic/internal/blobstore"
	"github.com/mosaic-db/mosaic/internal/ddl"
	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/logger"
	"github.com/mosaic-db/mosaic/internal/pool"
	"github.com/mosaic-db/mosaic/internal/sqlexec"
	"github.com/mosaic-db/mosaic/internal/sqlrewrite"
)

// Embedded engine: a single connection avoids writer lock contention.
const defaultMaxOpenConns = 1

var dialect = ddl.SQLite

// Options configures a Driver. Zero values select working defaults.
type Options struct {
	// MaxOpenConns caps each file's pool; defaults to 1.
	MaxOpenConns int
	// Store receives exported blob payloads; defaults to the local disk.
	Store blobstore.Store
	// Log defaults to a no-op logger.
	Log *logger.Logger
}

var _ driver.Driver = (*Driver)(nil)

// Driver is the in-process SQLite driver. It is safe for concurrent use by
// multiple goroutines. Routine operations return an unsupported error.
type Driver struct {
	driver.UnsupportedRoutines

	manifest driver.Manifest
	pools    *pool.Manager[*sqlx.DB]
	store    blobstore.Store
	binder   sqlexec.Binder
	log      *logger.Logger
}

// New returns a SQLite driver.
func New(opts Options) *Driver {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = defaultMaxOpenConns
	}
	if opts.Store == nil {
		opts.Store = blobstore.NewDisk("")
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	d := &Driver{
		manifest: driver.Manifest{
			ID:          "sqlite",
			Name:        "SQLite",
			Version:     "1.0.0",
			Description: "Embedded SQLite database files",
			Capabilities: driver.Capabilities{
				Views:                true,
				FileBased:            true,
				IdentifierQuote:      `"`,
				AutoIncrementKeyword: "AUTOINCREMENT",
				InlinePK:             true,
			},
			IsBuiltin: true,
		},
		store: opts.Store,
		log:   opts.Log,
	}
	d.binder = sqlexec.Binder{Quote: `"`, EmptyInsert: "DEFAULT VALUES"}
	d.pools = pool.NewManager(
		func(ctx context.Context, params driver.ConnectionParams) (*sqlx.DB, error) {
			db, err := sqlx.Open("sqlite", params.Database)
			if err != nil {
				return nil, err
			}
			db.SetMaxOpenConns(opts.MaxOpenConns)
			if err := db.PingContext(ctx); err != nil {
				db.Close()
				return nil, err
			}
			return db, nil
		},
		func(db *sqlx.DB) { db.Close() },
		opts.Log,
	)
	return d
}

func (d *Driver) Manifest() driver.Manifest { return d.manifest }

func (d *Driver) DataTypes() []driver.DataType {
	return []driver.DataType{
		{Name: "INTEGER", Category: "numeric"},
		{Name: "REAL", Category: "numeric"},
		{Name: "NUMERIC", Category: "numeric"},
		{Name: "TEXT", Category: "text"},
		{Name: "BLOB", Category: "binary"},
		{Name: "BOOLEAN", Category: "boolean"},
		{Name: "DATE", Category: "datetime"},
		{Name: "DATETIME", Category: "datetime"},
	}
}

// ConnectionURL returns the database file path; SQLite has no URL scheme
// worth exposing.
func (d *Driver) ConnectionURL(params driver.ConnectionParams) (string, error) {
	if params.Database == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "database file path is required")
	}
	return params.Database, nil
}

func (d *Driver) TestConnection(ctx context.Context, params driver.ConnectionParams) error {
	if params.Database == "" {
		return errs.New(errs.ErrKindInvalidInput, "database file path is required")
	}
	db, err := sqlx.Open("sqlite", params.Database)
	if err != nil {
		return errs.Wrap(errs.ErrKindConnection, "failed to open database file", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return errs.Wrap(errs.ErrKindConnection, "ping failed", err)
	}
	return nil
}

// Shutdown closes every open database file.
func (d *Driver) Shutdown(ctx context.Context) error {
	d.pools.CloseAll()
	return nil
}

func (d *Driver) db(ctx context.Context, params driver.ConnectionParams) (*sqlx.DB, error) {
	return d.pools.Get(ctx, params)
}

// --- Discovery ---

// Databases returns the single attached database file.
func (d *Driver) Databases(ctx context.Context, params driver.ConnectionParams) ([]string, error) {
	return []string{params.Database}, nil
}

// Schemas is a safe no-op; SQLite has no schemas.
func (d *Driver) Schemas(ctx context.Context, params driver.ConnectionParams) ([]string, error) {
	return []string{}, nil
}

func (d *Driver) Tables(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.TableInfo, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var names []string
	err = db.SelectContext(ctx, &names,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStatement, "failed to list tables", err)
	}

	tables := make([]driver.TableInfo, len(names))
	for i, n := range names {
		tables[i] = driver.TableInfo{Name: n}
	}
	return tables, nil
}

// tableInfoRow mirrors one PRAGMA table_info result row.
type tableInfoRow struct {
	CID          int     `db:"cid"`
	Name         string  `db:"name"`
	Type         string  `db:"type"`
	NotNull      int     `db:"notnull"`
	DefaultValue *string `db:"dflt_value"`
	PK           int     `db:"pk"`
}

func (d *Driver) tableInfo(ctx context.Context, db *sqlx.DB, table string) ([]tableInfoRow, error) {
	var rows []tableInfoRow
	q := fmt.Sprintf(`PRAGMA table_info(%s)`, dialect.QuoteIdent(table))
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errs.Wrap(errs.ErrKindStatement, "failed to read table info", err)
	}
	return rows, nil
}

func (d *Driver) Columns(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.TableColumn, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	rows, err := d.tableInfo(ctx, db, table)
	if err != nil {
		return nil, err
	}
	autoinc, err := d.hasAutoincrement(ctx, db, table)
	if err != nil {
		return nil, err
	}

	columns := make([]driver.TableColumn, len(rows))
	for i, r := range rows {
		columns[i] = driver.TableColumn{
			Name:            r.Name,
			DataType:        r.Type,
			IsPK:            r.PK > 0,
			IsNullable:      r.NotNull == 0,
			IsAutoIncrement: autoinc && r.PK == 1 && strings.EqualFold(r.Type, "INTEGER"),
			DefaultValue:    r.DefaultValue,
		}
	}
	return columns, nil
}

// hasAutoincrement checks the original CREATE TABLE text for AUTOINCREMENT;
// PRAGMA table_info does not expose it.
func (d *Driver) hasAutoincrement(ctx context.Context, db *sqlx.DB, table string) (bool, error) {
	var sql string
	err := db.GetContext(ctx, &sql,
		`SELECT COALESCE(sql, '') FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
	if err != nil {
		return false, errs.Wrap(errs.ErrKindStatement, "failed to read table definition", err)
	}
	return strings.Contains(strings.ToUpper(sql), "AUTOINCREMENT"), nil
}

// fkListRow mirrors one PRAGMA foreign_key_list result row.
type fkListRow struct {
	ID       int    `db:"id"`
	Seq      int    `db:"seq"`
	Table    string `db:"table"`
	From     string `db:"from"`
	To       string `db:"to"`
	OnUpdate string `db:"on_update"`
	OnDelete string `db:"on_delete"`
	Match    string `db:"match"`
}

func (d *Driver) ForeignKeys(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.ForeignKey, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}
	return d.foreignKeys(ctx, db, table)
}

func (d *Driver) foreignKeys(ctx context.Context, db *sqlx.DB, table string) ([]driver.ForeignKey, error) {
	var rows []fkListRow
	q := fmt.Sprintf(`PRAGMA foreign_key_list(%s)`, dialect.QuoteIdent(table))
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errs.Wrap(errs.ErrKindStatement, "failed to read foreign keys", err)
	}

	fks := make([]driver.ForeignKey, len(rows))
	for i, r := range rows {
		fks[i] = driver.ForeignKey{
			// SQLite foreign keys are anonymous; synthesize a stable name.
			Name:             fmt.Sprintf("fk_%s_%d", table, r.ID),
			Column:           r.From,
			ReferencedTable:  r.Table,
			ReferencedColumn: r.To,
			OnDelete:         r.OnDelete,
			OnUpdate:         r.OnUpdate,
		}
	}
	return fks, nil
}

// indexListRow mirrors one PRAGMA index_list result row.
type indexListRow struct {
	Seq     int    `db:"seq"`
	Name    string `db:"name"`
	Unique  int    `db:"unique"`
	Origin  string `db:"origin"`
	Partial int    `db:"partial"`
}

func (d *Driver) Indexes(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.Index, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var list []indexListRow
	q := fmt.Sprintf(`PRAGMA index_list(%s)`, dialect.QuoteIdent(table))
	if err := db.SelectContext(ctx, &list, q); err != nil {
		return nil, errs.Wrap(errs.ErrKindStatement, "failed to read indexes", err)
	}

	indexes := make([]driver.Index, 0, len(list))
	for _, ix := range list {
		var cols []string
		iq := fmt.Sprintf(`PRAGMA index_info(%s)`, dialect.QuoteIdent(ix.Name))
		rows, err := db.QueryxContext(ctx, iq)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindStatement, "failed to read index columns", err)
		}
		for rows.Next() {
			var seqno, cid int
			var name *string
			if err := rows.Scan(&seqno, &cid, &name); err != nil {
				rows.Close()
				return nil, errs.Wrap(errs.ErrKindStatement, "failed to scan index column", err)
			}
			if name != nil {
				cols = append(cols, *name)
			}
		}
		rows.Close()

		indexes = append(indexes, driver.Index{
			Name:      ix.Name,
			Columns:   cols,
			IsUnique:  ix.Unique == 1,
			IsPrimary: ix.Origin == "pk",
		})
	}
	return indexes, nil
}

// --- Views ---

func (d *Driver) Views(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.ViewInfo, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var names []string
	err = db.SelectContext(ctx, &names,
		`SELECT name FROM sqlite_master WHERE type = 'view' ORDER BY name`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStatement, "failed to list views", err)
	}

	views := make([]driver.ViewInfo, len(names))
	for i, n := range names {
		views[i] = driver.ViewInfo{Name: n}
	}
	return views, nil
}

func (d *Driver) ViewDefinition(ctx context.Context, params driver.ConnectionParams, view, schema string) (string, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return "", err
	}

	var sql string
	err = db.GetContext(ctx, &sql,
		`SELECT COALESCE(sql, '') FROM sqlite_master WHERE type = 'view' AND name = ?`, view)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindNotFound, "view not found", err)
	}
	return sql, nil
}

func (d *Driver) ViewColumns(ctx context.Context, params driver.ConnectionParams, view, schema string) ([]driver.TableColumn, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	rows, err := d.tableInfo(ctx, db, view)
	if err != nil {
		return nil, err
	}
	columns := make([]driver.TableColumn, len(rows))
	for i, r := range rows {
		columns[i] = driver.TableColumn{
			Name:       r.Name,
			DataType:   r.Type,
			IsNullable: r.NotNull == 0,
		}
	}
	return columns, nil
}

func (d *Driver) CreateView(ctx context.Context, params driver.ConnectionParams, view, definition, schema string) error {
	return d.exec(ctx, params, fmt.Sprintf("CREATE VIEW %s AS %s", dialect.QuoteIdent(view), definition))
}

// AlterView drops and recreates the view; SQLite has no ALTER VIEW.
func (d *Driver) AlterView(ctx context.Context, params driver.ConnectionParams, view, definition, schema string) error {
	if err := d.DropView(ctx, params, view, schema); err != nil {
		return err
	}
	return d.CreateView(ctx, params, view, definition, schema)
}

func (d *Driver) DropView(ctx context.Context, params driver.ConnectionParams, view, schema string) error {
	return d.exec(ctx, params, fmt.Sprintf("DROP VIEW %s", dialect.QuoteIdent(view)))
}

func (d *Driver) exec(ctx context.Context, params driver.ConnectionParams, sql string) error {
	db, err := d.db(ctx, params)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sql); err != nil {
		return errs.Wrap(errs.ErrKindStatement, "statement failed", err)
	}
	return nil
}

// --- Query execution ---

// ExecuteQuery injects a rowid column for primary-key-less tables referenced
// by bare SELECT * queries, then runs the shared pagination flow.
func (d *Driver) ExecuteQuery(ctx context.Context, params driver.ConnectionParams, sql string, limit, page int, schema string) (*driver.QueryResult, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	// Lookup failures count as "has a primary key" so the query text is
	// left untouched.
	rewritten := sqlrewrite.InjectRowID(sql, func(table string) bool {
		rows, err := d.tableInfo(ctx, db, table)
		if err != nil {
			return true
		}
		for _, r := range rows {
			if r.PK > 0 {
				return true
			}
		}
		return false
	})
	return sqlexec.Execute(ctx, db, rewritten, limit, page)
}

// --- CRUD ---

func (d *Driver) InsertRecord(ctx context.Context, params driver.ConnectionParams, table string, data map[string]any, schema string, maxBlobSize uint64) (uint64, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return 0, err
	}
	b := d.binder
	b.MaxBlobSize = maxBlobSize
	return b.Insert(ctx, db, table, data)
}

func (d *Driver) UpdateRecord(ctx context.Context, params driver.ConnectionParams, table, pkColumn string, pkValue any, column string, newValue any, schema string, maxBlobSize uint64) (uint64, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return 0, err
	}
	b := d.binder
	b.MaxBlobSize = maxBlobSize
	return b.Update(ctx, db, table, pkColumn, pkValue, column, newValue)
}

func (d *Driver) DeleteRecord(ctx context.Context, params driver.ConnectionParams, table, pkColumn string, pkValue any, schema string) (uint64, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return 0, err
	}
	return d.binder.Delete(ctx, db, table, pkColumn, pkValue)
}

// --- Blob helpers ---

func (d *Driver) fetchBlob(ctx context.Context, params driver.ConnectionParams, table, column, pkColumn string, pkValue any) ([]byte, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		dialect.QuoteIdent(column), dialect.QuoteIdent(table), dialect.QuoteIdent(pkColumn))

	var data []byte
	if err := db.GetContext(ctx, &data, q, pkValue); err != nil {
		return nil, errs.Wrap(errs.ErrKindStatement, "failed to fetch blob", err)
	}
	return data, nil
}

// SaveBlobToFile exports one blob cell to the configured blob store; for the
// default disk store filePath is the destination path.
func (d *Driver) SaveBlobToFile(ctx context.Context, params driver.ConnectionParams, table, column, pkColumn string, pkValue any, schema, filePath string) error {
	data, err := d.fetchBlob(ctx, params, table, column, pkColumn, pkValue)
	if err != nil {
		return err
	}
	return d.store.Put(ctx, filePath, bytes.NewReader(data), int64(len(data)), "application/octet-stream")
}

// FetchBlobAsDataURL returns one blob cell as a data: URL for inline preview.
func (d *Driver) FetchBlobAsDataURL(ctx context.Context, params driver.ConnectionParams, table, column, pkColumn string, pkValue any, schema string) (string, error) {
	data, err := d.fetchBlob(ctx, params, table, column, pkColumn, pkValue)
	if err != nil {
		return "", err
	}
	return blob.DataURL(data), nil
}

// --- DDL preview ---

func (d *Driver) CreateTableSQL(ctx context.Context, table string, columns []driver.ColumnDefinition, schema string) ([]string, error) {
	return dialect.CreateTableSQL(table, columns)
}

func (d *Driver) AddColumnSQL(ctx context.Context, table string, column driver.ColumnDefinition, schema string) ([]string, error) {
	return dialect.AddColumnSQL(table, column)
}

// AlterColumnSQL is unsupported; SQLite cannot modify column definitions in
// place (the documented workaround is a table rebuild).
func (d *Driver) AlterColumnSQL(ctx context.Context, table string, oldColumn, newColumn driver.ColumnDefinition, schema string) ([]string, error) {
	return nil, errs.Unsupported("altering columns")
}

func (d *Driver) CreateIndexSQL(ctx context.Context, table, indexName string, columns []string, unique bool, schema string) ([]string, error) {
	return dialect.CreateIndexSQL(table, indexName, columns, unique)
}

// CreateForeignKeySQL is unsupported; SQLite only accepts foreign keys at
// table creation time.
func (d *Driver) CreateForeignKeySQL(ctx context.Context, table, fkName, column, refTable, refColumn, onDelete, onUpdate, schema string) ([]string, error) {
	return nil, errs.Unsupported("adding foreign keys")
}

func (d *Driver) DropIndex(ctx context.Context, params driver.ConnectionParams, table, indexName, schema string) error {
	return d.exec(ctx, params, fmt.Sprintf("DROP INDEX %s", dialect.QuoteIdent(indexName)))
}

func (d *Driver) DropForeignKey(ctx context.Context, params driver.ConnectionParams, table, fkName, schema string) error {
	return errs.Unsupported("dropping foreign keys")
}

// --- Batch snapshot ---

func (d *Driver) SchemaSnapshot(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.TableSchema, error) {
	tables, err := d.Tables(ctx, params, schema)
	if err != nil {
		return nil, err
	}

	snapshot := make([]driver.TableSchema, 0, len(tables))
	for _, t := range tables {
		cols, err := d.Columns(ctx, params, t.Name, schema)
		if err != nil {
			return nil, err
		}
		fks, err := d.ForeignKeys(ctx, params, t.Name, schema)
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, driver.TableSchema{Name: t.Name, Columns: cols, ForeignKeys: fks})
	}
	return snapshot, nil
}

func (d *Driver) AllColumns(ctx context.Context, params driver.ConnectionParams, schema string) (map[string][]driver.TableColumn, error) {
	tables, err := d.Tables(ctx, params, schema)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]driver.TableColumn, len(tables))
	for _, t := range tables {
		cols, err := d.Columns(ctx, params, t.Name, schema)
		if err != nil {
			return nil, err
		}
		out[t.Name] = cols
	}
	return out, nil
}

func (d *Driver) AllForeignKeys(ctx context.Context, params driver.ConnectionParams, schema string) (map[string][]driver.ForeignKey, error) {
	tables, err := d.Tables(ctx, params, schema)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]driver.ForeignKey, len(tables))
	for _, t := range tables {
		fks, err := d.foreignKeysFor(ctx, params, t.Name)
		if err != nil {
			return nil, err
		}
		out[t.Name] = fks
	}
	return out, nil
}

func (d *Driver) foreignKeysFor(ctx context.Context, params driver.ConnectionParams, table string) ([]driver.ForeignKey, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}
	return d.foreignKeys(ctx, db, table)
}
