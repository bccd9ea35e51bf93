// Package mysql implements the driver contract for MySQL and MariaDB servers
// using go-sql-driver/mysql through sqlx.
//
// MySQL treats databases and schemas as the same thing, so the schema
// operations are safe no-ops and all introspection is scoped to the connected
// database via DATABASE().
package mysql

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/mosaic-db/mosaic/internal/blob"
	"github.com/mosaic-db/mosaic/internal/blobstore"
	"github.com/mosaic-db/mosaic/internal/ddl"
	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/logger"
	"github.com/mosaic-db/mosaic/internal/pool"
	"github.com/mosaic-db/mosaic/internal/sqlexec"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultPort            = 3306
)

var dialect = ddl.MySQL

// Options configures a Driver. Zero values select working defaults.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	// Store receives exported blob payloads; defaults to the local disk.
	Store blobstore.Store
	// Log defaults to a no-op logger.
	Log *logger.Logger
}

var _ driver.Driver = (*Driver)(nil)

// Driver is the in-process MySQL driver. It is safe for concurrent use by
// multiple goroutines.
type Driver struct {
	manifest driver.Manifest
	pools    *pool.Manager[*sqlx.DB]
	store    blobstore.Store
	binder   sqlexec.Binder
	log      *logger.Logger
}

// New returns a MySQL driver.
func New(opts Options) *Driver {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = defaultMaxOpenConns
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = defaultMaxIdleConns
	}
	if opts.Store == nil {
		opts.Store = blobstore.NewDisk("")
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	d := &Driver{
		manifest: driver.Manifest{
			ID:          "mysql",
			Name:        "MySQL",
			Version:     "1.0.0",
			Description: "MySQL and MariaDB servers",
			DefaultPort: defaultPort,
			Capabilities: driver.Capabilities{
				Views:                true,
				Routines:             true,
				IdentifierQuote:      "`",
				AlterPrimaryKey:      true,
				AutoIncrementKeyword: "AUTO_INCREMENT",
				AlterColumn:          true,
				CreateForeignKeys:    true,
			},
			IsBuiltin:       true,
			DefaultUsername: "root",
		},
		store: opts.Store,
		log:   opts.Log,
	}
	d.binder = sqlexec.Binder{Quote: "`", GeometryFuncs: true, EmptyInsert: "() VALUES ()"}
	d.pools = pool.NewManager(
		func(ctx context.Context, params driver.ConnectionParams) (*sqlx.DB, error) {
			dsn, err := d.ConnectionURL(params)
			if err != nil {
				return nil, err
			}
			db, err := sqlx.Open("mysql", dsn)
			if err != nil {
				return nil, err
			}
			db.SetMaxOpenConns(opts.MaxOpenConns)
			db.SetMaxIdleConns(opts.MaxIdleConns)
			db.SetConnMaxLifetime(defaultConnMaxLifetime)
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
		{Name: "TINYINT", Category: "numeric"},
		{Name: "SMALLINT", Category: "numeric"},
		{Name: "INT", Category: "numeric"},
		{Name: "BIGINT", Category: "numeric"},
		{Name: "DECIMAL", Category: "numeric"},
		{Name: "FLOAT", Category: "numeric"},
		{Name: "DOUBLE", Category: "numeric"},
		{Name: "CHAR", Category: "text"},
		{Name: "VARCHAR(255)", Category: "text"},
		{Name: "TEXT", Category: "text"},
		{Name: "LONGTEXT", Category: "text"},
		{Name: "JSON", Category: "other"},
		{Name: "DATE", Category: "datetime"},
		{Name: "DATETIME", Category: "datetime"},
		{Name: "TIMESTAMP", Category: "datetime"},
		{Name: "TIME", Category: "datetime"},
		{Name: "BOOLEAN", Category: "boolean"},
		{Name: "BLOB", Category: "binary"},
		{Name: "LONGBLOB", Category: "binary"},
	}
}

// ConnectionURL builds the go-sql-driver DSN.
// Format: user:pass@tcp(host:port)/dbname?parseTime=true
func (d *Driver) ConnectionURL(params driver.ConnectionParams) (string, error) {
	port := params.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		params.Username, params.Password, params.Host, port, params.Database,
	), nil
}

func (d *Driver) TestConnection(ctx context.Context, params driver.ConnectionParams) error {
	dsn, err := d.ConnectionURL(params)
	if err != nil {
		return err
	}
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return mapError(err, "failed to open connection")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Shutdown drains every connection pool.
func (d *Driver) Shutdown(ctx context.Context) error {
	d.pools.CloseAll()
	return nil
}

func (d *Driver) db(ctx context.Context, params driver.ConnectionParams) (*sqlx.DB, error) {
	return d.pools.Get(ctx, params)
}

// --- Discovery ---

// Databases lists all databases visible to the user. SHOW DATABASES does
// not depend on the current database, so the user's own pool serves it;
// rewriting params here would cache a pool under the connection-id key
// that targets the wrong database.
func (d *Driver) Databases(ctx context.Context, params driver.ConnectionParams) ([]string, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := db.SelectContext(ctx, &names, `SHOW DATABASES`); err != nil {
		return nil, mapError(err, "failed to list databases")
	}
	return names, nil
}

// Schemas is a safe no-op; MySQL schemas are databases.
func (d *Driver) Schemas(ctx context.Context, params driver.ConnectionParams) ([]string, error) {
	return []string{}, nil
}

func (d *Driver) Tables(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.TableInfo, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var names []string
	err = db.SelectContext(ctx, &names, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}

	tables := make([]driver.TableInfo, len(names))
	for i, n := range names {
		tables[i] = driver.TableInfo{Name: n}
	}
	return tables, nil
}

// columnRow mirrors one information_schema.columns row.
type columnRow struct {
	Name     string  `db:"column_name"`
	DataType string  `db:"data_type"`
	Key      string  `db:"column_key"`
	Nullable string  `db:"is_nullable"`
	Extra    string  `db:"extra"`
	Default  *string `db:"column_default"`
	Table    string  `db:"table_name"`
}

func (r columnRow) toColumn() driver.TableColumn {
	autoinc := strings.Contains(r.Extra, "auto_increment")

	// Hide the implicit NULL default and the default of auto-increment
	// columns; the UI only wants explicit defaults.
	var def *string
	if !autoinc && r.Default != nil && *r.Default != "" && !strings.EqualFold(*r.Default, "null") {
		def = r.Default
	}

	return driver.TableColumn{
		Name:            r.Name,
		DataType:        r.DataType,
		IsPK:            r.Key == "PRI",
		IsNullable:      r.Nullable == "YES",
		IsAutoIncrement: autoinc,
		DefaultValue:    def,
	}
}

const columnQuery = `
	SELECT column_name, data_type, column_key, is_nullable, extra, column_default, table_name
	FROM information_schema.columns
	WHERE table_schema = DATABASE() AND table_name = ?
	ORDER BY ordinal_position`

func (d *Driver) Columns(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.TableColumn, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var rows []columnRow
	if err := db.SelectContext(ctx, &rows, columnQuery, table); err != nil {
		return nil, mapError(err, "failed to list columns")
	}

	columns := make([]driver.TableColumn, len(rows))
	for i, r := range rows {
		columns[i] = r.toColumn()
	}
	return columns, nil
}

// fkRow mirrors one KEY_COLUMN_USAGE / REFERENTIAL_CONSTRAINTS join row.
type fkRow struct {
	Name      string `db:"constraint_name"`
	Column    string `db:"column_name"`
	RefTable  string `db:"referenced_table_name"`
	RefColumn string `db:"referenced_column_name"`
	OnUpdate  string `db:"update_rule"`
	OnDelete  string `db:"delete_rule"`
	Table     string `db:"table_name"`
}

func (r fkRow) toForeignKey() driver.ForeignKey {
	return driver.ForeignKey{
		Name:             r.Name,
		Column:           r.Column,
		ReferencedTable:  r.RefTable,
		ReferencedColumn: r.RefColumn,
		OnDelete:         r.OnDelete,
		OnUpdate:         r.OnUpdate,
	}
}

const foreignKeyQuery = `
	SELECT
		kcu.constraint_name AS constraint_name,
		kcu.column_name AS column_name,
		kcu.referenced_table_name AS referenced_table_name,
		kcu.referenced_column_name AS referenced_column_name,
		rc.update_rule AS update_rule,
		rc.delete_rule AS delete_rule,
		kcu.table_name AS table_name
	FROM information_schema.key_column_usage kcu
	JOIN information_schema.referential_constraints rc
		ON kcu.constraint_name = rc.constraint_name
		AND kcu.constraint_schema = rc.constraint_schema
	WHERE kcu.table_schema = DATABASE()
		AND kcu.referenced_table_name IS NOT NULL`

func (d *Driver) ForeignKeys(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.ForeignKey, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var rows []fkRow
	q := foreignKeyQuery + ` AND kcu.table_name = ? ORDER BY kcu.constraint_name, kcu.ordinal_position`
	if err := db.SelectContext(ctx, &rows, q, table); err != nil {
		return nil, mapError(err, "failed to list foreign keys")
	}

	fks := make([]driver.ForeignKey, len(rows))
	for i, r := range rows {
		fks[i] = r.toForeignKey()
	}
	return fks, nil
}

func (d *Driver) Indexes(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.Index, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Name      string `db:"index_name"`
		Column    string `db:"column_name"`
		NonUnique int    `db:"non_unique"`
		Seq       int    `db:"seq_in_index"`
	}
	err = db.SelectContext(ctx, &rows, `
		SELECT index_name, column_name, non_unique, seq_in_index
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY index_name, seq_in_index`, table)
	if err != nil {
		return nil, mapError(err, "failed to list indexes")
	}

	// Group multi-column indexes; rows arrive ordered by name and position.
	var indexes []driver.Index
	for _, r := range rows {
		if n := len(indexes); n > 0 && indexes[n-1].Name == r.Name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, r.Column)
			continue
		}
		indexes = append(indexes, driver.Index{
			Name:      r.Name,
			Columns:   []string{r.Column},
			IsUnique:  r.NonUnique == 0,
			IsPrimary: r.Name == "PRIMARY",
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
	err = db.SelectContext(ctx, &names, `
		SELECT table_name
		FROM information_schema.views
		WHERE table_schema = DATABASE()
		ORDER BY table_name`)
	if err != nil {
		return nil, mapError(err, "failed to list views")
	}

	views := make([]driver.ViewInfo, len(names))
	for i, n := range names {
		views[i] = driver.ViewInfo{Name: n}
	}
	return views, nil
}

// ViewDefinition reads SHOW CREATE VIEW; the definition is the second column.
func (d *Driver) ViewDefinition(ctx context.Context, params driver.ConnectionParams, view, schema string) (string, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return "", err
	}

	row := db.QueryRowxContext(ctx, fmt.Sprintf("SHOW CREATE VIEW %s", dialect.QuoteIdent(view)))
	cols, err := row.SliceScan()
	if err != nil {
		return "", mapError(err, "failed to get view definition")
	}
	if len(cols) < 2 {
		return "", errs.New(errs.ErrKindDecode, "unexpected SHOW CREATE VIEW result shape")
	}
	return asString(cols[1]), nil
}

func (d *Driver) ViewColumns(ctx context.Context, params driver.ConnectionParams, view, schema string) ([]driver.TableColumn, error) {
	return d.Columns(ctx, params, view, schema)
}

func (d *Driver) CreateView(ctx context.Context, params driver.ConnectionParams, view, definition, schema string) error {
	return d.exec(ctx, params, fmt.Sprintf("CREATE VIEW %s AS %s", dialect.QuoteIdent(view), definition))
}

func (d *Driver) AlterView(ctx context.Context, params driver.ConnectionParams, view, definition, schema string) error {
	return d.exec(ctx, params, fmt.Sprintf("ALTER VIEW %s AS %s", dialect.QuoteIdent(view), definition))
}

func (d *Driver) DropView(ctx context.Context, params driver.ConnectionParams, view, schema string) error {
	return d.exec(ctx, params, fmt.Sprintf("DROP VIEW IF EXISTS %s", dialect.QuoteIdent(view)))
}

func (d *Driver) exec(ctx context.Context, params driver.ConnectionParams, sql string) error {
	db, err := d.db(ctx, params)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sql); err != nil {
		return mapError(err, "statement failed")
	}
	return nil
}

// --- Routines ---

func (d *Driver) Routines(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.RoutineInfo, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Name       string  `db:"routine_name"`
		Type       string  `db:"routine_type"`
		Definition *string `db:"routine_definition"`
	}
	err = db.SelectContext(ctx, &rows, `
		SELECT routine_name, routine_type, routine_definition
		FROM information_schema.routines
		WHERE routine_schema = DATABASE()
		ORDER BY routine_name`)
	if err != nil {
		return nil, mapError(err, "failed to list routines")
	}

	routines := make([]driver.RoutineInfo, len(rows))
	for i, r := range rows {
		routines[i] = driver.RoutineInfo{Name: r.Name, RoutineType: r.Type, Definition: r.Definition}
	}
	return routines, nil
}

// RoutineParameters lists a routine's parameters. A function's return value
// is reported first as ordinal 0 with mode OUT and an empty name.
func (d *Driver) RoutineParameters(ctx context.Context, params driver.ConnectionParams, routine, schema string) ([]driver.RoutineParameter, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var parameters []driver.RoutineParameter

	var info []struct {
		DataType *string `db:"data_type"`
		Type     string  `db:"routine_type"`
	}
	err = db.SelectContext(ctx, &info, `
		SELECT data_type, routine_type
		FROM information_schema.routines
		WHERE routine_schema = DATABASE() AND routine_name = ?`, routine)
	if err != nil {
		return nil, mapError(err, "failed to read routine metadata")
	}
	if len(info) > 0 && info[0].Type == "FUNCTION" && info[0].DataType != nil && *info[0].DataType != "" {
		parameters = append(parameters, driver.RoutineParameter{
			DataType:        *info[0].DataType,
			Mode:            "OUT",
			OrdinalPosition: 0,
		})
	}

	var rows []struct {
		Name     *string `db:"parameter_name"`
		DataType string  `db:"data_type"`
		Mode     *string `db:"parameter_mode"`
		Ordinal  int     `db:"ordinal_position"`
	}
	err = db.SelectContext(ctx, &rows, `
		SELECT parameter_name, data_type, parameter_mode, ordinal_position
		FROM information_schema.parameters
		WHERE specific_schema = DATABASE() AND specific_name = ? AND ordinal_position > 0
		ORDER BY ordinal_position`, routine)
	if err != nil {
		return nil, mapError(err, "failed to list routine parameters")
	}

	for _, r := range rows {
		p := driver.RoutineParameter{DataType: r.DataType, OrdinalPosition: r.Ordinal}
		if r.Name != nil {
			p.Name = *r.Name
		}
		if r.Mode != nil {
			p.Mode = *r.Mode
		}
		parameters = append(parameters, p)
	}
	return parameters, nil
}

// RoutineDefinition reads SHOW CREATE PROCEDURE/FUNCTION; the definition is
// the third column.
func (d *Driver) RoutineDefinition(ctx context.Context, params driver.ConnectionParams, routine, routineType, schema string) (string, error) {
	kind := strings.ToUpper(routineType)
	if kind != "PROCEDURE" && kind != "FUNCTION" {
		return "", errs.Newf(errs.ErrKindInvalidInput, "unknown routine type %q", routineType)
	}

	db, err := d.db(ctx, params)
	if err != nil {
		return "", err
	}

	row := db.QueryRowxContext(ctx, fmt.Sprintf("SHOW CREATE %s %s", kind, dialect.QuoteIdent(routine)))
	cols, err := row.SliceScan()
	if err != nil {
		return "", mapError(err, "failed to get routine definition")
	}
	if len(cols) < 3 {
		return "", errs.New(errs.ErrKindDecode, "unexpected SHOW CREATE result shape")
	}
	return asString(cols[2]), nil
}

// --- Query execution ---

func (d *Driver) ExecuteQuery(ctx context.Context, params driver.ConnectionParams, sql string, limit, page int, schema string) (*driver.QueryResult, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}
	return sqlexec.Execute(ctx, db, sql, limit, page)
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
		return nil, mapError(err, "failed to fetch blob")
	}
	return data, nil
}

func (d *Driver) SaveBlobToFile(ctx context.Context, params driver.ConnectionParams, table, column, pkColumn string, pkValue any, schema, filePath string) error {
	data, err := d.fetchBlob(ctx, params, table, column, pkColumn, pkValue)
	if err != nil {
		return err
	}
	return d.store.Put(ctx, filePath, bytes.NewReader(data), int64(len(data)), "application/octet-stream")
}

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

func (d *Driver) AlterColumnSQL(ctx context.Context, table string, oldColumn, newColumn driver.ColumnDefinition, schema string) ([]string, error) {
	return dialect.AlterColumnSQL(table, oldColumn, newColumn)
}

func (d *Driver) CreateIndexSQL(ctx context.Context, table, indexName string, columns []string, unique bool, schema string) ([]string, error) {
	return dialect.CreateIndexSQL(table, indexName, columns, unique)
}

func (d *Driver) CreateForeignKeySQL(ctx context.Context, table, fkName, column, refTable, refColumn, onDelete, onUpdate, schema string) ([]string, error) {
	return dialect.CreateForeignKeySQL(table, fkName, column, refTable, refColumn, onDelete, onUpdate)
}

func (d *Driver) DropIndex(ctx context.Context, params driver.ConnectionParams, table, indexName, schema string) error {
	return d.exec(ctx, params, dialect.DropIndexSQL(table, indexName))
}

func (d *Driver) DropForeignKey(ctx context.Context, params driver.ConnectionParams, table, fkName, schema string) error {
	return d.exec(ctx, params, dialect.DropForeignKeySQL(table, fkName))
}

// --- Batch snapshot ---

// AllColumns reads every table's columns in a single information_schema query.
func (d *Driver) AllColumns(ctx context.Context, params driver.ConnectionParams, schema string) (map[string][]driver.TableColumn, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var rows []columnRow
	err = db.SelectContext(ctx, &rows, `
		SELECT column_name, data_type, column_key, is_nullable, extra, column_default, table_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, mapError(err, "failed to list columns")
	}

	out := make(map[string][]driver.TableColumn)
	for _, r := range rows {
		out[r.Table] = append(out[r.Table], r.toColumn())
	}
	return out, nil
}

// AllForeignKeys reads every table's foreign keys in a single query.
func (d *Driver) AllForeignKeys(ctx context.Context, params driver.ConnectionParams, schema string) (map[string][]driver.ForeignKey, error) {
	db, err := d.db(ctx, params)
	if err != nil {
		return nil, err
	}

	var rows []fkRow
	q := foreignKeyQuery + ` ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, mapError(err, "failed to list foreign keys")
	}

	out := make(map[string][]driver.ForeignKey)
	for _, r := range rows {
		out[r.Table] = append(out[r.Table], r.toForeignKey())
	}
	return out, nil
}

func (d *Driver) SchemaSnapshot(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.TableSchema, error) {
	tables, err := d.Tables(ctx, params, schema)
	if err != nil {
		return nil, err
	}
	allCols, err := d.AllColumns(ctx, params, schema)
	if err != nil {
		return nil, err
	}
	allFKs, err := d.AllForeignKeys(ctx, params, schema)
	if err != nil {
		return nil, err
	}

	snapshot := make([]driver.TableSchema, len(tables))
	for i, t := range tables {
		snapshot[i] = driver.TableSchema{
			Name:        t.Name,
			Columns:     allCols[t.Name],
			ForeignKeys: allFKs[t.Name],
		}
	}
	return snapshot, nil
}

// asString normalizes the []byte values MySQL returns for text columns.
func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
