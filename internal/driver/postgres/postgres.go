// Package postgres implements the driver contract for PostgreSQL servers
// using pgx connection pools.
//
// PostgreSQL is schema-aware: every introspection and data operation accepts
// a schema name and falls back to the connection's default schema, then to
// "public", when it is empty.
package postgres

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mosaic-db/mosaic/internal/blob"
	"github.com/mosaic-db/mosaic/internal/blobstore"
	"github.com/mosaic-db/mosaic/internal/ddl"
	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/logger"
	"github.com/mosaic-db/mosaic/internal/pool"
)

var dialect = ddl.Postgres

// Options configures a Driver. Zero values select working defaults.
type Options struct {
	MaxConns int32
	// Store receives exported blob payloads; defaults to the local disk.
	Store blobstore.Store
	// Log defaults to a no-op logger.
	Log *logger.Logger
}

var _ driver.Driver = (*Driver)(nil)

// Driver is the in-process PostgreSQL driver. It is safe for concurrent use
// by multiple goroutines.
type Driver struct {
	manifest driver.Manifest
	pools    *pool.Manager[*pgxpool.Pool]
	store    blobstore.Store
	log      *logger.Logger
}

// New returns a PostgreSQL driver.
func New(opts Options) *Driver {
	if opts.Store == nil {
		opts.Store = blobstore.NewDisk("")
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	d := &Driver{
		manifest: driver.Manifest{
			ID:          "postgres",
			Name:        "PostgreSQL",
			Version:     "1.0.0",
			Description: "PostgreSQL servers",
			DefaultPort: defaultPort,
			Capabilities: driver.Capabilities{
				Schemas:           true,
				Views:             true,
				Routines:          true,
				IdentifierQuote:   `"`,
				AlterPrimaryKey:   true,
				SerialType:        "SERIAL",
				AlterColumn:       true,
				CreateForeignKeys: true,
			},
			IsBuiltin:       true,
			DefaultUsername: "postgres",
		},
		store: opts.Store,
		log:   opts.Log,
	}
	d.pools = pool.NewManager(
		func(ctx context.Context, params driver.ConnectionParams) (*pgxpool.Pool, error) {
			return buildPool(ctx, params, opts.MaxConns)
		},
		func(p *pgxpool.Pool) { p.Close() },
		opts.Log,
	)
	return d
}

func (d *Driver) Manifest() driver.Manifest { return d.manifest }

func (d *Driver) DataTypes() []driver.DataType {
	return []driver.DataType{
		{Name: "SMALLINT", Category: "numeric"},
		{Name: "INTEGER", Category: "numeric"},
		{Name: "BIGINT", Category: "numeric"},
		{Name: "NUMERIC", Category: "numeric"},
		{Name: "REAL", Category: "numeric"},
		{Name: "DOUBLE PRECISION", Category: "numeric"},
		{Name: "SERIAL", Category: "numeric"},
		{Name: "BIGSERIAL", Category: "numeric"},
		{Name: "CHAR", Category: "text"},
		{Name: "VARCHAR(255)", Category: "text"},
		{Name: "TEXT", Category: "text"},
		{Name: "JSON", Category: "other"},
		{Name: "JSONB", Category: "other"},
		{Name: "UUID", Category: "other"},
		{Name: "DATE", Category: "datetime"},
		{Name: "TIMESTAMP", Category: "datetime"},
		{Name: "TIMESTAMPTZ", Category: "datetime"},
		{Name: "TIME", Category: "datetime"},
		{Name: "BOOLEAN", Category: "boolean"},
		{Name: "BYTEA", Category: "binary"},
	}
}

// ConnectionURL builds the libpq-style key/value connection string.
func (d *Driver) ConnectionURL(params driver.ConnectionParams) (string, error) {
	return buildDSN(params), nil
}

func (d *Driver) TestConnection(ctx context.Context, params driver.ConnectionParams) error {
	p, err := buildPool(ctx, params, 1)
	if err != nil {
		return mapError(err, "connection test failed")
	}
	p.Close()
	return nil
}

// Shutdown drains every connection pool.
func (d *Driver) Shutdown(ctx context.Context) error {
	d.pools.CloseAll()
	return nil
}

func (d *Driver) pool(ctx context.Context, params driver.ConnectionParams) (*pgxpool.Pool, error) {
	return d.pools.Get(ctx, params)
}

// schemaName resolves the effective schema for an operation.
func schemaName(params driver.ConnectionParams, schema string) string {
	if schema != "" {
		return schema
	}
	if params.DefaultSchema != "" {
		return params.DefaultSchema
	}
	return "public"
}

// qualify renders a quoted schema.table relation name.
func qualify(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}

func (d *Driver) selectStrings(ctx context.Context, params driver.ConnectionParams, query string, args ...any) ([]string, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return nil, err
	}

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, mapError(err, "failed to read row")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "row iteration failed")
	}
	return out, nil
}

// --- Discovery ---

func (d *Driver) Databases(ctx context.Context, params driver.ConnectionParams) ([]string, error) {
	return d.selectStrings(ctx, params, `
		SELECT datname FROM pg_database
		WHERE datistemplate = false
		ORDER BY datname`)
}

func (d *Driver) Schemas(ctx context.Context, params driver.ConnectionParams) ([]string, error) {
	return d.selectStrings(ctx, params, `
		SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT LIKE 'pg\_%' AND schema_name <> 'information_schema'
		ORDER BY schema_name`)
}

func (d *Driver) Tables(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.TableInfo, error) {
	names, err := d.selectStrings(ctx, params, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schemaName(params, schema))
	if err != nil {
		return nil, err
	}

	tables := make([]driver.TableInfo, len(names))
	for i, n := range names {
		tables[i] = driver.TableInfo{Name: n}
	}
	return tables, nil
}

// columnQuery joins information_schema.columns against the table's primary
// key constraint. Auto-increment covers both serial columns (nextval default)
// and identity columns.
const columnQuery = `
	SELECT
		c.table_name,
		c.column_name,
		c.data_type,
		c.is_nullable = 'YES',
		c.column_default,
		c.is_identity = 'YES' OR COALESCE(c.column_default LIKE 'nextval(%', false),
		EXISTS (
			SELECT 1
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = c.table_schema
				AND tc.table_name = c.table_name
				AND kcu.column_name = c.column_name
		)
	FROM information_schema.columns c
	WHERE c.table_schema = $1`

func (d *Driver) scanColumns(ctx context.Context, p *pgxpool.Pool, query string, args ...any) (map[string][]driver.TableColumn, error) {
	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to list columns")
	}
	defer rows.Close()

	out := make(map[string][]driver.TableColumn)
	for rows.Next() {
		var (
			table   string
			col     driver.TableColumn
			def     *string
			autoinc bool
		)
		if err := rows.Scan(&table, &col.Name, &col.DataType, &col.IsNullable, &def, &autoinc, &col.IsPK); err != nil {
			return nil, mapError(err, "failed to read column row")
		}
		col.IsAutoIncrement = autoinc
		// Hide serial nextval defaults; the UI only wants explicit defaults.
		if !autoinc && def != nil && *def != "" {
			col.DefaultValue = def
		}
		out[table] = append(out[table], col)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "row iteration failed")
	}
	return out, nil
}

func (d *Driver) Columns(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.TableColumn, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return nil, err
	}

	q := columnQuery + ` AND c.table_name = $2 ORDER BY c.ordinal_position`
	byTable, err := d.scanColumns(ctx, p, q, schemaName(params, schema), table)
	if err != nil {
		return nil, err
	}
	cols := byTable[table]
	if cols == nil {
		cols = []driver.TableColumn{}
	}
	return cols, nil
}

const foreignKeyQuery = `
	SELECT
		tc.table_name,
		tc.constraint_name,
		kcu.column_name,
		ccu.table_name AS referenced_table,
		ccu.column_name AS referenced_column,
		rc.delete_rule,
		rc.update_rule
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage ccu
		ON tc.constraint_name = ccu.constraint_name
		AND tc.table_schema = ccu.table_schema
	JOIN information_schema.referential_constraints rc
		ON tc.constraint_name = rc.constraint_name
		AND tc.table_schema = rc.constraint_schema
	WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1`

func (d *Driver) scanForeignKeys(ctx context.Context, p *pgxpool.Pool, query string, args ...any) (map[string][]driver.ForeignKey, error) {
	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to list foreign keys")
	}
	defer rows.Close()

	out := make(map[string][]driver.ForeignKey)
	for rows.Next() {
		var (
			table string
			fk    driver.ForeignKey
		)
		if err := rows.Scan(&table, &fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.OnDelete, &fk.OnUpdate); err != nil {
			return nil, mapError(err, "failed to read foreign key row")
		}
		out[table] = append(out[table], fk)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "row iteration failed")
	}
	return out, nil
}

func (d *Driver) ForeignKeys(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.ForeignKey, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return nil, err
	}

	q := foreignKeyQuery + ` AND tc.table_name = $2 ORDER BY tc.constraint_name`
	byTable, err := d.scanForeignKeys(ctx, p, q, schemaName(params, schema), table)
	if err != nil {
		return nil, err
	}
	fks := byTable[table]
	if fks == nil {
		fks = []driver.ForeignKey{}
	}
	return fks, nil
}

func (d *Driver) Indexes(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.Index, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return nil, err
	}

	rows, err := p.Query(ctx, `
		SELECT
			i.relname,
			a.attname,
			ix.indisunique,
			ix.indisprimary
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1 AND t.relname = $2
		ORDER BY i.relname, array_position(ix.indkey, a.attnum)`,
		schemaName(params, schema), table)
	if err != nil {
		return nil, mapError(err, "failed to list indexes")
	}
	defer rows.Close()

	// Group multi-column indexes; rows arrive ordered by name and position.
	var indexes []driver.Index
	for rows.Next() {
		var (
			name, column        string
			isUnique, isPrimary bool
		)
		if err := rows.Scan(&name, &column, &isUnique, &isPrimary); err != nil {
			return nil, mapError(err, "failed to read index row")
		}
		if n := len(indexes); n > 0 && indexes[n-1].Name == name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, column)
			continue
		}
		indexes = append(indexes, driver.Index{
			Name:      name,
			Columns:   []string{column},
			IsUnique:  isUnique,
			IsPrimary: isPrimary,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "row iteration failed")
	}
	return indexes, nil
}

// --- Views ---

func (d *Driver) Views(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.ViewInfo, error) {
	names, err := d.selectStrings(ctx, params, `
		SELECT table_name FROM information_schema.views
		WHERE table_schema = $1
		ORDER BY table_name`, schemaName(params, schema))
	if err != nil {
		return nil, err
	}

	views := make([]driver.ViewInfo, len(names))
	for i, n := range names {
		views[i] = driver.ViewInfo{Name: n}
	}
	return views, nil
}

func (d *Driver) ViewDefinition(ctx context.Context, params driver.ConnectionParams, view, schema string) (string, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return "", err
	}

	var def string
	err = p.QueryRow(ctx, `
		SELECT pg_get_viewdef(format('%I.%I', $1::text, $2::text)::regclass, true)`,
		schemaName(params, schema), view).Scan(&def)
	if err != nil {
		return "", mapError(err, "failed to get view definition")
	}
	return strings.TrimSpace(def), nil
}

func (d *Driver) ViewColumns(ctx context.Context, params driver.ConnectionParams, view, schema string) ([]driver.TableColumn, error) {
	return d.Columns(ctx, params, view, schema)
}

func (d *Driver) CreateView(ctx context.Context, params driver.ConnectionParams, view, definition, schema string) error {
	return d.exec(ctx, params, fmt.Sprintf("CREATE VIEW %s AS %s",
		qualify(schemaName(params, schema), view), definition))
}

// AlterView replaces the view body; CREATE OR REPLACE keeps dependent objects
// intact, unlike a drop-and-create cycle.
func (d *Driver) AlterView(ctx context.Context, params driver.ConnectionParams, view, definition, schema string) error {
	return d.exec(ctx, params, fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s",
		qualify(schemaName(params, schema), view), definition))
}

func (d *Driver) DropView(ctx context.Context, params driver.ConnectionParams, view, schema string) error {
	return d.exec(ctx, params, fmt.Sprintf("DROP VIEW IF EXISTS %s",
		qualify(schemaName(params, schema), view)))
}

func (d *Driver) exec(ctx context.Context, params driver.ConnectionParams, sql string) error {
	p, err := d.pool(ctx, params)
	if err != nil {
		return err
	}
	if _, err := p.Exec(ctx, sql); err != nil {
		return mapError(err, "statement failed")
	}
	return nil
}

// --- Routines ---

func (d *Driver) Routines(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.RoutineInfo, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return nil, err
	}

	rows, err := p.Query(ctx, `
		SELECT routine_name, routine_type, routine_definition
		FROM information_schema.routines
		WHERE routine_schema = $1
		ORDER BY routine_name`, schemaName(params, schema))
	if err != nil {
		return nil, mapError(err, "failed to list routines")
	}
	defer rows.Close()

	var routines []driver.RoutineInfo
	for rows.Next() {
		var r driver.RoutineInfo
		if err := rows.Scan(&r.Name, &r.RoutineType, &r.Definition); err != nil {
			return nil, mapError(err, "failed to read routine row")
		}
		routines = append(routines, r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "row iteration failed")
	}
	return routines, nil
}

// RoutineParameters lists a routine's parameters. A function's return value
// is reported first as ordinal 0 with mode OUT and an empty name.
func (d *Driver) RoutineParameters(ctx context.Context, params driver.ConnectionParams, routine, schema string) ([]driver.RoutineParameter, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return nil, err
	}
	sch := schemaName(params, schema)

	var parameters []driver.RoutineParameter

	var routineType string
	var returnType *string
	err = p.QueryRow(ctx, `
		SELECT routine_type, data_type
		FROM information_schema.routines
		WHERE routine_schema = $1 AND routine_name = $2
		LIMIT 1`, sch, routine).Scan(&routineType, &returnType)
	if err != nil {
		return nil, mapError(err, "failed to read routine metadata")
	}
	if routineType == "FUNCTION" && returnType != nil && *returnType != "" {
		parameters = append(parameters, driver.RoutineParameter{
			DataType:        *returnType,
			Mode:            "OUT",
			OrdinalPosition: 0,
		})
	}

	rows, err := p.Query(ctx, `
		SELECT p.parameter_name, p.data_type, p.parameter_mode, p.ordinal_position
		FROM information_schema.parameters p
		JOIN information_schema.routines r
			ON p.specific_name = r.specific_name
			AND p.specific_schema = r.specific_schema
		WHERE r.routine_schema = $1 AND r.routine_name = $2 AND p.ordinal_position > 0
		ORDER BY p.ordinal_position`, sch, routine)
	if err != nil {
		return nil, mapError(err, "failed to list routine parameters")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, mode *string
			param      driver.RoutineParameter
		)
		if err := rows.Scan(&name, &param.DataType, &mode, &param.OrdinalPosition); err != nil {
			return nil, mapError(err, "failed to read parameter row")
		}
		if name != nil {
			param.Name = *name
		}
		if mode != nil {
			param.Mode = *mode
		}
		parameters = append(parameters, param)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "row iteration failed")
	}
	return parameters, nil
}

// RoutineDefinition reads the full CREATE statement via pg_get_functiondef.
func (d *Driver) RoutineDefinition(ctx context.Context, params driver.ConnectionParams, routine, routineType, schema string) (string, error) {
	kind := strings.ToUpper(routineType)
	if kind != "PROCEDURE" && kind != "FUNCTION" {
		return "", errs.Newf(errs.ErrKindInvalidInput, "unknown routine type %q", routineType)
	}

	p, err := d.pool(ctx, params)
	if err != nil {
		return "", err
	}

	var def string
	err = p.QueryRow(ctx, `
		SELECT pg_get_functiondef(pr.oid)
		FROM pg_proc pr
		JOIN pg_namespace n ON n.oid = pr.pronamespace
		WHERE n.nspname = $1 AND pr.proname = $2
		LIMIT 1`, schemaName(params, schema), routine).Scan(&def)
	if err != nil {
		return "", mapError(err, "failed to get routine definition")
	}
	return def, nil
}

// --- Query execution ---

func (d *Driver) ExecuteQuery(ctx context.Context, params driver.ConnectionParams, sql string, limit, page int, schema string) (*driver.QueryResult, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return nil, err
	}
	return execute(ctx, p, sql, limit, page)
}

// --- CRUD ---

func (d *Driver) InsertRecord(ctx context.Context, params driver.ConnectionParams, table string, data map[string]any, schema string, maxBlobSize uint64) (uint64, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return 0, err
	}
	b := binder{maxBlobSize: maxBlobSize}
	return b.insert(ctx, p, qualify(schemaName(params, schema), table), data)
}

func (d *Driver) UpdateRecord(ctx context.Context, params driver.ConnectionParams, table, pkColumn string, pkValue any, column string, newValue any, schema string, maxBlobSize uint64) (uint64, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return 0, err
	}
	b := binder{maxBlobSize: maxBlobSize}
	return b.update(ctx, p, qualify(schemaName(params, schema), table), pkColumn, pkValue, column, newValue)
}

func (d *Driver) DeleteRecord(ctx context.Context, params driver.ConnectionParams, table, pkColumn string, pkValue any, schema string) (uint64, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return 0, err
	}
	var b binder
	return b.delete(ctx, p, qualify(schemaName(params, schema), table), pkColumn, pkValue)
}

// --- Blob helpers ---

func (d *Driver) fetchBlob(ctx context.Context, params driver.ConnectionParams, table, column, pkColumn string, pkValue any, schema string) ([]byte, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		quoteIdent(column), qualify(schemaName(params, schema), table), quoteIdent(pkColumn))

	var data []byte
	if err := p.QueryRow(ctx, q, pkValue).Scan(&data); err != nil {
		return nil, mapError(err, "failed to fetch blob")
	}
	return data, nil
}

func (d *Driver) SaveBlobToFile(ctx context.Context, params driver.ConnectionParams, table, column, pkColumn string, pkValue any, schema, filePath string) error {
	data, err := d.fetchBlob(ctx, params, table, column, pkColumn, pkValue, schema)
	if err != nil {
		return err
	}
	return d.store.Put(ctx, filePath, bytes.NewReader(data), int64(len(data)), "application/octet-stream")
}

func (d *Driver) FetchBlobAsDataURL(ctx context.Context, params driver.ConnectionParams, table, column, pkColumn string, pkValue any, schema string) (string, error) {
	data, err := d.fetchBlob(ctx, params, table, column, pkColumn, pkValue, schema)
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
	p, err := d.pool(ctx, params)
	if err != nil {
		return nil, err
	}
	q := columnQuery + ` ORDER BY c.table_name, c.ordinal_position`
	return d.scanColumns(ctx, p, q, schemaName(params, schema))
}

// AllForeignKeys reads every table's foreign keys in a single query.
func (d *Driver) AllForeignKeys(ctx context.Context, params driver.ConnectionParams, schema string) (map[string][]driver.ForeignKey, error) {
	p, err := d.pool(ctx, params)
	if err != nil {
		return nil, err
	}
	q := foreignKeyQuery + ` ORDER BY tc.table_name, tc.constraint_name`
	return d.scanForeignKeys(ctx, p, q, schemaName(params, schema))
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
