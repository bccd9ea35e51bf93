package plugin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
)

var _ driver.Driver = (*RPCDriver)(nil)

// RPCDriver satisfies the driver contract by proxying every operation as one
// JSON-RPC call to a plugin subprocess. The BLOB helpers stay unsupported;
// plugins exchange binary values through the blob wire format instead.
type RPCDriver struct {
	driver.UnsupportedBlobs

	manifest  driver.Manifest
	dataTypes []driver.DataType
	proc      *Process
}

// NewRPCDriver wraps a running plugin process. The manifest and data types
// come from the plugin's manifest file, not from the process itself.
func NewRPCDriver(manifest driver.Manifest, dataTypes []driver.DataType, proc *Process) *RPCDriver {
	manifest.IsBuiltin = false
	return &RPCDriver{manifest: manifest, dataTypes: dataTypes, proc: proc}
}

// call performs one RPC and decodes the result into T. A reply that cannot
// be decoded into the operation's declared shape is a decode error, never a
// panic.
func call[T any](ctx context.Context, p *Process, method string, params map[string]any) (T, error) {
	var out T
	raw, err := p.Call(ctx, method, params)
	if err != nil {
		return out, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errs.Wrap(errs.ErrKindDecode, fmt.Sprintf("cannot decode %s reply", method), err)
	}
	return out, nil
}

// callVoid performs one RPC and discards the result.
func callVoid(ctx context.Context, p *Process, method string, params map[string]any) error {
	_, err := p.Call(ctx, method, params)
	return err
}

func (d *RPCDriver) Manifest() driver.Manifest { return d.manifest }

func (d *RPCDriver) DataTypes() []driver.DataType { return d.dataTypes }

// ConnectionURL returns a placeholder; plugins manage their own connections.
func (d *RPCDriver) ConnectionURL(params driver.ConnectionParams) (string, error) {
	return fmt.Sprintf("%s://...", d.manifest.ID), nil
}

func (d *RPCDriver) TestConnection(ctx context.Context, params driver.ConnectionParams) error {
	return callVoid(ctx, d.proc, "test_connection", map[string]any{"params": params})
}

// Shutdown terminates the plugin process. Idempotent.
func (d *RPCDriver) Shutdown(ctx context.Context) error {
	d.proc.Shutdown()
	return nil
}

// PID reports the child's process id.
func (d *RPCDriver) PID() int { return d.proc.PID() }

// --- Discovery ---

func (d *RPCDriver) Databases(ctx context.Context, params driver.ConnectionParams) ([]string, error) {
	return call[[]string](ctx, d.proc, "get_databases", map[string]any{"params": params})
}

func (d *RPCDriver) Schemas(ctx context.Context, params driver.ConnectionParams) ([]string, error) {
	return call[[]string](ctx, d.proc, "get_schemas", map[string]any{"params": params})
}

func (d *RPCDriver) Tables(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.TableInfo, error) {
	return call[[]driver.TableInfo](ctx, d.proc, "get_tables",
		map[string]any{"params": params, "schema": schema})
}

func (d *RPCDriver) Columns(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.TableColumn, error) {
	return call[[]driver.TableColumn](ctx, d.proc, "get_columns",
		map[string]any{"params": params, "table": table, "schema": schema})
}

func (d *RPCDriver) ForeignKeys(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.ForeignKey, error) {
	return call[[]driver.ForeignKey](ctx, d.proc, "get_foreign_keys",
		map[string]any{"params": params, "table": table, "schema": schema})
}

func (d *RPCDriver) Indexes(ctx context.Context, params driver.ConnectionParams, table, schema string) ([]driver.Index, error) {
	return call[[]driver.Index](ctx, d.proc, "get_indexes",
		map[string]any{"params": params, "table": table, "schema": schema})
}

// --- Views ---

func (d *RPCDriver) Views(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.ViewInfo, error) {
	return call[[]driver.ViewInfo](ctx, d.proc, "get_views",
		map[string]any{"params": params, "schema": schema})
}

func (d *RPCDriver) ViewDefinition(ctx context.Context, params driver.ConnectionParams, view, schema string) (string, error) {
	return call[string](ctx, d.proc, "get_view_definition",
		map[string]any{"params": params, "view_name": view, "schema": schema})
}

func (d *RPCDriver) ViewColumns(ctx context.Context, params driver.ConnectionParams, view, schema string) ([]driver.TableColumn, error) {
	return call[[]driver.TableColumn](ctx, d.proc, "get_view_columns",
		map[string]any{"params": params, "view_name": view, "schema": schema})
}

func (d *RPCDriver) CreateView(ctx context.Context, params driver.ConnectionParams, view, definition, schema string) error {
	return callVoid(ctx, d.proc, "create_view",
		map[string]any{"params": params, "view_name": view, "definition": definition, "schema": schema})
}

func (d *RPCDriver) AlterView(ctx context.Context, params driver.ConnectionParams, view, definition, schema string) error {
	return callVoid(ctx, d.proc, "alter_view",
		map[string]any{"params": params, "view_name": view, "definition": definition, "schema": schema})
}

func (d *RPCDriver) DropView(ctx context.Context, params driver.ConnectionParams, view, schema string) error {
	return callVoid(ctx, d.proc, "drop_view",
		map[string]any{"params": params, "view_name": view, "schema": schema})
}

// --- Routines ---

func (d *RPCDriver) Routines(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.RoutineInfo, error) {
	return call[[]driver.RoutineInfo](ctx, d.proc, "get_routines",
		map[string]any{"params": params, "schema": schema})
}

func (d *RPCDriver) RoutineParameters(ctx context.Context, params driver.ConnectionParams, routine, schema string) ([]driver.RoutineParameter, error) {
	return call[[]driver.RoutineParameter](ctx, d.proc, "get_routine_parameters",
		map[string]any{"params": params, "routine_name": routine, "schema": schema})
}

func (d *RPCDriver) RoutineDefinition(ctx context.Context, params driver.ConnectionParams, routine, routineType, schema string) (string, error) {
	return call[string](ctx, d.proc, "get_routine_definition",
		map[string]any{"params": params, "routine_name": routine, "routine_type": routineType, "schema": schema})
}

// --- Query execution ---

func (d *RPCDriver) ExecuteQuery(ctx context.Context, params driver.ConnectionParams, sql string, limit, page int, schema string) (*driver.QueryResult, error) {
	res, err := call[driver.QueryResult](ctx, d.proc, "execute_query",
		map[string]any{"params": params, "query": sql, "limit": limit, "page": page, "schema": schema})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// --- CRUD ---

func (d *RPCDriver) InsertRecord(ctx context.Context, params driver.ConnectionParams, table string, data map[string]any, schema string, maxBlobSize uint64) (uint64, error) {
	return call[uint64](ctx, d.proc, "insert_record",
		map[string]any{"params": params, "table": table, "data": data, "schema": schema, "max_blob_size": maxBlobSize})
}

func (d *RPCDriver) UpdateRecord(ctx context.Context, params driver.ConnectionParams, table, pkColumn string, pkValue any, column string, newValue any, schema string, maxBlobSize uint64) (uint64, error) {
	return call[uint64](ctx, d.proc, "update_record", map[string]any{
		"params": params, "table": table,
		"pk_col": pkColumn, "pk_val": pkValue,
		"col_name": column, "new_val": newValue,
		"schema": schema, "max_blob_size": maxBlobSize,
	})
}

func (d *RPCDriver) DeleteRecord(ctx context.Context, params driver.ConnectionParams, table, pkColumn string, pkValue any, schema string) (uint64, error) {
	return call[uint64](ctx, d.proc, "delete_record", map[string]any{
		"params": params, "table": table,
		"pk_col": pkColumn, "pk_val": pkValue,
		"schema": schema,
	})
}

// --- DDL preview ---

func (d *RPCDriver) CreateTableSQL(ctx context.Context, table string, columns []driver.ColumnDefinition, schema string) ([]string, error) {
	return call[[]string](ctx, d.proc, "get_create_table_sql",
		map[string]any{"table_name": table, "columns": columns, "schema": schema})
}

func (d *RPCDriver) AddColumnSQL(ctx context.Context, table string, column driver.ColumnDefinition, schema string) ([]string, error) {
	return call[[]string](ctx, d.proc, "get_add_column_sql",
		map[string]any{"table": table, "column": column, "schema": schema})
}

func (d *RPCDriver) AlterColumnSQL(ctx context.Context, table string, oldColumn, newColumn driver.ColumnDefinition, schema string) ([]string, error) {
	return call[[]string](ctx, d.proc, "get_alter_column_sql",
		map[string]any{"table": table, "old_column": oldColumn, "new_column": newColumn, "schema": schema})
}

func (d *RPCDriver) CreateIndexSQL(ctx context.Context, table, indexName string, columns []string, unique bool, schema string) ([]string, error) {
	return call[[]string](ctx, d.proc, "get_create_index_sql", map[string]any{
		"table": table, "index_name": indexName,
		"columns": columns, "is_unique": unique,
		"schema": schema,
	})
}

func (d *RPCDriver) CreateForeignKeySQL(ctx context.Context, table, fkName, column, refTable, refColumn, onDelete, onUpdate, schema string) ([]string, error) {
	return call[[]string](ctx, d.proc, "get_create_foreign_key_sql", map[string]any{
		"table": table, "fk_name": fkName, "column": column,
		"ref_table": refTable, "ref_column": refColumn,
		"on_delete": onDelete, "on_update": onUpdate,
		"schema": schema,
	})
}

func (d *RPCDriver) DropIndex(ctx context.Context, params driver.ConnectionParams, table, indexName, schema string) error {
	return callVoid(ctx, d.proc, "drop_index",
		map[string]any{"params": params, "table": table, "index_name": indexName, "schema": schema})
}

func (d *RPCDriver) DropForeignKey(ctx context.Context, params driver.ConnectionParams, table, fkName, schema string) error {
	return callVoid(ctx, d.proc, "drop_foreign_key",
		map[string]any{"params": params, "table": table, "fk_name": fkName, "schema": schema})
}

// --- Batch snapshot ---

func (d *RPCDriver) SchemaSnapshot(ctx context.Context, params driver.ConnectionParams, schema string) ([]driver.TableSchema, error) {
	return call[[]driver.TableSchema](ctx, d.proc, "get_schema_snapshot",
		map[string]any{"params": params, "schema": schema})
}

func (d *RPCDriver) AllColumns(ctx context.Context, params driver.ConnectionParams, schema string) (map[string][]driver.TableColumn, error) {
	return call[map[string][]driver.TableColumn](ctx, d.proc, "get_all_columns_batch",
		map[string]any{"params": params, "schema": schema})
}

func (d *RPCDriver) AllForeignKeys(ctx context.Context, params driver.ConnectionParams, schema string) (map[string][]driver.ForeignKey, error) {
	return call[map[string][]driver.ForeignKey](ctx, d.proc, "get_all_foreign_keys_batch",
		map[string]any{"params": params, "schema": schema})
}
