// Package driver defines the capability contract every database driver
// implements, whether it runs in-process against a native client library or
// proxies to a plugin subprocess. All layers above this package talk only to
// the Driver interface; they never import an engine package directly.
package driver

import "context"

// Driver is the complete interface a database driver must satisfy.
//
// The schema argument is optional throughout: engines without schema support
// (MySQL, SQLite) ignore it as a safe no-op, schema-aware engines
// (PostgreSQL) fall back to their default schema when it is empty.
//
// Every operation returns a categorised *errs.Error on failure; optional
// capabilities signal absence with errs.ErrKindUnsupported rather than a
// generic failure. No operation panics on bad input or bad replies.
type Driver interface {
	// Manifest returns the driver's static identity and capabilities.
	Manifest() Manifest

	// DataTypes lists the column types the engine offers for table design.
	DataTypes() []DataType

	// ConnectionURL builds the native connection string for params.
	// Plugin drivers manage their own connections and return a placeholder.
	ConnectionURL(params ConnectionParams) (string, error)

	// TestConnection opens a short-lived connection and pings it.
	TestConnection(ctx context.Context, params ConnectionParams) error

	// Shutdown releases background resources. In-process drivers have none;
	// plugin drivers terminate their child process. Idempotent.
	Shutdown(ctx context.Context) error

	// --- Discovery ---

	Databases(ctx context.Context, params ConnectionParams) ([]string, error)
	Schemas(ctx context.Context, params ConnectionParams) ([]string, error)
	Tables(ctx context.Context, params ConnectionParams, schema string) ([]TableInfo, error)
	Columns(ctx context.Context, params ConnectionParams, table, schema string) ([]TableColumn, error)
	ForeignKeys(ctx context.Context, params ConnectionParams, table, schema string) ([]ForeignKey, error)
	Indexes(ctx context.Context, params ConnectionParams, table, schema string) ([]Index, error)

	// --- Views ---

	Views(ctx context.Context, params ConnectionParams, schema string) ([]ViewInfo, error)
	ViewDefinition(ctx context.Context, params ConnectionParams, view, schema string) (string, error)
	ViewColumns(ctx context.Context, params ConnectionParams, view, schema string) ([]TableColumn, error)
	CreateView(ctx context.Context, params ConnectionParams, view, definition, schema string) error
	AlterView(ctx context.Context, params ConnectionParams, view, definition, schema string) error
	DropView(ctx context.Context, params ConnectionParams, view, schema string) error

	// --- Routines ---

	Routines(ctx context.Context, params ConnectionParams, schema string) ([]RoutineInfo, error)
	RoutineParameters(ctx context.Context, params ConnectionParams, routine, schema string) ([]RoutineParameter, error)
	RoutineDefinition(ctx context.Context, params ConnectionParams, routine, routineType, schema string) (string, error)

	// --- Query execution ---

	// ExecuteQuery runs sql against the engine. A limit > 0 paginates
	// SELECT-family statements with 1-based page numbers (page 0 reads as 1);
	// limit 0 executes the statement as-is with no pagination metadata.
	ExecuteQuery(ctx context.Context, params ConnectionParams, sql string, limit, page int, schema string) (*QueryResult, error)

	// --- CRUD ---

	// InsertRecord inserts one row; string values in blob wire format are
	// decoded to raw bytes before binding. Returns the affected-row count.
	InsertRecord(ctx context.Context, params ConnectionParams, table string, data map[string]any, schema string, maxBlobSize uint64) (uint64, error)
	UpdateRecord(ctx context.Context, params ConnectionParams, table, pkColumn string, pkValue any, column string, newValue any, schema string, maxBlobSize uint64) (uint64, error)
	DeleteRecord(ctx context.Context, params ConnectionParams, table, pkColumn string, pkValue any, schema string) (uint64, error)

	// --- BLOB helpers (optional capability) ---

	SaveBlobToFile(ctx context.Context, params ConnectionParams, table, column, pkColumn string, pkValue any, schema, filePath string) error
	FetchBlobAsDataURL(ctx context.Context, params ConnectionParams, table, column, pkColumn string, pkValue any, schema string) (string, error)

	// --- DDL preview (optional capability; pure, nothing is executed) ---

	CreateTableSQL(ctx context.Context, table string, columns []ColumnDefinition, schema string) ([]string, error)
	AddColumnSQL(ctx context.Context, table string, column ColumnDefinition, schema string) ([]string, error)
	AlterColumnSQL(ctx context.Context, table string, oldColumn, newColumn ColumnDefinition, schema string) ([]string, error)
	CreateIndexSQL(ctx context.Context, table, indexName string, columns []string, unique bool, schema string) ([]string, error)
	CreateForeignKeySQL(ctx context.Context, table, fkName, column, refTable, refColumn, onDelete, onUpdate, schema string) ([]string, error)
	DropIndex(ctx context.Context, params ConnectionParams, table, indexName, schema string) error
	DropForeignKey(ctx context.Context, params ConnectionParams, table, fkName, schema string) error

	// --- Batch snapshot (single round-trip variants for ER diagrams) ---

	// SchemaSnapshot is equivalent to Tables + per-table Columns/ForeignKeys
	// merged, but may be served in fewer engine round trips.
	SchemaSnapshot(ctx context.Context, params ConnectionParams, schema string) ([]TableSchema, error)
	AllColumns(ctx context.Context, params ConnectionParams, schema string) (map[string][]TableColumn, error)
	AllForeignKeys(ctx context.Context, params ConnectionParams, schema string) (map[string][]ForeignKey, error)
}
