package driver

// ConnectionParams identifies one target database for a single operation.
// It is immutable per call; the core never persists it.
type ConnectionParams struct {
	// Driver is the registry id of the driver to use (e.g. "postgres").
	Driver string `json:"driver"`
	// Host and Port are empty/zero for file-based engines.
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
	// Username and Password are optional (e.g. SQLite needs neither).
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	// Database is the database name, or the file path for file-based engines.
	Database string `json:"database"`
	// ConnectionID is an optional stable identifier from a saved connection.
	// When set, connection pools are keyed by it instead of host:port, which
	// keeps the same pool valid when an SSH tunnel changes the local port.
	ConnectionID string `json:"connection_id,omitempty"`
	// DefaultSchema is an optional schema override for schema-aware engines.
	DefaultSchema string `json:"schema,omitempty"`
}

// Capabilities advertises what a driver's engine can do. Presentation layers
// use these flags to decide which affordances apply; the DDL builders use the
// quoting and auto-increment fields. Never mutated after construction.
type Capabilities struct {
	// Schemas is true for engines with multiple named schemas (PostgreSQL).
	Schemas bool `json:"schemas"`
	// Views is true when the engine supports views.
	Views bool `json:"views"`
	// Routines is true when the engine supports stored procedures/functions.
	Routines bool `json:"routines"`
	// FileBased is true for embedded engines addressed by file path (SQLite).
	FileBased bool `json:"file_based"`
	// FolderBased is true for engines addressed by a directory.
	FolderBased bool `json:"folder_based,omitempty"`
	// IdentifierQuote is the quote character for identifiers (`"` or "`").
	IdentifierQuote string `json:"identifier_quote"`
	// AlterPrimaryKey is true when PKs can be added to existing tables.
	AlterPrimaryKey bool `json:"alter_primary_key"`
	// AutoIncrementKeyword is appended after the column type for
	// auto-increment columns (e.g. "AUTO_INCREMENT"). Empty when unused.
	AutoIncrementKeyword string `json:"auto_increment_keyword,omitempty"`
	// SerialType replaces the column type for auto-increment columns
	// (e.g. "SERIAL"). Empty when unused.
	SerialType string `json:"serial_type,omitempty"`
	// InlinePK is true when the primary key is declared inline in the column
	// definition (SQLite AUTOINCREMENT).
	InlinePK bool `json:"inline_pk,omitempty"`
	// AlterColumn is true when ALTER/MODIFY COLUMN is supported.
	AlterColumn bool `json:"alter_column,omitempty"`
	// CreateForeignKeys is true when enforced FK constraints are supported.
	CreateForeignKeys bool `json:"create_foreign_keys,omitempty"`
}

// Manifest is the static metadata describing a driver's identity.
// Created once at driver construction and read-only afterward.
type Manifest struct {
	// ID is the unique registry key, matched against ConnectionParams.Driver.
	ID string `json:"id"`
	// Name is the human-readable name shown in the UI.
	Name string `json:"name"`
	// Version is the semver of the driver implementation.
	Version     string `json:"version"`
	Description string `json:"description"`
	// DefaultPort is zero for file-based drivers.
	DefaultPort  int          `json:"default_port,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
	// IsBuiltin is true for in-process drivers, false for plugin drivers.
	IsBuiltin bool `json:"is_builtin"`
	// DefaultUsername pre-fills the connection form ("postgres", "root", …).
	DefaultUsername string `json:"default_username,omitempty"`
}

// DataType describes one column type the engine offers for table design.
type DataType struct {
	Name string `json:"name"`
	// Category groups types for UI pickers: numeric, text, datetime,
	// binary, boolean, other.
	Category string `json:"category,omitempty"`
}

// Pagination carries the paging metadata attached to a paginated query result.
type Pagination struct {
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	TotalRows uint64 `json:"total_rows"`
}

// QueryResult is the uniform result shape of ExecuteQuery, identical whether
// the driver ran in-process or inside a plugin subprocess. Cell values are
// generic JSON values; binary cells carry the blob wire encoding.
type QueryResult struct {
	Columns      []string    `json:"columns"`
	Rows         [][]any     `json:"rows"`
	AffectedRows uint64      `json:"affected_rows"`
	Truncated    bool        `json:"truncated"`
	Pagination   *Pagination `json:"pagination,omitempty"`
}

// TableInfo names one base table.
type TableInfo struct {
	Name string `json:"name"`
}

// TableColumn describes one column of a table or view.
type TableColumn struct {
	Name            string  `json:"name"`
	DataType        string  `json:"data_type"`
	IsPK            bool    `json:"is_pk"`
	IsNullable      bool    `json:"is_nullable"`
	IsAutoIncrement bool    `json:"is_auto_increment"`
	DefaultValue    *string `json:"default_value,omitempty"`
}

// ForeignKey describes one FK constraint column pair.
type ForeignKey struct {
	Name             string `json:"name"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	OnDelete         string `json:"on_delete,omitempty"`
	OnUpdate         string `json:"on_update,omitempty"`
}

// Index describes one table index.
type Index struct {
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
	IsUnique  bool     `json:"is_unique"`
	IsPrimary bool     `json:"is_primary"`
}

// ViewInfo names one view; Definition is populated only by the detail call.
type ViewInfo struct {
	Name       string  `json:"name"`
	Definition *string `json:"definition,omitempty"`
}

// RoutineInfo describes one stored procedure or function.
type RoutineInfo struct {
	Name        string  `json:"name"`
	RoutineType string  `json:"routine_type"` // "PROCEDURE" or "FUNCTION"
	Definition  *string `json:"definition,omitempty"`
}

// RoutineParameter describes one parameter of a routine. A function's return
// value is reported as ordinal 0 with mode OUT and an empty name.
type RoutineParameter struct {
	Name            string `json:"name"`
	DataType        string `json:"data_type"`
	Mode            string `json:"mode"`
	OrdinalPosition int    `json:"ordinal_position"`
}

// TableSchema is the per-table slice of a whole-schema snapshot.
type TableSchema struct {
	Name        string        `json:"name"`
	Columns     []TableColumn `json:"columns"`
	ForeignKeys []ForeignKey  `json:"foreign_keys"`
}

// ColumnDefinition is the structured column description the DDL preview
// operations build SQL from.
type ColumnDefinition struct {
	Name            string  `json:"name"`
	DataType        string  `json:"data_type"`
	IsNullable      bool    `json:"is_nullable"`
	IsPK            bool    `json:"is_pk"`
	IsAutoIncrement bool    `json:"is_auto_increment"`
	DefaultValue    *string `json:"default_value,omitempty"`
}
