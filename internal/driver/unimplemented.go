package driver

import (
	"context"

	"github.com/mosaic-db/mosaic/internal/errs"
)

// Unimplemented satisfies the full Driver interface with "not supported"
// responses. Embed it in partial implementations (test fakes, minimal plugin
// drivers) so the type keeps compiling as the contract grows; override the
// operations the engine actually supports.
type Unimplemented struct {
	UnsupportedBlobs
	UnsupportedDDL
	UnsupportedRoutines
}

func (Unimplemented) Manifest() Manifest { return Manifest{} }

func (Unimplemented) DataTypes() []DataType { return nil }

func (Unimplemented) ConnectionURL(ConnectionParams) (string, error) {
	return "", errs.Unsupported("connection URL")
}

func (Unimplemented) TestConnection(context.Context, ConnectionParams) error {
	return errs.Unsupported("test connection")
}

func (Unimplemented) Shutdown(context.Context) error { return nil }

func (Unimplemented) Databases(context.Context, ConnectionParams) ([]string, error) {
	return nil, errs.Unsupported("database discovery")
}

func (Unimplemented) Schemas(context.Context, ConnectionParams) ([]string, error) {
	return nil, errs.Unsupported("schema discovery")
}

func (Unimplemented) Tables(context.Context, ConnectionParams, string) ([]TableInfo, error) {
	return nil, errs.Unsupported("table discovery")
}

func (Unimplemented) Columns(context.Context, ConnectionParams, string, string) ([]TableColumn, error) {
	return nil, errs.Unsupported("column discovery")
}

func (Unimplemented) ForeignKeys(context.Context, ConnectionParams, string, string) ([]ForeignKey, error) {
	return nil, errs.Unsupported("foreign key discovery")
}

func (Unimplemented) Indexes(context.Context, ConnectionParams, string, string) ([]Index, error) {
	return nil, errs.Unsupported("index discovery")
}

func (Unimplemented) Views(context.Context, ConnectionParams, string) ([]ViewInfo, error) {
	return nil, errs.Unsupported("views")
}

func (Unimplemented) ViewDefinition(context.Context, ConnectionParams, string, string) (string, error) {
	return "", errs.Unsupported("views")
}

func (Unimplemented) ViewColumns(context.Context, ConnectionParams, string, string) ([]TableColumn, error) {
	return nil, errs.Unsupported("views")
}

func (Unimplemented) CreateView(context.Context, ConnectionParams, string, string, string) error {
	return errs.Unsupported("views")
}

func (Unimplemented) AlterView(context.Context, ConnectionParams, string, string, string) error {
	return errs.Unsupported("views")
}

func (Unimplemented) DropView(context.Context, ConnectionParams, string, string) error {
	return errs.Unsupported("views")
}

func (Unimplemented) ExecuteQuery(context.Context, ConnectionParams, string, int, int, string) (*QueryResult, error) {
	return nil, errs.Unsupported("query execution")
}

func (Unimplemented) InsertRecord(context.Context, ConnectionParams, string, map[string]any, string, uint64) (uint64, error) {
	return 0, errs.Unsupported("insert")
}

func (Unimplemented) UpdateRecord(context.Context, ConnectionParams, string, string, any, string, any, string, uint64) (uint64, error) {
	return 0, errs.Unsupported("update")
}

func (Unimplemented) DeleteRecord(context.Context, ConnectionParams, string, string, any, string) (uint64, error) {
	return 0, errs.Unsupported("delete")
}

func (Unimplemented) SchemaSnapshot(context.Context, ConnectionParams, string) ([]TableSchema, error) {
	return nil, errs.Unsupported("schema snapshot")
}

func (Unimplemented) AllColumns(context.Context, ConnectionParams, string) (map[string][]TableColumn, error) {
	return nil, errs.Unsupported("batch column discovery")
}

func (Unimplemented) AllForeignKeys(context.Context, ConnectionParams, string) (map[string][]ForeignKey, error) {
	return nil, errs.Unsupported("batch foreign key discovery")
}
