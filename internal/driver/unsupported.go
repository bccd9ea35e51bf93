package driver

import (
	"context"

	"github.com/mosaic-db/mosaic/internal/errs"
)

// UnsupportedBlobs provides the default "not supported" BLOB helpers.
// Drivers without native binary column access embed it.
type UnsupportedBlobs struct{}

func (UnsupportedBlobs) SaveBlobToFile(context.Context, ConnectionParams, string, string, string, any, string, string) error {
	return errs.Unsupported("BLOB file export")
}

func (UnsupportedBlobs) FetchBlobAsDataURL(context.Context, ConnectionParams, string, string, string, any, string) (string, error) {
	return "", errs.Unsupported("BLOB preview")
}

// UnsupportedDDL provides the default "not supported" DDL preview and drop
// operations for drivers that do not generate SQL.
type UnsupportedDDL struct{}

func (UnsupportedDDL) CreateTableSQL(context.Context, string, []ColumnDefinition, string) ([]string, error) {
	return nil, errs.Unsupported("DDL generation")
}

func (UnsupportedDDL) AddColumnSQL(context.Context, string, ColumnDefinition, string) ([]string, error) {
	return nil, errs.Unsupported("DDL generation")
}

func (UnsupportedDDL) AlterColumnSQL(context.Context, string, ColumnDefinition, ColumnDefinition, string) ([]string, error) {
	return nil, errs.Unsupported("DDL generation")
}

func (UnsupportedDDL) CreateIndexSQL(context.Context, string, string, []string, bool, string) ([]string, error) {
	return nil, errs.Unsupported("DDL generation")
}

func (UnsupportedDDL) CreateForeignKeySQL(context.Context, string, string, string, string, string, string, string, string) ([]string, error) {
	return nil, errs.Unsupported("DDL generation")
}

func (UnsupportedDDL) DropIndex(context.Context, ConnectionParams, string, string, string) error {
	return errs.Unsupported("DROP INDEX")
}

func (UnsupportedDDL) DropForeignKey(context.Context, ConnectionParams, string, string, string) error {
	return errs.Unsupported("DROP FOREIGN KEY")
}

// UnsupportedRoutines provides the "not supported" routine operations for
// engines without stored procedures (embedded engines).
type UnsupportedRoutines struct{}

func (UnsupportedRoutines) Routines(context.Context, ConnectionParams, string) ([]RoutineInfo, error) {
	return nil, errs.Unsupported("stored routines")
}

func (UnsupportedRoutines) RoutineParameters(context.Context, ConnectionParams, string, string) ([]RoutineParameter, error) {
	return nil, errs.Unsupported("stored routines")
}

func (UnsupportedRoutines) RoutineDefinition(context.Context, ConnectionParams, string, string, string) (string, error) {
	return "", errs.Unsupported("stored routines")
}
