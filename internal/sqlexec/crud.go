package sqlexec

import (
	"context"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/mosaic-db/mosaic/internal/blob"
	"github.com/mosaic-db/mosaic/internal/errs"
)

// useDefaultSentinel marks a cell the caller wants filled by the column's
// DEFAULT expression instead of a bound value.
const useDefaultSentinel = "__USE_DEFAULT__"

// Binder renders INSERT/UPDATE/DELETE statements for one engine. The three
// knobs cover everything the ?-placeholder engines disagree on.
type Binder struct {
	// Quote is the identifier quote character.
	Quote string

	// MaxBlobSize caps decoded blob payloads on write paths. Zero means
	// no ceiling.
	MaxBlobSize uint64

	// GeometryFuncs enables the MySQL spatial conveniences: raw ST_*
	// function calls pass through unbound, WKT literals get wrapped in
	// ST_GeomFromText.
	GeometryFuncs bool

	// EmptyInsert is the clause used when an insert carries no columns,
	// "() VALUES ()" for MySQL and "DEFAULT VALUES" elsewhere.
	EmptyInsert string
}

func (b Binder) quoteIdent(name string) string {
	return b.Quote + strings.ReplaceAll(name, b.Quote, b.Quote+b.Quote) + b.Quote
}

// bindValue appends the SQL fragment and bind argument for one cell value.
func (b Binder) bindValue(sb *strings.Builder, args *[]any, v any) error {
	switch val := v.(type) {
	case nil:
		sb.WriteString("NULL")
	case string:
		switch {
		case val == useDefaultSentinel:
			sb.WriteString("DEFAULT")
		default:
			if bytes, ok := blob.Decode(val); ok {
				if b.MaxBlobSize > 0 && uint64(len(bytes)) > b.MaxBlobSize {
					return errs.Newf(errs.ErrKindInvalidInput, "blob exceeds maximum size of %d bytes", b.MaxBlobSize)
				}
				sb.WriteString("?")
				*args = append(*args, bytes)
				return nil
			}
			if b.GeometryFuncs && isRawSQLFunction(val) {
				sb.WriteString(val)
				return nil
			}
			if b.GeometryFuncs && isWKTGeometry(val) {
				sb.WriteString("ST_GeomFromText(?)")
				*args = append(*args, val)
				return nil
			}
			sb.WriteString("?")
			*args = append(*args, val)
		}
	case bool, int, int32, int64, uint64, float32, float64:
		sb.WriteString("?")
		*args = append(*args, val)
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported value type %T", v)
	}
	return nil
}

// bindKey renders the primary key comparison of an UPDATE or DELETE.
// Only scalar keys are accepted.
func (b Binder) bindKey(sb *strings.Builder, args *[]any, pkCol string, pkVal any) error {
	switch pkVal.(type) {
	case string, bool, int, int32, int64, uint64, float32, float64:
		sb.WriteString(" WHERE " + b.quoteIdent(pkCol) + " = ?")
		*args = append(*args, pkVal)
		return nil
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported primary key type %T", pkVal)
	}
}

// Insert builds and executes an INSERT for data. Column order is sorted so
// the generated statement is deterministic. An empty data map inserts a row
// of defaults, used for tables whose every column is auto-generated.
func (b Binder) Insert(ctx context.Context, db *sqlx.DB, table string, data map[string]any) (uint64, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("INSERT INTO " + b.quoteIdent(table) + " ")

	if len(data) == 0 {
		sb.WriteString(b.EmptyInsert)
	} else {
		cols := make([]string, 0, len(data))
		for k := range data {
			cols = append(cols, k)
		}
		sort.Strings(cols)

		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = b.quoteIdent(c)
		}
		sb.WriteString("(" + strings.Join(quoted, ", ") + ") VALUES (")
		for i, c := range cols {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := b.bindValue(&sb, &args, data[c]); err != nil {
				return 0, err
			}
		}
		sb.WriteString(")")
	}

	res, err := db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindStatement, "insert failed", err)
	}
	affected, _ := res.RowsAffected()
	return uint64(affected), nil
}

// Update builds and executes a single-cell UPDATE addressed by primary key.
func (b Binder) Update(ctx context.Context, db *sqlx.DB, table, pkCol string, pkVal any, column string, newVal any) (uint64, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("UPDATE " + b.quoteIdent(table) + " SET " + b.quoteIdent(column) + " = ")
	if err := b.bindValue(&sb, &args, newVal); err != nil {
		return 0, err
	}
	if err := b.bindKey(&sb, &args, pkCol, pkVal); err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindStatement, "update failed", err)
	}
	affected, _ := res.RowsAffected()
	return uint64(affected), nil
}

// Delete builds and executes a DELETE addressed by primary key.
func (b Binder) Delete(ctx context.Context, db *sqlx.DB, table, pkCol string, pkVal any) (uint64, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("DELETE FROM " + b.quoteIdent(table))
	if err := b.bindKey(&sb, &args, pkCol, pkVal); err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindStatement, "delete failed", err)
	}
	affected, _ := res.RowsAffected()
	return uint64(affected), nil
}

// isWKTGeometry reports whether s looks like a Well-Known Text geometry
// literal such as POINT(1 2).
func isWKTGeometry(s string) bool {
	up := strings.ToUpper(strings.TrimSpace(s))
	for _, prefix := range []string{
		"POINT(", "LINESTRING(", "POLYGON(", "MULTIPOINT(",
		"MULTILINESTRING(", "MULTIPOLYGON(", "GEOMETRYCOLLECTION(", "GEOMETRY(",
	} {
		if strings.HasPrefix(up, prefix) {
			return true
		}
	}
	return false
}

// isRawSQLFunction reports whether s is a spatial function call the user
// typed verbatim, which must reach the engine without parameter binding.
func isRawSQLFunction(s string) bool {
	up := strings.ToUpper(strings.TrimSpace(s))
	if strings.HasPrefix(up, "ST_") {
		return strings.Contains(up, "(")
	}
	for _, prefix := range []string{"GEOMFROMTEXT(", "GEOMFROMWKB(", "POINTFROMTEXT(", "POINTFROMWKB("} {
		if strings.HasPrefix(up, prefix) {
			return true
		}
	}
	return false
}
