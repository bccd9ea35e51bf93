// Package sqlexec runs statements against database/sql backed engines and
// marshals the results into the generic QueryResult shape. The pagination
// flow (count, ORDER BY relocation, LIMIT/OFFSET wrapping) lives in
// sqlrewrite; this package applies it and converts row values.
package sqlexec

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/mosaic-db/mosaic/internal/blob"
	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/sqlrewrite"
)

// binaryTypes lists column type names whose []byte values are genuine
// binary payloads. Text columns also scan as []byte under some drivers
// (go-sql-driver returns []byte for VARCHAR), so the distinction has to
// come from the column type, not the Go type.
var binaryTypes = map[string]bool{
	"BLOB":       true,
	"TINYBLOB":   true,
	"MEDIUMBLOB": true,
	"LONGBLOB":   true,
	"BINARY":     true,
	"VARBINARY":  true,
	"BYTEA":      true,
}

// Execute runs query against db following the shared classification and
// pagination contract. Non-SELECT statements are executed directly and
// return only an affected-row count. SELECT-family statements with a
// positive limit are counted and wrapped for the requested page.
func Execute(ctx context.Context, db *sqlx.DB, query string, limit, page int) (*driver.QueryResult, error) {
	if !sqlrewrite.IsSelect(query) {
		res, err := db.ExecContext(ctx, query)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindStatement, "statement failed", err)
		}
		affected, _ := res.RowsAffected()
		return &driver.QueryResult{
			Columns:      []string{},
			Rows:         [][]any{},
			AffectedRows: uint64(affected),
		}, nil
	}

	finalQuery := query
	var pagination *driver.Pagination
	truncated := false
	maxRows := 0

	if limit > 0 {
		if sqlrewrite.IsWrappable(query) {
			total := countRows(ctx, db, query)
			pagination = &driver.Pagination{
				Page:      normalizePage(page),
				PageSize:  limit,
				TotalRows: total,
			}
			truncated = total > uint64(limit)
			finalQuery = sqlrewrite.WrapForPage(query, limit, sqlrewrite.Offset(page, limit))
		} else {
			// SHOW and friends return rows but cannot be enclosed in a
			// derived table, so the limit is applied while reading.
			maxRows = limit
		}
	}

	columns, rows, capped, err := fetch(ctx, db, finalQuery, maxRows)
	if err != nil {
		return nil, err
	}

	return &driver.QueryResult{
		Columns:    columns,
		Rows:       rows,
		Truncated:  truncated || capped,
		Pagination: pagination,
	}, nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// countRows obtains the total row count for a query being paginated.
// A failing count is tolerated and reported as zero so a broken or
// engine-specific inner query still returns its page of data.
func countRows(ctx context.Context, db *sqlx.DB, query string) uint64 {
	var total int64
	if err := db.GetContext(ctx, &total, sqlrewrite.CountQuery(query)); err != nil {
		return 0
	}
	if total < 0 {
		return 0
	}
	return uint64(total)
}

// fetch runs a row-returning statement and converts every cell to its
// generic value. When maxRows is positive, reading stops at that many rows
// and the capped flag reports whether anything was left behind.
func fetch(ctx context.Context, db *sqlx.DB, query string, maxRows int) ([]string, [][]any, bool, error) {
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, nil, false, errs.Wrap(errs.ErrKindStatement, "query failed", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, false, errs.Wrap(errs.ErrKindStatement, "failed to read columns", err)
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, false, errs.Wrap(errs.ErrKindStatement, "failed to read column types", err)
	}
	typeNames := make([]string, len(colTypes))
	for i, ct := range colTypes {
		typeNames[i] = ct.DatabaseTypeName()
	}

	capped := false
	out := make([][]any, 0, 64)
	for rows.Next() {
		if maxRows > 0 && len(out) >= maxRows {
			capped = true
			break
		}
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, nil, false, errs.Wrap(errs.ErrKindStatement, "failed to scan row", err)
		}
		converted := make([]any, len(raw))
		for i, v := range raw {
			converted[i] = Convert(v, typeNames[i])
		}
		out = append(out, converted)
	}
	if !capped {
		if err := rows.Err(); err != nil {
			return nil, nil, false, errs.Wrap(errs.ErrKindStatement, "row iteration failed", err)
		}
	}

	return columns, out, capped, nil
}

// Convert turns a scanned database value into its generic wire value.
// Binary payloads go through the blob codec; []byte holding text (the
// common case under go-sql-driver) becomes a plain string. Null stays nil.
func Convert(v any, dbTypeName string) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int64, float64, bool, string:
		return val
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		if binaryTypes[dbTypeName] || !utf8.Valid(val) {
			return blob.Encode(val)
		}
		return string(val)
	default:
		return val
	}
}
