package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mosaic-db/mosaic/internal/blob"
	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/sqlrewrite"
)

// execute runs the shared classification and pagination contract on a
// pgxpool. It is the pgx counterpart of the sqlexec package.
func execute(ctx context.Context, pool *pgxpool.Pool, query string, limit, page int) (*driver.QueryResult, error) {
	if !sqlrewrite.IsSelect(query) {
		tag, err := pool.Exec(ctx, query)
		if err != nil {
			return nil, mapError(err, "statement failed")
		}
		return &driver.QueryResult{
			Columns:      []string{},
			Rows:         [][]any{},
			AffectedRows: uint64(tag.RowsAffected()),
		}, nil
	}

	finalQuery := query
	var pagination *driver.Pagination
	truncated := false
	maxRows := 0

	if limit > 0 {
		if sqlrewrite.IsWrappable(query) {
			total := countRows(ctx, pool, query)
			p := page
			if p < 1 {
				p = 1
			}
			pagination = &driver.Pagination{Page: p, PageSize: limit, TotalRows: total}
			truncated = total > uint64(limit)
			finalQuery = sqlrewrite.WrapForPage(query, limit, sqlrewrite.Offset(page, limit))
		} else {
			// SHOW and EXPLAIN cannot be enclosed in a derived table;
			// the limit is applied while reading.
			maxRows = limit
		}
	}

	rows, err := pool.Query(ctx, finalQuery)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	capped := false
	out := make([][]any, 0, 64)
	for rows.Next() {
		if maxRows > 0 && len(out) >= maxRows {
			capped = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, mapError(err, "failed to read row")
		}
		converted := make([]any, len(values))
		for i, v := range values {
			converted[i] = convertValue(v)
		}
		out = append(out, converted)
	}
	if !capped {
		if err := rows.Err(); err != nil {
			return nil, mapError(err, "row iteration failed")
		}
	}

	return &driver.QueryResult{
		Columns:    columns,
		Rows:       out,
		Truncated:  truncated || capped,
		Pagination: pagination,
	}, nil
}

// countRows tolerates failure by reporting zero, keeping the page fetch alive
// for queries the COUNT wrapper cannot handle.
func countRows(ctx context.Context, pool *pgxpool.Pool, query string) uint64 {
	var total int64
	if err := pool.QueryRow(ctx, sqlrewrite.CountQuery(query)).Scan(&total); err != nil || total < 0 {
		return 0
	}
	return uint64(total)
}

// convertValue turns a pgx-native value into its generic wire value.
// Binary payloads go through the blob codec, temporal and UUID values are
// rendered as strings, numerics keep their text representation.
func convertValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int64, int32, int16, float64, float32, bool, string:
		return val
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		if f, err := val.Float64Value(); err == nil && f.Valid {
			return f.Float64
		}
		return nil
	case []byte:
		return blob.Encode(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// binder renders INSERT/UPDATE/DELETE statements with $n placeholders.
type binder struct {
	maxBlobSize uint64
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// bindValue appends the SQL fragment and bind argument for one cell value.
func (b binder) bindValue(sb *strings.Builder, args *[]any, v any) error {
	switch val := v.(type) {
	case nil:
		sb.WriteString("NULL")
	case string:
		if val == "__USE_DEFAULT__" {
			sb.WriteString("DEFAULT")
			return nil
		}
		if bytes, ok := blob.Decode(val); ok {
			if b.maxBlobSize > 0 && uint64(len(bytes)) > b.maxBlobSize {
				return errs.Newf(errs.ErrKindInvalidInput, "blob exceeds maximum size of %d bytes", b.maxBlobSize)
			}
			*args = append(*args, bytes)
			fmt.Fprintf(sb, "$%d", len(*args))
			return nil
		}
		*args = append(*args, val)
		fmt.Fprintf(sb, "$%d", len(*args))
	case bool, int, int32, int64, uint64, float32, float64:
		*args = append(*args, val)
		fmt.Fprintf(sb, "$%d", len(*args))
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported value type %T", v)
	}
	return nil
}

func (b binder) bindKey(sb *strings.Builder, args *[]any, pkCol string, pkVal any) error {
	switch pkVal.(type) {
	case string, bool, int, int32, int64, uint64, float32, float64:
		*args = append(*args, pkVal)
		fmt.Fprintf(sb, " WHERE %s = $%d", quoteIdent(pkCol), len(*args))
		return nil
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported primary key type %T", pkVal)
	}
}

// relation is the already-quoted, schema-qualified table name.
func (b binder) insert(ctx context.Context, pool *pgxpool.Pool, relation string, data map[string]any) (uint64, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("INSERT INTO " + relation + " ")

	if len(data) == 0 {
		sb.WriteString("DEFAULT VALUES")
	} else {
		cols := make([]string, 0, len(data))
		for k := range data {
			cols = append(cols, k)
		}
		sort.Strings(cols)

		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = quoteIdent(c)
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

	tag, err := pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, mapError(err, "insert failed")
	}
	return uint64(tag.RowsAffected()), nil
}

func (b binder) update(ctx context.Context, pool *pgxpool.Pool, relation, pkCol string, pkVal any, column string, newVal any) (uint64, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("UPDATE " + relation + " SET " + quoteIdent(column) + " = ")
	if err := b.bindValue(&sb, &args, newVal); err != nil {
		return 0, err
	}
	if err := b.bindKey(&sb, &args, pkCol, pkVal); err != nil {
		return 0, err
	}

	tag, err := pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, mapError(err, "update failed")
	}
	return uint64(tag.RowsAffected()), nil
}

func (b binder) delete(ctx context.Context, pool *pgxpool.Pool, relation, pkCol string, pkVal any) (uint64, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("DELETE FROM " + relation)
	if err := b.bindKey(&sb, &args, pkCol, pkVal); err != nil {
		return 0, err
	}

	tag, err := pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, mapError(err, "delete failed")
	}
	return uint64(tag.RowsAffected()), nil
}
