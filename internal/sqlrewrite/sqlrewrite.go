// Package sqlrewrite holds the textual SQL transforms shared by every driver:
// statement classification, pagination wrapping, ORDER BY relocation, and
// rowid injection for primary-key-less tables.
//
// These are deliberate string scans, not SQL parsing. They live here, isolated
// from the execution path, because their correctness, especially byte-offset
// stability under multiple rewrites, is what the unit tests pin down.
package sqlrewrite

import (
	"fmt"
	"strings"
)

// selectPrefixes are the statement keywords treated as row-returning.
// Everything else executes as DML/DDL with an affected-row count.
var selectPrefixes = []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "FROM"}

// IsSelect reports whether the trimmed statement is SELECT-family.
func IsSelect(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, p := range selectPrefixes {
		if strings.HasPrefix(q, p) {
			// Keyword must end at a word boundary: "SELECTED_COLS" is not SELECT.
			if len(q) == len(p) || !isIdentChar(q[len(p)]) {
				return true
			}
		}
	}
	return false
}

// wrappablePrefixes are the row-returning forms that may legally appear
// inside a derived table. SHOW, DESCRIBE and EXPLAIN return rows but cannot
// be enclosed in SELECT * FROM (...), so pagination for them falls back to
// a client-side row cap.
var wrappablePrefixes = []string{"SELECT", "WITH", "FROM"}

// IsWrappable reports whether the trimmed statement can be enclosed in a
// derived-table wrapper for counting and pagination.
func IsWrappable(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, p := range wrappablePrefixes {
		if strings.HasPrefix(q, p) {
			if len(q) == len(p) || !isIdentChar(q[len(p)]) {
				return true
			}
		}
	}
	return false
}

// Offset converts a 1-based page number and page size to a row offset.
func Offset(page, size int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * size
}

// ExtractOrderBy returns the trailing ORDER BY clause of query (including the
// keywords), or "" when none is present. The search is case-insensitive and
// scans from the right so only the outermost clause is picked up.
func ExtractOrderBy(query string) string {
	pos := lastIndexFold(query, "ORDER BY")
	if pos < 0 {
		return ""
	}
	return strings.TrimSpace(query[pos:])
}

// RemoveOrderBy returns query with its trailing ORDER BY clause stripped.
// ExtractOrderBy and RemoveOrderBy are inverses: rejoining their outputs
// reconstructs an equivalent statement.
func RemoveOrderBy(query string) string {
	pos := lastIndexFold(query, "ORDER BY")
	if pos < 0 {
		return query
	}
	return strings.TrimSpace(query[:pos])
}

// CountQuery wraps query so the engine returns its total row count.
func CountQuery(query string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS count_wrapper", query)
}

// WrapForPage wraps a SELECT-family query for pagination. A trailing ORDER BY
// is moved outside the wrapper: inside a subquery it is not guaranteed to
// order the outer result on every engine.
func WrapForPage(query string, limit, offset int) string {
	if orderBy := ExtractOrderBy(query); orderBy != "" {
		inner := RemoveOrderBy(query)
		return fmt.Sprintf("SELECT * FROM (%s) AS data_wrapper %s LIMIT %d OFFSET %d",
			inner, orderBy, limit, offset)
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS data_wrapper LIMIT %d OFFSET %d",
		query, limit, offset)
}

const starFromPattern = "SELECT * FROM "

// InjectRowID rewrites every bare `SELECT * FROM <table>` occurrence whose
// table has no primary key (per the hasPrimaryKey callback) into
// `SELECT rowid, * FROM <table>`, giving callers a stable per-row identifier
// for cell-level edits. Subqueries (`SELECT * FROM (` …) are never rewritten:
// the outer projection inherits the inner query's columns.
//
// Matches are collected against the original text and applied back-to-front,
// so earlier insertions cannot invalidate offsets computed for later ones.
func InjectRowID(query string, hasPrimaryKey func(table string) bool) string {
	var positions []int
	searchFrom := 0
	for {
		rel := indexFold(query[searchFrom:], starFromPattern)
		if rel < 0 {
			break
		}
		positions = append(positions, searchFrom+rel)
		searchFrom += rel + len(starFromPattern)
	}
	if len(positions) == 0 {
		return query
	}

	result := query
	const selectKeywordLen = len("SELECT ")

	for i := len(positions) - 1; i >= 0; i-- {
		pos := positions[i]
		table, ok := tableAfterFrom(query[pos+len(starFromPattern):])
		if !ok {
			continue
		}
		if hasPrimaryKey(table) {
			continue
		}
		injectAt := pos + selectKeywordLen
		result = result[:injectAt] + "rowid, " + result[injectAt:]
	}
	return result
}

// tableAfterFrom extracts the (possibly quoted) identifier immediately
// following FROM. Returns ok=false when the next token opens a subquery.
func tableAfterFrom(s string) (string, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" || s[0] == '(' {
		return "", false
	}
	if s[0] == '"' || s[0] == '`' {
		quote := s[0]
		end := strings.IndexByte(s[1:], quote)
		if end < 0 {
			return "", false
		}
		return s[1 : 1+end], true
	}
	end := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == ';' || r == ')' || r == ','
	})
	if end == 0 {
		return "", false
	}
	if end < 0 {
		end = len(s)
	}
	return s[:end], true
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// indexFold is a byte-offset-preserving ASCII case-insensitive Index.
// strings.ToUpper is unsuitable here: Unicode case mapping can change byte
// lengths and shift every offset after the mapped rune.
func indexFold(s, substr string) int {
	n := len(substr)
	if n == 0 {
		return 0
	}
	for i := 0; i+n <= len(s); i++ {
		if foldEqual(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

// lastIndexFold is the right-to-left counterpart of indexFold.
func lastIndexFold(s, substr string) int {
	n := len(substr)
	if n == 0 {
		return len(s)
	}
	for i := len(s) - n; i >= 0; i-- {
		if foldEqual(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

func foldEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
