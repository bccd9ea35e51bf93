// Package ddl builds DDL statement text from structured column and
// constraint descriptions. Nothing here touches a database; the output is
// shown to the user for review and executed elsewhere.
//
// A Dialect captures the few points where engines disagree (identifier
// quoting, auto-increment syntax, whether ALTER COLUMN changes can be
// combined into one statement). The change detection for ALTER COLUMN is
// shared across all dialects.
package ddl

import (
	"fmt"
	"strings"

	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
)

// Dialect describes how a specific engine spells its DDL.
type Dialect struct {
	// Quote is the identifier quote character, `"` or "`".
	Quote string

	// AutoIncrement is the keyword appended to auto-increment columns.
	// Empty when the engine has no such keyword (postgres uses serial
	// types instead).
	AutoIncrement string

	// CombinedAlter selects the MySQL CHANGE/MODIFY form for column
	// alterations. When false each detected change becomes its own
	// ALTER TABLE ... ALTER COLUMN statement.
	CombinedAlter bool
}

// Engine presets.
var (
	MySQL    = Dialect{Quote: "`", AutoIncrement: "AUTO_INCREMENT", CombinedAlter: true}
	Postgres = Dialect{Quote: `"`}
	SQLite   = Dialect{Quote: `"`, AutoIncrement: "AUTOINCREMENT"}
)

// QuoteIdent quotes an identifier, doubling any embedded quote characters.
func (d Dialect) QuoteIdent(name string) string {
	return d.Quote + strings.ReplaceAll(name, d.Quote, d.Quote+d.Quote) + d.Quote
}

// columnDef renders the body of a column definition (everything after the
// name) for CREATE TABLE and ADD COLUMN.
func (d Dialect) columnDef(col driver.ColumnDefinition, explicitNull bool) string {
	var b strings.Builder
	b.WriteString(col.DataType)
	if !col.IsNullable {
		b.WriteString(" NOT NULL")
	} else if explicitNull {
		b.WriteString(" NULL")
	}
	if col.IsAutoIncrement && d.AutoIncrement != "" {
		b.WriteString(" " + d.AutoIncrement)
	}
	if col.DefaultValue != nil {
		b.WriteString(" DEFAULT " + *col.DefaultValue)
	}
	return b.String()
}

// CreateTableSQL renders a CREATE TABLE statement. Primary key columns are
// collected into a single table-level PRIMARY KEY clause.
func (d Dialect) CreateTableSQL(table string, columns []driver.ColumnDefinition) ([]string, error) {
	if len(columns) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "create table requires at least one column")
	}

	defs := make([]string, 0, len(columns)+1)
	var pkCols []string
	for _, col := range columns {
		defs = append(defs, d.QuoteIdent(col.Name)+" "+d.columnDef(col, false))
		if col.IsPK {
			pkCols = append(pkCols, d.QuoteIdent(col.Name))
		}
	}
	if len(pkCols) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pkCols, ", ")))
	}

	sql := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteIdent(table), strings.Join(defs, ",\n  "))
	return []string{sql}, nil
}

// AddColumnSQL renders an ALTER TABLE ... ADD COLUMN statement.
func (d Dialect) AddColumnSQL(table string, col driver.ColumnDefinition) ([]string, error) {
	def := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		d.QuoteIdent(table), d.QuoteIdent(col.Name), d.columnDef(col, true))
	if col.IsPK {
		def += " PRIMARY KEY"
	}
	return []string{def}, nil
}

// ColumnChanges records which aspects differ between two column definitions.
type ColumnChanges struct {
	Renamed        bool
	TypeChanged    bool
	NullChanged    bool
	DefaultChanged bool
}

// Any reports whether at least one change was detected.
func (c ColumnChanges) Any() bool {
	return c.Renamed || c.TypeChanged || c.NullChanged || c.DefaultChanged
}

// DetectChanges compares two column definitions field by field.
func DetectChanges(oldCol, newCol driver.ColumnDefinition) ColumnChanges {
	return ColumnChanges{
		Renamed:        oldCol.Name != newCol.Name,
		TypeChanged:    oldCol.DataType != newCol.DataType,
		NullChanged:    oldCol.IsNullable != newCol.IsNullable,
		DefaultChanged: !defaultEqual(oldCol.DefaultValue, newCol.DefaultValue),
	}
}

func defaultEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// AlterColumnSQL renders the statements needed to turn oldCol into newCol.
// Detecting no changes at all is an error so callers never apply a no-op.
func (d Dialect) AlterColumnSQL(table string, oldCol, newCol driver.ColumnDefinition) ([]string, error) {
	changes := DetectChanges(oldCol, newCol)
	if !changes.Any() {
		return nil, errs.New(errs.ErrKindInvalidInput, "no changes detected")
	}
	if d.CombinedAlter {
		return d.combinedAlter(table, oldCol, newCol, changes), nil
	}
	return d.perChangeAlter(table, oldCol, newCol, changes), nil
}

// combinedAlter emits a single CHANGE (rename) or MODIFY COLUMN statement
// carrying the full new definition, the MySQL way.
func (d Dialect) combinedAlter(table string, oldCol, newCol driver.ColumnDefinition, changes ColumnChanges) []string {
	var b strings.Builder
	if changes.Renamed {
		fmt.Fprintf(&b, "ALTER TABLE %s CHANGE %s %s %s",
			d.QuoteIdent(table), d.QuoteIdent(oldCol.Name), d.QuoteIdent(newCol.Name), newCol.DataType)
	} else {
		fmt.Fprintf(&b, "ALTER TABLE %s MODIFY COLUMN %s %s",
			d.QuoteIdent(table), d.QuoteIdent(newCol.Name), newCol.DataType)
	}
	if !newCol.IsNullable {
		b.WriteString(" NOT NULL")
	} else {
		b.WriteString(" NULL")
	}
	if newCol.IsAutoIncrement && d.AutoIncrement != "" {
		b.WriteString(" " + d.AutoIncrement)
	}
	if newCol.DefaultValue != nil {
		b.WriteString(" DEFAULT " + *newCol.DefaultValue)
	}
	return []string{b.String()}
}

// perChangeAlter emits one statement per detected change, the standard form.
func (d Dialect) perChangeAlter(table string, oldCol, newCol driver.ColumnDefinition, changes ColumnChanges) []string {
	tbl := d.QuoteIdent(table)
	colRef := d.QuoteIdent(newCol.Name)
	var stmts []string

	if changes.Renamed {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			tbl, d.QuoteIdent(oldCol.Name), colRef))
	}
	if changes.TypeChanged {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s",
			tbl, colRef, newCol.DataType))
	}
	if changes.NullChanged {
		if newCol.IsNullable {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", tbl, colRef))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", tbl, colRef))
		}
	}
	if changes.DefaultChanged {
		if newCol.DefaultValue != nil {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s",
				tbl, colRef, *newCol.DefaultValue))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", tbl, colRef))
		}
	}
	return stmts
}

// CreateIndexSQL renders a CREATE [UNIQUE] INDEX statement.
func (d Dialect) CreateIndexSQL(table, indexName string, columns []string, unique bool) ([]string, error) {
	if len(columns) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "create index requires at least one column")
	}
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.QuoteIdent(c)
	}
	u := ""
	if unique {
		u = "UNIQUE "
	}
	sql := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		u, d.QuoteIdent(indexName), d.QuoteIdent(table), strings.Join(cols, ", "))
	return []string{sql}, nil
}

// CreateForeignKeySQL renders an ALTER TABLE ... ADD CONSTRAINT ... FOREIGN
// KEY statement with optional ON DELETE / ON UPDATE actions.
func (d Dialect) CreateForeignKeySQL(table, fkName, column, refTable, refColumn, onDelete, onUpdate string) ([]string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.QuoteIdent(table), d.QuoteIdent(fkName), d.QuoteIdent(column),
		d.QuoteIdent(refTable), d.QuoteIdent(refColumn))
	if onDelete != "" {
		b.WriteString(" ON DELETE " + onDelete)
	}
	if onUpdate != "" {
		b.WriteString(" ON UPDATE " + onUpdate)
	}
	return []string{b.String()}, nil
}

// DropIndexSQL renders the statement that removes an index. MySQL scopes
// the drop to a table; the others address the index directly.
func (d Dialect) DropIndexSQL(table, indexName string) string {
	if d.CombinedAlter {
		return fmt.Sprintf("DROP INDEX %s ON %s", d.QuoteIdent(indexName), d.QuoteIdent(table))
	}
	return fmt.Sprintf("DROP INDEX %s", d.QuoteIdent(indexName))
}

// DropForeignKeySQL renders the statement that removes a foreign key
// constraint. MySQL uses DROP FOREIGN KEY; the others DROP CONSTRAINT.
func (d Dialect) DropForeignKeySQL(table, fkName string) string {
	if d.CombinedAlter {
		return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", d.QuoteIdent(table), d.QuoteIdent(fkName))
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.QuoteIdent(table), d.QuoteIdent(fkName))
}
