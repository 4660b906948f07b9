package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/relcsv/internal/sink"
)

// Dialect describes the SQL flavor a Loader talks to
type Dialect struct {
	Name        string
	Quote       func(ident string) string
	Placeholder func(n int) string // n is 1-based
	TextType    string
	// Fold maps an identifier onto the form the database compares by
	Fold func(ident string) string
}

// Loader writes decomposed tables into a database/sql connection.
// Every table is dropped and recreated with one text column per header
// field; all rows of a run share one transaction, committed on Close.
type Loader struct {
	db      *sql.DB
	dialect Dialect
	tx      *sql.Tx
	names   *sink.Names
}

// NewLoader creates a loader for db using the given dialect
func NewLoader(db *sql.DB, dialect Dialect) *Loader {
	if dialect.Fold == nil {
		dialect.Fold = func(ident string) string { return ident }
	}
	return &Loader{db: db, dialect: dialect, names: sink.NewNames(dialect.Fold)}
}

// Open starts the run transaction on first use and returns the table's sink.
// A table whose folded name was already opened in this run is rejected, since
// recreating it would drop the earlier one.
func (l *Loader) Open(ctx context.Context, table string) (sink.Sink, error) {
	if err := l.names.Claim(table); err != nil {
		return nil, err
	}
	if l.tx == nil {
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		l.tx = tx
	}

	return &tableLoader{
		ctx:     ctx,
		tx:      l.tx,
		dialect: l.dialect,
		table:   table,
	}, nil
}

// Close commits the rows written during the run
func (l *Loader) Close() error {
	l.names.Reset()
	if l.tx == nil {
		return nil
	}
	tx := l.tx
	l.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s transaction: %w", l.dialect.Name, err)
	}
	return nil
}

type tableLoader struct {
	ctx     context.Context
	tx      *sql.Tx
	dialect Dialect
	table   string
	stmt    *sql.Stmt
	width   int
}

func (t *tableLoader) WriteHeader(columns []string) error {
	name := t.dialect.Quote(t.table)
	columns = uniqueColumns(columns, t.dialect.Fold)

	if _, err := t.tx.ExecContext(t.ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", t.table, err)
	}

	if _, err := t.tx.ExecContext(t.ctx, createTableSQL(t.dialect, t.table, columns)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.table, err)
	}

	stmt, err := t.tx.PrepareContext(t.ctx, insertSQL(t.dialect, t.table, columns))
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", t.table, err)
	}
	t.stmt = stmt
	t.width = len(columns)
	return nil
}

func (t *tableLoader) WriteRow(fields []sink.Field) error {
	if t.stmt == nil {
		return fmt.Errorf("table %s: row written before header", t.table)
	}
	if _, err := t.stmt.ExecContext(t.ctx, rowArgs(fields, t.width)...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", t.table, err)
	}
	return nil
}

func (t *tableLoader) Close() error {
	if t.stmt == nil {
		return nil
	}
	stmt := t.stmt
	t.stmt = nil
	return stmt.Close()
}

func createTableSQL(d Dialect, table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = d.Quote(col) + " " + d.TextType
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(table), strings.Join(defs, ", "))
}

func insertSQL(d Dialect, table string, columns []string) string {
	cols := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = d.Quote(col)
		params[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(cols, ", "), strings.Join(params, ", "))
}

// rowArgs converts fields into driver arguments, nulls as nil. Short rows are
// padded with nulls so they always match the header width.
func rowArgs(fields []sink.Field, width int) []any {
	if width < len(fields) {
		width = len(fields)
	}
	args := make([]any, width)
	for i, f := range fields {
		if f.Valid {
			args[i] = f.Text
		}
	}
	return args
}

// uniqueColumns renames repeated column names, which SQL tables cannot hold.
// Names are kept from the right, so the document's own columns win over the
// leading row id and earlier repeats get underscores prepended.
func uniqueColumns(columns []string, fold func(string) string) []string {
	out := make([]string, len(columns))
	used := make(map[string]bool, len(columns))
	for i := len(columns) - 1; i >= 0; i-- {
		name := columns[i]
		for k := 1; used[fold(name)]; k++ {
			next := "_" + name
			if fold(next) == fold(name) {
				// the prefix was truncated away
				next = fmt.Sprintf("_%d_%s", k, columns[i])
			}
			name = next
		}
		used[fold(name)] = true
		out[i] = name
	}
	return out
}

func quoteWith(q string) func(string) string {
	return func(ident string) string {
		return q + strings.ReplaceAll(ident, q, q+q) + q
	}
}

func questionMark(int) string {
	return "?"
}
