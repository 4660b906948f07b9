package db

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/relcsv/internal/sink"
)

// PostgresClient manages the connection to PostgreSQL
type PostgresClient struct {
	conn *pgx.Conn
}

// NewPostgresClient connects to connString and checks the connection
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{conn: conn}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// GetConnection returns the underlying connection
func (c *PostgresClient) GetConnection() *pgx.Conn {
	return c.conn
}

// maxIdentLen is the number of bytes PostgreSQL keeps of an identifier
const maxIdentLen = 63

// PostgresLoader writes decomposed tables into PostgreSQL. Tables are
// recreated and filled inside one transaction, committed on Close.
type PostgresLoader struct {
	client *PostgresClient
	schema string
	tx     pgx.Tx
	names  *sink.Names
}

// NewPostgresLoader creates a loader writing into schemaName ("public" when empty)
func NewPostgresLoader(client *PostgresClient, schemaName string) *PostgresLoader {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresLoader{
		client: client,
		schema: schemaName,
		names:  sink.NewNames(truncateIdent),
	}
}

// Open starts the run transaction on first use and returns the table's sink.
// Names that only differ past the identifier length limit are rejected.
func (l *PostgresLoader) Open(ctx context.Context, table string) (sink.Sink, error) {
	if err := l.names.Claim(table); err != nil {
		return nil, err
	}
	if l.tx == nil {
		tx, err := l.client.GetConnection().Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		l.tx = tx
	}

	return &postgresTable{
		ctx:   ctx,
		tx:    l.tx,
		ident: pgx.Identifier{l.schema, table},
		table: table,
	}, nil
}

// Close commits the run transaction
func (l *PostgresLoader) Close() error {
	l.names.Reset()
	if l.tx == nil {
		return nil
	}
	tx := l.tx
	l.tx = nil
	if err := tx.Commit(context.Background()); err != nil {
		return fmt.Errorf("failed to commit postgres transaction: %w", err)
	}
	return nil
}

type postgresTable struct {
	ctx    context.Context
	tx     pgx.Tx
	ident  pgx.Identifier
	table  string
	insert string
	width  int
}

func (t *postgresTable) WriteHeader(columns []string) error {
	name := t.ident.Sanitize()
	columns = uniqueColumns(columns, truncateIdent)

	if _, err := t.tx.Exec(t.ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", t.table, err)
	}

	defs := make([]string, len(columns))
	cols := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = pgx.Identifier{col}.Sanitize()
		defs[i] = cols[i] + " TEXT"
		params[i] = fmt.Sprintf("$%d", i+1)
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
	if _, err := t.tx.Exec(t.ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.table, err)
	}

	t.insert = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(cols, ", "), strings.Join(params, ", "))
	t.width = len(columns)
	return nil
}

func (t *postgresTable) WriteRow(fields []sink.Field) error {
	if t.insert == "" {
		return fmt.Errorf("table %s: row written before header", t.table)
	}
	if _, err := t.tx.Exec(t.ctx, t.insert, rowArgs(fields, t.width)...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", t.table, err)
	}
	return nil
}

func (t *postgresTable) Close() error {
	return nil
}

// truncateIdent cuts ident the way PostgreSQL does, at a character boundary
// within maxIdentLen bytes
func truncateIdent(ident string) string {
	if len(ident) <= maxIdentLen {
		return ident
	}
	n := maxIdentLen
	for n > 0 && !utf8.RuneStart(ident[n]) {
		n--
	}
	return ident[:n]
}
