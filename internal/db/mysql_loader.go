package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient opens dsn (user:pass@tcp(host:port)/dbname) and checks the connection
func NewMySQLClient(ctx context.Context, dsn string) (*MySQLClient, error) {
	if _, err := ParseDatabaseName(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{db: db}, nil
}

// Close closes the database connection
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database connection
func (c *MySQLClient) GetDB() *sql.DB {
	return c.db
}

// MySQLDialect quotes identifiers with backticks. DDL statements commit
// implicitly in MySQL, so only the inserts share the run transaction.
// Table names are folded because lower_case_table_names makes them
// case-insensitive on many servers; column names always are.
var MySQLDialect = Dialect{
	Name:        "mysql",
	Quote:       quoteWith("`"),
	Placeholder: questionMark,
	TextType:    "LONGTEXT",
	Fold:        strings.ToLower,
}

// NewMySQLLoader creates a loader writing into the client's database
func NewMySQLLoader(client *MySQLClient) *Loader {
	return NewLoader(client.GetDB(), MySQLDialect)
}

// ParseDatabaseName extracts the database name from a MySQL DSN
// Format: user:pass@tcp(host:port)/dbname?params
func ParseDatabaseName(dsn string) (string, error) {
	slash := strings.LastIndex(dsn, "/")
	if slash == -1 {
		return "", fmt.Errorf("invalid MySQL DSN: missing database name")
	}

	name := dsn[slash+1:]
	if q := strings.Index(name, "?"); q != -1 {
		name = name[:q]
	}
	if name == "" {
		return "", fmt.Errorf("invalid MySQL DSN: missing database name")
	}
	return name, nil
}
