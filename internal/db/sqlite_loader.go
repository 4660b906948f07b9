package db

import (
	"context"
	"fmt"
	"strings"
)

// SQLiteDialect quotes identifiers with double quotes and stores every field
// as TEXT. Identifiers compare case-insensitively.
var SQLiteDialect = Dialect{
	Name:        "sqlite",
	Quote:       quoteWith(`"`),
	Placeholder: questionMark,
	TextType:    "TEXT",
	Fold:        strings.ToLower,
}

// NewSQLiteLoader creates a loader writing into the client's database
func NewSQLiteLoader(client *SQLiteClient) *Loader {
	return NewLoader(client.GetDB(), SQLiteDialect)
}

// TableNames lists the tables of a SQLite database
func (c *SQLiteClient) TableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

// ColumnNames lists the columns of a SQLite table in declaration order
func (c *SQLiteClient) ColumnNames(ctx context.Context, tableName string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", SQLiteDialect.Quote(tableName))

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var defaultValue any

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}

	return columns, rows.Err()
}
