// Package sink defines where decomposed rows go and provides the CSV,
// fan-out and in-memory destinations.
package sink

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when writing to a sink after Close
	ErrClosed = errors.New("sink closed")
	// ErrNameInUse is returned when two tables resolve to one destination
	ErrNameInUse = errors.New("destination already used by another table")
)

// Field is one cell of a row. Invalid fields are nulls: empty in CSV, NULL
// in SQL destinations.
type Field struct {
	Text  string
	Valid bool
}

// Text returns a non-null field
func Text(s string) Field {
	return Field{Text: s, Valid: true}
}

// Null returns a null field
func Null() Field {
	return Field{}
}

// Sink is an append-only destination for the rows of one table. The header
// is written exactly once, before any row.
type Sink interface {
	WriteHeader(columns []string) error
	WriteRow(fields []Field) error
	Close() error
}

// Provider opens one sink per table name. Close is called once at the end
// of a run, after every sink it opened has been closed.
type Provider interface {
	Open(ctx context.Context, table string) (Sink, error)
	Close() error
}

// Names tracks the destinations a provider has handed out. Key maps a table
// name onto its destination, for example a file name or a case-folded SQL
// identifier.
type Names struct {
	Key   func(table string) string
	taken map[string]string
}

// NewNames creates an empty set keyed by key
func NewNames(key func(table string) string) *Names {
	return &Names{Key: key, taken: make(map[string]string)}
}

// Claim reserves the destination of table. It fails with ErrNameInUse when
// another table already holds it.
func (n *Names) Claim(table string) error {
	k := n.Key(table)
	if other, ok := n.taken[k]; ok {
		return fmt.Errorf("%w: %q and %q both map to %q", ErrNameInUse, other, table, k)
	}
	n.taken[k] = table
	return nil
}

// Reset releases every destination
func (n *Names) Reset() {
	clear(n.taken)
}
