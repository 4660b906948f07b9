package sink

import (
	"context"
	"fmt"
)

// Table is the in-memory content of one table
type Table struct {
	Name    string
	Header  []string
	Rows    [][]Field
	Headers int // number of WriteHeader calls
	Closed  int // number of Close calls
}

// Memory keeps every table in memory. It is meant for tests and for
// callers that post-process rows themselves.
type Memory struct {
	Tables []*Table
	Closed bool

	// FailOpen makes Open fail for the named table
	FailOpen string
}

// NewMemory creates an empty in-memory provider
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Open(ctx context.Context, table string) (Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FailOpen != "" && m.FailOpen == table {
		return nil, fmt.Errorf("cannot open %s", table)
	}
	t := &Table{Name: table}
	m.Tables = append(m.Tables, t)
	return &memorySink{table: t}, nil
}

func (m *Memory) Close() error {
	m.Closed = true
	return nil
}

// Table returns the table with the given name, or nil
func (m *Memory) Table(name string) *Table {
	for _, t := range m.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Strings renders the rows as text, nulls as empty strings
func (t *Table) Strings() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		line := make([]string, len(row))
		for i, f := range row {
			line[i] = f.Text
		}
		out = append(out, line)
	}
	return out
}

type memorySink struct {
	table *Table
}

func (s *memorySink) WriteHeader(columns []string) error {
	if s.table.Closed > 0 {
		return ErrClosed
	}
	s.table.Header = append([]string(nil), columns...)
	s.table.Headers++
	return nil
}

func (s *memorySink) WriteRow(fields []Field) error {
	if s.table.Closed > 0 {
		return ErrClosed
	}
	s.table.Rows = append(s.table.Rows, append([]Field(nil), fields...))
	return nil
}

func (s *memorySink) Close() error {
	s.table.Closed++
	return nil
}
