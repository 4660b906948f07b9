package formatter

import (
	"fmt"
	"io"
	"strings"
)

// TextFormatter formats inferred tables as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the tables in compact text format
func (f *TextFormatter) Format(tables []Table) error {
	for i, table := range tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}

		if err := f.FormatTable(table); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes a single table
func (f *TextFormatter) FormatTable(table Table) error {
	s := table.Schema

	kind := "TABLE"
	if s.IsJunction {
		kind = "JUNCTION"
	}
	pkStr := ""
	if s.PrimaryKey != "" {
		pkStr = fmt.Sprintf(" (PK: %s)", s.PrimaryKey)
	}
	_, _ = fmt.Fprintf(f.writer, "%s %s%s\n", kind, s.Name, pkStr)
	if s.Origin != "" {
		_, _ = fmt.Fprintf(f.writer, "  from %q, %d rows\n", s.Origin, table.Rows)
	} else {
		_, _ = fmt.Fprintf(f.writer, "  document root, %d rows\n", table.Rows)
	}

	for _, col := range table.Columns() {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(col))
	}

	nested := table.NestedRefs()
	if len(nested) > 0 || len(s.Parents) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, fk := range nested {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s (nested)\n", fk.Column, refTarget(fk.Ref))
		}
		if len(s.Parents) > 0 {
			_, _ = fmt.Fprintf(f.writer, "    nested in %s\n", strings.Join(parentNames(s), ", "))
		}
	}

	return nil
}

func (f *TextFormatter) formatColumn(col Column) string {
	parts := []string{col.Name}

	if col.Role != RoleData {
		parts = append(parts, "("+col.Role.String()+")")
	}
	if col.PrimaryKey {
		parts = append(parts, "PK")
	}
	if col.Ref != nil {
		parts = append(parts, "→ "+refTarget(col.Ref))
	}

	return strings.Join(parts, " ")
}
