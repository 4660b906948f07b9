package formatter

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownFormatter formats inferred tables as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the tables in markdown format
func (f *MarkdownFormatter) Format(tables []Table) error {
	_, _ = fmt.Fprintln(f.writer, "# Inferred Tables")
	_, _ = fmt.Fprintln(f.writer)

	for _, table := range tables {
		if err := f.FormatTable(table); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable formats a single table (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatTable(table Table) error {
	s := table.Schema

	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", s.Name)
	switch {
	case s.IsJunction:
		_, _ = fmt.Fprintf(f.writer, "Scalar elements of `%s` arrays, %d rows.\n\n", s.Origin, table.Rows)
	case s.Origin != "":
		_, _ = fmt.Fprintf(f.writer, "Objects found under `%s`, %d rows.\n\n", s.Origin, table.Rows)
	default:
		_, _ = fmt.Fprintf(f.writer, "Document root, %d rows.\n\n", table.Rows)
	}

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)

	for _, col := range table.Columns() {
		constraintStr := f.formatConstraints(col)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s**\n", col.Name)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	nested := table.NestedRefs()
	if len(nested) > 0 || len(s.Parents) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, fk := range nested {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s (nested)\n", fk.Column, refTarget(fk.Ref))
		}
		for _, p := range s.Parents {
			_, _ = fmt.Fprintf(f.writer, "- nested in %s\n", p.Name)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}

func (f *MarkdownFormatter) formatConstraints(col Column) string {
	var constraints []string

	if col.Role != RoleData {
		constraints = append(constraints, col.Role.String())
	}

	if col.PrimaryKey {
		constraints = append(constraints, "PK")
	}

	if col.Ref != nil {
		constraints = append(constraints, "FK → "+refTarget(col.Ref))
	}

	return strings.Join(constraints, ", ")
}
