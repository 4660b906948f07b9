package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/relcsv/internal/sink"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// ValidFormat reports whether name is a known output format
func ValidFormat(name string) bool {
	return name == formatMarkdown || name == formatText
}

// MultiFileFormatter writes table descriptions to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes an overview file and one file per table
func (f *MultiFileFormatter) Format(tables []Table) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeOverview(tables); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range tables {
		if err := f.writeTableFile(table, tables); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Schema.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeOverview(tables []Table) error {
	ext := f.getFileExtension()
	filename := filepath.Join(f.OutputDir, "_overview"+ext)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	sorted := make([]Table, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Schema.Name < sorted[j].Schema.Name
	})

	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(file, "# Tables Overview\n\n")
		_, _ = fmt.Fprintf(file, "Each table has a corresponding file: `<table_name>%s`\n\n", ext)
		_, _ = fmt.Fprintf(file, "## Tables\n\n")
		for _, table := range sorted {
			_, _ = fmt.Fprintf(file, "- **%s** (%d rows)%s\n", table.Schema.Name, table.Rows, overviewRefs(table, ", "))
		}
		return nil
	}

	_, _ = fmt.Fprintf(file, "TABLES OVERVIEW\n")
	_, _ = fmt.Fprintf(file, "Each table has a file: <table_name>%s\n\n", ext)
	for _, table := range sorted {
		_, _ = fmt.Fprintf(file, "%s %d%s\n", table.Schema.Name, table.Rows, overviewRefs(table, ","))
	}
	return nil
}

// overviewRefs lists the tables t points at, both foreign keys and parents
func overviewRefs(t Table, sep string) string {
	var targets []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			targets = append(targets, name)
		}
	}
	for _, fk := range t.Schema.ForeignKeys {
		add(fk.Ref.Name)
	}
	for _, p := range t.Schema.Parents {
		add(p.Name)
	}
	if len(targets) == 0 {
		return ""
	}
	return fmt.Sprintf(" (references: %s)", strings.Join(targets, sep))
}

func (f *MultiFileFormatter) writeTableFile(table Table, all []Table) error {
	filename := filepath.Join(f.OutputDir, sink.FileName(table.Schema.Name)+f.getFileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	incoming := IncomingRefs(table.Schema, all)

	if f.OutputFormat == formatMarkdown {
		if err := NewMarkdownFormatter(file).FormatTable(table); err != nil {
			return err
		}
		if len(incoming) > 0 {
			_, _ = fmt.Fprintf(file, "### Referenced by\n\n")
			writeIncoming(file, "- ", incoming)
			_, _ = fmt.Fprintln(file)
		}
		return nil
	}

	if err := NewTextFormatter(file).FormatTable(table); err != nil {
		return err
	}
	if len(incoming) > 0 {
		_, _ = fmt.Fprintln(file)
		_, _ = fmt.Fprintln(file, "  REFERENCED BY:")
		writeIncoming(file, "    ", incoming)
	}
	return nil
}

func writeIncoming(w io.Writer, prefix string, incoming []Incoming) {
	for _, ref := range incoming {
		kind := "foreign key"
		if ref.Parent {
			kind = "parent link"
		}
		_, _ = fmt.Fprintf(w, "%s%s.%s (%s)\n", prefix, ref.Table, ref.Column, kind)
	}
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
