package sink

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
)

const (
	csvExt       = ".csv"
	xzExt        = ".xz"
	manifestName = "_manifest.txt"
)

// CSVOptions configures a CSVProvider
type CSVOptions struct {
	// Compress writes <table>.csv.xz instead of <table>.csv
	Compress bool
	// Manifest writes _manifest.txt with a BLAKE3 digest of each table's CSV
	// content when the provider is closed.
	Manifest bool
}

// TableFile describes one written table file
type TableFile struct {
	Table  string
	Path   string
	Rows   int
	Digest string // hex BLAKE3 of the uncompressed CSV content
}

// CSVProvider writes one CSV file per table into a directory
type CSVProvider struct {
	OutputDir string
	Options   CSVOptions

	files []*csvSink
	names *Names
}

// NewCSVProvider creates a provider writing into outputDir
func NewCSVProvider(outputDir string, opts CSVOptions) *CSVProvider {
	return &CSVProvider{
		OutputDir: outputDir,
		Options:   opts,
	}
}

// Open creates (truncating) the file for table. Tables whose file names
// differ only in case or in sanitized characters cannot share a directory.
func (p *CSVProvider) Open(ctx context.Context, table string) (Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.names == nil {
		p.names = NewNames(fileKey)
	}
	if err := p.names.Claim(table); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	name := FileName(table) + csvExt
	if p.Options.Compress {
		name += xzExt
	}
	path := filepath.Join(p.OutputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	s := &csvSink{
		table:  table,
		path:   path,
		file:   file,
		hasher: blake3.New(),
	}

	var out io.Writer = file
	if p.Options.Compress {
		xzw, err := xz.NewWriter(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		s.xz = xzw
		out = xzw
	}
	s.buf = bufio.NewWriter(io.MultiWriter(out, s.hasher))

	p.files = append(p.files, s)
	return s, nil
}

// Files lists the tables written so far, in open order
func (p *CSVProvider) Files() []TableFile {
	files := make([]TableFile, 0, len(p.files))
	for _, s := range p.files {
		files = append(files, s.info())
	}
	return files
}

// Close writes the manifest when enabled. Sinks must be closed first.
func (p *CSVProvider) Close() error {
	if !p.Options.Manifest {
		return nil
	}
	return p.writeManifest()
}

func (p *CSVProvider) writeManifest() error {
	files := p.Files()
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(p.OutputDir, manifestName))
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, tf := range files {
		_, _ = fmt.Fprintf(w, "%s %d %s\n", tf.Digest, tf.Rows, filepath.Base(tf.Path))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return f.Close()
}

type csvSink struct {
	table  string
	path   string
	file   *os.File
	xz     *xz.Writer
	buf    *bufio.Writer
	hasher hash.Hash
	rows   int
	digest string
	closed bool
}

func (s *csvSink) WriteHeader(columns []string) error {
	return s.writeLine(len(columns), func(i int) string { return EscapeField(columns[i]) })
}

func (s *csvSink) WriteRow(fields []Field) error {
	if err := s.writeLine(len(fields), func(i int) string {
		if !fields[i].Valid {
			return ""
		}
		return EscapeField(fields[i].Text)
	}); err != nil {
		return err
	}
	s.rows++
	return nil
}

func (s *csvSink) writeLine(n int, field func(int) string) error {
	if s.closed {
		return ErrClosed
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			if err := s.buf.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := s.buf.WriteString(field(i)); err != nil {
			return err
		}
	}
	return s.buf.WriteByte('\n')
}

func (s *csvSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.buf.Flush(); err != nil {
		errs = append(errs, err)
	}
	if s.xz != nil {
		if err := s.xz.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, err)
	}
	s.digest = hex.EncodeToString(s.hasher.Sum(nil))

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	return nil
}

func (s *csvSink) info() TableFile {
	digest := s.digest
	if !s.closed {
		digest = hex.EncodeToString(s.hasher.Sum(nil))
	}
	return TableFile{
		Table:  s.table,
		Path:   s.path,
		Rows:   s.rows,
		Digest: digest,
	}
}

// EscapeField quotes a CSV field containing a comma, a double quote or a
// line break, doubling embedded quotes. Other fields are returned as-is.
func EscapeField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// fileKey folds case so the check also holds on case-insensitive file systems
func fileKey(table string) string {
	return strings.ToLower(FileName(table))
}

// FileName maps a table name onto a safe file base name
func FileName(table string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, table)

	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return name
}
