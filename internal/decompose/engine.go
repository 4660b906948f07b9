// Package decompose walks a document tree and streams one row per object
// into per-table sinks, linking child rows to their parent through a
// run-wide surrogate identifier.
package decompose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tordrt/relcsv/internal/logging"
	"github.com/tordrt/relcsv/internal/schema"
	"github.com/tordrt/relcsv/internal/sink"
	"github.com/tordrt/relcsv/internal/value"
)

const (
	// DefaultParentColumn holds the parent row identifier in child tables
	DefaultParentColumn = "parent_id"
	// DefaultSeqColumn holds an array element's position
	DefaultSeqColumn = "seq"

	// idColumn holds the surrogate identifier. It stays "id" even when the
	// document has an "id" field of its own; destinations that need unique
	// column names rename it.
	idColumn    = "id"
	indexColumn = "index"
	valueColumn = "value"
)

var (
	// ErrRootNotObject is returned when the document root is not an object
	ErrRootNotObject = errors.New("document root must be an object")
	// ErrSinkOpen wraps failures to open or initialize a table sink
	ErrSinkOpen = errors.New("failed to open table sink")
	// ErrTableConflict is returned when two schemas map to one table name
	ErrTableConflict = errors.New("table name already used by another schema")
	// ErrAlreadyRun is returned when Run is called twice on one Engine
	ErrAlreadyRun = errors.New("engine already ran")
	// ErrColumnClash is returned when the link column names collide with
	// each other or with the fixed columns
	ErrColumnClash = errors.New("link column names collide")
)

// CheckColumns validates the parent and seq column names; empty names
// stand for the defaults.
func CheckColumns(parent, seq string) error {
	if parent == "" {
		parent = DefaultParentColumn
	}
	if seq == "" {
		seq = DefaultSeqColumn
	}
	switch {
	case parent == seq:
		return fmt.Errorf("%w: parent and seq columns are both %q", ErrColumnClash, parent)
	case parent == idColumn || seq == idColumn:
		return fmt.Errorf("%w: %q is the row id column", ErrColumnClash, idColumn)
	case parent == indexColumn || parent == valueColumn:
		return fmt.Errorf("%w: %q is a junction column", ErrColumnClash, parent)
	}
	return nil
}

// Option configures an Engine
type Option func(*Engine)

// WithRegistry makes the engine resolve shapes through r
func WithRegistry(r *schema.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithParentColumn renames the parent link column
func WithParentColumn(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.parentColumn = name
		}
	}
}

// WithSeqColumn renames the array position column
func WithSeqColumn(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.seqColumn = name
		}
	}
}

// TableStats summarizes one written table
type TableStats struct {
	Name    string
	Schema  *schema.Schema
	Columns []string
	Rows    int
}

// Result summarizes a run
type Result struct {
	RootID    int64
	RootTable string
	Tables    []TableStats // in first-write order
	Schemas   []*schema.Schema
	Junctions []*schema.Schema
}

// Engine holds the state of one decomposition run: the schema registry, the
// row identifier counter and the open sinks. It is not safe for concurrent
// use; decompose separate documents with separate engines.
type Engine struct {
	registry     *schema.Registry
	provider     sink.Provider
	parentColumn string
	seqColumn    string

	nextID int64
	tables map[string]*table
	order  []*table
	ran    bool
	log    *slog.Logger
}

type table struct {
	schema *schema.Schema
	sink   sink.Sink
	header []string
	rows   int
}

// NewEngine creates an engine writing to provider
func NewEngine(provider sink.Provider, opts ...Option) *Engine {
	e := &Engine{
		provider:     provider,
		parentColumn: DefaultParentColumn,
		seqColumn:    DefaultSeqColumn,
		tables:       make(map[string]*table),
		log:          logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = schema.NewRegistry(schema.DefaultConfig())
	}
	return e
}

// Registry returns the registry used by the engine
func (e *Engine) Registry() *schema.Registry {
	return e.registry
}

// Run decomposes a whole document. Every sink and the provider are closed
// before Run returns, also on failure; tables written before a failure are
// left as they are.
func (e *Engine) Run(ctx context.Context, root value.Value) (res *Result, err error) {
	if e.ran {
		return nil, ErrAlreadyRun
	}
	e.ran = true
	e.log = logging.FromContext(ctx)

	defer func() {
		if cerr := e.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := CheckColumns(e.parentColumn, e.seqColumn); err != nil {
		return nil, err
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: got %s", ErrRootNotObject, root.Kind())
	}

	if err := e.Plan(root); err != nil {
		return nil, err
	}

	rootSchema, err := e.registry.Resolve(root, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root schema: %w", err)
	}

	rootID, err := e.Decompose(ctx, root, rootSchema, 0, -1)
	if err != nil {
		return nil, err
	}

	res = &Result{
		RootID:    rootID,
		RootTable: rootSchema.Name,
		Schemas:   e.registry.Schemas(),
		Junctions: e.registry.Junctions(),
	}
	for _, t := range e.order {
		res.Tables = append(res.Tables, TableStats{
			Name:    t.schema.Name,
			Schema:  t.schema,
			Columns: t.header,
			Rows:    t.rows,
		})
		e.log.Info("table written", "table", t.schema.Name, "rows", t.rows)
	}
	return res, nil
}

// Plan resolves every object of the tree in decomposition order and marks
// which tables carry parent links and array positions, so each table's
// header is final before its first row is written. No identifiers are
// allocated.
func (e *Engine) Plan(root value.Value) error {
	if !root.IsObject() {
		return fmt.Errorf("%w: got %s", ErrRootNotObject, root.Kind())
	}
	s, err := e.resolve(root, "")
	if err != nil {
		return err
	}
	return e.plan(root, s)
}

func (e *Engine) plan(obj value.Value, s *schema.Schema) error {
	for _, p := range obj.Pairs() {
		switch p.Value.Kind() {
		case value.KindObject:
			child, err := e.resolve(p.Value, p.Key)
			if err != nil {
				return err
			}
			child.ParentLink = true
			child.AddParent(s)
			if err := e.plan(p.Value, child); err != nil {
				return err
			}
		case value.KindArray:
			for _, elem := range p.Value.Elements() {
				switch {
				case elem.IsObject():
					child, err := e.resolve(elem, p.Key)
					if err != nil {
						return err
					}
					child.ParentLink = true
					child.Sequenced = true
					child.AddParent(s)
					if err := e.plan(elem, child); err != nil {
						return err
					}
				case elem.Kind().IsScalar():
					e.registry.Junction(p.Key).AddParent(s)
				}
			}
		}
	}
	return nil
}

// Decompose writes obj as one row of s and recurses into its nested objects
// and arrays. parentID 0 means no parent; seq is the position of obj within
// its array, or -1. It returns the identifier allocated for obj.
func (e *Engine) Decompose(ctx context.Context, obj value.Value, s *schema.Schema, parentID int64, seq int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	e.nextID++
	id := e.nextID

	t, err := e.table(ctx, s, parentID > 0, seq >= 0)
	if err != nil {
		return 0, err
	}

	if err := e.writeRow(t, e.objectRow(obj, s, id, parentID, seq)); err != nil {
		return 0, err
	}

	for _, p := range obj.Pairs() {
		switch p.Value.Kind() {
		case value.KindObject:
			child, err := e.resolve(p.Value, p.Key)
			if err != nil {
				return 0, err
			}
			if _, err := e.Decompose(ctx, p.Value, child, id, -1); err != nil {
				return 0, err
			}
		case value.KindArray:
			if err := e.decomposeArray(ctx, p.Key, p.Value, id); err != nil {
				return 0, err
			}
		}
	}

	return id, nil
}

func (e *Engine) decomposeArray(ctx context.Context, key string, arr value.Value, parentID int64) error {
	for i, elem := range arr.Elements() {
		switch {
		case elem.IsObject():
			child, err := e.resolve(elem, key)
			if err != nil {
				return err
			}
			if _, err := e.Decompose(ctx, elem, child, parentID, i); err != nil {
				return err
			}
		case elem.Kind().IsScalar():
			if err := e.writeJunction(ctx, key, parentID, i, elem); err != nil {
				return err
			}
		default:
			e.log.Debug("skipping nested array element", "key", key, "index", i)
		}
	}
	return nil
}

func (e *Engine) writeJunction(ctx context.Context, key string, parentID int64, index int, elem value.Value) error {
	s := e.registry.Junction(key)
	t, err := e.table(ctx, s, true, false)
	if err != nil {
		return err
	}

	parent := sink.Null()
	if parentID > 0 {
		parent = sink.Text(strconv.FormatInt(parentID, 10))
	}
	return e.writeRow(t, []sink.Field{
		parent,
		sink.Text(strconv.Itoa(index)),
		RenderScalar(elem),
	})
}

func (e *Engine) objectRow(obj value.Value, s *schema.Schema, id, parentID int64, seq int) []sink.Field {
	row := make([]sink.Field, 0, len(s.Columns)+3)
	row = append(row, sink.Text(strconv.FormatInt(id, 10)))

	for _, col := range s.Columns {
		v, ok := obj.Lookup(col)
		if !ok {
			row = append(row, sink.Null())
			continue
		}
		row = append(row, RenderScalar(v))
	}

	if s.Sequenced {
		if seq >= 0 {
			row = append(row, sink.Text(strconv.Itoa(seq)))
		} else {
			row = append(row, sink.Null())
		}
	}

	if s.ParentLink {
		if parentID > 0 {
			row = append(row, sink.Text(strconv.FormatInt(parentID, 10)))
		} else {
			row = append(row, sink.Null())
		}
	}

	return row
}

func (e *Engine) resolve(obj value.Value, origin string) (*schema.Schema, error) {
	before := e.registry.Len()
	s, err := e.registry.Resolve(obj, origin)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema for %q: %w", origin, err)
	}
	if e.registry.Len() > before {
		e.log.Debug("schema created", "table", s.Name, "origin", origin, "columns", len(s.Columns))
	}
	return s, nil
}

// table returns the open table for s, opening its sink and writing the
// header on first use.
func (e *Engine) table(ctx context.Context, s *schema.Schema, hasParent, inArray bool) (*table, error) {
	if t, ok := e.tables[s.Name]; ok {
		if t.schema != s {
			return nil, fmt.Errorf("%w: %s", ErrTableConflict, s.Name)
		}
		if (hasParent && !s.ParentLink) || (inArray && !s.Sequenced) {
			e.log.Warn("table header already written without link columns", "table", s.Name)
		}
		return t, nil
	}

	// Planning registered every schema, so a junction named after an object
	// table is caught before either sink is opened.
	if other := e.registry.Lookup(s.Name); other != nil && other != s {
		return nil, fmt.Errorf("%w: %s", ErrTableConflict, s.Name)
	}

	// Tables first reached outside Run have not been planned.
	if hasParent && !s.IsJunction {
		s.ParentLink = true
	}
	if inArray {
		s.Sequenced = true
	}

	out, err := e.provider.Open(ctx, s.Name)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSinkOpen, s.Name, err)
	}

	t := &table{
		schema: s,
		sink:   out,
		header: e.Header(s),
	}
	e.tables[s.Name] = t
	e.order = append(e.order, t)

	if err := out.WriteHeader(t.header); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSinkOpen, s.Name, err)
	}
	return t, nil
}

// Header returns the column names written for s
func (e *Engine) Header(s *schema.Schema) []string {
	if s.IsJunction {
		return []string{e.parentColumn, indexColumn, valueColumn}
	}

	header := make([]string, 0, len(s.Columns)+3)
	header = append(header, idColumn)
	header = append(header, s.Columns...)
	if s.Sequenced {
		header = append(header, s.SyntheticColumn(e.seqColumn))
	}
	if s.ParentLink {
		header = append(header, s.SyntheticColumn(e.parentColumn))
	}
	return header
}

func (e *Engine) writeRow(t *table, row []sink.Field) error {
	if err := t.sink.WriteRow(row); err != nil {
		return fmt.Errorf("failed to write row to %s: %w", t.schema.Name, err)
	}
	t.rows++
	return nil
}

// close closes every opened sink once, then the provider
func (e *Engine) close() error {
	var errs []error
	for _, t := range e.order {
		if err := t.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", t.schema.Name, err))
		}
	}
	e.order = e.order[:0:0]
	e.tables = make(map[string]*table)

	if err := e.provider.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
