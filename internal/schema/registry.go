// Package schema infers table shapes from document objects and tracks the
// primary and foreign keys between them.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/relcsv/internal/value"
)

// DefaultMaxSchemas bounds how many object tables one registry may create
const DefaultMaxSchemas = 100

var (
	// ErrNotObject is returned when a non-object value is resolved
	ErrNotObject = errors.New("value is not an object")
	// ErrTooManySchemas is returned when the registry is full
	ErrTooManySchemas = errors.New("too many schemas")
)

// LimitError reports which capacity was exceeded
type LimitError struct {
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("too many schemas: limit of %d reached", e.Limit)
}

func (e *LimitError) Unwrap() error {
	return ErrTooManySchemas
}

// ShapePolicy decides when two objects share a table
type ShapePolicy string

const (
	// ShapeOnly maps objects with the same shape to one table regardless of
	// where they appear in the document.
	ShapeOnly ShapePolicy = "shape"
	// ShapeAndOrigin additionally requires the originating key to match.
	ShapeAndOrigin ShapePolicy = "shape+origin"
)

// FKPolicy decides which table an "_id" column references
type FKPolicy string

const (
	// FirstRegistered picks the first table that has an id column.
	FirstRegistered FKPolicy = "first"
	// NameMatch prefers a table whose origin key matches the column stem
	// (author_id -> author or authors), falling back to FirstRegistered.
	NameMatch FKPolicy = "name"
)

// ParseShapePolicy converts a flag or config value into a ShapePolicy
func ParseShapePolicy(s string) (ShapePolicy, error) {
	switch ShapePolicy(s) {
	case "", ShapeOnly:
		return ShapeOnly, nil
	case ShapeAndOrigin:
		return ShapeAndOrigin, nil
	}
	return "", fmt.Errorf("invalid shape policy: %s (must be 'shape' or 'shape+origin')", s)
}

// ParseFKPolicy converts a flag or config value into an FKPolicy
func ParseFKPolicy(s string) (FKPolicy, error) {
	switch FKPolicy(s) {
	case "", FirstRegistered:
		return FirstRegistered, nil
	case NameMatch:
		return NameMatch, nil
	}
	return "", fmt.Errorf("invalid foreign key policy: %s (must be 'first' or 'name')", s)
}

// Config configures a Registry.
//
// MaxSchemas of 0 means unbounded. Empty policies mean ShapeOnly and
// FirstRegistered.
type Config struct {
	MaxSchemas  int
	ShapePolicy ShapePolicy
	FKPolicy    FKPolicy
}

// DefaultConfig returns the settings matching the classic behavior
func DefaultConfig() Config {
	return Config{
		MaxSchemas:  DefaultMaxSchemas,
		ShapePolicy: ShapeOnly,
		FKPolicy:    FirstRegistered,
	}
}

// Registry maps object shapes to schemas. Schemas are never removed or
// renamed once registered; registration order is the only tie-break.
type Registry struct {
	cfg       Config
	schemas   []*Schema
	junctions []*Schema
	counter   int
}

// NewRegistry creates an empty registry
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Resolve returns the schema for obj's shape, registering a new one when no
// existing schema matches. origin is the key obj was found under ("" for the
// document root).
//
// Resolving a new shape also resolves nested objects that carry an id
// column, so the registry may grow by more than one schema per call.
func (r *Registry) Resolve(obj value.Value, origin string) (*Schema, error) {
	if !obj.IsObject() {
		return nil, ErrNotObject
	}

	if s := r.lookup(obj, origin); s != nil {
		return s, nil
	}

	if r.cfg.MaxSchemas > 0 && len(r.schemas) >= r.cfg.MaxSchemas {
		return nil, &LimitError{Limit: r.cfg.MaxSchemas}
	}

	r.counter++
	s := &Schema{
		Name:      fmt.Sprintf("table%d", r.counter),
		Columns:   scalarColumns(obj),
		Origin:    origin,
		Prototype: obj,
	}
	r.schemas = append(r.schemas, s)

	r.inferKeys(s)

	if err := r.detectNestedKeys(s, obj); err != nil {
		return nil, err
	}

	return s, nil
}

func (r *Registry) lookup(obj value.Value, origin string) *Schema {
	for _, s := range r.schemas {
		if r.cfg.ShapePolicy == ShapeAndOrigin && s.Origin != origin {
			continue
		}
		if SameShape(obj, s.Prototype) {
			return s
		}
	}
	return nil
}

// scalarColumns lists the distinct keys of obj holding scalar values
func scalarColumns(obj value.Value) []string {
	var columns []string
	seen := make(map[string]bool)
	for _, p := range obj.Pairs() {
		if seen[p.Key] {
			continue
		}
		seen[p.Key] = true
		if !p.Value.Kind().IsScalar() {
			continue
		}
		columns = append(columns, p.Key)
	}
	return columns
}

// inferKeys applies the naming conventions: "id" is the primary key and
// "<x>_id" references another table with an id column.
func (r *Registry) inferKeys(s *Schema) {
	for _, col := range s.Columns {
		if col == PrimaryKeyColumn {
			s.PrimaryKey = col
			continue
		}
		if len(col) > len(ForeignKeySuffix) && strings.HasSuffix(col, ForeignKeySuffix) {
			if ref := r.foreignKeyTarget(col); ref != nil {
				s.addForeignKey(col, ref)
			}
		}
	}
}

func (r *Registry) foreignKeyTarget(column string) *Schema {
	if r.cfg.FKPolicy == NameMatch {
		stem := strings.TrimSuffix(column, ForeignKeySuffix)
		for _, s := range r.schemas {
			if s.HasColumn(PrimaryKeyColumn) && (s.Origin == stem || s.Origin == stem+"s") {
				return s
			}
		}
	}

	for _, s := range r.schemas {
		if s.HasColumn(PrimaryKeyColumn) {
			return s
		}
	}
	return nil
}

// detectNestedKeys registers nested objects (directly or inside arrays) that
// carry an id and records them as foreign keys of s.
func (r *Registry) detectNestedKeys(s *Schema, obj value.Value) error {
	for _, p := range obj.Pairs() {
		switch p.Value.Kind() {
		case value.KindObject:
			if !p.Value.Has(PrimaryKeyColumn) {
				continue
			}
			ref, err := r.Resolve(p.Value, p.Key)
			if err != nil {
				return err
			}
			s.addForeignKey(p.Key, ref)
		case value.KindArray:
			for _, elem := range p.Value.Elements() {
				if !elem.IsObject() || !elem.Has(PrimaryKeyColumn) {
					continue
				}
				ref, err := r.Resolve(elem, p.Key)
				if err != nil {
					return err
				}
				s.addForeignKey(p.Key, ref)
			}
		}
	}
	return nil
}

// Junction returns the junction schema for scalar elements of the array
// stored under key, creating it on first use.
func (r *Registry) Junction(key string) *Schema {
	for _, s := range r.junctions {
		if s.Name == key {
			return s
		}
	}

	s := &Schema{
		Name:       key,
		ParentLink: true,
		IsJunction: true,
		Origin:     key,
	}
	r.junctions = append(r.junctions, s)
	return s
}

// Schemas returns the object schemas in registration order
func (r *Registry) Schemas() []*Schema {
	return r.schemas
}

// Junctions returns the junction schemas in creation order
func (r *Registry) Junctions() []*Schema {
	return r.junctions
}

// Len returns the number of object schemas
func (r *Registry) Len() int {
	return len(r.schemas)
}

// Lookup finds an object or junction schema by table name
func (r *Registry) Lookup(name string) *Schema {
	for _, s := range r.schemas {
		if s.Name == name {
			return s
		}
	}
	for _, s := range r.junctions {
		if s.Name == name {
			return s
		}
	}
	return nil
}
