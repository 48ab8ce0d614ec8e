// Package denorm folds flat outer-join rows into nested entity records.
//
// A Schema describes how one row shape is carved into a primary entity's
// scalar fields plus zero or more nested collections. A Folder consumes rows
// for a schema in a single pass and yields the entities in first-seen order.
package denorm

import (
	"fmt"
	"strings"
)

// Row is one fixed-width tuple produced by a row source. Optional-side
// columns of an outer join are nil.
type Row []any

// DedupPolicy selects how a collection suppresses repeated items.
type DedupPolicy int

const (
	// ByIdentity keeps the first item seen per child id, in encounter order.
	ByIdentity DedupPolicy = iota
	// ByValueSet keeps one item per distinct full value. Order carries no meaning.
	ByValueSet
)

func (p DedupPolicy) String() string {
	switch p {
	case ByIdentity:
		return "by_identity"
	case ByValueSet:
		return "by_value_set"
	default:
		return fmt.Sprintf("dedup_policy(%d)", int(p))
	}
}

// Field copies one projection column into a named output field.
type Field struct {
	Name   string
	Column string
}

// Collection describes a nested child collection of the primary entity.
type Collection struct {
	Name string
	// Presence is the column whose nullness means "no child on this row".
	Presence string
	Items    []Field
	Dedup    DedupPolicy
	// Identity is the child id column for ByIdentity. Empty means the
	// first item column.
	Identity string
}

// Schema is the projection of one endpoint shape.
type Schema struct {
	Name        string
	Columns     []string
	PrimaryKey  string
	Scalars     []Field
	Collections []Collection
}

// Validate reports whether every reference in s resolves against s.Columns.
func (s *Schema) Validate() error {
	_, err := s.compile()
	return err
}

type boundField struct {
	name string
	col  int
}

type boundCollection struct {
	name     string
	presence int
	items    []boundField
	dedup    DedupPolicy
	identity int
}

// plan is a Schema with every column name resolved to its index.
type plan struct {
	name        string
	width       int
	key         int
	keyName     string
	scalars     []boundField
	collections []boundCollection
}

func (s *Schema) compile() (*plan, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}
	if len(s.Columns) == 0 {
		return nil, s.invalid("no columns")
	}
	index := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		if strings.TrimSpace(c) == "" {
			return nil, s.invalid("column %d has no name", i)
		}
		if _, dup := index[c]; dup {
			return nil, s.invalid("duplicate column %q", c)
		}
		index[c] = i
	}
	resolve := func(col string) (int, error) {
		i, ok := index[col]
		if !ok {
			return 0, s.invalid("unknown column %q", col)
		}
		return i, nil
	}

	p := &plan{name: s.Name, width: len(s.Columns), keyName: s.PrimaryKey}
	var err error
	if p.key, err = resolve(s.PrimaryKey); err != nil {
		return nil, err
	}

	names := make(map[string]struct{}, len(s.Scalars)+len(s.Collections))
	claim := func(name string) error {
		if name == "" {
			return s.invalid("empty field name")
		}
		if _, dup := names[name]; dup {
			return s.invalid("duplicate field %q", name)
		}
		names[name] = struct{}{}
		return nil
	}

	for _, f := range s.Scalars {
		if err := claim(f.Name); err != nil {
			return nil, err
		}
		col, err := resolve(f.Column)
		if err != nil {
			return nil, err
		}
		p.scalars = append(p.scalars, boundField{name: f.Name, col: col})
	}

	for _, c := range s.Collections {
		if err := claim(c.Name); err != nil {
			return nil, err
		}
		if len(c.Items) == 0 {
			return nil, s.invalid("collection %q has no item fields", c.Name)
		}
		bc := boundCollection{name: c.Name, dedup: c.Dedup}
		if bc.presence, err = resolve(c.Presence); err != nil {
			return nil, err
		}
		itemNames := make(map[string]struct{}, len(c.Items))
		for _, f := range c.Items {
			if _, dup := itemNames[f.Name]; dup || f.Name == "" {
				return nil, s.invalid("collection %q: bad item field %q", c.Name, f.Name)
			}
			itemNames[f.Name] = struct{}{}
			col, err := resolve(f.Column)
			if err != nil {
				return nil, err
			}
			bc.items = append(bc.items, boundField{name: f.Name, col: col})
		}
		switch c.Dedup {
		case ByIdentity:
			bc.identity = bc.items[0].col
			if c.Identity != "" {
				if bc.identity, err = resolve(c.Identity); err != nil {
					return nil, err
				}
			}
		case ByValueSet:
		default:
			return nil, s.invalid("collection %q: unknown dedup policy %v", c.Name, c.Dedup)
		}
		p.collections = append(p.collections, bc)
	}
	return p, nil
}

func (s *Schema) invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidSchema, s.Name, fmt.Sprintf(format, args...))
}
