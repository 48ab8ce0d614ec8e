package denorm

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/okian/pythians/internal/domain/types"
)

// entity is a primary entity being assembled.
type entity struct {
	record      *Record
	scalars     []any
	collections []collectionState
}

type collectionState struct {
	items   []any
	ids     *roaring64.Bitmap
	members map[string]struct{}
}

// Folder accumulates rows for one schema. It is not safe for concurrent use;
// each request builds its own.
type Folder struct {
	plan     *plan
	entities *orderedmap.OrderedMap[uint64, *entity]
	rows     int
}

// NewFolder validates schema and returns an empty Folder for it.
func NewFolder(schema *Schema) (*Folder, error) {
	p, err := schema.compile()
	if err != nil {
		return nil, err
	}
	return &Folder{
		plan:     p,
		entities: orderedmap.New[uint64, *entity](),
	}, nil
}

// Add folds one row into the accumulated entities.
func (f *Folder) Add(row Row) error {
	if len(row) != f.plan.width {
		return fmt.Errorf("%w: %s: got %d columns, want %d", ErrRowWidth, f.plan.name, len(row), f.plan.width)
	}
	key, ok := asID(row[f.plan.key])
	if !ok {
		return fmt.Errorf("%w: %s.%s=%v", ErrInvalidKey, f.plan.name, f.plan.keyName, row[f.plan.key])
	}
	f.rows++

	ent, seen := f.entities.Get(key)
	if !seen {
		ent = f.newEntity(row)
		f.entities.Set(key, ent)
	} else if err := f.checkScalars(key, ent, row); err != nil {
		return err
	}

	for i := range f.plan.collections {
		if err := f.addItem(&f.plan.collections[i], &ent.collections[i], row); err != nil {
			return err
		}
	}
	return nil
}

func (f *Folder) newEntity(row Row) *entity {
	ent := &entity{
		record:      newRecord(),
		scalars:     make([]any, len(f.plan.scalars)),
		collections: make([]collectionState, len(f.plan.collections)),
	}
	for i, sf := range f.plan.scalars {
		v := normalize(row[sf.col])
		ent.scalars[i] = v
		ent.record.set(sf.name, v)
	}
	for i, bc := range f.plan.collections {
		switch bc.dedup {
		case ByIdentity:
			ent.collections[i].ids = roaring64.New()
		case ByValueSet:
			ent.collections[i].members = make(map[string]struct{})
		}
	}
	return ent
}

func (f *Folder) checkScalars(key uint64, ent *entity, row Row) error {
	for i, sf := range f.plan.scalars {
		if v := normalize(row[sf.col]); !sameValue(ent.scalars[i], v) {
			return fmt.Errorf("%w: %s id=%d field %q: %v != %v",
				ErrInconsistentRow, f.plan.name, key, sf.name, ent.scalars[i], v)
		}
	}
	return nil
}

func (f *Folder) addItem(bc *boundCollection, st *collectionState, row Row) error {
	if row[bc.presence] == nil {
		return nil
	}
	switch bc.dedup {
	case ByIdentity:
		id, ok := asID(row[bc.identity])
		if !ok {
			return fmt.Errorf("%w: %s.%s=%v", ErrInvalidKey, f.plan.name, bc.name, row[bc.identity])
		}
		if st.ids.Contains(id) {
			return nil
		}
		st.ids.Add(id)
		st.items = append(st.items, itemRecord(bc, row))
	case ByValueSet:
		k := valueKey(row, bc.items)
		if _, dup := st.members[k]; dup {
			return nil
		}
		st.members[k] = struct{}{}
		if len(bc.items) == 1 {
			st.items = append(st.items, normalize(row[bc.items[0].col]))
		} else {
			st.items = append(st.items, itemRecord(bc, row))
		}
	}
	return nil
}

func itemRecord(bc *boundCollection, row Row) *Record {
	rec := newRecord()
	for _, it := range bc.items {
		rec.set(it.name, normalize(row[it.col]))
	}
	return rec
}

// Rows returns how many rows have been folded.
func (f *Folder) Rows() int { return f.rows }

// Len returns the number of distinct primary entities seen so far.
func (f *Folder) Len() int { return f.entities.Len() }

// Records returns the entities in first-seen order. Collections with no
// items are present and empty.
func (f *Folder) Records() []*Record {
	out := make([]*Record, 0, f.entities.Len())
	for pair := f.entities.Oldest(); pair != nil; pair = pair.Next() {
		ent := pair.Value
		for i, bc := range f.plan.collections {
			items := ent.collections[i].items
			if items == nil {
				items = []any{}
			}
			ent.record.set(bc.name, items)
		}
		out = append(out, ent.record)
	}
	return out
}

// One returns the single entity folded so far. An empty fold is a
// types.ErrNotFound; more than one entity is ErrMultipleEntities.
func (f *Folder) One() (*Record, error) {
	const op = "denorm.one"
	switch n := f.entities.Len(); n {
	case 0:
		return nil, types.NewKind(op, types.ErrNotFound)
	case 1:
		return f.Records()[0], nil
	default:
		return nil, fmt.Errorf("%s: %w: %s matched %d entities", op, ErrMultipleEntities, f.plan.name, n)
	}
}

// Denormalize folds rows through schema and returns the entities in
// first-seen order. An empty input yields an empty, non-nil slice.
func Denormalize(schema *Schema, rows []Row) ([]*Record, error) {
	f, err := NewFolder(schema)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := f.Add(row); err != nil {
			return nil, err
		}
	}
	return f.Records(), nil
}

// DenormalizeOne folds rows that were filtered to a single primary key.
func DenormalizeOne(schema *Schema, rows []Row) (*Record, error) {
	f, err := NewFolder(schema)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := f.Add(row); err != nil {
			return nil, err
		}
	}
	return f.One()
}
