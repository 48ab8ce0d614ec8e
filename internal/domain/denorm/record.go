package denorm

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is an entity or collection item with named fields in schema order.
// It marshals to a JSON object whose keys keep that order.
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
}

func newRecord() *Record {
	return &Record{fields: orderedmap.New[string, any]()}
}

func (r *Record) set(name string, v any) {
	r.fields.Set(name, v)
}

// Get returns the named field.
func (r *Record) Get(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	return r.fields.Get(name)
}

// Keys returns field names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return r.fields.Len()
}

// Items returns a collection field as a slice. It returns nil when the
// field is absent or is not a collection.
func (r *Record) Items(name string) []any {
	v, ok := r.Get(name)
	if !ok {
		return nil
	}
	items, _ := v.([]any)
	return items
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return r.fields.MarshalJSON()
}
