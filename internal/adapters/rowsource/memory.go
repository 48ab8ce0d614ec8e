package rowsource

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/okian/pythians/internal/domain/denorm"
	"github.com/okian/pythians/internal/domain/types"
)

// Memory is an in-process Opener over fixed row sets keyed by projection.
// Filters match the named column by position in Columns.
type Memory struct {
	Columns map[string][]string
	Rows    map[string][]denorm.Row

	opened atomic.Int64
	closed atomic.Int64
}

// Open returns a new session.
func (m *Memory) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.WrapKind("rowsource.memory.open", types.ErrDataSource, err)
	}
	m.opened.Add(1)
	return &memorySession{src: m}, nil
}

// Opened and Closed count session lifecycle calls.
func (m *Memory) Opened() int64 { return m.opened.Load() }
func (m *Memory) Closed() int64 { return m.closed.Load() }

type memorySession struct {
	src    *Memory
	closed bool
}

func (s *memorySession) Fetch(ctx context.Context, projection string, filter *Filter, fn RowFunc) error {
	const op = "rowsource.memory.fetch"
	if s.closed {
		return types.WrapKind(op, types.ErrDataSource, ErrSessionClosed)
	}
	rows, ok := s.src.Rows[projection]
	if !ok {
		return types.WrapKind(op, types.ErrDataSource, fmt.Errorf("%w: %s", ErrUnknownProjection, projection))
	}
	col := -1
	if filter != nil {
		for i, c := range s.src.Columns[projection] {
			if c == filter.Column {
				col = i
			}
		}
		if col < 0 {
			return types.WrapKind(op, types.ErrDataSource, fmt.Errorf("unknown filter column %q", filter.Column))
		}
	}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return types.WrapKind(op, types.ErrDataSource, err)
		}
		if col >= 0 && !matchID(row[col], filter.ID) {
			continue
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *memorySession) Close() error {
	if !s.closed {
		s.closed = true
		s.src.closed.Add(1)
	}
	return nil
}

func matchID(v any, id types.ID) bool {
	switch x := v.(type) {
	case int:
		return int64(x) == int64(id)
	case int64:
		return x == int64(id)
	case int32:
		return int64(x) == int64(id)
	default:
		return false
	}
}
