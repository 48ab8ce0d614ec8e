// Package rowsource defines the contract between the service and whatever
// executes the join queries.
package rowsource

import (
	"context"
	"errors"

	"github.com/okian/pythians/internal/domain/denorm"
	"github.com/okian/pythians/internal/domain/types"
)

// RowFunc receives rows in source order. Returning an error stops the fetch
// and the error is returned from Fetch unchanged.
type RowFunc func(row denorm.Row) error

// Filter restricts a projection to rows whose key column equals ID.
type Filter struct {
	Column string
	ID     types.ID
}

// ByID returns a filter on column.
func ByID(column string, id types.ID) *Filter {
	return &Filter{Column: column, ID: id}
}

// Session is a request-scoped handle on the row source. It must not be
// shared between requests.
type Session interface {
	// Fetch runs projection, optionally filtered, and streams its rows to fn.
	Fetch(ctx context.Context, projection string, filter *Filter, fn RowFunc) error
	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Opener hands out sessions.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// WithSession opens a session, runs fn and closes the session on every
// path. A close failure is reported only when fn succeeded.
func WithSession(ctx context.Context, opener Opener, fn func(Session) error) (err error) {
	const op = "rowsource.with_session"
	if opener == nil {
		return types.WrapKind(op, types.ErrDataSource, ErrNoOpener)
	}
	sess, err := opener.Open(ctx)
	if err != nil {
		if errors.Is(err, types.ErrDataSource) {
			return err
		}
		return types.WrapKind(op, types.ErrDataSource, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = types.WrapKind(op, types.ErrDataSource, cerr)
		}
	}()
	return fn(sess)
}
