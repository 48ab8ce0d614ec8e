package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/pythians/internal/adapters/rowsource"
	"github.com/okian/pythians/internal/domain/denorm"
	"github.com/okian/pythians/internal/domain/types"
	"github.com/okian/pythians/pkg/logger"
	"github.com/okian/pythians/pkg/metrics"
)

// Default pool and query settings.
const (
	defaultQueryTimeout    = 5 * time.Second
	defaultMaxOpenConns    = 16
	defaultMaxIdleConns    = 4
	defaultConnMaxLifetime = 30 * time.Minute
)

// Store is a database/sql backed rowsource.Opener. Each session pins one
// pooled connection until it is closed.
type Store struct {
	db      *sql.DB
	dialect Dialect

	queryTimeout    time.Duration
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration

	logger logger.Logger
}

var _ rowsource.Opener = (*Store)(nil)

// Open connects to dsn with the named driver ("sqlite" or "pgx") and
// verifies the connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	const op = "repository.open"
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, types.Wrap(op, ErrEmptyDSN)
	}
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, types.WrapKind(op, types.ErrDataSource, err)
	}
	s := New(db, dialect, opts...)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info(ctx, "row source connected",
		logger.String("dialect", dialect.Name),
		logger.Int("max_open_conns", s.maxOpenConns),
		logger.String("query_timeout", s.queryTimeout.String()),
	)
	return s, nil
}

// New wraps an existing handle.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:              db,
		dialect:         dialect,
		queryTimeout:    defaultQueryTimeout,
		maxOpenConns:    defaultMaxOpenConns,
		maxIdleConns:    defaultMaxIdleConns,
		connMaxLifetime: defaultConnMaxLifetime,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("repository")
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxIdleConns)
	db.SetConnMaxLifetime(s.connMaxLifetime)
	return s
}

// Dialect returns the store's dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return types.WrapKind("repository.ping", types.ErrDataSource, err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Open pins a pooled connection for one request.
func (s *Store) Open(ctx context.Context) (rowsource.Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, types.WrapKind("repository.session", types.ErrDataSource, err)
	}
	metrics.SessionOpened()
	return &session{store: s, conn: conn}, nil
}

type session struct {
	store *Store
	conn  *sql.Conn
	once  sync.Once
	err   error
}

func (c *session) Close() error {
	c.once.Do(func() {
		c.err = c.conn.Close()
		metrics.SessionClosed()
	})
	return c.err
}

// Fetch runs the fixed query for projection and streams each row to fn.
func (c *session) Fetch(ctx context.Context, projection string, filter *rowsource.Filter, fn rowsource.RowFunc) error {
	const op = "repository.fetch"
	q, ok := projections[projection]
	if !ok {
		return types.WrapKind(op, types.ErrDataSource, fmt.Errorf("%w: %s", rowsource.ErrUnknownProjection, projection))
	}
	var args []any
	if filter != nil {
		if filter.Column != q.key {
			return types.WrapKind(op, types.ErrDataSource, fmt.Errorf("%w: %s on %s", ErrFilterColumn, filter.Column, projection))
		}
		args = append(args, int64(filter.ID))
	}
	text := q.build(c.store.dialect, filter != nil)

	ctx, cancel := context.WithTimeout(ctx, c.store.queryTimeout)
	defer cancel()

	// Errors from fn belong to the consumer and are not row source failures.
	var consumerErr error
	start := time.Now()
	n, err := c.stream(ctx, text, args, func(row denorm.Row) error {
		consumerErr = fn(row)
		return consumerErr
	})
	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		if consumerErr == nil {
			metrics.RecordRowSourceError(projection)
		}
		return err
	}
	metrics.RecordRowSourceFetch(projection, n, latencyMs)
	c.store.logger.Debug(ctx, "projection fetched",
		logger.String("projection", projection),
		logger.Int("rows", n),
		logger.Float64("latency_ms", latencyMs),
	)
	return nil
}

func (c *session) stream(ctx context.Context, text string, args []any, fn rowsource.RowFunc) (int, error) {
	const op = "repository.fetch"
	rows, err := c.conn.QueryContext(ctx, text, args...)
	if err != nil {
		return 0, types.WrapKind(op, types.ErrDataSource, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return 0, types.WrapKind(op, types.ErrDataSource, err)
	}
	n := 0
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return n, types.WrapKind(op, types.ErrDataSource, err)
		}
		n++
		if err := fn(denorm.Row(values)); err != nil {
			return n, err
		}
	}
	if err := rows.Err(); err != nil {
		return n, types.WrapKind(op, types.ErrDataSource, err)
	}
	return n, nil
}
