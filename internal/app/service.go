// Package service provides the scrape service that implements the
// dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/pythians/internal/adapters/rowsource"
	"github.com/okian/pythians/internal/domain/catalog"
	"github.com/okian/pythians/internal/domain/denorm"
	"github.com/okian/pythians/internal/domain/types"
	"github.com/okian/pythians/pkg/logger"
	"github.com/okian/pythians/pkg/metrics"
)

// Service folds projection rows into nested resources.
type Service struct {
	mu sync.RWMutex

	opener rowsource.Opener

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithOpener sets the row source.
func WithOpener(o rowsource.Opener) Option {
	return func(s *Service) {
		if o != nil {
			s.opener = o
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start checks that a row source is configured and that every catalog
// schema compiles.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.opener == nil {
		return fmt.Errorf("%w: %w", ErrStart, rowsource.ErrNoOpener)
	}
	for _, name := range catalog.Names() {
		r, _ := catalog.Lookup(name)
		if err := r.Schema.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrStart, name, err)
		}
	}
	s.started = true
	s.logger.Info(ctx, "scrape service started",
		logger.Any("resources", catalog.Names()),
	)
	return nil
}

// Stop releases the row source when it is closable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if c, ok := s.opener.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing row source", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "scrape service stopped")
}

// Started reports whether Start succeeded and Stop has not been called.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// List returns every entity of resource in first-seen order. An empty
// result is not an error.
func (s *Service) List(ctx context.Context, resource string) ([]*denorm.Record, error) {
	const op = "service.list"
	r, err := s.lookup(op, resource)
	if err != nil {
		return nil, err
	}
	f, err := s.fold(ctx, op, r, nil)
	if err != nil {
		return nil, err
	}
	out := f.Records()
	metrics.RecordEntitiesEmitted(r.Name, len(out))
	return out, nil
}

// Get returns the entity of resource whose key is rawID. rawID must be a
// positive integer; it is validated before the row source is touched.
func (s *Service) Get(ctx context.Context, resource, rawID string) (*denorm.Record, error) {
	const op = "service.get"
	r, err := s.lookup(op, resource)
	if err != nil {
		return nil, err
	}
	id, err := types.ParseID(op, rawID)
	if err != nil {
		s.log().Debug(ctx, "rejected id", logger.String("resource", r.Name), logger.String("id", rawID))
		return nil, err
	}
	f, err := s.fold(ctx, op, r, rowsource.ByID(r.KeyColumn(), id))
	if err != nil {
		return nil, err
	}
	rec, err := f.One()
	switch {
	case errors.Is(err, types.ErrNotFound):
		metrics.RecordNotFound(r.Name)
		return nil, types.Wrap(op, err)
	case err != nil:
		s.log().Error(ctx, "resolving entity",
			logger.String("resource", r.Name),
			logger.Int64("id", int64(id)),
			logger.Error(err),
		)
		return nil, types.Wrap(op, err)
	}
	metrics.RecordEntitiesEmitted(r.Name, 1)
	return rec, nil
}

// Ready verifies that the row source can be reached.
func (s *Service) Ready(ctx context.Context) error {
	const op = "service.ready"
	if p, ok := s.opener.(interface{ Ping(context.Context) error }); ok {
		return types.Wrap(op, p.Ping(ctx))
	}
	return types.Wrap(op, rowsource.WithSession(ctx, s.opener, func(rowsource.Session) error { return nil }))
}

func (s *Service) lookup(op, resource string) (catalog.Resource, error) {
	r, ok := catalog.Lookup(resource)
	if !ok {
		return catalog.Resource{}, types.WrapKind(op, types.ErrNotFound, fmt.Errorf("%w: %q", ErrUnknownResource, resource))
	}
	return r, nil
}

// fold streams the projection into a fresh folder inside one session.
func (s *Service) fold(ctx context.Context, op string, r catalog.Resource, filter *rowsource.Filter) (*denorm.Folder, error) {
	f, err := denorm.NewFolder(r.Schema)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	start := time.Now()
	err = rowsource.WithSession(ctx, s.opener, func(sess rowsource.Session) error {
		return sess.Fetch(ctx, r.Name, filter, f.Add)
	})
	if err != nil {
		fields := []logger.Field{
			logger.String("resource", r.Name),
			logger.Int("rows", f.Rows()),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		}
		if filter != nil {
			fields = append(fields, logger.Int64("id", int64(filter.ID)))
		}
		s.log().Error(ctx, "folding projection", fields...)
		return nil, types.Wrap(op, err)
	}
	s.log().Debug(ctx, "projection folded",
		logger.String("resource", r.Name),
		logger.Int("rows", f.Rows()),
		logger.Int("entities", f.Len()),
		logger.Duration("elapsed", time.Since(start)),
	)
	return f, nil
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Named("service")
	}
	return l
}
