package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"autonomous-agent/internal/config"
	"autonomous-agent/internal/logging"
)

var (
	// ErrNotInitialized is returned by operations called before Initialize or after Close.
	ErrNotInitialized = errors.New("store not initialized")
	// ErrCatalogMissing means the configured database does not exist and auto-creation is off.
	ErrCatalogMissing = errors.New("database does not exist")
)

const (
	defaultPoolSize        = 10
	defaultQueryTimeout    = 10 * time.Second
	defaultConnMaxLifetime = 5 * time.Minute
)

// Config is the store section of the agent configuration.
type Config = config.StoreConfig

// Opener opens a pool for a driver and DSN. sql.Open by default.
type Opener func(driverName, dsn string) (*sql.DB, error)

type Option func(*Store)

// WithOpener replaces sql.Open, mostly so tests can hand out sqlmock pools.
func WithOpener(open Opener) Option {
	return func(s *Store) { s.open = open }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Store) { s.log = logging.Component(logger, "store") }
}

// Store owns the connection pool for content_updates and site_analytics.
// It is either uninitialised (no pool) or fully initialised with both tables present.
type Store struct {
	cfg     Config
	dialect dialect
	open    Opener
	log     *logrus.Entry

	mu sync.Mutex
	db *sql.DB
}

func New(cfg Config, opts ...Option) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = defaultConnMaxLifetime
	}
	s := &Store{
		cfg:     cfg,
		dialect: d,
		open:    sql.Open,
		log:     logging.Component(nil, "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize connects, creates the catalog when allowed, and ensures the schema.
// Calling it again on an initialised store does nothing.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := s.ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("ensure schema: %w", err)
	}

	s.db = db
	s.log.WithField("driver", s.dialect.driverName()).Info("database initialized")
	return nil
}

func (s *Store) connect(ctx context.Context) (*sql.DB, error) {
	if err := s.dialect.prepare(s.cfg); err != nil {
		return nil, err
	}

	db, err := s.openPool(ctx, true)
	if err == nil {
		return db, nil
	}
	if !s.dialect.isUnknownCatalog(err) {
		return nil, err
	}
	if !s.cfg.AutoCreateCatalog {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogMissing, s.cfg.Catalog, err)
	}

	s.log.WithField("database", s.cfg.Catalog).Warn("database does not exist, creating it")
	if err := s.createCatalog(ctx); err != nil {
		return nil, fmt.Errorf("create database %s: %w", s.cfg.Catalog, err)
	}
	return s.openPool(ctx, true)
}

func (s *Store) createCatalog(ctx context.Context) error {
	admin, err := s.openPool(ctx, false)
	if err != nil {
		return err
	}
	defer admin.Close()

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.dialect.createCatalog(ctx, admin, s.cfg.Catalog)
}

func (s *Store) openPool(ctx context.Context, withCatalog bool) (*sql.DB, error) {
	dsn, err := s.dialect.dsn(s.cfg, withCatalog)
	if err != nil {
		return nil, err
	}
	db, err := s.open(s.dialect.driverName(), dsn)
	if err != nil {
		return nil, err
	}

	n := s.dialect.maxOpenConns(s.cfg.PoolSize)
	db.SetMaxOpenConns(n)
	db.SetMaxIdleConns(n)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ensureSchema runs the DDL on a single checked-out connection.
func (s *Store) ensureSchema(ctx context.Context, db *sql.DB) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, stmt := range s.dialect.schema() {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks that the pool is still usable.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return db.PingContext(ctx)
}

// Close releases the pool. Safe on a nil or uninitialised store and when called twice.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.log.Debug("database pool closed")
	return err
}

func (s *Store) handle() (*sql.DB, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// opContext bounds pool wait and statement time by QueryTimeout.
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.QueryTimeout)
}
