// ABOUTME: Database connection and lazy, single-flight store initialization.
// ABOUTME: Handles XDG paths, SQLite pragmas, and schema preparation.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"
)

// Open opens the SQLite file at path, creating its directory. It does not
// touch the schema; use a Store for that.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single local writer: one connection serializes every statement.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return db, nil
}

func DefaultPath() string {
	return filepath.Join(DataDir(), "inkwell.db")
}

func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "inkwell")
}

// Store is the process-wide handle to the note database. The connection is
// opened and the schema prepared on first use; concurrent first callers
// share one initialization.
type Store struct {
	path   string
	logger *log.Logger
	opener func(string) (*sql.DB, error)

	group singleflight.Group
	mu    sync.Mutex
	conn  *sql.DB
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for schema and index messages.
func WithLogger(l *log.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithPrefix("store")
		}
	}
}

// WithOpener replaces Open, mainly for tests.
func WithOpener(fn func(string) (*sql.DB, error)) StoreOption {
	return func(s *Store) {
		s.opener = fn
	}
}

func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		logger: log.New(io.Discard),
		opener: Open,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init opens the database and ensures the schema. Success is cached for the
// life of the Store; failure leaves nothing cached so a later call retries.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.DB(ctx)
	return err
}

// DB returns the initialized connection.
func (s *Store) DB(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	// One caller's cancellation must not fail the others sharing this call.
	initCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do("init", func() (any, error) {
		s.mu.Lock()
		if s.conn != nil {
			c := s.conn
			s.mu.Unlock()
			return c, nil
		}
		s.mu.Unlock()

		c, err := s.opener(s.path)
		if err != nil {
			return nil, opErr("init", KindInitialization, "", err)
		}
		if err := EnsureSchema(initCtx, c, s.logger); err != nil {
			_ = c.Close()
			return nil, opErr("init", KindInitialization, "", err)
		}

		s.mu.Lock()
		s.conn = c
		s.mu.Unlock()
		s.logger.Debug("store ready", "path", s.path)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

// Close releases the connection. A later call to DB reopens it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
