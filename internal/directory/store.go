package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"singleapp/internal/config"
	"singleapp/internal/logging"
	"singleapp/internal/singleton"
)

// socketNamespace derives stable socket file names from service names.
var socketNamespace = uuid.MustParse("6f1c55c2-3a57-4c38-9a0f-1d0b8e5e2a41")

// Store is a singleton.Directory backed by SQLite.
type Store struct {
	db          *sql.DB
	path        string
	socketDir   string
	dialTimeout time.Duration
	logger      *slog.Logger

	mu    sync.Mutex
	local map[string]localEntry
}

type localEntry struct {
	token    string
	endpoint singleton.Endpoint
}

var _ singleton.Directory = (*Store)(nil)

// Open initializes or connects to the registry database under the runtime
// directory.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("directory: config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.RegistryPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:          db,
		path:        dbPath,
		socketDir:   cfg.SocketDir(),
		dialTimeout: cfg.Durations().DialTimeout,
		logger:      logging.NewComponentLogger(logger, "directory"),
		local:       make(map[string]localEntry),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the registry database path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Entry is a registry row.
type Entry struct {
	Name         string
	SocketPath   string
	PID          int
	Token        string
	Process      string
	RegisteredAt time.Time
}

// Register publishes ep under serviceName.
func (s *Store) Register(ctx context.Context, serviceName string, ep singleton.Endpoint) (singleton.Registration, error) {
	name := strings.TrimSpace(serviceName)
	if name == "" {
		return nil, fmt.Errorf("%w: service name is blank", singleton.ErrConfiguration)
	}
	if ep == nil {
		return nil, fmt.Errorf("%w: endpoint is required", singleton.ErrConfiguration)
	}

	process := ""
	if snap, err := ep.Snapshot(ctx); err == nil {
		process = snap.Process
	}

	socketPath := s.socketPath(name)
	srv, err := newServer(ctx, socketPath, ep, s.logger)
	if err != nil {
		return nil, fmt.Errorf("directory: publish %q: %w", name, err)
	}

	token := uuid.NewString()
	entry := Entry{
		Name:         name,
		SocketPath:   socketPath,
		PID:          os.Getpid(),
		Token:        token,
		Process:      process,
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.insert(ctx, entry); err != nil {
		_ = srv.Close()
		return nil, fmt.Errorf("directory: record %q: %w", name, err)
	}

	s.mu.Lock()
	s.local[name] = localEntry{token: token, endpoint: ep}
	s.mu.Unlock()

	s.logger.Debug("service registered",
		logging.String(logging.FieldServiceName, name),
		logging.String("socket", socketPath),
	)
	return &registration{store: s, name: name, token: token, server: srv}, nil
}

// Lookup resolves serviceName to a live Remote, or nil when nobody publishes it.
func (s *Store) Lookup(ctx context.Context, serviceName string) (singleton.Remote, error) {
	name := strings.TrimSpace(serviceName)
	if name == "" {
		return nil, fmt.Errorf("%w: service name is blank", singleton.ErrConfiguration)
	}

	s.mu.Lock()
	local, ok := s.local[name]
	s.mu.Unlock()
	if ok {
		return localRemote{local.endpoint}, nil
	}

	entry, found, err := s.get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("directory: lookup %q: %w", name, err)
	}
	if !found {
		return nil, nil
	}
	if !processAlive(entry.PID) {
		s.purge(ctx, entry, "owner process is gone")
		return nil, nil
	}
	client, err := dial(ctx, entry.SocketPath, s.dialTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.purge(ctx, entry, "socket unreachable")
		return nil, nil
	}
	return client, nil
}

// List returns every registry row ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, socket_path, pid, token, process, registered_at FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("directory: list services: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("directory: scan service: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate services: %w", err)
	}
	return entries, nil
}

// Alive reports whether the entry's owning process still exists.
func (e Entry) Alive() bool {
	return processAlive(e.PID)
}

func (s *Store) socketPath(name string) string {
	id := uuid.NewSHA1(socketNamespace, []byte(name))
	return filepath.Join(s.socketDir, id.String()+".sock")
}

func (s *Store) purge(ctx context.Context, entry Entry, reason string) {
	if err := s.deleteRow(ctx, entry.Name, entry.Token); err != nil {
		logging.WarnWithContext(s.logger, "purge stale service failed", "directory_purge_failed",
			logging.String(logging.FieldServiceName, entry.Name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "lookups will keep probing the stale entry"),
		)
		return
	}
	s.logger.Info("purged stale service",
		logging.String(logging.FieldEventType, "directory_purge"),
		logging.String(logging.FieldServiceName, entry.Name),
		logging.Int("pid", entry.PID),
		logging.String("reason", reason),
	)
}

type registration struct {
	store  *Store
	name   string
	token  string
	server closer

	once sync.Once
	err  error
}

func (r *registration) Close() error {
	r.once.Do(func() {
		r.store.mu.Lock()
		if current, ok := r.store.local[r.name]; ok && current.token == r.token {
			delete(r.store.local, r.name)
		}
		r.store.mu.Unlock()

		dbErr := r.store.deleteRow(context.Background(), r.name, r.token)
		srvErr := r.server.Close()
		r.err = errors.Join(dbErr, srvErr)
		r.store.logger.Debug("service unregistered", logging.String(logging.FieldServiceName, r.name))
	})
	return r.err
}

// localRemote hands out an in-process Endpoint; closing it is a no-op.
type localRemote struct {
	singleton.Endpoint
}

func (localRemote) Close() error { return nil }
