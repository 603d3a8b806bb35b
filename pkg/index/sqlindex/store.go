package sqlindex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

// Config holds database connection configuration
type Config struct {
	Dialect         Dialect
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Timeout         time.Duration
}

// Store is a package index kept in a SQL database. Reads go straight to the
// database; use View to run several reads against one snapshot.
type Store struct {
	reader
	db  *sql.DB
	log *logrus.Logger
}

var (
	_ index.Index  = (*Store)(nil)
	_ index.Writer = (*Store)(nil)
)

// Open connects to the database described by cfg and pings it.
func Open(ctx context.Context, cfg Config, log *logrus.Logger) (*Store, error) {
	db, err := sql.Open(cfg.Dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s index: %w", cfg.Dialect, err)
	}

	// Every connection to an in-memory SQLite database sees its own empty database.
	if cfg.Dialect == SQLite && strings.Contains(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s index: %w", cfg.Dialect, err)
	}

	return New(db, cfg.Dialect, log), nil
}

// New wraps an open database.
func New(db *sql.DB, dialect Dialect, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{
		reader: reader{q: db, dialect: dialect},
		db:     db,
		log:    log,
	}
}

// DB returns the underlying database
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the index tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	s.log.WithField("dialect", s.dialect).Debug("index schema ready")
	return nil
}

// View runs fn against a single read transaction, so every query fn makes
// sees the same state of the index.
func (s *Store) View(ctx context.Context, fn func(idx index.Index) error) error {
	var opts *sql.TxOptions
	if s.dialect == Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(reader{q: tx, dialect: s.dialect})
}

// CountManifests returns the number of indexed manifests.
func (s *Store) CountManifests(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM manifests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count manifests: %w", err)
	}
	return n, nil
}

// AddManifest implements index.Writer.AddManifest
func (s *Store) AddManifest(ctx context.Context, m *manifest.Manifest) (index.ManifestHandle, error) {
	v, err := m.ParsedVersion()
	if err != nil {
		return 0, err
	}
	deps, err := m.PackageDependencies()
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	r := reader{q: tx, dialect: s.dialect}

	pkg, ok, err := r.FindPackage(ctx, m.ID)
	if err != nil {
		return 0, err
	}
	if !ok {
		var id int64
		err = tx.QueryRowContext(ctx, s.dialect.rebind(
			`INSERT INTO packages (package_id, normalized_id) VALUES (?, ?) RETURNING id`),
			string(m.ID), m.ID.Normalize(),
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to insert package: %w", err)
		}
		pkg = index.PackageHandle(id)
	}

	if _, exists, err := r.ResolveManifest(ctx, pkg, v, m.Channel); err != nil {
		return 0, err
	} else if exists {
		return 0, fmt.Errorf("%w: %s %s", index.ErrManifestExists, m.ID, m.Version)
	}

	var handle int64
	err = tx.QueryRowContext(ctx, s.dialect.rebind(
		`INSERT INTO manifests (package_rowid, version, channel) VALUES (?, ?, ?) RETURNING id`),
		int64(pkg), formatVersion(v), m.Channel,
	).Scan(&handle)
	if err != nil {
		return 0, fmt.Errorf("failed to insert manifest: %w", err)
	}

	for _, d := range deps.Items() {
		_, err := tx.ExecContext(ctx, s.dialect.rebind(
			`INSERT INTO dependencies (manifest_rowid, target_id, target_normalized, min_version) VALUES (?, ?, ?, ?)`),
			handle, string(d.ID), d.ID.Normalize(), formatVersion(d.MinVersion),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert dependency %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"package":      m.ID,
		"version":      m.Version,
		"dependencies": deps.Len(),
	}).Debug("manifest added")
	return index.ManifestHandle(handle), nil
}

// RemoveManifest implements index.Writer.RemoveManifest. Removing the last
// version of a package removes the package as well.
func (s *Store) RemoveManifest(ctx context.Context, id manifest.PackageID, v version.Version) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	r := reader{q: tx, dialect: s.dialect}

	pkg, ok, err := r.FindPackage(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s %s", index.ErrManifestNotFound, id, v)
	}

	rows, err := r.manifestRows(ctx, pkg)
	if err != nil {
		return err
	}

	var target *manifestRow
	for i := range rows {
		if rows[i].version.Equal(v) {
			target = &rows[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s %s", index.ErrManifestNotFound, id, v)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM dependencies WHERE manifest_rowid = ?`), int64(target.handle)); err != nil {
		return fmt.Errorf("failed to delete dependencies: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM manifests WHERE id = ?`), int64(target.handle)); err != nil {
		return fmt.Errorf("failed to delete manifest: %w", err)
	}
	if len(rows) == 1 {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(
			`DELETE FROM packages WHERE id = ?`), int64(pkg)); err != nil {
			return fmt.Errorf("failed to delete package: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"package": id,
		"version": v.String(),
	}).Debug("manifest removed")
	return nil
}
