// Package sqlite implements the SQLite storage backend for the asset store.
// Predicates compile to SQL over the snapshots table; property predicates
// become EXISTS subqueries against the properties table of the row's media
// package.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// DatabaseFile is the name of the database inside the data directory.
const DatabaseFile = "assets.db"

const (
	snapshotColumns        = "snapshot_id, org_id, mp_id, version, series_id, payload, created_at"
	aliasedSnapshotColumns = "s.snapshot_id, s.org_id, s.mp_id, s.version, s.series_id, s.payload, s.created_at"
)

var _ types.Backend = (*Backend)(nil)

// Backend implements types.Backend on a SQLite database file. Writers are
// serialized by mu; readers share it.
type Backend struct {
	mu     sync.RWMutex
	closed bool
	path   string
	db     *sql.DB
}

// Open creates DataDir if needed, opens the database and applies the schema.
func Open(config types.Config) (*Backend, error) {
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	path := filepath.Join(dataDir, DatabaseFile)
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, unavailable("opening database", err)
	}

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, unavailable("applying schema", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, unavailable("creating index", err)
		}
	}

	return &Backend{path: path, db: db}, nil
}

// Path returns the database file path.
func (b *Backend) Path() string { return b.path }

// Close releases the database. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.db.Close(); err != nil {
		return unavailable("closing database", err)
	}
	return nil
}

// PutSnapshot claims the next version of the key and inserts the row in one
// transaction.
func (b *Backend) PutSnapshot(ctx context.Context, in types.SnapshotInput) (*types.Snapshot, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, types.ErrStoreClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	version, err := claimVersion(ctx, tx, in.OrganizationID, in.MediaPackageID)
	if err != nil {
		return nil, err
	}

	s := &types.Snapshot{
		SnapshotID:     types.NewSnapshotID(),
		OrganizationID: in.OrganizationID,
		MediaPackageID: in.MediaPackageID,
		Version:        version,
		SeriesID:       in.SeriesID,
		Payload:        in.Payload,
		CreatedAt:      time.Now().UTC(),
	}
	if err := insertSnapshot(ctx, tx, s); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("committing snapshot", err)
	}
	return s, nil
}

// RestoreSnapshot inserts s unchanged and raises the key's claim.
func (b *Backend) RestoreSnapshot(ctx context.Context, s *types.Snapshot) error {
	if !types.ValidID(s.OrganizationID) || !types.ValidID(s.MediaPackageID) || !types.ValidID(s.SnapshotID) {
		return types.ErrInvalidID
	}
	if s.Version < 1 {
		return fmt.Errorf("%w: %d", types.ErrInvalidVersion, s.Version)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return types.ErrStoreClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	last, err := lastClaim(ctx, tx, s.OrganizationID, s.MediaPackageID)
	if err != nil {
		return err
	}
	if s.Version <= last {
		return fmt.Errorf("%w: %d is not above claim %d", types.ErrInvalidVersion, s.Version, last)
	}
	if err := setClaim(ctx, tx, s.OrganizationID, s.MediaPackageID, s.Version); err != nil {
		return err
	}
	if err := insertSnapshot(ctx, tx, s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("committing snapshot", err)
	}
	return nil
}

// GetSnapshot returns one version; ok is false when it is not stored.
func (b *Backend) GetSnapshot(ctx context.Context, org, mediaPackageID string, version int64) (*types.Snapshot, bool, error) {
	if err := (types.MediaPackageKey{OrganizationID: org, MediaPackageID: mediaPackageID}).Validate(); err != nil {
		return nil, false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false, types.ErrStoreClosed
	}

	row := b.db.QueryRowContext(ctx,
		"SELECT "+snapshotColumns+" FROM snapshots WHERE org_id = ? AND mp_id = ? AND version = ?",
		org, mediaPackageID, version,
	)
	s, err := hydrateSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("getting snapshot", err)
	}
	return s, true, nil
}

// DeleteSnapshot removes one version. When it was the last version of the
// media package, the package's properties go with it.
func (b *Backend) DeleteSnapshot(ctx context.Context, org, mediaPackageID string, version int64) (bool, error) {
	if err := (types.MediaPackageKey{OrganizationID: org, MediaPackageID: mediaPackageID}).Validate(); err != nil {
		return false, err
	}
	t, err := b.Begin(ctx, true)
	if err != nil {
		return false, err
	}
	defer t.Rollback()

	n, err := t.DeleteSnapshots(ctx, []types.SnapshotKey{{OrganizationID: org, MediaPackageID: mediaPackageID, Version: version}})
	if err != nil || n == 0 {
		return false, err
	}
	if _, err := t.DeleteOrphanProperties(ctx, []types.MediaPackageKey{{OrganizationID: org, MediaPackageID: mediaPackageID}}); err != nil {
		return false, err
	}
	if err := t.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// IsLatest reports whether no stored version of the key exceeds version.
func (b *Backend) IsLatest(ctx context.Context, org, mediaPackageID string, version int64) (bool, error) {
	if err := (types.MediaPackageKey{OrganizationID: org, MediaPackageID: mediaPackageID}).Validate(); err != nil {
		return false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false, types.ErrStoreClosed
	}

	var newer bool
	err := b.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM snapshots WHERE org_id = ? AND mp_id = ? AND version > ?)",
		org, mediaPackageID, version,
	).Scan(&newer)
	if err != nil {
		return false, unavailable("checking latest version", err)
	}
	return !newer, nil
}

// SetProperty upserts p when its media package has a snapshot.
func (b *Backend) SetProperty(ctx context.Context, p types.Property) (bool, error) {
	if !types.ValidID(p.OrganizationID) || !types.ValidID(p.MediaPackageID) {
		return false, types.ErrInvalidID
	}
	if err := p.Definition().Validate(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false, types.ErrStoreClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return false, unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM snapshots WHERE org_id = ? AND mp_id = ?)",
		p.OrganizationID, p.MediaPackageID,
	).Scan(&exists)
	if err != nil {
		return false, unavailable("checking media package", err)
	}
	if !exists {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO properties (org_id, mp_id, namespace, name, value_type, value)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (org_id, mp_id, namespace, name)
		 DO UPDATE SET value_type = excluded.value_type, value = excluded.value`,
		p.OrganizationID, p.MediaPackageID, p.Namespace, p.Name, string(p.Value.Type()), p.Value.Encode(),
	)
	if err != nil {
		return false, unavailable("upserting property", err)
	}
	if err := tx.Commit(); err != nil {
		return false, unavailable("committing property", err)
	}
	return true, nil
}

// Begin opens a transaction. A write transaction holds the writer lock until
// Commit or Rollback.
func (b *Backend) Begin(ctx context.Context, writable bool) (types.Tx, error) {
	unlock := b.mu.RUnlock
	if writable {
		b.mu.Lock()
		unlock = b.mu.Unlock
	} else {
		b.mu.RLock()
	}
	if b.closed {
		unlock()
		return nil, types.ErrStoreClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		unlock()
		return nil, unavailable("beginning transaction", err)
	}
	return &txn{tx: tx, unlock: unlock}, nil
}

// claimVersion advances the key's claim counter. The counter never falls
// below the highest stored version, so versions are never reissued.
func claimVersion(ctx context.Context, tx *sql.Tx, org, mp string) (int64, error) {
	last, err := lastClaim(ctx, tx, org, mp)
	if err != nil {
		return 0, err
	}
	var stored sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT MAX(version) FROM snapshots WHERE org_id = ? AND mp_id = ?",
		org, mp,
	).Scan(&stored)
	if err != nil {
		return 0, unavailable("reading max version", err)
	}
	if stored.Valid && stored.Int64 > last {
		last = stored.Int64
	}
	next := last + 1
	if err := setClaim(ctx, tx, org, mp, next); err != nil {
		return 0, err
	}
	return next, nil
}

func lastClaim(ctx context.Context, tx *sql.Tx, org, mp string) (int64, error) {
	var last int64
	err := tx.QueryRowContext(ctx,
		"SELECT last_version FROM version_claims WHERE org_id = ? AND mp_id = ?",
		org, mp,
	).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable("reading version claim", err)
	}
	return last, nil
}

func setClaim(ctx context.Context, tx *sql.Tx, org, mp string, version int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO version_claims (org_id, mp_id, last_version) VALUES (?, ?, ?)
		 ON CONFLICT (org_id, mp_id) DO UPDATE SET last_version = excluded.last_version`,
		org, mp, version,
	)
	if err != nil {
		return unavailable("writing version claim", err)
	}
	return nil
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, s *types.Snapshot) error {
	payload := s.Payload
	if payload == nil {
		payload = []byte{}
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots ("+snapshotColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.SnapshotID, s.OrganizationID, s.MediaPackageID, s.Version,
		nullString(s.SeriesID), payload, s.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return unavailable("inserting snapshot", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func hydrateSnapshot(row scanner) (*types.Snapshot, error) {
	var (
		s         types.Snapshot
		series    sql.NullString
		createdAt string
	)
	if err := row.Scan(&s.SnapshotID, &s.OrganizationID, &s.MediaPackageID, &s.Version, &series, &s.Payload, &createdAt); err != nil {
		return nil, err
	}
	s.SeriesID = series.String
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	s.CreatedAt = t
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// unavailable wraps an engine failure in ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrStoreUnavailable, op, err)
}
