package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/store"
)

// SnapshotRow is one stored snapshot.
type SnapshotRow struct {
	Key       string
	Version   int
	Payload   []byte
	UpdatedAt int64 // unix seconds
	Revision  int64 // bumped by every write
}

// GetSnapshot returns the snapshot stored under key, or nil if there is none.
func GetSnapshot(ctx context.Context, db *sql.DB, key string) (*SnapshotRow, error) {
	row := &SnapshotRow{}
	err := db.QueryRowContext(ctx,
		`SELECT key, version, payload, updated_at, revision FROM snapshots WHERE key = ?`, key,
	).Scan(&row.Key, &row.Version, &row.Payload, &row.UpdatedAt, &row.Revision)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return row, nil
}

// GetSnapshotRevision returns the revision stored under key, or 0 if there is none.
func GetSnapshotRevision(ctx context.Context, db *sql.DB, key string) (int64, error) {
	var rev int64
	err := db.QueryRowContext(ctx, `SELECT revision FROM snapshots WHERE key = ?`, key).Scan(&rev)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return rev, nil
}

// PutSnapshot inserts or replaces the snapshot under row.Key unconditionally
// and bumps its revision.
func PutSnapshot(ctx context.Context, db *sql.DB, row SnapshotRow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO snapshots (key, version, payload, updated_at, revision)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			revision = snapshots.revision + 1
	`, row.Key, row.Version, row.Payload, row.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CompareAndPutSnapshot writes row only if the stored revision still equals
// expected. A key with no row is always written. It returns the new revision,
// or store.ErrStaleSnapshot when another writer got there first.
func CompareAndPutSnapshot(ctx context.Context, db *sql.DB, row SnapshotRow, expected int64) (int64, error) {
	var rev int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO snapshots (key, version, payload, updated_at, revision)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			revision = snapshots.revision + 1
		WHERE snapshots.revision = ?
		RETURNING revision
	`, row.Key, row.Version, row.Payload, row.UpdatedAt, expected).Scan(&rev)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrStaleSnapshot
	}
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return rev, nil
}

// DeleteSnapshot removes the snapshot under key. It reports whether a row existed.
func DeleteSnapshot(ctx context.Context, db *sql.DB, key string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// ListSnapshotKeys returns every stored key, most recently written first.
func ListSnapshotKeys(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key FROM snapshots ORDER BY updated_at DESC, key`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.NewInternal(err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return keys, nil
}

// SnapshotPersister stores serialized store snapshots in the snapshots table.
// It satisfies store.Persister.
type SnapshotPersister struct {
	db  *sql.DB
	now func() time.Time
}

// NewSnapshotPersister returns a persister backed by db.
func NewSnapshotPersister(db *sql.DB) *SnapshotPersister {
	return &SnapshotPersister{db: db, now: time.Now}
}

// Load returns the stored payload and revision for key, or nil and 0 if
// nothing was saved yet.
func (p *SnapshotPersister) Load(ctx context.Context, key string) ([]byte, int64, error) {
	row, err := GetSnapshot(ctx, p.db, key)
	if err != nil || row == nil {
		return nil, 0, err
	}
	return row.Payload, row.Revision, nil
}

// Revision returns the stored revision for key without reading the payload.
func (p *SnapshotPersister) Revision(ctx context.Context, key string) (int64, error) {
	return GetSnapshotRevision(ctx, p.db, key)
}

// Save writes data under key if the stored revision is still rev, recording
// the payload's format version alongside.
func (p *SnapshotPersister) Save(ctx context.Context, key string, data []byte, rev int64) (int64, error) {
	return CompareAndPutSnapshot(ctx, p.db, SnapshotRow{
		Key:       key,
		Version:   payloadVersion(data),
		Payload:   data,
		UpdatedAt: p.now().Unix(),
	}, rev)
}

// payloadVersion reads the top-level "version" field, or 0 if absent.
func payloadVersion(data []byte) int {
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0
	}
	return head.Version
}
