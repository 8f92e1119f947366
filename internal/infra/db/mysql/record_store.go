package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/canscan/internal/domain/records"
)

// RecordStore keeps each owner/key blob in one row of record_blobs.
type RecordStore struct{ db *sql.DB }

func NewRecordStore(db *sql.DB) *RecordStore { return &RecordStore{db: db} }

// Get ambil 1 blob by owner + key
func (r *RecordStore) Get(ctx context.Context, owner string, key records.Key) ([]byte, error) {
	const q = `SELECT payload FROM record_blobs WHERE owner = ? AND record_key = ?`
	var payload []byte
	err := r.db.QueryRowContext(ctx, q, stringOrDash(owner), string(key)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, records.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Put insert/update blob
func (r *RecordStore) Put(ctx context.Context, owner string, key records.Key, value []byte) error {
	const q = `
INSERT INTO record_blobs (owner, record_key, payload, version, updated_at)
VALUES (?, ?, ?, 1, ?)
ON DUPLICATE KEY UPDATE
 payload = VALUES(payload),
 version = version + 1,
 updated_at = VALUES(updated_at)`
	_, err := r.db.ExecContext(ctx, q, stringOrDash(owner), string(key), nonNil(value), time.Now().UTC())
	return err
}

func (r *RecordStore) Delete(ctx context.Context, owner string, key records.Key) error {
	const q = `DELETE FROM record_blobs WHERE owner = ? AND record_key = ?`
	_, err := r.db.ExecContext(ctx, q, stringOrDash(owner), string(key))
	return err
}

// Update locks the row with SELECT ... FOR UPDATE for the whole
// read-modify-write. A placeholder row is inserted first so there is always
// a row to lock.
func (r *RecordStore) Update(ctx context.Context, owner string, key records.Key, fn records.UpdateFunc) (err error) {
	owner = stringOrDash(owner)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const seed = `INSERT IGNORE INTO record_blobs (owner, record_key, payload, version, updated_at) VALUES (?, ?, '', 0, ?)`
	if _, err = tx.ExecContext(ctx, seed, owner, string(key), now); err != nil {
		return err
	}

	const lock = `SELECT payload FROM record_blobs WHERE owner = ? AND record_key = ? FOR UPDATE`
	var current []byte
	if err = tx.QueryRowContext(ctx, lock, owner, string(key)).Scan(&current); err != nil {
		return err
	}
	if len(current) == 0 {
		current = nil
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	const write = `UPDATE record_blobs SET payload = ?, version = version + 1, updated_at = ? WHERE owner = ? AND record_key = ?`
	if _, err = tx.ExecContext(ctx, write, nonNil(next), now, owner, string(key)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *RecordStore) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
