package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/canscan/internal/domain/records"
)

type RecordStore struct{ db *sql.DB }

func NewRecordStore(db *sql.DB) *RecordStore { return &RecordStore{db: db} }

func (r *RecordStore) Get(ctx context.Context, owner string, key records.Key) ([]byte, error) {
	const q = `SELECT payload FROM record_blobs WHERE owner = $1 AND record_key = $2`
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
VALUES ($1, $2, $3, 1, $4)
ON CONFLICT (owner, record_key) DO UPDATE SET
 payload = EXCLUDED.payload,
 version = record_blobs.version + 1,
 updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, stringOrDash(owner), string(key), nonNil(value), time.Now().UTC())
	return err
}

func (r *RecordStore) Delete(ctx context.Context, owner string, key records.Key) error {
	const q = `DELETE FROM record_blobs WHERE owner = $1 AND record_key = $2`
	_, err := r.db.ExecContext(ctx, q, stringOrDash(owner), string(key))
	return err
}

// Update holds a row lock (SELECT ... FOR UPDATE) across the
// read-modify-write. The row is created empty first if it does not exist.
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
	const seed = `
INSERT INTO record_blobs (owner, record_key, payload, version, updated_at)
VALUES ($1, $2, '', 0, $3)
ON CONFLICT (owner, record_key) DO NOTHING`
	if _, err = tx.ExecContext(ctx, seed, owner, string(key), now); err != nil {
		return err
	}

	const lock = `SELECT payload FROM record_blobs WHERE owner = $1 AND record_key = $2 FOR UPDATE`
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

	const write = `UPDATE record_blobs SET payload = $1, version = version + 1, updated_at = $2 WHERE owner = $3 AND record_key = $4`
	if _, err = tx.ExecContext(ctx, write, nonNil(next), now, owner, string(key)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *RecordStore) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
