package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Commit upserts every write inside one SQLite transaction. The transaction
// takes the write lock up front (_txlock=immediate), so the read check and
// the writes see no other writer in between.
func (s *SQLiteStore) Commit(ctx context.Context, txID string, reads []Read, writes []Write) error {
	if err := s.ctxCheck(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit %s: begin tx: %w", txID, err)
	}
	defer tx.Rollback() // No-op if committed

	for _, r := range reads {
		var value []byte
		err := tx.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, r.Key).Scan(&value)
		found := true
		if errors.Is(err, sql.ErrNoRows) {
			found, err = false, nil
		}
		if err != nil {
			return fmt.Errorf("commit %s: check %s: %w", txID, r.Key, err)
		}
		if !r.matches(value, found) {
			return fmt.Errorf("commit %s: %s changed: %w", txID, r.Key, ErrConflict)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (key, value, updated_tx)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_tx = excluded.updated_tx
	`)
	if err != nil {
		return fmt.Errorf("commit %s: prepare: %w", txID, err)
	}
	defer stmt.Close()

	for _, w := range writes {
		if _, err := stmt.ExecContext(ctx, w.Key, w.Value, txID); err != nil {
			return fmt.Errorf("commit %s: write %s: %w", txID, w.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", txID, err)
	}
	return nil
}

// AppendEvent inserts an event into the log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-publishing the same
// record is silently ignored.
func (s *SQLiteStore) AppendEvent(ctx context.Context, ev EventRecord) error {
	if err := s.ctxCheck(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (seq, id, tx_id, kind, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, ev.Seq, ev.ID, ev.TxID, ev.Kind, string(ev.Payload))
	if err != nil {
		return fmt.Errorf("append event %d: %w", ev.Seq, err)
	}
	return nil
}
