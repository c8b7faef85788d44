package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/outbox"
)

// OutboxStore is a database/sql-backed outbox.Port. Like the in-memory
// adapter it owns a BackoffConfig so MarkFailed can compute the next
// attempt schedule and decide poisoning — see DESIGN.md's Open Question 3.
type OutboxStore struct {
	DB      *sql.DB
	backoff outbox.BackoffConfig
}

// NewOutboxStore constructs an OutboxStore over db driven by backoff.
func NewOutboxStore(db *sql.DB, backoff outbox.BackoffConfig) *OutboxStore {
	return &OutboxStore{DB: db, backoff: backoff}
}

// Enqueue inserts one outbox row per envelope inside a single transaction,
// so a caller issuing this alongside an aggregate UPDATE in the same tx
// gets atomic persist-then-enqueue semantics (the tx boundary itself is the
// caller's responsibility — see spec.md §4.10).
func (s *OutboxStore) Enqueue(ctx context.Context, envelopes []domainevent.Envelope) error {
	now := ids.Now()
	for _, env := range envelopes {
		envelopeJSON, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
		_, err = s.DB.ExecContext(ctx, `
			INSERT INTO outbox_records (event_id, event_type, aggregate_id, aggregate_type, envelope, enqueued_at, next_attempt_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			env.EventID.String(), env.EventType, env.AggregateID, string(env.AggregateType), envelopeJSON, now, now, string(outbox.StatusPending),
		)
		if err != nil {
			return fmt.Errorf("enqueue event %s: %w", env.EventID, err)
		}
	}
	return nil
}

func (s *OutboxStore) DequeueBatch(ctx context.Context, limit int) ([]outbox.Record, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT event_id, envelope, enqueued_at, published_at, attempts, next_attempt_at, last_error, status
		FROM outbox_records
		WHERE status = $1 AND next_attempt_at <= $2
		ORDER BY enqueued_at
		LIMIT $3`, string(outbox.StatusPending), ids.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []outbox.Record
	for rows.Next() {
		var (
			eventID, status, lastError              string
			envelopeJSON                             []byte
			enqueuedAt, nextAttemptAt                ids.Timestamp
			publishedAt                              sql.NullTime
			attempts                                 int
		)
		if err := rows.Scan(&eventID, &envelopeJSON, &enqueuedAt, &publishedAt, &attempts, &nextAttemptAt, &lastError, &status); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		var env domainevent.Envelope
		if err := json.Unmarshal(envelopeJSON, &env); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		rec := outbox.Record{
			EventID:       ids.EventID(eventID),
			Envelope:      env,
			EnqueuedAt:    enqueuedAt,
			Attempts:      attempts,
			NextAttemptAt: nextAttemptAt,
			LastError:     lastError,
			Status:        outbox.RecordStatus(status),
		}
		if publishedAt.Valid {
			ts := ids.NewTimestamp(publishedAt.Time)
			rec.PublishedAt = &ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *OutboxStore) MarkPublished(ctx context.Context, eventIDs []ids.EventID) error {
	now := ids.Now()
	for _, id := range eventIDs {
		if _, err := s.DB.ExecContext(ctx, `
			UPDATE outbox_records SET status = $1, published_at = $2 WHERE event_id = $3`,
			string(outbox.StatusPublished), now, id.String()); err != nil {
			return fmt.Errorf("mark published %s: %w", id, err)
		}
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, eventID ids.EventID, failErr error) error {
	row := s.DB.QueryRowContext(ctx, `SELECT attempts FROM outbox_records WHERE event_id = $1`, eventID.String())
	var attempts int
	if err := row.Scan(&attempts); err != nil {
		return fmt.Errorf("read attempts for %s: %w", eventID, err)
	}
	attempts++

	if attempts >= s.backoff.MaxAttempts {
		_, err := s.DB.ExecContext(ctx, `
			UPDATE outbox_records SET attempts = $1, last_error = $2, status = $3 WHERE event_id = $4`,
			attempts, failErr.Error(), string(outbox.StatusPoisoned), eventID.String())
		return err
	}

	nextAttemptAt := ids.Now().Add(s.backoff.NextDelay(attempts))
	_, err := s.DB.ExecContext(ctx, `
		UPDATE outbox_records SET attempts = $1, last_error = $2, next_attempt_at = $3 WHERE event_id = $4`,
		attempts, failErr.Error(), nextAttemptAt, eventID.String())
	return err
}

// DeleteOlderThan removes terminal (Published/Poisoned) rows enqueued
// before cutoff, satisfying pkg/retention.OutboxPruner.
func (s *OutboxStore) DeleteOlderThan(ctx context.Context, cutoff ids.Timestamp) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM outbox_records WHERE status != $1 AND enqueued_at < $2`,
		string(outbox.StatusPending), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete outbox_records: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}
