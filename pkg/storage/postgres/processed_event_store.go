package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// ProcessedEventStore is a database/sql-backed eventbus.ProcessedEventStore.
type ProcessedEventStore struct {
	DB *sql.DB
}

// NewProcessedEventStore constructs a ProcessedEventStore over db.
func NewProcessedEventStore(db *sql.DB) *ProcessedEventStore {
	return &ProcessedEventStore{DB: db}
}

func (s *ProcessedEventStore) Contains(ctx context.Context, eventID ids.EventID, handlerName string) (bool, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT 1 FROM processed_events WHERE event_id = $1 AND handler_name = $2`,
		eventID.String(), handlerName)
	var exists int
	err := row.Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query processed_events: %w", err)
	}
	return true, nil
}

func (s *ProcessedEventStore) MarkProcessed(ctx context.Context, eventID ids.EventID, handlerName string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO processed_events (event_id, handler_name, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, handler_name) DO NOTHING`,
		eventID.String(), handlerName, ids.Now())
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func (s *ProcessedEventStore) DeleteBefore(ctx context.Context, before ids.Timestamp) (int, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM processed_events WHERE processed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete processed_events: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}
