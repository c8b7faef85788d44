package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/session"
)

// SessionRepository is a database/sql-backed session.Repository.
type SessionRepository struct {
	DB *sql.DB
}

// NewSessionRepository constructs a SessionRepository over db.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) FindByID(ctx context.Context, id ids.SessionID) (*session.Session, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, status, cycle_ids, created_at, updated_at, version
		FROM sessions WHERE id = $1`, id.String())

	var (
		rawID, userID, title, description, status string
		cycleIDsJSON                               []byte
		createdAt, updatedAt                        ids.Timestamp
		version                                     int
	)
	if err := row.Scan(&rawID, &userID, &title, &description, &status, &cycleIDsJSON, &createdAt, &updatedAt, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("session", id.String())
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	var cycleIDRaw []string
	if err := json.Unmarshal(cycleIDsJSON, &cycleIDRaw); err != nil {
		return nil, fmt.Errorf("decode cycle_ids: %w", err)
	}
	cycleIDs := make([]ids.CycleID, len(cycleIDRaw))
	for i, raw := range cycleIDRaw {
		cycleIDs[i] = ids.CycleID(raw)
	}

	uid, err := ids.NewUserID(userID)
	if err != nil {
		return nil, err
	}

	return &session.Session{
		ID:          ids.SessionID(rawID),
		UserID:      uid,
		Title:       title,
		Description: description,
		Status:      session.Status(status),
		CycleIDs:    cycleIDs,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		Version:     version,
	}, nil
}

// Save upserts s, enforcing optimistic concurrency via a version-gated
// UPDATE on conflict.
func (r *SessionRepository) Save(ctx context.Context, s *session.Session) error {
	cycleIDRaw := make([]string, len(s.CycleIDs))
	for i, id := range s.CycleIDs {
		cycleIDRaw[i] = id.String()
	}
	cycleIDsJSON, err := json.Marshal(cycleIDRaw)
	if err != nil {
		return fmt.Errorf("encode cycle_ids: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, title, description, status, cycle_ids, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			cycle_ids = EXCLUDED.cycle_ids,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
		WHERE sessions.version < EXCLUDED.version`,
		s.ID.String(), s.UserID.String(), s.Title, s.Description, string(s.Status), cycleIDsJSON,
		s.CreatedAt, s.UpdatedAt, s.Version,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NewConflictError("session", "stale version")
	}
	return nil
}
