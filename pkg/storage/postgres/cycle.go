package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/component"
	"github.com/codeready-toolchain/decisioncore/pkg/cycle"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// CycleRepository is a database/sql-backed cycle.Repository.
type CycleRepository struct {
	DB *sql.DB
}

// NewCycleRepository constructs a CycleRepository over db.
func NewCycleRepository(db *sql.DB) *CycleRepository {
	return &CycleRepository{DB: db}
}

func scanCycle(row interface {
	Scan(dest ...any) error
}) (*cycle.Cycle, error) {
	var (
		id, sessionID, status, currentStep string
		parentCycleID, branchPoint         sql.NullString
		componentStateJSON, outputsJSON    []byte
		createdAt, updatedAt               ids.Timestamp
		version                            int
	)
	if err := row.Scan(&id, &sessionID, &parentCycleID, &branchPoint, &status, &currentStep,
		&componentStateJSON, &outputsJSON, &createdAt, &updatedAt, &version); err != nil {
		return nil, err
	}

	componentState := make(map[component.ComponentType]cycle.ComponentStatus)
	if err := json.Unmarshal(componentStateJSON, &componentState); err != nil {
		return nil, fmt.Errorf("decode component_state: %w", err)
	}
	outputs := make(map[component.ComponentType]any)
	if err := json.Unmarshal(outputsJSON, &outputs); err != nil {
		return nil, fmt.Errorf("decode outputs: %w", err)
	}

	cy := &cycle.Cycle{
		ID:             ids.CycleID(id),
		SessionID:      ids.SessionID(sessionID),
		Status:         cycle.Status(status),
		CurrentStep:    component.ComponentType(currentStep),
		ComponentState: componentState,
		Outputs:        outputs,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
		Version:        version,
	}
	if parentCycleID.Valid {
		p := ids.CycleID(parentCycleID.String)
		cy.ParentCycleID = &p
	}
	if branchPoint.Valid {
		b := component.ComponentType(branchPoint.String)
		cy.BranchPoint = &b
	}
	return cy, nil
}

func (r *CycleRepository) FindByID(ctx context.Context, id ids.CycleID) (*cycle.Cycle, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, session_id, parent_cycle_id, branch_point, status, current_step, component_state, outputs, created_at, updated_at, version
		FROM cycles WHERE id = $1`, id.String())

	cy, err := scanCycle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("cycle", id.String())
		}
		return nil, fmt.Errorf("scan cycle: %w", err)
	}
	return cy, nil
}

func (r *CycleRepository) FindBySessionID(ctx context.Context, sessionID ids.SessionID) ([]*cycle.Cycle, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, session_id, parent_cycle_id, branch_point, status, current_step, component_state, outputs, created_at, updated_at, version
		FROM cycles WHERE session_id = $1 ORDER BY created_at`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []*cycle.Cycle
	for rows.Next() {
		cy, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		out = append(out, cy)
	}
	return out, rows.Err()
}

func (r *CycleRepository) Save(ctx context.Context, cy *cycle.Cycle) error {
	componentStateJSON, err := json.Marshal(cy.ComponentState)
	if err != nil {
		return fmt.Errorf("encode component_state: %w", err)
	}
	outputsJSON, err := json.Marshal(cy.Outputs)
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}

	var parentCycleID, branchPoint sql.NullString
	if cy.ParentCycleID != nil {
		parentCycleID = sql.NullString{String: cy.ParentCycleID.String(), Valid: true}
	}
	if cy.BranchPoint != nil {
		branchPoint = sql.NullString{String: string(*cy.BranchPoint), Valid: true}
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO cycles (id, session_id, parent_cycle_id, branch_point, status, current_step, component_state, outputs, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_step = EXCLUDED.current_step,
			component_state = EXCLUDED.component_state,
			outputs = EXCLUDED.outputs,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
		WHERE cycles.version < EXCLUDED.version`,
		cy.ID.String(), cy.SessionID.String(), parentCycleID, branchPoint, string(cy.Status), string(cy.CurrentStep),
		componentStateJSON, outputsJSON, cy.CreatedAt, cy.UpdatedAt, cy.Version,
	)
	if err != nil {
		return fmt.Errorf("save cycle: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NewConflictError("cycle", "stale version")
	}
	return nil
}
