// Package cycle implements the Cycle aggregate (C4): the per-attempt record
// of progress through the nine PrOACT components, including branch lineage.
// This is the hardest aggregate in the deliberation core — grounded on the
// teacher's per-stage status tracking (ent/schema/stage.go) and its
// transactional mutate-then-event method shape
// (pkg/services/session_service.go), generalized from a single linear stage
// list to a branchable DAG per spec.md §4.3.
package cycle

import (
	"context"
	"math"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/component"
	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/statemachine"
)

// Status is the Cycle lifecycle enum.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

var cycleDefinition = statemachine.NewDefinition(map[Status][]Status{
	StatusActive:    {StatusCompleted, StatusAbandoned},
	StatusCompleted: {},
	StatusAbandoned: {},
})

// ComponentStatus is the per-component lifecycle enum (spec.md §3).
type ComponentStatus string

const (
	NotStarted    ComponentStatus = "not_started"
	InProgress    ComponentStatus = "in_progress"
	Complete      ComponentStatus = "complete"
	NeedsRevision ComponentStatus = "needs_revision"
)

var componentDefinition = statemachine.NewDefinition(map[ComponentStatus][]ComponentStatus{
	NotStarted:    {InProgress},
	InProgress:    {Complete, NeedsRevision},
	Complete:      {NeedsRevision},
	NeedsRevision: {InProgress},
})

// ErrBranchPointNotReady is returned by Branch when the branch point's
// prerequisite has not completed.
var ErrBranchPointNotReady = apperrors.NewValidationError("branch_point", "prerequisite component is not complete")

// Cycle is the aggregate root.
type Cycle struct {
	ID             ids.CycleID
	SessionID      ids.SessionID
	ParentCycleID  *ids.CycleID
	BranchPoint    *component.ComponentType
	Status         Status
	CurrentStep    component.ComponentType
	ComponentState map[component.ComponentType]ComponentStatus
	Outputs        map[component.ComponentType]any
	CreatedAt      ids.Timestamp
	UpdatedAt      ids.Timestamp
	Version        int
}

// New constructs a fresh root Cycle for sessionID, with every component
// NotStarted and current_step at the first component.
func New(sessionID ids.SessionID) (*Cycle, domainevent.Envelope, error) {
	now := ids.Now()
	states := make(map[component.ComponentType]ComponentStatus, len(component.All()))
	for _, c := range component.All() {
		states[c] = NotStarted
	}

	cy := &Cycle{
		ID:             ids.NewCycleID(),
		SessionID:      sessionID,
		Status:         StatusActive,
		CurrentStep:    component.First(),
		ComponentState: states,
		Outputs:        map[component.ComponentType]any{},
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}

	env, err := domainevent.New("cycle.created.v1", domainevent.AggregateCycle, cy.ID.String(),
		map[string]any{"session_id": sessionID.String()}, domainevent.Metadata{},
	)
	if err != nil {
		return nil, domainevent.Envelope{}, err
	}
	return cy, env, nil
}

func (cy *Cycle) ensureMutable() error {
	if cy.Status != StatusActive {
		return apperrors.NewInvalidStateTransitionError(string(cy.Status), string(cy.Status))
	}
	return nil
}

// StartComponent transitions c to InProgress. Requires the cycle to be
// Active and either c is first or its prerequisite is Complete. Starting an
// already-InProgress component is an idempotent no-op that still stamps
// updated_at.
func (cy *Cycle) StartComponent(c component.ComponentType) (domainevent.Envelope, error) {
	if err := cy.ensureMutable(); err != nil {
		return domainevent.Envelope{}, err
	}
	if !component.IsValid(c) {
		return domainevent.Envelope{}, apperrors.NewValidationError("component", "unrecognized component type")
	}

	current := cy.ComponentState[c]
	if current == InProgress {
		cy.UpdatedAt = ids.Now()
		cy.Version++
		return domainevent.New(domainevent.TypeComponentStarted, domainevent.AggregateCycle, cy.ID.String(),
			map[string]any{"session_id": cy.SessionID.String(), "component_type": string(c)}, domainevent.Metadata{},
		)
	}

	if prereq, ok := component.Previous(c); ok {
		if cy.ComponentState[prereq] != Complete {
			return domainevent.Envelope{}, apperrors.NewInvalidStateTransitionError(string(current), string(InProgress))
		}
	}

	if _, err := componentDefinition.TransitionTo(current, InProgress); err != nil {
		return domainevent.Envelope{}, apperrors.NewInvalidStateTransitionError(string(current), string(InProgress))
	}

	cy.ComponentState[c] = InProgress
	cy.CurrentStep = c
	cy.UpdatedAt = ids.Now()
	cy.Version++

	return domainevent.New(domainevent.TypeComponentStarted, domainevent.AggregateCycle, cy.ID.String(),
		map[string]any{"session_id": cy.SessionID.String(), "component_type": string(c)}, domainevent.Metadata{},
	)
}

// CompleteComponent transitions c from InProgress to Complete. Completing
// DecisionQuality also completes the cycle.
func (cy *Cycle) CompleteComponent(c component.ComponentType) ([]domainevent.Envelope, error) {
	if err := cy.ensureMutable(); err != nil {
		return nil, err
	}

	current := cy.ComponentState[c]
	if current != InProgress {
		return nil, apperrors.NewInvalidStateTransitionError(string(current), string(Complete))
	}

	cy.ComponentState[c] = Complete
	cy.UpdatedAt = ids.Now()
	cy.Version++

	completedEnv, err := domainevent.New(domainevent.TypeComponentCompleted, domainevent.AggregateCycle, cy.ID.String(),
		map[string]any{"session_id": cy.SessionID.String(), "component_type": string(c)}, domainevent.Metadata{},
	)
	if err != nil {
		return nil, err
	}
	events := []domainevent.Envelope{completedEnv}

	if c == component.DecisionQuality {
		cy.Status = StatusCompleted
		cy.Version++
		cycleCompletedEnv, err := domainevent.New("cycle.completed.v1", domainevent.AggregateCycle, cy.ID.String(),
			map[string]any{"session_id": cy.SessionID.String()}, domainevent.Metadata{},
		)
		if err != nil {
			return nil, err
		}
		events = append(events, cycleCompletedEnv)
	}

	return events, nil
}

// UpdateComponentOutput stores value verbatim against c. Requires c to be
// InProgress or Complete.
func (cy *Cycle) UpdateComponentOutput(c component.ComponentType, value any) (domainevent.Envelope, error) {
	if err := cy.ensureMutable(); err != nil {
		return domainevent.Envelope{}, err
	}

	status := cy.ComponentState[c]
	if status != InProgress && status != Complete {
		return domainevent.Envelope{}, apperrors.NewInvalidStateTransitionError(string(status), "output_updated")
	}

	cy.Outputs[c] = value
	cy.UpdatedAt = ids.Now()
	cy.Version++

	return domainevent.New(domainevent.TypeComponentOutputUpdated, domainevent.AggregateCycle, cy.ID.String(),
		map[string]any{"session_id": cy.SessionID.String(), "component_type": string(c)}, domainevent.Metadata{},
	)
}

// NavigateTo changes current_step without altering any component's status.
func (cy *Cycle) NavigateTo(c component.ComponentType) (domainevent.Envelope, error) {
	if err := cy.ensureMutable(); err != nil {
		return domainevent.Envelope{}, err
	}
	if !component.IsValid(c) {
		return domainevent.Envelope{}, apperrors.NewValidationError("component", "unrecognized component type")
	}

	from := cy.CurrentStep
	cy.CurrentStep = c
	cy.UpdatedAt = ids.Now()
	cy.Version++

	return domainevent.New("cycle.navigated.v1", domainevent.AggregateCycle, cy.ID.String(),
		map[string]any{"from_component": string(from), "to_component": string(c)}, domainevent.Metadata{},
	)
}

// Branch creates a new Cycle rooted at cy, preserving the completed prefix
// up to (but not including) at, and resetting at onward to NotStarted. The
// branch event belongs to cy, so cy's version advances with it.
func (cy *Cycle) Branch(at component.ComponentType) (*Cycle, domainevent.Envelope, error) {
	if !component.IsValid(at) {
		return nil, domainevent.Envelope{}, apperrors.NewValidationError("branch_point", "unrecognized component type")
	}

	if prereq, ok := component.Previous(at); ok {
		if cy.ComponentState[prereq] != Complete {
			return nil, domainevent.Envelope{}, ErrBranchPointNotReady
		}
	}

	now := ids.Now()
	newStates := make(map[component.ComponentType]ComponentStatus, len(component.All()))
	newOutputs := make(map[component.ComponentType]any, len(cy.Outputs))

	if prereq, ok := component.Previous(at); ok {
		for _, c := range component.ComponentsUpTo(prereq) {
			newStates[c] = cy.ComponentState[c]
			if out, ok := cy.Outputs[c]; ok {
				newOutputs[c] = out
			}
		}
	}
	for _, c := range append([]component.ComponentType{at}, component.ComponentsAfter(at)...) {
		newStates[c] = NotStarted
	}

	parentID := cy.ID
	atCopy := at
	branched := &Cycle{
		ID:             ids.NewCycleID(),
		SessionID:      cy.SessionID,
		ParentCycleID:  &parentID,
		BranchPoint:    &atCopy,
		Status:         StatusActive,
		CurrentStep:    at,
		ComponentState: newStates,
		Outputs:        newOutputs,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}

	env, err := domainevent.New("cycle.branched.v1", domainevent.AggregateCycle, cy.ID.String(),
		map[string]any{"parent_cycle_id": cy.ID.String(), "branch_point": string(at), "new_cycle_id": branched.ID.String()},
		domainevent.Metadata{},
	)
	if err != nil {
		return nil, domainevent.Envelope{}, err
	}
	cy.UpdatedAt = now
	cy.Version++
	return branched, env, nil
}

// Abandon terminally abandons the cycle.
func (cy *Cycle) Abandon() (domainevent.Envelope, error) {
	if err := cy.ensureMutable(); err != nil {
		return domainevent.Envelope{}, err
	}
	if _, err := cycleDefinition.TransitionTo(cy.Status, StatusAbandoned); err != nil {
		return domainevent.Envelope{}, apperrors.NewInvalidStateTransitionError(string(cy.Status), string(StatusAbandoned))
	}

	cy.Status = StatusAbandoned
	cy.UpdatedAt = ids.Now()
	cy.Version++

	return domainevent.New("cycle.abandoned.v1", domainevent.AggregateCycle, cy.ID.String(),
		map[string]any{"session_id": cy.SessionID.String()}, domainevent.Metadata{},
	)
}

// ProgressPercent is floor(100 * completed_required / 8); NotesNextSteps is
// excluded from both numerator and denominator.
func (cy *Cycle) ProgressPercent() ids.Percentage {
	completed := 0
	for _, c := range component.All() {
		if component.Optional(c) {
			continue
		}
		if cy.ComponentState[c] == Complete {
			completed++
		}
	}
	raw := int(math.Floor(100 * float64(completed) / float64(component.RequiredCount)))
	return ids.NewPercentage(raw)
}

// IsComplete reports whether every required (non-optional) component is
// Complete.
func (cy *Cycle) IsComplete() bool {
	for _, c := range component.All() {
		if component.Optional(c) {
			continue
		}
		if cy.ComponentState[c] != Complete {
			return false
		}
	}
	return true
}

// Repository is the capability contract for Cycle persistence.
type Repository interface {
	FindByID(ctx context.Context, id ids.CycleID) (*Cycle, error)
	Save(ctx context.Context, cy *Cycle) error
	FindBySessionID(ctx context.Context, sessionID ids.SessionID) ([]*Cycle, error)
}
