package commands

import (
	"context"

	"github.com/codeready-toolchain/decisioncore/pkg/analysis"
	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/component"
	"github.com/codeready-toolchain/decisioncore/pkg/cycle"
	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// CycleHandlers bundles the Cycle repository with a publication strategy.
type CycleHandlers struct {
	Repo      cycle.Repository
	Publisher publisher
}

// NewCycleHandlers constructs a CycleHandlers.
func NewCycleHandlers(repo cycle.Repository, pub publisher) *CycleHandlers {
	return &CycleHandlers{Repo: repo, Publisher: pub}
}

func (h *CycleHandlers) load(ctx context.Context, id ids.CycleID) (*cycle.Cycle, error) {
	cy, err := h.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("cycle", id.String())
	}
	return cy, nil
}

func (h *CycleHandlers) persistAndPublish(ctx context.Context, cy *cycle.Cycle, meta Metadata, envelopes ...domainevent.Envelope) error {
	if err := h.Repo.Save(ctx, cy); err != nil {
		return err
	}
	stamped := make([]domainevent.Envelope, len(envelopes))
	for i, env := range envelopes {
		stamped[i] = withMetadata(env, meta)
	}
	return h.Publisher.publish(ctx, stamped...)
}

// StartCycle creates and persists a brand-new root Cycle for sessionID.
func (h *CycleHandlers) StartCycle(ctx context.Context, sessionID ids.SessionID, meta Metadata) (*cycle.Cycle, error) {
	cy, env, err := cycle.New(sessionID)
	if err != nil {
		return nil, err
	}
	if err := h.persistAndPublish(ctx, cy, meta, env); err != nil {
		return nil, err
	}
	return cy, nil
}

// StartComponent starts component c on cycle id.
func (h *CycleHandlers) StartComponent(ctx context.Context, id ids.CycleID, c component.ComponentType, meta Metadata) (*cycle.Cycle, error) {
	cy, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	env, err := cy.StartComponent(c)
	if err != nil {
		return nil, err
	}
	if err := h.persistAndPublish(ctx, cy, meta, env); err != nil {
		return nil, err
	}
	return cy, nil
}

// CompleteComponent completes component c on cycle id. Completing
// Consequences or Tradeoffs additionally runs the analysis engine over the
// recorded consequences table and appends the resulting derived event;
// completing DecisionQuality runs weakest-link aggregation over the
// recorded element scores (spec.md §4.7).
func (h *CycleHandlers) CompleteComponent(ctx context.Context, id ids.CycleID, c component.ComponentType, meta Metadata) (*cycle.Cycle, error) {
	cy, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := cy.CompleteComponent(c)
	if err != nil {
		return nil, err
	}

	switch c {
	case component.Consequences:
		table, err := consequencesTableOutput(cy)
		if err != nil {
			return nil, err
		}
		env, err := pughScoresEvent(cy, table)
		if err != nil {
			return nil, err
		}
		events = append(events, env)

	case component.Tradeoffs:
		table, err := consequencesTableOutput(cy)
		if err != nil {
			return nil, err
		}
		env, err := tradeoffsAnalyzedEvent(cy, table)
		if err != nil {
			return nil, err
		}
		events = append(events, env)

	case component.DecisionQuality:
		elements, err := decisionQualityElementsOutput(cy)
		if err != nil {
			return nil, err
		}
		env, err := dqScoresComputedEvent(cy, elements)
		if err != nil {
			return nil, err
		}
		events = append(events, env)
	}

	if err := h.persistAndPublish(ctx, cy, meta, events...); err != nil {
		return nil, err
	}
	return cy, nil
}

// consequencesTableOutput retrieves and type-asserts the consequences
// table recorded against component.Consequences via UpdateComponentOutput.
// Tradeoffs re-derives its analysis from the same table rather than
// recording a second one.
func consequencesTableOutput(cy *cycle.Cycle) (analysis.ConsequencesTable, error) {
	raw, ok := cy.Outputs[component.Consequences]
	if !ok {
		return analysis.ConsequencesTable{}, apperrors.NewValidationError(
			"consequences_table", "must be recorded via update_component_output before completing this component")
	}
	table, ok := raw.(analysis.ConsequencesTable)
	if !ok {
		return analysis.ConsequencesTable{}, apperrors.NewValidationError(
			"consequences_table", "recorded output must be an analysis.ConsequencesTable")
	}
	return table, nil
}

// decisionQualityElementsOutput retrieves and type-asserts the seven
// element scores recorded against component.DecisionQuality.
func decisionQualityElementsOutput(cy *cycle.Cycle) ([]int, error) {
	raw, ok := cy.Outputs[component.DecisionQuality]
	if !ok {
		return nil, apperrors.NewValidationError(
			"decision_quality_elements", "must be recorded via update_component_output before completing this component")
	}
	elements, ok := raw.([]int)
	if !ok {
		return nil, apperrors.NewValidationError(
			"decision_quality_elements", "recorded output must be a []int of element scores")
	}
	return elements, nil
}

func pughScoresEvent(cy *cycle.Cycle, table analysis.ConsequencesTable) (domainevent.Envelope, error) {
	pairs := analysis.Dominance(table)
	scores := make(map[string]int, len(table.AlternativeIDs))
	for _, alt := range table.AlternativeIDs {
		scores[alt] = 0
	}
	for _, pair := range pairs {
		scores[pair.DominatedBy]++
		scores[pair.Dominated]--
	}

	payload := map[string]any{
		"session_id":         cy.SessionID.String(),
		"alternative_scores": scores,
		"dominated":          pairs,
	}
	if best, ok := analysis.ClearWinner(analysis.TensionAnalysis(table)); ok {
		payload["best"] = best
	}

	return domainevent.New(domainevent.TypePughScoresComputed, domainevent.AggregateAnalysis, cy.ID.String(), payload, domainevent.Metadata{})
}

func tradeoffsAnalyzedEvent(cy *cycle.Cycle, table analysis.ConsequencesTable) (domainevent.Envelope, error) {
	payload := map[string]any{
		"session_id":       cy.SessionID.String(),
		"dominated_count":  len(analysis.DominatedSet(table)),
		"irrelevant_count": len(analysis.IrrelevantObjectives(table)),
		"tensions":         analysis.TensionAnalysis(table),
	}
	return domainevent.New(domainevent.TypeTradeoffsAnalyzed, domainevent.AggregateAnalysis, cy.ID.String(), payload, domainevent.Metadata{})
}

func dqScoresComputedEvent(cy *cycle.Cycle, elements []int) (domainevent.Envelope, error) {
	result, err := analysis.DecisionQuality(elements)
	if err != nil {
		return domainevent.Envelope{}, apperrors.NewValidationError("decision_quality_elements", err.Error())
	}

	payload := map[string]any{
		"session_id":    cy.SessionID.String(),
		"elements":      elements,
		"overall_score": result.OverallScore,
		"weakest":       result.WeakestElement,
	}
	return domainevent.New(domainevent.TypeDQScoresComputed, domainevent.AggregateAnalysis, cy.ID.String(), payload, domainevent.Metadata{})
}

// UpdateComponentOutput stores value against component c on cycle id.
func (h *CycleHandlers) UpdateComponentOutput(ctx context.Context, id ids.CycleID, c component.ComponentType, value any, meta Metadata) (*cycle.Cycle, error) {
	cy, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	env, err := cy.UpdateComponentOutput(c, value)
	if err != nil {
		return nil, err
	}
	if err := h.persistAndPublish(ctx, cy, meta, env); err != nil {
		return nil, err
	}
	return cy, nil
}

// NavigateTo changes cycle id's current_step to c.
func (h *CycleHandlers) NavigateTo(ctx context.Context, id ids.CycleID, c component.ComponentType, meta Metadata) (*cycle.Cycle, error) {
	cy, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	env, err := cy.NavigateTo(c)
	if err != nil {
		return nil, err
	}
	if err := h.persistAndPublish(ctx, cy, meta, env); err != nil {
		return nil, err
	}
	return cy, nil
}

// Branch creates a branched Cycle from id at component c.
func (h *CycleHandlers) Branch(ctx context.Context, id ids.CycleID, c component.ComponentType, meta Metadata) (*cycle.Cycle, error) {
	cy, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	branched, env, err := cy.Branch(c)
	if err != nil {
		return nil, err
	}
	// The branched cycle and the parent's branch event both persist/publish
	// as part of the same command: the parent's version advances with the
	// branch event, the child is a brand-new aggregate row.
	if err := h.Repo.Save(ctx, branched); err != nil {
		return nil, err
	}
	if err := h.persistAndPublish(ctx, cy, meta, env); err != nil {
		return nil, err
	}
	return branched, nil
}

// Abandon terminally abandons cycle id.
func (h *CycleHandlers) Abandon(ctx context.Context, id ids.CycleID, meta Metadata) (*cycle.Cycle, error) {
	cy, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	env, err := cy.Abandon()
	if err != nil {
		return nil, err
	}
	if err := h.persistAndPublish(ctx, cy, meta, env); err != nil {
		return nil, err
	}
	return cy, nil
}
