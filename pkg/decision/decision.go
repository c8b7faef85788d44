// Package decision implements DecisionDocument (SPEC_FULL.md's [FULL] Data
// Model addition): a read-only projection assembled from a completed Cycle's
// per-component outputs. It has no repository contract and is never
// persisted — every caller derives it fresh from a Cycle, the way the
// original system's shareable decision summary is always regenerated from
// component state rather than stored as its own source of truth.
package decision

import (
	"github.com/codeready-toolchain/decisioncore/pkg/analysis"
	"github.com/codeready-toolchain/decisioncore/pkg/component"
	"github.com/codeready-toolchain/decisioncore/pkg/cycle"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// DecisionDocument is a point-in-time projection of a Cycle's recorded
// component outputs, enriched with the derived analysis results a dashboard
// or (out-of-scope) markdown renderer would display alongside them.
type DecisionDocument struct {
	ID              ids.DecisionDocumentID
	CycleID         ids.CycleID
	SessionID       ids.SessionID
	Status          cycle.Status
	ProgressPercent ids.Percentage
	GeneratedAt     ids.Timestamp

	IssueRaising string
	ProblemFrame string
	Objectives   any
	Alternatives any

	Consequences *analysis.ConsequencesTable
	Dominance    []analysis.DominancePair
	Tradeoffs    []analysis.Tension

	Recommendation  string
	DecisionQuality *analysis.DecisionQualityResult

	NotesNextSteps string
}

// BuildDecisionDocument assembles a DecisionDocument from cy's current
// recorded outputs. Components that have not yet recorded an output (or
// recorded one of an unexpected type) are left at their zero value rather
// than erroring: a document may be requested mid-cycle, before every
// component has completed.
func BuildDecisionDocument(cy cycle.Cycle) DecisionDocument {
	doc := DecisionDocument{
		ID:              ids.NewDecisionDocumentID(),
		CycleID:         cy.ID,
		SessionID:       cy.SessionID,
		Status:          cy.Status,
		ProgressPercent: cy.ProgressPercent(),
		GeneratedAt:     ids.Now(),
	}

	if v, ok := cy.Outputs[component.IssueRaising].(string); ok {
		doc.IssueRaising = v
	}
	if v, ok := cy.Outputs[component.ProblemFrame].(string); ok {
		doc.ProblemFrame = v
	}
	doc.Objectives = cy.Outputs[component.Objectives]
	doc.Alternatives = cy.Outputs[component.Alternatives]

	if table, ok := cy.Outputs[component.Consequences].(analysis.ConsequencesTable); ok {
		doc.Consequences = &table
		doc.Dominance = analysis.Dominance(table)
		doc.Tradeoffs = analysis.TensionAnalysis(table)
	}

	if v, ok := cy.Outputs[component.Recommendation].(string); ok {
		doc.Recommendation = v
	}

	if elements, ok := cy.Outputs[component.DecisionQuality].([]int); ok {
		if result, err := analysis.DecisionQuality(elements); err == nil {
			doc.DecisionQuality = &result
		}
	}

	if v, ok := cy.Outputs[component.NotesNextSteps].(string); ok {
		doc.NotesNextSteps = v
	}

	return doc
}
