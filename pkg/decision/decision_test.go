package decision_test

import (
	"testing"

	"github.com/codeready-toolchain/decisioncore/pkg/analysis"
	"github.com/codeready-toolchain/decisioncore/pkg/component"
	"github.com/codeready-toolchain/decisioncore/pkg/cycle"
	"github.com/codeready-toolchain/decisioncore/pkg/decision"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() analysis.ConsequencesTable {
	return analysis.ConsequencesTable{
		AlternativeIDs: []string{"A", "B"},
		ObjectiveIDs:   []string{"O1", "O2"},
		Cells: map[string]analysis.Cell{
			"A:O1": {Rating: 1},
			"A:O2": {Rating: 1},
			"B:O1": {Rating: 0},
			"B:O2": {Rating: 0},
		},
	}
}

func TestBuildDecisionDocumentOnFreshCycleHasEmptyFields(t *testing.T) {
	cy, _, err := cycle.New(ids.NewSessionID())
	require.NoError(t, err)

	doc := decision.BuildDecisionDocument(*cy)
	assert.Equal(t, cy.ID, doc.CycleID)
	assert.Equal(t, cy.SessionID, doc.SessionID)
	assert.Equal(t, cycle.StatusActive, doc.Status)
	assert.Equal(t, 0, doc.ProgressPercent.Int())
	assert.Empty(t, doc.IssueRaising)
	assert.Nil(t, doc.Consequences)
	assert.Nil(t, doc.DecisionQuality)
}

func TestBuildDecisionDocumentAssemblesRecordedOutputs(t *testing.T) {
	cy, _, err := cycle.New(ids.NewSessionID())
	require.NoError(t, err)

	cy.Outputs[component.IssueRaising] = "relocate for the new job or stay"
	cy.Outputs[component.ProblemFrame] = "weigh career growth against family ties"
	cy.Outputs[component.Objectives] = []string{"salary", "commute"}
	cy.Outputs[component.Alternatives] = []string{"A", "B"}
	cy.Outputs[component.Consequences] = testTable()
	cy.Outputs[component.Recommendation] = "take alternative A"
	cy.Outputs[component.DecisionQuality] = []int{80, 70, 90, 60, 85, 75, 95}
	cy.Outputs[component.NotesNextSteps] = "revisit in 6 months"

	doc := decision.BuildDecisionDocument(*cy)

	assert.Equal(t, "relocate for the new job or stay", doc.IssueRaising)
	assert.Equal(t, "weigh career growth against family ties", doc.ProblemFrame)
	assert.Equal(t, []string{"salary", "commute"}, doc.Objectives)
	assert.Equal(t, []string{"A", "B"}, doc.Alternatives)

	require.NotNil(t, doc.Consequences)
	assert.Equal(t, testTable(), *doc.Consequences)
	assert.Equal(t, analysis.Dominance(testTable()), doc.Dominance)
	assert.Equal(t, analysis.TensionAnalysis(testTable()), doc.Tradeoffs)

	assert.Equal(t, "take alternative A", doc.Recommendation)
	require.NotNil(t, doc.DecisionQuality)
	assert.Equal(t, 60, doc.DecisionQuality.OverallScore)
	assert.Equal(t, 3, doc.DecisionQuality.WeakestElement)

	assert.Equal(t, "revisit in 6 months", doc.NotesNextSteps)
}

func TestBuildDecisionDocumentIgnoresWrongTypedOutput(t *testing.T) {
	cy, _, err := cycle.New(ids.NewSessionID())
	require.NoError(t, err)

	cy.Outputs[component.Consequences] = "not a table"
	cy.Outputs[component.DecisionQuality] = "not a score slice"

	doc := decision.BuildDecisionDocument(*cy)
	assert.Nil(t, doc.Consequences)
	assert.Nil(t, doc.DecisionQuality)
}
