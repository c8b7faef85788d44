package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// DashboardUpdateType is the closed enum of update kinds the bridge
// produces (SPEC_FULL.md §4.9 / spec.md §6.2).
type DashboardUpdateType string

const (
	UpdateSessionMetadata     DashboardUpdateType = "session_metadata"
	UpdateCycleCreated        DashboardUpdateType = "cycle_created"
	UpdateComponentStarted    DashboardUpdateType = "component_started"
	UpdateComponentCompleted  DashboardUpdateType = "component_completed"
	UpdateComponentOutput     DashboardUpdateType = "component_output"
	UpdateConversationMessage DashboardUpdateType = "conversation_message"
	UpdateAnalysisScores      DashboardUpdateType = "analysis_scores"
	UpdateCycleCompleted      DashboardUpdateType = "cycle_completed"
)

// bridgeEventTypes is the fixed set of dashboard-relevant event types the
// bridge subscribes to.
var bridgeEventTypes = []string{
	domainevent.TypeSessionCreated, domainevent.TypeSessionRenamed, "cycle.created.v1",
	"cycle.branched.v1", domainevent.TypeComponentStarted,
	domainevent.TypeComponentCompleted, domainevent.TypeComponentOutputUpdated,
	domainevent.TypeConversationMessagePosted, domainevent.TypePughScoresComputed,
	domainevent.TypeTradeoffsAnalyzed, domainevent.TypeDQScoresComputed, "cycle.completed.v1",
}

var eventTypeToUpdateType = map[string]DashboardUpdateType{
	domainevent.TypeSessionCreated:            UpdateSessionMetadata,
	domainevent.TypeSessionRenamed:            UpdateSessionMetadata,
	"cycle.created.v1":                        UpdateCycleCreated,
	"cycle.branched.v1":                       UpdateCycleCreated,
	domainevent.TypeComponentStarted:          UpdateComponentStarted,
	domainevent.TypeComponentCompleted:        UpdateComponentCompleted,
	domainevent.TypeComponentOutputUpdated:    UpdateComponentOutput,
	domainevent.TypeConversationMessagePosted: UpdateConversationMessage,
	domainevent.TypePughScoresComputed:        UpdateAnalysisScores,
	domainevent.TypeTradeoffsAnalyzed:         UpdateAnalysisScores,
	domainevent.TypeDQScoresComputed:          UpdateAnalysisScores,
	"cycle.completed.v1":                      UpdateCycleCompleted,
}

// BridgeEventTypes returns the fixed set of event types the bridge should
// be subscribed to (e.g. via Bus.SubscribeAll).
func BridgeEventTypes() []string {
	out := make([]string, len(bridgeEventTypes))
	copy(out, bridgeEventTypes)
	return out
}

// Bridge implements eventbus.Handler, mapping domain events to dashboard
// updates and routing them through a RoomManager. It is always wrapped by
// the idempotent handler decorator (C9) by its caller, to prevent duplicate
// fan-out on event re-delivery.
type Bridge struct {
	Rooms  *RoomManager
	Logger *slog.Logger
}

// NewBridge constructs a Bridge. A nil logger falls back to slog.Default().
func NewBridge(rooms *RoomManager, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{Rooms: rooms, Logger: logger}
}

// Name implements eventbus.Handler.
func (b *Bridge) Name() string { return "ws_dashboard_bridge" }

// Handle implements eventbus.Handler: unknown event types are silently
// ignored (return nil), matching spec.md §4.9 step 1.
func (b *Bridge) Handle(ctx context.Context, envelope domainevent.Envelope) error {
	updateType, known := eventTypeToUpdateType[envelope.EventType]
	if !known {
		return nil
	}

	sessionID, ok := resolveSessionID(envelope)
	if !ok {
		b.Logger.WarnContext(ctx, "ws bridge: could not resolve session id, dropping event",
			"event_type", envelope.EventType, "aggregate_type", envelope.AggregateType, "aggregate_id", envelope.AggregateID)
		return nil
	}

	b.Rooms.BroadcastToSession(sessionID, DashboardUpdate{
		UpdateType:    string(updateType),
		Data:          envelope.Payload,
		Timestamp:     envelope.OccurredAt,
		CorrelationID: envelope.Metadata.CorrelationID,
	})
	return nil
}

// resolveSessionID implements spec.md §4.9 step 2's routing precedence.
func resolveSessionID(envelope domainevent.Envelope) (ids.SessionID, bool) {
	if envelope.AggregateType == domainevent.AggregateSession {
		return ids.SessionID(envelope.AggregateID), true
	}

	if envelope.AggregateType == domainevent.AggregateCycle || envelope.AggregateType == domainevent.AggregateComponent {
		if sid, ok := payloadSessionID(envelope.Payload); ok {
			return sid, true
		}
		return "", false
	}

	return payloadSessionID(envelope.Payload)
}

func payloadSessionID(payload json.RawMessage) (ids.SessionID, bool) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.SessionID == "" {
		return "", false
	}
	return ids.SessionID(body.SessionID), true
}
