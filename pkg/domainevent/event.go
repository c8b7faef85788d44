// Package domainevent defines the versioned event envelope published by
// every aggregate command handler, generalizing the teacher's per-event
// typed-payload convention (pkg/events/types.go, payloads.go) from a fixed
// set of timeline/chat events into a generic envelope carrying an opaque
// payload for any dotted, versioned event type.
package domainevent

import (
	"encoding/json"

	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/google/uuid"
)

// AggregateType names the kind of aggregate an event concerns.
type AggregateType string

const (
	AggregateSession      AggregateType = "session"
	AggregateCycle        AggregateType = "cycle"
	AggregateComponent    AggregateType = "component"
	AggregateMembership   AggregateType = "membership"
	AggregateConversation AggregateType = "conversation"
	AggregateAnalysis     AggregateType = "analysis"
)

// Event types, dotted and versioned per spec.md's wire-form table.
const (
	TypeSessionCreated           = "session.created.v1"
	TypeSessionRenamed           = "session.renamed.v1"
	TypeSessionStatusChanged     = "session.status_changed.v1"
	TypeCycleStarted             = "cycle.started.v1"
	TypeCycleBranched            = "cycle.branched.v1"
	TypeCycleAbandoned           = "cycle.abandoned.v1"
	TypeComponentStarted         = "component.started.v1"
	TypeComponentOutputUpdated   = "component.output_updated.v1"
	TypeComponentCompleted       = "component.completed.v1"
	TypeComponentNavigated       = "component.navigated.v1"
	TypeMembershipGranted        = "membership.granted.v1"
	TypeMembershipRevoked        = "membership.revoked.v1"
	TypeConversationMessagePosted = "conversation.message_posted.v1"
	TypeConversationPhaseChanged  = "conversation.phase_changed.v1"
	TypePughScoresComputed        = "analysis.pugh_scores_computed.v1"
	TypeTradeoffsAnalyzed         = "analysis.tradeoffs_analyzed.v1"
	TypeDQScoresComputed          = "analysis.dq_scores_computed.v1"
)

// CurrentSchemaVersion is the envelope schema_version stamped on every event
// produced by this build. It is independent of the version suffix baked
// into each EventType string.
const CurrentSchemaVersion = 1

// Metadata carries cross-cutting, optional correlation data.
type Metadata struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	CausationID   string `json:"causation_id,omitempty"`
}

// Envelope is the wire shape every domain event is published as.
type Envelope struct {
	EventID       ids.EventID     `json:"event_id"`
	EventType     string          `json:"event_type"`
	SchemaVersion int             `json:"schema_version"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	OccurredAt    ids.Timestamp   `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      Metadata        `json:"metadata,omitempty"`
}

// New constructs an Envelope with a fresh EventID, the current schema
// version, and occurred_at stamped to now. payload is marshaled with the
// standard library encoding/json, matching the teacher's plain-JSON
// payload convention (no protobuf on the event path).
func New(eventType string, aggregateType AggregateType, aggregateID string, payload any, meta Metadata) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       ids.EventID(uuid.NewString()),
		EventType:     eventType,
		SchemaVersion: CurrentSchemaVersion,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		OccurredAt:    ids.Now(),
		Payload:       raw,
		Metadata:      meta,
	}, nil
}

// Serialize marshals the envelope to JSON bytes for outbox storage.
func Serialize(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Deserialize parses JSON bytes back into an Envelope.
func Deserialize(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// UnmarshalPayload decodes the envelope's opaque payload into dst.
func UnmarshalPayload(e Envelope, dst any) error {
	return json.Unmarshal(e.Payload, dst)
}
