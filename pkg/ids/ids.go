// Package ids defines the opaque identifier and bounded-value types shared
// across every aggregate in the deliberation core. The teacher codebase
// addresses its entities by bare ent-generated strings; here each identifier
// gets its own type so the compiler rejects passing a CycleID where a
// SessionID is expected.
package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionID identifies a Session aggregate.
type SessionID string

// CycleID identifies a Cycle aggregate.
type CycleID string

// ComponentID identifies a single (Cycle, ComponentType) discussion thread.
// It is distinct from component.ComponentType, the fixed nine-value
// sequencing enum — see DESIGN.md.
type ComponentID string

// ConversationID identifies a Conversation aggregate.
type ConversationID string

// MembershipID identifies a Membership aggregate.
type MembershipID string

// EventID identifies a single domain event envelope.
type EventID string

// DecisionDocumentID identifies a derived DecisionDocument projection.
type DecisionDocumentID string

// UserID identifies the human or service principal behind an action.
// Unlike the other identifiers it is not UUID-generated here — it is
// supplied by the out-of-scope identity provider — so construction is
// validated rather than generated.
type UserID string

// NewSessionID generates a fresh random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.NewString()) }

// NewCycleID generates a fresh random CycleID.
func NewCycleID() CycleID { return CycleID(uuid.NewString()) }

// NewComponentID generates a fresh random ComponentID.
func NewComponentID() ComponentID { return ComponentID(uuid.NewString()) }

// NewConversationID generates a fresh random ConversationID.
func NewConversationID() ConversationID { return ConversationID(uuid.NewString()) }

// NewMembershipID generates a fresh random MembershipID.
func NewMembershipID() MembershipID { return MembershipID(uuid.NewString()) }

// NewEventID generates a fresh random EventID.
func NewEventID() EventID { return EventID(uuid.NewString()) }

// NewDecisionDocumentID generates a fresh random DecisionDocumentID.
func NewDecisionDocumentID() DecisionDocumentID { return DecisionDocumentID(uuid.NewString()) }

// NewUserID validates and wraps a caller-supplied user identifier.
// Empty identifiers are rejected since every aggregate operation that
// records a UserID uses it for authorization and audit attribution.
func NewUserID(raw string) (UserID, error) {
	if raw == "" {
		return "", fmt.Errorf("ids: user id must not be empty")
	}
	return UserID(raw), nil
}

func (id SessionID) String() string        { return string(id) }
func (id CycleID) String() string          { return string(id) }
func (id ComponentID) String() string      { return string(id) }
func (id ConversationID) String() string   { return string(id) }
func (id MembershipID) String() string     { return string(id) }
func (id EventID) String() string          { return string(id) }
func (id DecisionDocumentID) String() string { return string(id) }
func (id UserID) String() string           { return string(id) }
