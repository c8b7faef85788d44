// Package ws implements the session-scoped WebSocket fan-out (C11) and the
// domain-event-to-dashboard-update bridge (C12). Grounded on the teacher's
// pkg/events/manager.go: the connections/subscriptions RWMutex-guarded
// tables and the snapshot-then-release-lock-then-send discipline carry over
// directly, generalized from PG-NOTIFY-channel routing to a direct
// in-process broadcast to a bounded channel per client in each room (see DESIGN.md / SPEC_FULL.md
// GLOSSARY: C11 is in-process only, no PG LISTEN/NOTIFY).
package ws

import (
	"sync"

	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/metrics"
)

// DefaultBufferSize is the bounded capacity of each joined client's receive
// channel.
const DefaultBufferSize = 128

// DashboardUpdate is the payload broadcast to a session's connected
// clients.
type DashboardUpdate struct {
	UpdateType    string
	Data          []byte
	Timestamp     ids.Timestamp
	CorrelationID string
}

// ClientID identifies one connected WebSocket client.
type ClientID string

type room struct {
	receivers map[ClientID]chan DashboardUpdate
}

// RoomManager owns every session's broadcast room. Zero value is not
// usable; use NewRoomManager.
type RoomManager struct {
	mu         sync.RWMutex
	rooms      map[ids.SessionID]*room
	clientRoom map[ClientID]ids.SessionID
	bufferSize int

	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.Metrics
}

// NewRoomManager constructs a RoomManager whose clients each get a receive
// channel of bufferSize updates (0 selects DefaultBufferSize).
func NewRoomManager(bufferSize int) *RoomManager {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &RoomManager{
		rooms:      make(map[ids.SessionID]*room),
		clientRoom: make(map[ClientID]ids.SessionID),
		bufferSize: bufferSize,
	}
}

// Join creates sessionID's room lazily and returns a receive channel for
// clientID.
func (m *RoomManager) Join(sessionID ids.SessionID, clientID ClientID) <-chan DashboardUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[sessionID]
	if !ok {
		r = &room{receivers: make(map[ClientID]chan DashboardUpdate)}
		m.rooms[sessionID] = r
	}

	recv := make(chan DashboardUpdate, m.bufferSize)
	r.receivers[clientID] = recv
	m.clientRoom[clientID] = sessionID

	m.Metrics.SetWSRoomsActive(len(m.rooms))
	m.Metrics.SetWSClientsTotal(len(m.clientRoom))

	return recv
}

// Leave removes clientID's mapping and, if its room has zero remaining
// receivers, removes the room entirely.
func (m *RoomManager) Leave(clientID ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessionID, ok := m.clientRoom[clientID]
	if !ok {
		return
	}
	delete(m.clientRoom, clientID)

	r, ok := m.rooms[sessionID]
	if !ok {
		return
	}
	if recv, ok := r.receivers[clientID]; ok {
		close(recv)
		delete(r.receivers, clientID)
	}
	if len(r.receivers) == 0 {
		delete(m.rooms, sessionID)
	}

	m.Metrics.SetWSRoomsActive(len(m.rooms))
	m.Metrics.SetWSClientsTotal(len(m.clientRoom))
}

// BroadcastToSession sends update to every client currently joined to
// sessionID. It is a no-op if the room does not exist. If a receiver's
// buffer is full, the oldest buffered message is dropped to make room —
// slow receivers observe a gap, never out-of-order delivery.
func (m *RoomManager) BroadcastToSession(sessionID ids.SessionID, update DashboardUpdate) {
	m.mu.RLock()
	r, ok := m.rooms[sessionID]
	if !ok {
		m.mu.RUnlock()
		return
	}
	receivers := make([]chan DashboardUpdate, 0, len(r.receivers))
	for _, recv := range r.receivers {
		receivers = append(receivers, recv)
	}
	m.mu.RUnlock()

	for _, recv := range receivers {
		sendLossyOldest(recv, update)
	}
}

// sendLossyOldest attempts a non-blocking send; if the channel is full it
// drops the oldest buffered item to make room, then retries once.
func sendLossyOldest(ch chan DashboardUpdate, update DashboardUpdate) {
	select {
	case ch <- update:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- update:
	default:
	}
}

// ClientCount returns the number of clients currently joined to sessionID.
func (m *RoomManager) ClientCount(sessionID ids.SessionID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[sessionID]
	if !ok {
		return 0
	}
	return len(r.receivers)
}

// TotalClientCount returns the number of clients joined across every room.
func (m *RoomManager) TotalClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clientRoom)
}

// ActiveRooms returns the number of rooms with at least one receiver.
func (m *RoomManager) ActiveRooms() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
