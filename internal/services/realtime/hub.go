// Package realtime is the best-effort live channel: a registry of connected
// websocket sessions keyed by user, plus project/task rooms for the
// pass-through UI events. The hub is constructed once at process start and
// handed to whoever needs to push; there is no package-level instance.
package realtime

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Envelope is one event on the wire, in either direction.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type Hub struct {
	log *zap.Logger

	mu    sync.RWMutex
	users map[int64]map[*Session]struct{}
	rooms map[string]map[*Session]struct{}

	mPushed   prometheus.Counter
	mDropped  prometheus.Counter
	mSessions prometheus.Gauge
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:   log.With(zap.String("component", "realtime.hub")),
		users: make(map[int64]map[*Session]struct{}),
		rooms: make(map[string]map[*Session]struct{}),
		mPushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "realtime_events_pushed_total", Help: "Events handed to live sessions",
		}),
		mDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "realtime_events_dropped_total", Help: "Events dropped on slow or dead sessions",
		}),
		mSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_sessions", Help: "Currently connected sessions",
		}),
	}
}

// Push delivers an event to every live session of one user. No sessions is
// a silent no-op: the durable record already exists, live delivery is only
// a bonus. Never blocks; a session that cannot keep up loses the event.
func (h *Hub) Push(userID int64, event string, payload any) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.users[userID]))
	for s := range h.users[userID] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		h.send(s, Envelope{Event: event, Data: payload})
	}
}

// Broadcast delivers an event to every session in a room, optionally
// skipping the originating session.
func (h *Hub) Broadcast(room, event string, payload any, except *Session) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		if s != except {
			sessions = append(sessions, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		h.send(s, Envelope{Event: event, Data: payload})
	}
}

func (h *Hub) send(s *Session, env Envelope) {
	select {
	case s.out <- env:
		h.mPushed.Inc()
	default:
		h.mDropped.Inc()
		h.log.Debug("session send buffer full, event dropped",
			zap.Int64("user_id", s.userID),
			zap.String("event", env.Event),
		)
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	if h.users[s.userID] == nil {
		h.users[s.userID] = make(map[*Session]struct{})
	}
	h.users[s.userID][s] = struct{}{}
	h.mu.Unlock()
	h.mSessions.Inc()
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	if set := h.users[s.userID]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(h.users, s.userID)
		}
	}
	for room := range s.rooms {
		h.leaveLocked(s, room)
	}
	h.mu.Unlock()
	h.mSessions.Dec()
}

func (h *Hub) join(s *Session, room string) {
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Session]struct{})
	}
	h.rooms[room][s] = struct{}{}
	s.rooms[room] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) leave(s *Session, room string) {
	h.mu.Lock()
	h.leaveLocked(s, room)
	h.mu.Unlock()
}

func (h *Hub) leaveLocked(s *Session, room string) {
	if set := h.rooms[room]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(s.rooms, room)
}

// SessionCount reports live sessions for one user.
func (h *Hub) SessionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
