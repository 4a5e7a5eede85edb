package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 32
)

func projectRoom(id int64) string { return fmt.Sprintf("project:%d", id) }
func taskRoom(id int64) string    { return fmt.Sprintf("task:%d", id) }

// Session is one live websocket connection of an authenticated user. A
// user may hold any number of concurrent sessions; a push reaches all of
// them.
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	out    chan Envelope
	rooms  map[string]struct{}
	log    *zap.Logger
}

func newSession(hub *Hub, conn *websocket.Conn, userID int64, log *zap.Logger) *Session {
	return &Session{
		hub:    hub,
		conn:   conn,
		userID: userID,
		out:    make(chan Envelope, sendBuffer),
		rooms:  make(map[string]struct{}),
		log:    log.With(zap.Int64("user_id", userID)),
	}
}

// clientMessage is what the browser sends upward. Everything here is
// pass-through UI traffic; the notification core never depends on it.
type clientMessage struct {
	Type      string          `json:"type"`
	ProjectID int64           `json:"project_id,omitempty"`
	TaskID    int64           `json:"task_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (s *Session) readPump() {
	defer func() {
		s.hub.unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Debug("bad client message", zap.Error(err))
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg clientMessage) {
	switch msg.Type {
	case "join_project":
		s.hub.join(s, projectRoom(msg.ProjectID))
	case "leave_project":
		s.hub.leave(s, projectRoom(msg.ProjectID))
	case "join_task":
		s.hub.join(s, taskRoom(msg.TaskID))
	case "leave_task":
		s.hub.leave(s, taskRoom(msg.TaskID))
	case "task_update":
		s.hub.Broadcast(projectRoom(msg.ProjectID), "task_updated", msg.Payload, s)
	case "typing_start":
		s.hub.Broadcast(taskRoom(msg.TaskID), "user_typing", map[string]any{
			"user_id": s.userID,
			"task_id": msg.TaskID,
		}, s)
	case "typing_stop":
		s.hub.Broadcast(taskRoom(msg.TaskID), "user_stopped_typing", map[string]any{
			"user_id": s.userID,
			"task_id": msg.TaskID,
		}, s)
	default:
		s.log.Debug("unknown client message type", zap.String("type", msg.Type))
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case env, ok := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(env); err != nil {
				s.log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
