package realtime

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/domain/user"
)

// WSHandler upgrades authenticated HTTP requests into hub sessions. The
// token travels either as a bearer header or a ?token= query parameter
// (browsers cannot set headers on websocket dials).
type WSHandler struct {
	hub    *Hub
	users  user.Repo
	secret []byte
	log    *zap.Logger

	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub, users user.Repo, secret []byte, log *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		users:  users,
		secret: secret,
		log:    log.With(zap.String("component", "realtime.ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ParseAndValidate(token, h.secret)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil || !u.Active {
		http.Error(w, "unknown user", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := newSession(h.hub, conn, u.ID, h.log)
	h.hub.register(s)
	h.log.Debug("session connected", zap.Int64("user_id", u.ID))

	go s.writePump()
	go s.readPump()
}

func bearerToken(r *http.Request) string {
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		return strings.TrimPrefix(v, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
