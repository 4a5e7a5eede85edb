package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	mw "github.com/taskhive/taskhive/internal/api/middleware"
	"github.com/taskhive/taskhive/internal/domain/user"
	svc "github.com/taskhive/taskhive/internal/services/notification"
	"github.com/taskhive/taskhive/internal/services/realtime"
)

// NewRouter assembles the HTTP surface: authenticated notification
// endpoints under /api/notifications and the websocket upgrade at /ws.
func NewRouter(
	s *svc.Service,
	users user.Repo,
	hub *realtime.Hub,
	jwtSecret []byte,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	nh := NewNotificationHandler(s, users, log)
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(mw.Authenticator(jwtSecret))
		nh.Routes(r)
	})

	// Websocket auth happens inside the handler: browsers cannot set
	// headers on the upgrade request, so the token may ride the query.
	r.Method(http.MethodGet, "/ws", realtime.NewWSHandler(hub, users, jwtSecret, log))

	return r
}
