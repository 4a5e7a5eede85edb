package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mw "github.com/taskhive/taskhive/internal/api/middleware"
	"github.com/taskhive/taskhive/internal/domain/notification"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/repository/postgres"
	svc "github.com/taskhive/taskhive/internal/services/notification"
)

type NotificationHandler struct {
	svc   *svc.Service
	users user.Repo
	log   *zap.Logger
}

func NewNotificationHandler(s *svc.Service, users user.Repo, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		svc:   s,
		users: users,
		log:   log.With(zap.String("component", "api.notifications")),
	}
}

func (h *NotificationHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/unread-count", h.unreadCount)
	r.Patch("/read-all", h.markAllRead)
	r.Patch("/{id}/read", h.markRead)
	r.Delete("/{id}", h.delete)
	r.Put("/preferences", h.updatePreferences)
}

type listResponse struct {
	Notifications []*notification.Notification `json:"notifications"`
	Pagination    pagination                   `json:"pagination"`
	UnreadCount   int                          `json:"unreadCount"`
}

type pagination struct {
	Current int `json:"current"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
}

func (h *NotificationHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := notification.ListQuery{
		Page:       queryInt(r, "page", 1),
		PageSize:   queryInt(r, "limit", 20),
		UnreadOnly: r.URL.Query().Get("unreadOnly") == "true",
	}.Normalize()

	items, total, err := h.svc.List(r.Context(), userID, q)
	if err != nil {
		h.log.Error("list notifications", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error fetching notifications")
		return
	}
	unread, err := h.svc.UnreadCount(r.Context(), userID)
	if err != nil {
		h.log.Error("unread count", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error fetching notifications")
		return
	}

	pages := (total + q.PageSize - 1) / q.PageSize
	respondJSON(w, http.StatusOK, listResponse{
		Notifications: items,
		Pagination:    pagination{Current: q.Page, Pages: pages, Total: total},
		UnreadCount:   unread,
	})
}

func (h *NotificationHandler) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	n, err := h.svc.UnreadCount(r.Context(), userID)
	if err != nil {
		h.log.Error("unread count", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error fetching unread count")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"unreadCount": n})
}

func (h *NotificationHandler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad notification id")
		return
	}

	if _, err := h.svc.MarkRead(r.Context(), id, userID); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.log.Error("mark read", zap.Int64("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error marking notification as read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "notification marked as read"})
}

func (h *NotificationHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.svc.MarkAllRead(r.Context(), userID); err != nil {
		h.log.Error("mark all read", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error marking notifications as read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "all notifications marked as read"})
}

func (h *NotificationHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad notification id")
		return
	}

	if err := h.svc.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.log.Error("delete notification", zap.Int64("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error deleting notification")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "notification deleted"})
}

func (h *NotificationHandler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Preferences user.Prefs `json:"preferences"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad request body")
		return
	}

	if err := h.users.UpdatePrefs(r.Context(), userID, req.Preferences); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("update preferences", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error updating preferences")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "notification preferences updated"})
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
