package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/wolfman30/spa-line-booking/internal/conversation"
	"github.com/wolfman30/spa-line-booking/internal/http/middleware"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

// AdminConversationsHandler lets operators inspect or reset a LINE user's
// booking conversation, e.g. one stranded after a service was withdrawn.
type AdminConversationsHandler struct {
	store  conversation.Store
	logger *logging.Logger
}

func NewAdminConversationsHandler(store conversation.Store, logger *logging.Logger) *AdminConversationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminConversationsHandler{store: store, logger: logger}
}

// ConversationResponse is the JSON view of a live session.
type ConversationResponse struct {
	LineUserID string            `json:"line_user_id"`
	State      string            `json:"state"`
	Data       map[string]string `json:"data"`
	UpdatedAt  string            `json:"updated_at"`
}

// GetConversation handles GET /admin/conversations/{lineUserID}.
func (h *AdminConversationsHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := lineUserID(w, r)
	if !ok {
		return
	}
	sess, err := h.store.Load(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load conversation", "line_user_id", userID, "error", err)
		jsonError(w, r, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if sess == nil {
		jsonError(w, r, http.StatusNotFound, "no active conversation")
		return
	}
	render.JSON(w, r, ConversationResponse{
		LineUserID: sess.UserID,
		State:      string(sess.State),
		Data:       sess.Data,
		UpdatedAt:  sess.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// ResetConversation handles DELETE /admin/conversations/{lineUserID}. It is
// idempotent: clearing an absent session still returns 204.
func (h *AdminConversationsHandler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := lineUserID(w, r)
	if !ok {
		return
	}
	if err := h.store.ClearState(r.Context(), userID); err != nil {
		h.logger.Error("failed to reset conversation", "line_user_id", userID, "error", err)
		jsonError(w, r, http.StatusInternalServerError, "failed to reset conversation")
		return
	}
	operator := ""
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		operator = claims.Subject
	}
	h.logger.Info("conversation reset by operator", "line_user_id", userID, "operator", operator)
	w.WriteHeader(http.StatusNoContent)
}

func lineUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "lineUserID"))
	if id == "" {
		jsonError(w, r, http.StatusBadRequest, "line user id required")
		return "", false
	}
	return id, true
}

func jsonError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}
