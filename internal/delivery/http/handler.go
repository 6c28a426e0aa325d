package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"pairtalk/internal/entity"
	"pairtalk/internal/usecase"
	"pairtalk/pkg/logger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ChatHandler struct {
	conversationUc usecase.ConversationUsecase
	messageUc      usecase.MessageUsecase
	userUc         usecase.UserUsecase
	log            *logger.Logger
}

func NewChatHandler(conversationUc usecase.ConversationUsecase, messageUc usecase.MessageUsecase, userUc usecase.UserUsecase, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		conversationUc: conversationUc,
		messageUc:      messageUc,
		userUc:         userUc,
		log:            log,
	}
}

func (h *ChatHandler) fail(w http.ResponseWriter, op string, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error(op, zap.Error(err))
	}
	writeError(w, status, message)
}

// GET /conversations
// With ?updatedSince=<RFC3339Nano> only conversations changed after
// that instant are returned, which is what the sidebar poller uses.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var (
		views []entity.ConversationView
		err   error
	)
	if raw := r.URL.Query().Get("updatedSince"); raw != "" {
		since, parseErr := time.Parse(time.RFC3339Nano, raw)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid updatedSince timestamp")
			return
		}
		views, err = h.conversationUc.ListUpdatedSince(r.Context(), claims.UserId, since)
	} else {
		views, err = h.conversationUc.List(r.Context(), claims.UserId)
	}
	if err != nil {
		h.fail(w, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: views})
}

// POST /conversations
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		UserId string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserId == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	conversation, err := h.conversationUc.GetOrCreate(r.Context(), claims.UserId, req.UserId)
	if err != nil {
		h.fail(w, "create conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: conversation})
}

// GET /conversations/{conversationId}/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	conversationId := chi.URLParam(r, "conversationId")

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	messages, err := h.messageUc.List(r.Context(), conversationId, claims.UserId, page, pageSize)
	if err != nil {
		h.fail(w, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: messages})
}

// POST /conversations/{conversationId}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	conversationId := chi.URLParam(r, "conversationId")

	var payload entity.MessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messageUc.Send(r.Context(), conversationId, claims.UserId, payload)
	if err != nil {
		h.fail(w, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, Response{Message: "success", Data: message})
}

// GET /conversations/{conversationId}/messages/sync
// Cursor is (since, sinceId); both come from the last element of the
// previous batch, so repeated polling never skips or duplicates.
func (h *ChatHandler) GetNewMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	conversationId := chi.URLParam(r, "conversationId")

	var cursor entity.MessageCursor
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		cursor.CreatedAt = since
	}
	cursor.Id = r.URL.Query().Get("sinceId")

	messages, err := h.messageUc.GetSince(r.Context(), conversationId, claims.UserId, cursor)
	if err != nil {
		h.fail(w, "get new messages", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: messages})
}

// POST /conversations/{conversationId}/read
func (h *ChatHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	conversationId := chi.URLParam(r, "conversationId")

	if err := h.messageUc.MarkAsRead(r.Context(), conversationId, claims.UserId); err != nil {
		h.fail(w, "mark as read", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success"})
}

// POST /conversations/{conversationId}/read-status
func (h *ChatHandler) GetReadStatusUpdates(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	conversationId := chi.URLParam(r, "conversationId")

	var req struct {
		MessageIds []string `json:"messageIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updates, err := h.messageUc.GetReadStatusUpdates(r.Context(), conversationId, claims.UserId, req.MessageIds)
	if err != nil {
		h.fail(w, "get read status updates", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: updates})
}

// POST /conversations/{conversationId}/block
func (h *ChatHandler) ToggleBlock(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	conversationId := chi.URLParam(r, "conversationId")

	isBlocked, err := h.conversationUc.ToggleBlock(r.Context(), conversationId, claims.UserId)
	if err != nil {
		h.fail(w, "toggle block", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]bool{"isBlocked": isBlocked}})
}

// GET /users/search
func (h *ChatHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	users, err := h.userUc.Search(r.Context(), r.URL.Query().Get("q"), claims.UserId)
	if err != nil {
		h.fail(w, "search users", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: users})
}

// GET /users/me
func (h *ChatHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userUc.Get(r.Context(), claims.UserId)
	if err != nil {
		h.fail(w, "get me", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: user})
}
