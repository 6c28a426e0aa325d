package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"pairtalk/internal/repository"
	"pairtalk/internal/usecase"
)

type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Message: message})
}

// errorStatus maps usecase and repository sentinel errors onto HTTP
// statuses and user-facing messages.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrSelfConversation):
		return http.StatusBadRequest, "cannot start a conversation with yourself"
	case errors.Is(err, usecase.ErrInvalidParticipant):
		return http.StatusBadRequest, "participant does not exist"
	case errors.Is(err, usecase.ErrInvalidPayload):
		return http.StatusBadRequest, "message payload is invalid"
	case errors.Is(err, usecase.ErrBlocked):
		return http.StatusForbidden, "conversation is blocked"
	case errors.Is(err, usecase.ErrNotParticipant):
		return http.StatusForbidden, "you are not a participant of this conversation"
	case errors.Is(err, repository.ErrConversationNotFound):
		return http.StatusNotFound, "conversation not found"
	case errors.Is(err, repository.ErrMessageNotFound):
		return http.StatusNotFound, "message not found"
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
