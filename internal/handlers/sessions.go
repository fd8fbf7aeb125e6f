package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"modelchat-backend/internal/chat"
	"modelchat-backend/internal/models"
)

type sessionStore interface {
	Create() *chat.Session
	Get(id uuid.UUID) (*chat.Session, error)
	Delete(id uuid.UUID)
}

type notificationStream interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID)
}

type SessionHandler struct {
	store        sessionStore
	stream       notificationStream
	defaultModel string
}

func NewSessionHandler(store sessionStore, stream notificationStream, defaultModel string) *SessionHandler {
	return &SessionHandler{
		store:        store,
		stream:       stream,
		defaultModel: defaultModel,
	}
}

func sessionResponse(s *chat.Session) models.SessionResponse {
	return models.SessionResponse{
		ID:       s.ID.String(),
		Sending:  s.Sending(),
		Messages: s.Messages(),
	}
}

// session resolves the {id} URL parameter, writing the error response
// when it cannot.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*chat.Session, bool) {
	id, ok := parseIDParam(w, r, "id", "session")
	if !ok {
		return nil, false
	}
	s, err := h.store.Get(id)
	if err != nil {
		handleServiceError(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.store.Create()
	log.Info().Str("session", s.ID.String()).Msg("session created")
	writeJSON(w, http.StatusCreated, sessionResponse(s))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.store.Delete(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage blocks until the reply (or the failure notice) is in the log.
func (h *SessionHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Model == "" {
		req.Model = h.defaultModel
	}

	appended, err := s.Send(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessagesResponse{Messages: appended})
}

// EditMessage replaces a user message, drops everything after it and
// regenerates.
func (h *SessionHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.EditMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Model == "" {
		req.Model = h.defaultModel
	}

	appended, err := s.Edit(r.Context(), chi.URLParam(r, "messageID"), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessagesResponse{Messages: appended})
}

func (h *SessionHandler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Clear(); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export downloads the log as a chat file.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	data, err := s.Export()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="chat-history-%s.json"`, s.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import replaces the log with an uploaded chat file. The body is the file
// itself.
func (h *SessionHandler) Import(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	data, ok := readBody(w, r)
	if !ok {
		return
	}

	if _, err := s.Import(r.Context(), data); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

// Notifications upgrades to a websocket carrying the session's toasts.
func (h *SessionHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.stream.HandleWebSocket(w, r, s.ID)
}
