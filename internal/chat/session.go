// Package chat keeps conversation logs and reconciles generation results
// into them, one request at a time per session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"modelchat-backend/internal/models"
)

var (
	ErrBusy            = errors.New("a request is already in progress")
	ErrEmptyMessage    = errors.New("message text or image is required")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotEditable     = errors.New("only user messages can be edited")
	ErrSessionNotFound = errors.New("session not found")
)

const LoadedNotice = "Chat history loaded."

// Generator produces a model reply for a normalized-ready input.
type Generator interface {
	Generate(ctx context.Context, in models.GenerateInput) (*models.GenerateOutput, error)
}

// Notifier delivers transient notifications to a session's clients.
type Notifier interface {
	Notify(ctx context.Context, sessionID uuid.UUID, n models.Notification)
}

// Session is one conversation. Its log only grows, except for Edit
// (truncate + replace), Clear and Import.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	messages []models.ChatMessage
	sending  bool

	generator Generator
	notifier  Notifier
	newID     func() string
}

func NewSession(id uuid.UUID, generator Generator, notifier Notifier) *Session {
	return &Session{
		ID:        id,
		generator: generator,
		notifier:  notifier,
		newID:     func() string { return uuid.NewString() },
	}
}

// Messages returns a copy of the log.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.messages)
}

// Sending reports whether a generation request is in flight.
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Send appends the user message, asks for a reply and appends exactly one
// AI or system message. It returns the messages it appended.
func (s *Session) Send(ctx context.Context, req models.SendMessageRequest) ([]models.ChatMessage, error) {
	if strings.TrimSpace(req.Text) == "" && req.ImageURL == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	history := ToTurns(s.messages)
	userMsg := models.ChatMessage{
		ID:       s.newID(),
		Sender:   models.SenderUser,
		Text:     req.Text,
		ImageURL: req.ImageURL,
	}
	s.messages = append(s.messages, userMsg)
	s.sending = true
	s.mu.Unlock()

	reply := s.generate(ctx, models.GenerateInput{
		Prompt:       req.Text,
		Model:        req.Model,
		PhotoDataURI: req.ImageURL,
		History:      history,
		ModelConfig:  req.ModelConfig,
	})

	return []models.ChatMessage{userMsg, reply}, nil
}

// Edit replaces the user message messageID, discards everything after it
// and regenerates from the truncated history.
func (s *Session) Edit(ctx context.Context, messageID string, req models.EditMessageRequest) ([]models.ChatMessage, error) {
	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	idx := -1
	for i, m := range s.messages {
		if m.ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil, ErrMessageNotFound
	}
	original := s.messages[idx]
	if original.Sender != models.SenderUser {
		s.mu.Unlock()
		return nil, ErrNotEditable
	}

	edited := models.ChatMessage{
		ID:       original.ID,
		Sender:   models.SenderUser,
		Text:     req.Text,
		ImageURL: original.ImageURL,
	}
	if req.ImageURL != nil {
		edited.ImageURL = *req.ImageURL
	}
	if strings.TrimSpace(edited.Text) == "" && edited.ImageURL == "" {
		s.mu.Unlock()
		return nil, ErrEmptyMessage
	}

	kept := s.messages[:idx:idx]
	history := ToTurns(kept)
	s.messages = append(cloneMessages(kept), edited)
	s.sending = true
	s.mu.Unlock()

	log.Debug().Str("session", s.ID.String()).Str("message", messageID).Int("truncated_to", idx).Msg("editing message")

	reply := s.generate(ctx, models.GenerateInput{
		Prompt:       edited.Text,
		Model:        req.Model,
		PhotoDataURI: edited.ImageURL,
		History:      history,
		ModelConfig:  req.ModelConfig,
	})

	return []models.ChatMessage{edited, reply}, nil
}

// Clear empties the log.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending {
		return ErrBusy
	}
	s.messages = nil
	return nil
}

// generate runs the provider call outside the lock and appends the outcome.
func (s *Session) generate(ctx context.Context, in models.GenerateInput) models.ChatMessage {
	out, err := s.callGenerator(ctx, in)

	var reply models.ChatMessage
	if err != nil {
		reply = models.ChatMessage{ID: s.newID(), Sender: models.SenderSystem, Text: "Error: " + err.Error()}
		log.Warn().Err(err).Str("session", s.ID.String()).Msg("generation failed")
	} else {
		reply = models.ChatMessage{ID: s.newID(), Sender: models.SenderAI, Text: out.Response}
	}

	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.sending = false
	s.mu.Unlock()

	if err != nil {
		s.notify(ctx, models.Notification{Level: "error", Title: "Error generating response", Message: err.Error()})
	}
	return reply
}

// callGenerator turns a panicking or empty generator call into an error so
// the request still resolves to one message and clears the in-flight flag.
func (s *Session) callGenerator(ctx context.Context, in models.GenerateInput) (out *models.GenerateOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("session", s.ID.String()).Msg("generator panicked")
			out, err = nil, fmt.Errorf("generation failed: %v", r)
		}
	}()

	out, err = s.generator.Generate(ctx, in)
	if err == nil && out == nil {
		err = errors.New("generation returned no output")
	}
	return out, err
}

func (s *Session) notify(ctx context.Context, n models.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(context.WithoutCancel(ctx), s.ID, n)
}

// ToTurns converts a log into provider history: system messages are
// dropped, as are turns with neither text nor image.
func ToTurns(messages []models.ChatMessage) []models.ChatTurn {
	turns := make([]models.ChatTurn, 0, len(messages))
	for _, m := range messages {
		var role models.TurnRole
		switch m.Sender {
		case models.SenderUser:
			role = models.RoleUser
		case models.SenderAI:
			role = models.RoleModel
		default:
			continue
		}
		if m.Text == "" && m.ImageURL == "" {
			continue
		}
		turns = append(turns, models.ChatTurn{Role: role, Text: m.Text, PhotoDataURI: m.ImageURL})
	}
	return turns
}

func cloneMessages(in []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(in))
	copy(out, in)
	return out
}
