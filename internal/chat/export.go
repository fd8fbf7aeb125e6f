package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"

	"modelchat-backend/internal/models"
)

// ImportError rejects a chat file as a whole.
type ImportError struct {
	Index  int // -1 when the file itself is malformed
	Reason string
}

func (e *ImportError) Error() string {
	if e.Index < 0 {
		return "invalid chat file: " + e.Reason
	}
	return fmt.Sprintf("invalid chat file: message %d: %s", e.Index, e.Reason)
}

// importedMessage uses pointers so missing keys can be told apart from
// empty values.
type importedMessage struct {
	ID       *string `json:"id"`
	Sender   *string `json:"sender"`
	Text     *string `json:"text"`
	ImageURL *string `json:"imageUrl"`
}

func (m importedMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Required),
		validation.Field(&m.Sender, validation.Required, validation.In(
			string(models.SenderUser), string(models.SenderAI), string(models.SenderSystem),
		)),
		validation.Field(&m.Text, validation.NotNil),
	)
}

// Export serializes the log as a JSON array of {id, sender, text, imageUrl?}.
func (s *Session) Export() ([]byte, error) {
	return MarshalMessages(s.Messages())
}

// Import replaces the log with the messages in data and appends a system
// notice. Any malformed element rejects the whole file.
func (s *Session) Import(ctx context.Context, data []byte) ([]models.ChatMessage, error) {
	loaded, err := UnmarshalMessages(data)
	if err != nil {
		log.Warn().Err(err).Str("session", s.ID.String()).Msg("chat import rejected")
		s.notify(ctx, models.Notification{Level: "error", Title: "Failed to load chat", Message: err.Error()})
		return nil, err
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.messages = append(loaded, models.ChatMessage{
		ID:     s.newID(),
		Sender: models.SenderSystem,
		Text:   LoadedNotice,
	})
	result := cloneMessages(s.messages)
	s.mu.Unlock()

	s.notify(ctx, models.Notification{Level: "info", Title: "Chat loaded", Message: fmt.Sprintf("Loaded %d messages.", len(loaded))})
	return result, nil
}

func MarshalMessages(messages []models.ChatMessage) ([]byte, error) {
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return json.MarshalIndent(messages, "", "  ")
}

// UnmarshalMessages parses and validates an exported chat file.
func UnmarshalMessages(data []byte) ([]models.ChatMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ImportError{Index: -1, Reason: "expected a JSON array of messages"}
	}
	if raw == nil {
		return nil, &ImportError{Index: -1, Reason: "expected a JSON array of messages"}
	}

	out := make([]models.ChatMessage, 0, len(raw))
	for i, elem := range raw {
		var m importedMessage
		if err := json.Unmarshal(elem, &m); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				return nil, &ImportError{Index: i, Reason: fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)}
			}
			return nil, &ImportError{Index: i, Reason: "expected an object"}
		}
		if err := m.Validate(); err != nil {
			return nil, &ImportError{Index: i, Reason: err.Error()}
		}

		msg := models.ChatMessage{
			ID:     *m.ID,
			Sender: models.Sender(*m.Sender),
			Text:   *m.Text,
		}
		if m.ImageURL != nil {
			msg.ImageURL = *m.ImageURL
		}
		out = append(out, msg)
	}
	return out, nil
}
