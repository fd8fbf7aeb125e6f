package models

import "modelchat-backend/internal/catalog"

// Sender identifies who produced a ChatMessage.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// ChatMessage is one entry of the conversation log, and also the element
// shape of the exported chat file.
type ChatMessage struct {
	ID       string `json:"id"`
	Sender   Sender `json:"sender"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"` // data URI
}

// TurnRole is the wire role of a ChatTurn.
type TurnRole string

const (
	RoleUser  TurnRole = "user"
	RoleModel TurnRole = "model"
)

// ChatTurn is a history entry as sent to the generate endpoint.
type ChatTurn struct {
	Role         TurnRole `json:"role"`
	Text         string   `json:"text,omitempty"`
	PhotoDataURI string   `json:"photoDataUri,omitempty"`
}

// ModelConfig holds optional sampling parameters. A nil field means
// "use the provider default".
type ModelConfig struct {
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
}

// IsEmpty reports whether no sampling field is set.
func (c *ModelConfig) IsEmpty() bool {
	return c == nil || (c.MaxOutputTokens == nil && c.Temperature == nil && c.TopP == nil && c.TopK == nil)
}

// GenerateInput is the payload of the generate endpoint.
type GenerateInput struct {
	Prompt       string       `json:"prompt,omitempty"`
	Model        string       `json:"model"`
	PhotoDataURI string       `json:"photoDataUri,omitempty"`
	History      []ChatTurn   `json:"history,omitempty"`
	ModelConfig  *ModelConfig `json:"modelConfig,omitempty"`
}

// GenerateOutput is the reply of the generate endpoint.
type GenerateOutput struct {
	Response string `json:"response"`
}

// SendMessageRequest is the payload for posting a new user message to a session.
type SendMessageRequest struct {
	Text        string       `json:"text"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Model       string       `json:"model"`
	ModelConfig *ModelConfig `json:"modelConfig,omitempty"`
}

// EditMessageRequest replaces a user message and regenerates from it.
// A nil ImageURL keeps the original image; an empty string removes it.
type EditMessageRequest struct {
	Text        string       `json:"text"`
	ImageURL    *string      `json:"imageUrl,omitempty"`
	Model       string       `json:"model"`
	ModelConfig *ModelConfig `json:"modelConfig,omitempty"`
}

// SessionResponse describes a chat session and its log.
type SessionResponse struct {
	ID       string        `json:"id"`
	Sending  bool          `json:"sending"`
	Messages []ChatMessage `json:"messages"`
}

// MessagesResponse carries the messages appended by a send or edit.
type MessagesResponse struct {
	Messages []ChatMessage `json:"messages"`
}

// ModelsResponse lists the selectable models.
type ModelsResponse struct {
	Models       []catalog.ModelDescriptor `json:"models"`
	DefaultModel string                    `json:"default_model,omitempty"`
}
