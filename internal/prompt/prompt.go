// Package prompt turns chat state into a provider-agnostic generation request.
package prompt

import (
	"strings"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/datauri"
	"modelchat-backend/internal/models"
)

const (
	// ImageNotSupportedResponse is returned when an image-only prompt targets
	// a model without image support.
	ImageNotSupportedResponse = "The selected model does not support images. Please choose a model with image support or remove the image."
	// EmptyPromptResponse is returned when there is nothing to send.
	EmptyPromptResponse = "Please provide a prompt."
	// DefaultImageCaption stands in for the text of an image-only prompt.
	DefaultImageCaption = "Describe this image."
)

// Media references inline content by data URI.
type Media struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

// Part is either a text or a media part; exactly one field is set.
type Part struct {
	Text  string `json:"text,omitempty"`
	Media *Media `json:"media,omitempty"`
}

func TextPart(s string) Part { return Part{Text: s} }

func MediaPart(url string) Part {
	return Part{Media: &Media{URL: url, ContentType: datauri.MIMEType(url)}}
}

func (p Part) IsMedia() bool { return p.Media != nil }

// Message is one history entry of a request.
type Message struct {
	Role    models.TurnRole `json:"role"`
	Content []Part          `json:"content"`
}

// SamplingConfig carries only the parameters the caller set.
type SamplingConfig struct {
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
}

// Request is the provider call descriptor.
type Request struct {
	// Model is the full "<provider>/<name>" identifier.
	Model    string          `json:"model"`
	Prompt   []Part          `json:"prompt"`
	Messages []Message       `json:"messages,omitempty"`
	Config   *SamplingConfig `json:"config,omitempty"`
}

// HasMedia reports whether any part of the request carries media.
func (r *Request) HasMedia() bool {
	for _, p := range r.Prompt {
		if p.IsMedia() {
			return true
		}
	}
	for _, m := range r.Messages {
		for _, p := range m.Content {
			if p.IsMedia() {
				return true
			}
		}
	}
	return false
}

// Result is either a canned reply (no provider call) or a request to send.
type Result struct {
	Canned  string
	Request *Request
}

func (r Result) IsCanned() bool { return r.Request == nil }

// Normalize applies the request-shaping rules:
//  1. image-only prompts to text-only models get a canned refusal; otherwise
//     their image is dropped
//  2. history keeps trimmed text and (for image models) images, and drops
//     turns left empty
//  3. an image without text is captioned with DefaultImageCaption
//  4. nothing to send yields EmptyPromptResponse
//  5. sampling fields are attached only when set
func Normalize(in models.GenerateInput, model catalog.ModelDescriptor) Result {
	text := strings.TrimSpace(in.Prompt)
	image := in.PhotoDataURI

	if image != "" && !model.SupportsImages {
		if text == "" {
			return Result{Canned: ImageNotSupportedResponse}
		}
		image = ""
	}

	messages := buildHistory(in.History, model.SupportsImages)

	var current []Part
	if image != "" {
		current = append(current, MediaPart(image))
		if text == "" {
			text = DefaultImageCaption
		}
	}
	if text != "" {
		current = append(current, TextPart(text))
	}

	if len(current) == 0 && len(messages) == 0 {
		return Result{Canned: EmptyPromptResponse}
	}

	return Result{Request: &Request{
		Model:    model.ID,
		Prompt:   current,
		Messages: messages,
		Config:   buildConfig(in.ModelConfig),
	}}
}

func buildHistory(turns []models.ChatTurn, supportsImages bool) []Message {
	var out []Message
	for _, turn := range turns {
		var content []Part
		if supportsImages && turn.PhotoDataURI != "" {
			content = append(content, MediaPart(turn.PhotoDataURI))
		}
		if t := strings.TrimSpace(turn.Text); t != "" {
			content = append(content, TextPart(t))
		}
		if len(content) == 0 {
			continue
		}
		out = append(out, Message{Role: turn.Role, Content: content})
	}
	return out
}

func buildConfig(mc *models.ModelConfig) *SamplingConfig {
	if mc.IsEmpty() {
		return nil
	}
	return &SamplingConfig{
		MaxOutputTokens: mc.MaxOutputTokens,
		Temperature:     mc.Temperature,
		TopP:            mc.TopP,
		TopK:            mc.TopK,
	}
}
