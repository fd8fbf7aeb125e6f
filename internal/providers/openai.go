package providers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	gptLib "github.com/sashabaranov/go-openai"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/models"
	"modelchat-backend/internal/prompt"
)

const OpenAIProviderName = "openai"

// OpenAIProvider talks to the chat completions API, or to any compatible
// endpoint when a base URL is configured.
type OpenAIProvider struct {
	client *gptLib.Client
}

func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	cfg := gptLib.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: gptLib.NewClientWithConfig(cfg)}
}

func (p *OpenAIProvider) Name() string { return OpenAIProviderName }

func (p *OpenAIProvider) Close() error { return nil }

func (p *OpenAIProvider) Generate(ctx context.Context, req *prompt.Request) (*Result, error) {
	_, name, err := catalog.SplitID(req.Model)
	if err != nil {
		return nil, err
	}

	creq := gptLib.ChatCompletionRequest{
		Model:    name,
		Messages: toOpenAIMessages(req),
	}
	applyOpenAIConfig(&creq, req.Config)

	resp, err := p.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	return &Result{Text: text}, nil
}

func applyOpenAIConfig(creq *gptLib.ChatCompletionRequest, cfg *prompt.SamplingConfig) {
	if cfg == nil {
		return
	}
	if cfg.MaxOutputTokens != nil {
		creq.MaxTokens = *cfg.MaxOutputTokens
	}
	if cfg.Temperature != nil {
		creq.Temperature = openAIFloat(*cfg.Temperature)
	}
	if cfg.TopP != nil {
		creq.TopP = openAIFloat(*cfg.TopP)
	}
	if cfg.TopK != nil {
		log.Debug().Int("top_k", *cfg.TopK).Msg("OpenAI does not support topK; ignoring")
	}
}

// openAIFloat keeps an explicit zero on the wire. The request fields are
// omitempty, so 0 is sent as the smallest non-zero float32 instead.
func openAIFloat(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}

func toOpenAIMessages(req *prompt.Request) []gptLib.ChatCompletionMessage {
	out := make([]gptLib.ChatCompletionMessage, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		out = append(out, toOpenAIMessage(m.Role, m.Content))
	}
	if len(req.Prompt) > 0 {
		out = append(out, toOpenAIMessage(models.RoleUser, req.Prompt))
	}
	return out
}

func toOpenAIMessage(role models.TurnRole, parts []prompt.Part) gptLib.ChatCompletionMessage {
	if role == models.RoleModel {
		// assistant messages are text-only
		var text []string
		for _, p := range parts {
			if !p.IsMedia() {
				text = append(text, p.Text)
			}
		}
		return gptLib.ChatCompletionMessage{
			Role:    gptLib.ChatMessageRoleAssistant,
			Content: strings.Join(text, "\n"),
		}
	}

	hasMedia := false
	for _, p := range parts {
		if p.IsMedia() {
			hasMedia = true
			break
		}
	}

	if !hasMedia {
		var text []string
		for _, p := range parts {
			text = append(text, p.Text)
		}
		return gptLib.ChatCompletionMessage{
			Role:    gptLib.ChatMessageRoleUser,
			Content: strings.Join(text, "\n"),
		}
	}

	multi := make([]gptLib.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		if p.IsMedia() {
			multi = append(multi, gptLib.ChatMessagePart{
				Type: gptLib.ChatMessagePartTypeImageURL,
				ImageURL: &gptLib.ChatMessageImageURL{
					URL:    p.Media.URL,
					Detail: gptLib.ImageURLDetailAuto,
				},
			})
			continue
		}
		multi = append(multi, gptLib.ChatMessagePart{
			Type: gptLib.ChatMessagePartTypeText,
			Text: p.Text,
		})
	}
	return gptLib.ChatCompletionMessage{
		Role:         gptLib.ChatMessageRoleUser,
		MultiContent: multi,
	}
}
