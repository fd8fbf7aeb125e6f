package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/datauri"
	"modelchat-backend/internal/models"
	"modelchat-backend/internal/prompt"
)

const GeminiProviderName = "googleai"

type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string { return GeminiProviderName }

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// Generate runs one chat round trip: history goes into the session, the
// prompt parts are sent as the new user message.
func (p *GeminiProvider) Generate(ctx context.Context, req *prompt.Request) (*Result, error) {
	_, name, err := catalog.SplitID(req.Model)
	if err != nil {
		return nil, err
	}

	model := p.client.GenerativeModel(name)
	applyGeminiConfig(model, req.Config)

	history, err := toGeminiHistory(req.Messages)
	if err != nil {
		return nil, err
	}
	parts, err := toGeminiParts(req.Prompt)
	if err != nil {
		return nil, err
	}

	history, parts, err = geminiMessage(history, parts)
	if err != nil {
		return nil, err
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Warn().Int("candidate", i).Str("finish_reason", cand.FinishReason.String()).Msg("Gemini stopped early")
		}
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	return &Result{Text: text}, nil
}

// geminiMessage picks what SendMessage sends. A history-only request sends
// its last turn, which must be a user turn.
func geminiMessage(history []*genai.Content, parts []genai.Part) ([]*genai.Content, []genai.Part, error) {
	if len(parts) > 0 {
		return history, parts, nil
	}
	if len(history) == 0 {
		return nil, nil, fmt.Errorf("Gemini request has no content")
	}
	last := history[len(history)-1]
	if last.Role != "user" {
		return nil, nil, fmt.Errorf("Gemini request has no user turn to answer")
	}
	return history[:len(history)-1], last.Parts, nil
}

func applyGeminiConfig(model *genai.GenerativeModel, cfg *prompt.SamplingConfig) {
	if cfg == nil {
		return
	}
	if cfg.MaxOutputTokens != nil {
		model.SetMaxOutputTokens(int32(*cfg.MaxOutputTokens))
	}
	if cfg.Temperature != nil {
		model.SetTemperature(float32(*cfg.Temperature))
	}
	if cfg.TopP != nil {
		model.SetTopP(float32(*cfg.TopP))
	}
	if cfg.TopK != nil {
		model.SetTopK(int32(*cfg.TopK))
	}
}

func toGeminiHistory(messages []prompt.Message) ([]*genai.Content, error) {
	history := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		parts, err := toGeminiParts(m.Content)
		if err != nil {
			return nil, err
		}
		role := "user"
		if m.Role == models.RoleModel {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: parts})
	}
	return history, nil
}

func toGeminiParts(parts []prompt.Part) ([]genai.Part, error) {
	out := make([]genai.Part, 0, len(parts))
	for _, part := range parts {
		if part.IsMedia() {
			d, err := datauri.Parse(part.Media.URL)
			if err != nil {
				return nil, fmt.Errorf("invalid image: %w", err)
			}
			out = append(out, genai.Blob{MIMEType: d.MIMEType, Data: d.Data})
			continue
		}
		out = append(out, genai.Text(part.Text))
	}
	return out, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
