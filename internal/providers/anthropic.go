package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/datauri"
	"modelchat-backend/internal/models"
	"modelchat-backend/internal/prompt"
)

const (
	AnthropicProviderName = "anthropic"

	// Anthropic requires max_tokens on every request.
	anthropicDefaultMaxTokens = 4096
)

type AnthropicProvider struct {
	client *anthropic.Client
}

func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	client := anthropic.NewClient(anthropicOption.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client}
}

func (p *AnthropicProvider) Name() string { return AnthropicProviderName }

func (p *AnthropicProvider) Close() error { return nil }

func (p *AnthropicProvider) Generate(ctx context.Context, req *prompt.Request) (*Result, error) {
	_, name, err := catalog.SplitID(req.Model)
	if err != nil {
		return nil, err
	}

	messages, err := toAnthropicMessages(req)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(name),
		Messages:  messages,
		MaxTokens: anthropicDefaultMaxTokens,
	}
	if cfg := req.Config; cfg != nil {
		if cfg.MaxOutputTokens != nil {
			params.MaxTokens = int64(*cfg.MaxOutputTokens)
		}
		if cfg.Temperature != nil {
			params.Temperature = anthropic.Float(*cfg.Temperature)
		}
		if cfg.TopP != nil {
			params.TopP = anthropic.Float(*cfg.TopP)
		}
		if cfg.TopK != nil {
			params.TopK = anthropic.Int(int64(*cfg.TopK))
		}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, ErrEmptyResponse
	}
	return &Result{Text: text.String()}, nil
}

func toAnthropicMessages(req *prompt.Request) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(req.Messages)+1)
	for i, m := range req.Messages {
		msg, err := toAnthropicMessage(m.Role, m.Content)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, msg)
	}
	if len(req.Prompt) > 0 {
		msg, err := toAnthropicMessage(models.RoleUser, req.Prompt)
		if err != nil {
			return nil, fmt.Errorf("prompt: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func toAnthropicMessage(role models.TurnRole, parts []prompt.Part) (anthropic.MessageParam, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, p := range parts {
		if p.IsMedia() {
			d, err := datauri.Parse(p.Media.URL)
			if err != nil {
				return anthropic.MessageParam{}, fmt.Errorf("invalid image: %w", err)
			}
			blocks = append(blocks, anthropic.NewImageBlockBase64(d.MIMEType, d.Base64))
			continue
		}
		blocks = append(blocks, anthropic.NewTextBlock(p.Text))
	}

	if role == models.RoleModel {
		return anthropic.NewAssistantMessage(blocks...), nil
	}
	return anthropic.NewUserMessage(blocks...), nil
}
