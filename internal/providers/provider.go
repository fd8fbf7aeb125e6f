package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"modelchat-backend/internal/config"
	"modelchat-backend/internal/prompt"
)

var ErrEmptyResponse = errors.New("provider returned no text")

// Provider sends one normalized request to a hosted model.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *prompt.Request) (*Result, error)
	Close() error
}

// Result is the outcome of a generation call.
type Result struct {
	Text string
}

// Registry maps provider prefixes ("googleai", "openai", ...) to providers.
// It is built once at startup and is read-only afterwards.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// NewRegistryFromConfig registers every provider whose credential is present.
func NewRegistryFromConfig(ctx context.Context, cfg *config.Config) (*Registry, error) {
	var list []Provider

	if cfg.GeminiAPIKey != "" {
		p, err := NewGeminiProvider(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.OpenAIAPIKey != "" {
		list = append(list, NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL))
	}

	if cfg.AnthropicAPIKey != "" {
		list = append(list, NewAnthropicProvider(cfg.AnthropicAPIKey))
	}

	r := NewRegistry(list...)
	log.Info().Strs("providers", r.Names()).Msg("provider registry built")
	return r, nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured", name)
	}
	return p, nil
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Close() {
	for name, p := range r.providers {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Str("provider", name).Msg("failed to close provider")
		}
	}
}
