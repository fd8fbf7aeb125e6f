package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/datauri"
	"modelchat-backend/internal/models"
	"modelchat-backend/internal/prompt"
	"modelchat-backend/internal/providers"
)

type providerLookup interface {
	Get(name string) (providers.Provider, error)
}

// GenerationService is the single entry point for producing a model reply.
type GenerationService struct {
	catalog   *catalog.Catalog
	providers providerLookup
	timeout   time.Duration
}

// NewGenerationService wires the catalog and provider registry. A zero
// timeout leaves provider calls unbounded.
func NewGenerationService(cat *catalog.Catalog, registry providerLookup, timeout time.Duration) *GenerationService {
	return &GenerationService{
		catalog:   cat,
		providers: registry,
		timeout:   timeout,
	}
}

// Generate normalizes the input and performs at most one provider call.
// Canned replies (nothing to send, image for a text-only model) are
// returned without contacting a provider.
func (s *GenerationService) Generate(ctx context.Context, in models.GenerateInput) (*models.GenerateOutput, error) {
	if err := validateGenerateInput(&in); err != nil {
		return nil, err
	}

	model, err := s.catalog.Lookup(in.Model)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"model": "unknown model"}}
	}

	provider, err := s.providers.Get(model.Provider)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"model": fmt.Sprintf("provider %s is not configured", model.Provider)}}
	}

	res := prompt.Normalize(in, *model)
	if res.IsCanned() {
		log.Debug().Str("model", model.ID).Str("reply", res.Canned).Msg("canned reply, provider not called")
		return &models.GenerateOutput{Response: res.Canned}, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := provider.Generate(ctx, res.Request)
	if err != nil {
		log.Error().Err(err).Str("model", model.ID).Dur("elapsed", time.Since(start)).Msg("generation failed")
		return nil, &ProviderError{Provider: model.Provider, Err: err}
	}
	if out == nil || out.Text == "" {
		return nil, &ProviderError{Provider: model.Provider, Err: providers.ErrEmptyResponse}
	}

	log.Info().
		Str("model", model.ID).
		Int("history", len(res.Request.Messages)).
		Bool("media", res.Request.HasMedia()).
		Dur("elapsed", time.Since(start)).
		Msg("generation completed")

	return &models.GenerateOutput{Response: out.Text}, nil
}

// AvailableModels lists catalog models whose provider is registered.
func (s *GenerationService) AvailableModels(names []string) []catalog.ModelDescriptor {
	return s.catalog.ListAvailable(names)
}

func validateGenerateInput(in *models.GenerateInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Model, validation.Required),
		validation.Field(&in.PhotoDataURI, validation.By(imageDataURI)),
		validation.Field(&in.History, validation.Each(validation.By(validateTurn))),
		validation.Field(&in.ModelConfig, validation.By(validateModelConfig)),
	)
	return toValidationError(err)
}

func validateTurn(value interface{}) error {
	turn, ok := value.(models.ChatTurn)
	if !ok {
		return errors.New("invalid turn")
	}
	return validation.ValidateStruct(&turn,
		validation.Field(&turn.Role, validation.Required, validation.In(models.RoleUser, models.RoleModel)),
		validation.Field(&turn.PhotoDataURI, validation.By(imageDataURI)),
	)
}

func validateModelConfig(value interface{}) error {
	mc, _ := value.(*models.ModelConfig)
	if mc == nil {
		return nil
	}
	return validation.ValidateStruct(mc,
		validation.Field(&mc.MaxOutputTokens, validation.By(positiveInt)),
		validation.Field(&mc.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&mc.TopP, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&mc.TopK, validation.By(positiveInt)),
	)
}

func positiveInt(value interface{}) error {
	n, _ := value.(*int)
	if n != nil && *n < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}

func imageDataURI(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := datauri.Parse(s)
	if err != nil {
		return errors.New("must be a base64 data URI")
	}
	if !d.IsImage() {
		return errors.New("must be an image")
	}
	return nil
}

// toValidationError flattens ozzo errors into dotted field paths.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string]string)
	flatten("", errs, fields)
	return &ValidationError{Fields: fields}
}

func flatten(prefix string, errs validation.Errors, out map[string]string) {
	for key, err := range errs {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			flatten(path, nested, out)
			continue
		}
		out[path] = err.Error()
	}
}
