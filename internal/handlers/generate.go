package handlers

import (
	"context"
	"net/http"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/models"
)

type generationService interface {
	Generate(ctx context.Context, in models.GenerateInput) (*models.GenerateOutput, error)
	AvailableModels(names []string) []catalog.ModelDescriptor
}

type providerNames interface {
	Names() []string
}

type GenerateHandler struct {
	generation   generationService
	providers    providerNames
	defaultModel string
}

func NewGenerateHandler(generation generationService, providers providerNames, defaultModel string) *GenerateHandler {
	return &GenerateHandler{
		generation:   generation,
		providers:    providers,
		defaultModel: defaultModel,
	}
}

// Generate is the stateless entry point: the caller supplies the whole
// history with every request.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var in models.GenerateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Model == "" {
		in.Model = h.defaultModel
	}

	out, err := h.generation.Generate(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// ListModels returns the models whose provider is configured.
func (h *GenerateHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	available := h.generation.AvailableModels(h.providers.Names())

	defaultModel := ""
	for _, m := range available {
		if m.ID == h.defaultModel {
			defaultModel = m.ID
			break
		}
	}
	if defaultModel == "" && len(available) > 0 {
		defaultModel = available[0].ID
	}

	writeJSON(w, http.StatusOK, models.ModelsResponse{
		Models:       available,
		DefaultModel: defaultModel,
	})
}
