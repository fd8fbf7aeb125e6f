package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var defaultModels []byte

var ErrUnknownModel = errors.New("unknown model")

// ModelDescriptor describes one selectable model.
type ModelDescriptor struct {
	// ID is "<provider>/<name>" and is what clients send as the model identifier.
	ID             string `json:"id"`
	Provider       string `json:"provider"`
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	Description    string `json:"description,omitempty"`
	SupportsImages bool   `json:"supports_images"`
}

type modelEntry struct {
	DisplayName    string `yaml:"display_name"`
	Description    string `yaml:"description"`
	SupportsImages bool   `yaml:"supports_images"`
}

// Catalog is an immutable, ordered set of model descriptors.
type Catalog struct {
	models []ModelDescriptor
	byID   map[string]int
}

// NewCatalog loads the embedded model list.
func NewCatalog() (*Catalog, error) {
	return Parse(defaultModels)
}

// Parse builds a catalog from YAML, keeping provider and model order as written.
func Parse(data []byte) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("model catalog is empty")
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("model catalog must be a mapping of providers")
	}

	c := &Catalog{byID: make(map[string]int)}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		provider := doc.Content[i].Value
		modelsNode := doc.Content[i+1]
		if modelsNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("provider %s: models must be a mapping", provider)
		}

		for j := 0; j+1 < len(modelsNode.Content); j += 2 {
			name := modelsNode.Content[j].Value
			var entry modelEntry
			if err := modelsNode.Content[j+1].Decode(&entry); err != nil {
				return nil, fmt.Errorf("model %s/%s: %w", provider, name, err)
			}

			desc := ModelDescriptor{
				ID:             provider + "/" + name,
				Provider:       provider,
				Name:           name,
				DisplayName:    entry.DisplayName,
				Description:    entry.Description,
				SupportsImages: entry.SupportsImages,
			}
			if desc.DisplayName == "" {
				desc.DisplayName = name
			}
			if _, dup := c.byID[desc.ID]; dup {
				return nil, fmt.Errorf("duplicate model %s", desc.ID)
			}
			c.byID[desc.ID] = len(c.models)
			c.models = append(c.models, desc)
		}
	}

	return c, nil
}

// Lookup finds a model by exact identifier.
func (c *Catalog) Lookup(id string) (*ModelDescriptor, error) {
	idx, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	m := c.models[idx]
	return &m, nil
}

// List returns every model in catalog order.
func (c *Catalog) List() []ModelDescriptor {
	out := make([]ModelDescriptor, len(c.models))
	copy(out, c.models)
	return out
}

// ListAvailable returns the models whose provider is in providers.
func (c *Catalog) ListAvailable(providers []string) []ModelDescriptor {
	enabled := make(map[string]bool, len(providers))
	for _, p := range providers {
		enabled[p] = true
	}

	out := make([]ModelDescriptor, 0, len(c.models))
	for _, m := range c.models {
		if enabled[m.Provider] {
			out = append(out, m)
		}
	}
	return out
}

// SplitID separates "<provider>/<name>". The name may itself contain slashes.
func SplitID(id string) (provider, name string, err error) {
	provider, name, ok := strings.Cut(id, "/")
	if !ok || provider == "" || name == "" {
		return "", "", fmt.Errorf("model id %q is not of the form <provider>/<model>", id)
	}
	return provider, name, nil
}
