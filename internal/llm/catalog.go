package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/interviewd/interviewd/internal/tokenizer"
)

// Provider names a completion backend vendor.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

// ModelSpec holds the static per-model constants the service needs: which
// vendor serves the model, its per-million-unit pricing, the context window,
// and the token encoding used for local unit counting.
type ModelSpec struct {
	ID              string   `mapstructure:"id"`
	Provider        Provider `mapstructure:"provider"`
	PriceIn         float64  `mapstructure:"price-in"`
	PriceOut        float64  `mapstructure:"price-out"`
	ContextWindow   int      `mapstructure:"context-window"`
	MaxOutputTokens int      `mapstructure:"max-output-tokens"`
	Encoding        string   `mapstructure:"encoding"`
}

func (s ModelSpec) validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("model id is required")
	}
	switch s.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("model %q: unknown provider %q", s.ID, s.Provider)
	}
	if s.ContextWindow <= 0 {
		return fmt.Errorf("model %q: context window must be positive", s.ID)
	}
	if s.PriceIn < 0 || s.PriceOut < 0 {
		return fmt.Errorf("model %q: pricing must not be negative", s.ID)
	}
	return nil
}

// Catalog maps model ids to their specs.
type Catalog struct {
	models map[string]ModelSpec
}

// DefaultCatalog returns the built-in model set.
func DefaultCatalog() *Catalog {
	c := &Catalog{models: make(map[string]ModelSpec)}

	for _, spec := range []ModelSpec{
		{
			ID:              "claude-3-5-sonnet",
			Provider:        ProviderAnthropic,
			PriceIn:         3.00,
			PriceOut:        15.00,
			ContextWindow:   200_000,
			MaxOutputTokens: 4096,
			Encoding:        tokenizer.EncodingApprox,
		},
		{
			ID:              "claude-3-sonnet-20240229",
			Provider:        ProviderAnthropic,
			PriceIn:         3.00,
			PriceOut:        15.00,
			ContextWindow:   200_000,
			MaxOutputTokens: 4096,
			Encoding:        tokenizer.EncodingApprox,
		},
		{
			ID:              "gpt-4o",
			Provider:        ProviderOpenAI,
			PriceIn:         2.50,
			PriceOut:        10.00,
			ContextWindow:   128_000,
			MaxOutputTokens: 4096,
			Encoding:        "o200k_base",
		},
		{
			ID:              "gpt-4o-mini",
			Provider:        ProviderOpenAI,
			PriceIn:         0.15,
			PriceOut:        0.60,
			ContextWindow:   128_000,
			MaxOutputTokens: 4096,
			Encoding:        "o200k_base",
		},
		{
			ID:              "gemini-2.5-pro",
			Provider:        ProviderGemini,
			PriceIn:         1.25,
			PriceOut:        10.00,
			ContextWindow:   1_000_000,
			MaxOutputTokens: 8192,
			Encoding:        tokenizer.EncodingApprox,
		},
	} {
		c.models[spec.ID] = spec
	}

	return c
}

// Register adds or overrides a model spec. Config-supplied models go through
// here so deployments can extend the built-in set.
func (c *Catalog) Register(spec ModelSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	if spec.MaxOutputTokens <= 0 {
		spec.MaxOutputTokens = 4096
	}
	c.models[spec.ID] = spec
	return nil
}

// Lookup resolves a model id to its spec.
func (c *Catalog) Lookup(id string) (ModelSpec, error) {
	spec, ok := c.models[strings.TrimSpace(id)]
	if !ok {
		return ModelSpec{}, fmt.Errorf("%w: %q", ErrUnsupportedModel, id)
	}
	return spec, nil
}

// IDs returns the known model ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.models))
	for id := range c.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
