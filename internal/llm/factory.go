package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/interviewd/interviewd/internal/logger"
)

// ProviderConfig carries the per-vendor connection settings.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api-key"`
	BaseURL string `mapstructure:"base-url"`
}

// Factory builds Completers from the model catalog and per-vendor
// configuration. Selection is driven entirely by the catalog entry; call
// sites never branch on model name.
type Factory struct {
	catalog   *Catalog
	providers map[Provider]ProviderConfig
	log       *zap.Logger
}

// NewFactory creates a Factory over the given catalog and vendor configs.
func NewFactory(catalog *Catalog, providers map[Provider]ProviderConfig, log *zap.Logger) *Factory {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if providers == nil {
		providers = make(map[Provider]ProviderConfig)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Factory{catalog: catalog, providers: providers, log: log}
}

// Catalog exposes the factory's model catalog.
func (f *Factory) Catalog() *Catalog {
	return f.catalog
}

// Completer resolves the model id and constructs a Completer for its vendor.
// An unknown model id yields ErrUnsupportedModel; a known model whose vendor
// has no credentials configured is a configuration error.
func (f *Factory) Completer(ctx context.Context, modelID string) (Completer, ModelSpec, error) {
	spec, err := f.catalog.Lookup(modelID)
	if err != nil {
		return nil, ModelSpec{}, err
	}

	cfg, ok := f.providers[spec.Provider]
	if !ok || cfg.APIKey == "" {
		return nil, ModelSpec{}, fmt.Errorf("provider %q is not configured for model %q", spec.Provider, spec.ID)
	}

	log := logger.WithCommonFields(f.log, string(spec.Provider), spec.ID)

	var completer Completer
	switch spec.Provider {
	case ProviderAnthropic:
		completer, err = NewAnthropicClient(cfg.APIKey, cfg.BaseURL, spec)
	case ProviderOpenAI:
		completer, err = NewOpenAIClient(cfg.APIKey, cfg.BaseURL, spec)
	case ProviderGemini:
		completer, err = NewGeminiClient(ctx, cfg.APIKey, cfg.BaseURL, spec)
	default:
		err = fmt.Errorf("no client for provider %q", spec.Provider)
	}
	if err != nil {
		return nil, ModelSpec{}, fmt.Errorf("building %s completer: %w", spec.Provider, err)
	}

	log.Debug("completion client ready")

	return completer, spec, nil
}
