package cmd

import (
	"log"
	"time"

	"github.com/interviewd/interviewd/internal/llm"
	"github.com/interviewd/interviewd/internal/secrets"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "interviewd"
)

type Config struct {
	Server    *ServerConfig    `mapstructure:"server"`
	Auth      *AuthConfig      `mapstructure:"auth"`
	Registry  *RegistryConfig  `mapstructure:"registry"`
	Interview *InterviewConfig `mapstructure:"interview"`
	Providers *ProvidersConfig `mapstructure:"providers"`
	Models    []llm.ModelSpec  `mapstructure:"models"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read-header-timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle-timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown-timeout"`
	MaxBodyBytes      int64         `mapstructure:"max-body-bytes"`
}

type AuthConfig struct {
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	Secret     string        `mapstructure:"secret"`
	SecretFile string        `mapstructure:"secret-file"`
	TokenTTL   time.Duration `mapstructure:"token-ttl"`
}

type RegistryConfig struct {
	IdleTTL     time.Duration `mapstructure:"idle-ttl"`
	MaxSessions int           `mapstructure:"max-sessions"`
}

type InterviewConfig struct {
	ProviderTimeout time.Duration `mapstructure:"provider-timeout"`
	MaxRetries      int           `mapstructure:"max-retries"`
	RetryBackoff    time.Duration `mapstructure:"retry-backoff"`
}

type ProvidersConfig struct {
	Anthropic *ProviderConfig `mapstructure:"anthropic"`
	OpenAI    *ProviderConfig `mapstructure:"openai"`
	Gemini    *ProviderConfig `mapstructure:"gemini"`
}

type ProviderConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interviewd runs LLM-driven mock job interviews over a cli or an http api",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewd.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// The config file is optional unless explicitly requested.
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound && cfgFile == "" {
			return
		}

		// We can't proceed if the config file parsed with error.
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	if config.Providers == nil {
		config.Providers = &ProvidersConfig{}
	}

	return config, nil
}

// buildFactory assembles the model catalog and per-vendor credentials. A
// vendor without a resolvable api key is left unconfigured so the factory
// reports it only when a model of that vendor is actually requested.
func buildFactory(config *Config, logger *zap.Logger) (*llm.Factory, error) {
	catalog := llm.DefaultCatalog()
	for _, spec := range config.Models {
		if err := catalog.Register(spec); err != nil {
			return nil, err
		}
	}

	providers := make(map[llm.Provider]llm.ProviderConfig)
	vendors := []struct {
		provider llm.Provider
		cfg      *ProviderConfig
		env      string
	}{
		{llm.ProviderAnthropic, config.Providers.Anthropic, "ANTHROPIC_API_KEY"},
		{llm.ProviderOpenAI, config.Providers.OpenAI, "OPENAI_API_KEY"},
		{llm.ProviderGemini, config.Providers.Gemini, "GEMINI_API_KEY"},
	}

	for _, vendor := range vendors {
		cfg := vendor.cfg
		if cfg == nil {
			cfg = &ProviderConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  string(vendor.provider) + " api key",
			File:  cfg.APIKeyFile,
			Value: cfg.APIKey,
			Env:   vendor.env,
		})
		if err != nil {
			logger.Debug("provider left unconfigured", zap.String("provider", string(vendor.provider)), zap.Error(err))
			continue
		}

		providers[vendor.provider] = llm.ProviderConfig{
			APIKey:  apiKey,
			BaseURL: cfg.BaseURL,
		}
	}

	return llm.NewFactory(catalog, providers, logger), nil
}

func buildInterviewConfig(config *Config) *InterviewConfig {
	cfg := config.Interview
	if cfg == nil {
		cfg = &InterviewConfig{}
	}

	return cfg
}
