package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/interviewd/interviewd/internal/auth"
	"github.com/interviewd/interviewd/internal/interview"
	"github.com/interviewd/interviewd/internal/logger"
	"github.com/interviewd/interviewd/internal/secrets"
	"github.com/interviewd/interviewd/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// The stub credential pair guarding the API when none is configured.
const (
	defaultAPIUsername = "testuser"
	defaultAPIPassword = "testpassword"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interviewd http api",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address for the http api (default :8080)")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("listen"))
}

func serve(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the interviewd api", zap.String("version", version))

	factory, err := buildFactory(config, logger)
	if err != nil {
		logger.Fatal("building the model catalog", zap.Error(err))
	}

	// Idle API sessions are evicted after two hours unless configured otherwise.
	registryCfg := interview.RegistryConfig{IdleTTL: 2 * time.Hour}
	if config.Registry != nil {
		if config.Registry.IdleTTL > 0 {
			registryCfg.IdleTTL = config.Registry.IdleTTL
		}
		registryCfg.MaxSessions = config.Registry.MaxSessions
	}
	registry := interview.NewRegistry(factory, registryCfg, logger)

	interviewCfg := buildInterviewConfig(config)
	controller := interview.NewController(interview.ControllerConfig{
		ProviderTimeout: interviewCfg.ProviderTimeout,
		MaxRetries:      interviewCfg.MaxRetries,
		RetryBackoff:    interviewCfg.RetryBackoff,
	}, logger)

	authenticator, err := buildAuthenticator(config)
	if err != nil {
		logger.Fatal("building the authenticator", zap.Error(err))
	}

	srv := server.New(registry, controller, authenticator, buildServerConfig(config), logger)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("running the http api", zap.Error(err))
	}

	logger.Info("interviewd api stopped")
}

func buildServerConfig(config *Config) server.Config {
	cfg := server.Config{}
	if config.Server == nil {
		return cfg
	}

	cfg.Addr = config.Server.Addr
	cfg.ReadHeaderTimeout = config.Server.ReadHeaderTimeout
	cfg.IdleTimeout = config.Server.IdleTimeout
	cfg.ShutdownTimeout = config.Server.ShutdownTimeout
	cfg.MaxBodyBytes = config.Server.MaxBodyBytes

	return cfg
}

func buildAuthenticator(config *Config) (*auth.Authenticator, error) {
	authCfg := config.Auth
	if authCfg == nil {
		authCfg = &AuthConfig{}
	}

	secret, err := secrets.Load(secrets.Source{
		Name:  "jwt signing secret",
		File:  authCfg.SecretFile,
		Value: authCfg.Secret,
		Env:   "INTERVIEWD_JWT_SECRET",
	})
	if err != nil {
		return nil, err
	}

	username := authCfg.Username
	if username == "" {
		username = defaultAPIUsername
	}
	password := authCfg.Password
	if password == "" {
		password = defaultAPIPassword
	}

	return auth.New(auth.Config{
		Username: username,
		Password: password,
		Secret:   secret,
		TokenTTL: authCfg.TokenTTL,
	})
}
