package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"assessment-relay/handler"
	"assessment-relay/internal/config"
	"assessment-relay/internal/integrations/llm"
	"assessment-relay/internal/integrations/paramstore"
	"assessment-relay/internal/integrations/webhook"
	"assessment-relay/internal/usecase"
	"assessment-relay/internal/validation"
)

// NewHandler wires every component from cfg.
func NewHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*handler.Handler, error) {
	keys, err := keySource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("credential check",
		"provider", cfg.AI.Provider,
		"key_configured", cfg.AI.APIKey != "",
		"key_prefix", maskKey(cfg.AI.APIKey),
		"param_store", cfg.APIKeyParameter() != "" && cfg.AI.APIKey == "")

	client, err := llm.NewClient(cfg.AI.Provider, keys,
		llm.WithBaseURL(cfg.AI.BaseURL),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.AI.Timeout}),
		llm.WithTemperature(cfg.AI.Temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create llm client: %w", err)
	}

	chat, err := usecase.NewChatService(client, usecase.Models{
		Primary:         cfg.AI.Model,
		Fallback:        cfg.AI.FallbackModel,
		FallbackEnabled: cfg.AI.FallbackEnabled,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}

	dispatcher := webhook.New(cfg.Webhook.URL,
		webhook.WithHTTPClient(&http.Client{Timeout: cfg.Webhook.Timeout}),
		webhook.WithSource(cfg.Webhook.Source),
		webhook.WithProvider(client.Provider()),
	)
	if !dispatcher.Enabled() {
		logger.Info("no webhook URL configured, consultation dispatch disabled")
	}
	consult, err := usecase.NewConsultationService(dispatcher, logger)
	if err != nil {
		return nil, fmt.Errorf("app: create consultation service: %w", err)
	}

	v, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("app: create validator: %w", err)
	}

	h, err := handler.NewHandler(chat, consult, v,
		handler.WithAllowedOrigin(cfg.AllowedOrigin),
		handler.WithDefaultMaxTokens(cfg.AI.DefaultMaxTokens),
		handler.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}
	return h, nil
}

// keySource prefers the key from the environment and falls back to
// Parameter Store when PARAM_PREFIX is set.
func keySource(ctx context.Context, cfg *config.Config) (llm.KeySource, error) {
	name := cfg.APIKeyParameter()
	if cfg.AI.APIKey != "" || name == "" {
		return llm.StaticKey(cfg.AI.APIKey), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}
	keys, err := llm.NewParamStoreKey(ps, name)
	if err != nil {
		return nil, fmt.Errorf("app: create param store key: %w", err)
	}
	return keys, nil
}

func maskKey(key string) string {
	if len(key) <= 7 {
		return ""
	}
	return key[:7] + "..."
}
