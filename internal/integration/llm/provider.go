package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/integration/common"
	pkghttp "github.com/futig/onboarding-bot/pkg/http"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPrompt = "Ты наставник и эксперт по подбору персонала. Отвечай на русском языке."

var errEmptyCompletion = errors.New("empty completion")

// Provider is one completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIProvider talks to any OpenAI-compatible chat completion API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIProvider(cfg config.LLMConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: p.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// GatewayProvider calls an internal completion gateway over plain HTTP.
type GatewayProvider struct {
	connector   *pkghttp.Connector
	endpoint    string
	model       string
	temperature float32
}

func NewGatewayProvider(cfg config.LLMConfig, logger *zap.Logger) *GatewayProvider {
	return &GatewayProvider{
		connector:   common.NewBaseConnector(common.ServiceLLMGateway, cfg.Gateway.HTTPClientConfig, logger),
		endpoint:    cfg.Gateway.CompleteEndpoint,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (p *GatewayProvider) Name() string { return "gateway" }

func (p *GatewayProvider) Complete(ctx context.Context, prompt string) (string, error) {
	req := &entity.LLMRequest{
		Prompt:      systemPrompt + "\n\n" + prompt,
		Model:       p.model,
		Temperature: p.temperature,
	}

	var resp entity.LLMResponse
	if err := p.connector.DoRequest(ctx, http.MethodPost, p.endpoint, req, &resp); err != nil {
		return "", fmt.Errorf("gateway completion failed: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", errEmptyCompletion
	}
	return resp.Text, nil
}

// NewProviders builds the provider chain selected by cfg.Provider.
// In auto mode the OpenAI provider comes first and the gateway serves as fallback.
func NewProviders(cfg config.LLMConfig, logger *zap.Logger) []Provider {
	var providers []Provider
	switch cfg.Provider {
	case config.LLMProviderOpenAI:
		providers = append(providers, NewOpenAIProvider(cfg))
	case config.LLMProviderGateway:
		providers = append(providers, NewGatewayProvider(cfg, logger))
	default:
		if cfg.APIKey != "" {
			providers = append(providers, NewOpenAIProvider(cfg))
		}
		if cfg.Gateway.Url != "" {
			providers = append(providers, NewGatewayProvider(cfg, logger))
		}
	}
	return providers
}

// isRetryable accepts transport failures, 429 and 5xx from either provider.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errEmptyCompletion) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return pkghttp.IsRetryable(err)
}
