package ai

import (
	"context"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
)

type Config struct {
	Endpoint   string
	APIKey     string
	Deployment string
}

// Client wraps the Azure OpenAI chat API. A Client built without credentials
// is disabled and every report falls back to raw data.
type Client struct {
	client     *openai.Client
	deployment string
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger, opts ...option.RequestOption) *Client {
	logger = global.OrNop(logger)
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		logger.Info("AI service disabled - Azure OpenAI credentials not provided",
			zap.Strings("required", []string{"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_KEY"}))
		return &Client{logger: logger}
	}

	deployment := cfg.Deployment
	if deployment == "" {
		deployment = "gpt-35-turbo" // Default deployment name
	}

	opts = append([]option.RequestOption{
		option.WithBaseURL(cfg.Endpoint),
		option.WithAPIKey(cfg.APIKey),
	}, opts...)
	clientValue := openai.NewClient(opts...)

	logger.Info("AI service initialized with Azure OpenAI", zap.String("deployment", deployment))
	return &Client{client: &clientValue, deployment: deployment, logger: logger}
}

// IsEnabled returns whether the AI service is properly initialized
func (c *Client) IsEnabled() bool {
	return c != nil && c.client != nil
}

func (c *Client) generateCompletion(ctx context.Context, systemMessage, userMessage string) (string, error) {
	if !c.IsEnabled() {
		return "", &AIError{Message: "AI service is not enabled"}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(systemMessage),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(userMessage),
					},
				},
			},
		},
		MaxTokens:   openai.Int(800),
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		c.logger.Warn("AI API error", zap.Error(err))
		return "", &AIError{Message: "Failed to generate AI response", Cause: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &AIError{Message: "AI returned empty response"}
	}

	return resp.Choices[0].Message.Content, nil
}

// AIError represents an AI service error
type AIError struct {
	Message string
	Cause   error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AIError) Unwrap() error {
	return e.Cause
}
