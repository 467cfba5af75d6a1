package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rezonia/invoice-assistant/internal/model"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultTimeout = 60 * time.Second
)

// Providers selectable from configuration
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Models known to handle function calling well
const (
	ModelLlama3_70B      = "llama3-70b-8192"
	ModelLlama33_70B     = "llama-3.3-70b-versatile"
	ModelGPT4oMini       = "gpt-4o-mini"
	ModelGemini25Flash   = "gemini-2.5-flash"
	DefaultOpenAIModel   = ModelLlama3_70B
	DefaultGeminiModel   = ModelGemini25Flash
	toolChoiceAuto       = "auto"
	finishReasonToolCall = "tool_calls"
)

var tracer = otel.Tracer("github.com/rezonia/invoice-assistant/internal/llm")

// Client talks to any OpenAI-compatible chat completion API (Groq, OpenAI, OpenRouter)
type Client struct {
	client openai.Client
	model  string
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL string
	timeout time.Duration
	model   string
}

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.baseURL = url
	}
}

// WithTimeout sets custom HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		cfg.timeout = timeout
	}
}

// WithModel sets the model identifier
func WithModel(model string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.model = model
	}
}

func buildConfig(opts []ClientOption) *clientConfig {
	cfg := &clientConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// NewClient creates a new OpenAI-compatible client. SDK retries are
// disabled so each call is a single round trip.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	cfg := buildConfig(opts)
	if cfg.baseURL == "" {
		cfg.baseURL = DefaultBaseURL
	}
	if cfg.model == "" {
		cfg.model = DefaultOpenAIModel
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
		option.WithMaxRetries(0),
	}

	return &Client{
		client: openai.NewClient(clientOpts...),
		model:  cfg.model,
	}
}

// Model returns the configured model identifier
func (c *Client) Model() string {
	return c.model
}

// Complete sends the messages with fn declared as a tool and tool_choice "auto"
func (c *Client) Complete(ctx context.Context, messages []Message, fn FunctionSpec) (*Completion, error) {
	ctx, span := tracer.Start(ctx, "llm.openai.complete", trace.WithAttributes(
		attribute.String("llm.model", c.model),
		attribute.Int("llm.messages", len(messages)),
	))
	defer span.End()

	parameters, err := fn.ParametersMap()
	if err != nil {
		return nil, fmt.Errorf("build tool parameters: %w", err)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
		Tools: []openai.ChatCompletionToolParam{
			{
				Function: openai.FunctionDefinitionParam{
					Name:        fn.Name,
					Description: openai.String(fn.Description),
					Parameters:  openai.FunctionParameters(parameters),
				},
			},
		},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(toolChoiceAuto),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return nil, model.NewUpstreamError(ProviderOpenAI, statusCode(err), fmt.Errorf("chat completion failed: %w", err))
	}

	completion, err := classifyChatCompletion(resp, fn.Name)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("llm.completion_kind", string(completion.Kind)))
	return completion, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case MessageRoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case MessageRoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// classifyChatCompletion maps the first choice onto a Completion
func classifyChatCompletion(resp *openai.ChatCompletion, functionName string) (*Completion, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, model.NewUnrecognizedOutcomeError("no choices in response")
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) > 0 {
		call := choice.Message.ToolCalls[0]
		if call.Function.Name != functionName {
			return nil, model.NewUnrecognizedOutcomeError("model called unknown function %q", call.Function.Name)
		}
		return &Completion{
			Kind:         CompletionFunctionCall,
			FunctionName: call.Function.Name,
			Arguments:    call.Function.Arguments,
		}, nil
	}

	switch choice.FinishReason {
	case "stop", "length", "":
		return &Completion{Kind: CompletionText, Text: choice.Message.Content}, nil
	case finishReasonToolCall:
		return nil, model.NewUnrecognizedOutcomeError("finish reason %q without tool calls", choice.FinishReason)
	default:
		return nil, model.NewUnrecognizedOutcomeError("unsupported finish reason %q", choice.FinishReason)
	}
}

func statusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
