package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/rezonia/invoice-assistant/internal/model"
)

// GeminiClient implements Completer on top of the Gemini API
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed completer
func NewGeminiClient(ctx context.Context, apiKey string, opts ...ClientOption) (*GeminiClient, error) {
	cfg := buildConfig(opts)
	if cfg.model == "" {
		cfg.model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.timeout},
	}
	if cfg.baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.model}, nil
}

// Model returns the configured model identifier
func (g *GeminiClient) Model() string {
	return g.model
}

// Complete declares fn with automatic function calling and sends the transcript
func (g *GeminiClient) Complete(ctx context.Context, messages []Message, fn FunctionSpec) (*Completion, error) {
	ctx, span := tracer.Start(ctx, "llm.gemini.complete", trace.WithAttributes(
		attribute.String("llm.model", g.model),
		attribute.Int("llm.messages", len(messages)),
	))
	defer span.End()

	system, contents := toGeminiContents(messages)
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{FunctionDeclarations: []*genai.FunctionDeclaration{toGeminiFunction(fn)}},
		},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		},
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return nil, model.NewUpstreamError(ProviderGemini, 0, fmt.Errorf("gemini generate content: %w", err))
	}

	completion, err := classifyGeminiResponse(res, fn.Name)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("llm.completion_kind", string(completion.Kind)))
	return completion, nil
}

// toGeminiContents splits system messages off into a single instruction and
// maps the rest to user/model contents
func toGeminiContents(messages []Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case MessageRoleSystem:
			system = append(system, m.Content)
		case MessageRoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func toGeminiFunction(fn FunctionSpec) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        fn.Name,
		Description: fn.Description,
		Parameters:  toGeminiSchema(fn.Parameters),
	}
}

func toGeminiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
		Items:       toGeminiSchema(s.Items),
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGeminiSchema(prop)
		}
	}
	return out
}

func classifyGeminiResponse(res *genai.GenerateContentResponse, functionName string) (*Completion, error) {
	if res == nil || len(res.Candidates) == 0 {
		return nil, model.NewUnrecognizedOutcomeError("no candidates in response")
	}

	if calls := res.FunctionCalls(); len(calls) > 0 {
		call := calls[0]
		if call.Name != functionName {
			return nil, model.NewUnrecognizedOutcomeError("model called unknown function %q", call.Name)
		}
		args, err := json.Marshal(call.Args)
		if err != nil {
			return nil, model.NewStructuredOutputError(functionName, "", "arguments are not serializable", err)
		}
		return &Completion{
			Kind:         CompletionFunctionCall,
			FunctionName: call.Name,
			Arguments:    string(args),
		}, nil
	}

	switch reason := res.Candidates[0].FinishReason; reason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop, genai.FinishReasonMaxTokens:
		return &Completion{Kind: CompletionText, Text: res.Text()}, nil
	default:
		return nil, model.NewUnrecognizedOutcomeError("unsupported finish reason %q", reason)
	}
}
