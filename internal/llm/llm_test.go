package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-assistant/internal/llm"
	"github.com/rezonia/invoice-assistant/internal/model"
)

// fakeUpstream serves an OpenAI-compatible /chat/completions endpoint
type fakeUpstream struct {
	server   *httptest.Server
	calls    atomic.Int32
	lastBody map[string]any
	status   int
	response string
}

func newFakeUpstream(t *testing.T, status int, response string) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{status: status, response: response}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &f.lastBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.response))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) client() *llm.Client {
	return llm.NewClient("test-api-key", llm.WithBaseURL(f.server.URL+"/v1"), llm.WithModel(llm.ModelLlama3_70B))
}

func toolCallResponse(name, arguments string) string {
	args, _ := json.Marshal(arguments)
	return `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "llama3-70b-8192",
		"choices": [{
			"index": 0,
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": null,
				"tool_calls": [{
					"id": "call_1",
					"type": "function",
					"function": {"name": "` + name + `", "arguments": ` + string(args) + `}
				}]
			}
		}]
	}`
}

func textResponse(finishReason, content string) string {
	text, _ := json.Marshal(content)
	return `{
		"id": "chatcmpl-2",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "llama3-70b-8192",
		"choices": [{
			"index": 0,
			"finish_reason": "` + finishReason + `",
			"message": {"role": "assistant", "content": ` + string(text) + `}
		}]
	}`
}

const completeArguments = `{
	"client_name": "TechCorp",
	"client_email": "billing@techcorp.com",
	"due_date": "2024-03-01",
	"items": [{"description": "Web development", "quantity": 10, "rate": 50}],
	"total": 123456
}`

func ptr(v float64) *float64 { return &v }

// stubCompleter returns a canned completion and records what it was sent
type stubCompleter struct {
	completion *llm.Completion
	err        error
	calls      int
	messages   []llm.Message
	fn         llm.FunctionSpec
}

func (s *stubCompleter) Complete(_ context.Context, messages []llm.Message, fn llm.FunctionSpec) (*llm.Completion, error) {
	s.calls++
	s.messages = messages
	s.fn = fn
	return s.completion, s.err
}

func TestNewClient(t *testing.T) {
	client := llm.NewClient("test-api-key")
	require.NotNil(t, client)
	assert.Equal(t, llm.DefaultOpenAIModel, client.Model())
}

func TestNewClient_WithOptions(t *testing.T) {
	client := llm.NewClient("test-api-key",
		llm.WithBaseURL("https://openrouter.ai/api/v1"),
		llm.WithModel(llm.ModelGPT4oMini),
	)
	require.NotNil(t, client)
	assert.Equal(t, llm.ModelGPT4oMini, client.Model())
}

func TestNewCompleter(t *testing.T) {
	completer, err := llm.NewCompleter(context.Background(), "", "key")
	require.NoError(t, err)
	assert.IsType(t, &llm.Client{}, completer)

	completer, err = llm.NewCompleter(context.Background(), "Gemini", "key")
	require.NoError(t, err)
	assert.IsType(t, &llm.GeminiClient{}, completer)

	_, err = llm.NewCompleter(context.Background(), "anthropic", "key")
	assert.Error(t, err)

	_, err = llm.NewCompleter(context.Background(), llm.ProviderOpenAI, " ")
	assert.Error(t, err)
}

func TestDefaultBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.groq.com/openai/v1", llm.DefaultBaseURL)
}

func TestInvoiceFunction(t *testing.T) {
	fn := llm.InvoiceFunction
	assert.Equal(t, llm.InvoiceFunctionName, fn.Name)
	assert.NotEmpty(t, fn.Description)
	require.NotNil(t, fn.Parameters)

	params := fn.Parameters
	assert.Equal(t, "object", params.Type)
	assert.ElementsMatch(t, []string{"client_name", "client_email", "due_date", "items"}, params.Required)
	assert.Equal(t, "string", params.Properties["client_name"].Type)
	assert.Equal(t, "string", params.Properties["client_email"].Type)
	assert.Contains(t, params.Properties["due_date"].Description, "YYYY-MM-DD")

	items := params.Properties["items"]
	require.NotNil(t, items)
	assert.Equal(t, "array", items.Type)
	require.NotNil(t, items.Items)
	assert.ElementsMatch(t, []string{"description", "quantity", "rate"}, items.Items.Required)
	assert.Equal(t, "number", items.Items.Properties["quantity"].Type)
	assert.Equal(t, "number", items.Items.Properties["rate"].Type)
}

func TestInvoiceFunction_ParametersMap(t *testing.T) {
	params, err := llm.InvoiceFunction.ParametersMap()
	require.NoError(t, err)

	assert.Equal(t, "object", params["type"])
	props, ok := params["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "items")
}

func TestSystemPrompt(t *testing.T) {
	assert.Contains(t, llm.SystemPromptInvoiceAssistant, "create_invoice")
	assert.Contains(t, llm.SystemPromptInvoiceAssistant, "Client Name")
	assert.Contains(t, llm.SystemPromptInvoiceAssistant, "Client Email")
	assert.Contains(t, llm.SystemPromptInvoiceAssistant, "Due Date")
	assert.Contains(t, llm.SystemPromptInvoiceAssistant, "keep them blank")
}

func TestBuildMessages(t *testing.T) {
	history := []model.Turn{
		{Role: model.RoleUser, Content: "Invoice Acme"},
		{Role: model.RoleAssistant, Content: "What is Acme's email?"},
	}

	messages := llm.BuildMessages(history, "ap@acme.com")

	require.Len(t, messages, 4)
	assert.Equal(t, llm.MessageRoleSystem, messages[0].Role)
	assert.Equal(t, llm.SystemPromptInvoiceAssistant, messages[0].Content)
	assert.Equal(t, llm.Message{Role: llm.MessageRoleUser, Content: "Invoice Acme"}, messages[1])
	assert.Equal(t, llm.Message{Role: llm.MessageRoleAssistant, Content: "What is Acme's email?"}, messages[2])
	assert.Equal(t, llm.Message{Role: llm.MessageRoleUser, Content: "ap@acme.com"}, messages[3])
}

func TestBuildMessages_EmptyHistory(t *testing.T) {
	messages := llm.BuildMessages(nil, "hello")

	require.Len(t, messages, 2)
	assert.Equal(t, llm.MessageRoleSystem, messages[0].Role)
	assert.Equal(t, llm.MessageRoleUser, messages[1].Role)
	assert.Equal(t, "hello", messages[1].Content)
}

func TestBuildMessages_Idempotent(t *testing.T) {
	history := []model.Turn{
		{Role: model.RoleUser, Content: "Bill Globex"},
		{Role: model.RoleAssistant, Content: "Due date?"},
	}

	first, err := json.Marshal(llm.BuildMessages(history, "2024-05-01"))
	require.NoError(t, err)
	second, err := json.Marshal(llm.BuildMessages(history, "2024-05-01"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestInterpret_FunctionCall(t *testing.T) {
	outcome, err := llm.Interpret(&llm.Completion{
		Kind:         llm.CompletionFunctionCall,
		FunctionName: llm.InvoiceFunctionName,
		Arguments: `{"client_name":"A","client_email":"a@example.com","due_date":"2024-01-31",
			"items":[{"description":"X","quantity":2,"rate":50},{"description":"Y","quantity":1,"rate":100}]}`,
	})
	require.NoError(t, err)
	require.NoError(t, outcome.Validate())

	assert.True(t, outcome.IsCompleted())
	assert.Equal(t, 200.0, outcome.Invoice.Total)
	assert.Len(t, outcome.Invoice.Items, 2)
}

func TestInterpret_TotalOverflow(t *testing.T) {
	for _, items := range []string{
		`[{"description":"X","quantity":1e308,"rate":10}]`,
		`[{"description":"X","quantity":-1e308,"rate":10}]`,
		`[{"description":"X","quantity":1.7e308,"rate":1},{"description":"Y","quantity":1.7e308,"rate":1}]`,
	} {
		t.Run(items, func(t *testing.T) {
			outcome, err := llm.Interpret(&llm.Completion{
				Kind:         llm.CompletionFunctionCall,
				FunctionName: llm.InvoiceFunctionName,
				Arguments:    `{"client_name":"A","client_email":"a@example.com","due_date":"2024-01-31","items":` + items + `}`,
			})
			assert.Nil(t, outcome)
			var target *model.StructuredOutputError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, "items", target.Field)
		})
	}
}

func TestInterpret_Text(t *testing.T) {
	outcome, err := llm.Interpret(&llm.Completion{Kind: llm.CompletionText, Text: "What is the due date?"})
	require.NoError(t, err)

	assert.True(t, outcome.IsClarification())
	assert.Equal(t, "What is the due date?", outcome.Message)
	assert.Nil(t, outcome.Invoice)
}

func TestInterpret_EmptyText(t *testing.T) {
	outcome, err := llm.Interpret(&llm.Completion{Kind: llm.CompletionText})
	require.NoError(t, err)
	assert.True(t, outcome.IsClarification())
	assert.Empty(t, outcome.Message)
}

func TestInterpret_Unrecognized(t *testing.T) {
	tests := []struct {
		name       string
		completion *llm.Completion
	}{
		{"nil completion", nil},
		{"unknown kind", &llm.Completion{Kind: "image"}},
		{"unknown function", &llm.Completion{Kind: llm.CompletionFunctionCall, FunctionName: "delete_invoice", Arguments: "{}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := llm.Interpret(tt.completion)
			assert.Nil(t, outcome)
			var target *model.UnrecognizedOutcomeError
			assert.ErrorAs(t, err, &target)
		})
	}
}

func TestParseInvoiceArguments_IgnoresModelTotal(t *testing.T) {
	draft, err := llm.ParseInvoiceArguments(completeArguments)
	require.NoError(t, err)
	assert.Equal(t, 0.0, draft.Total)

	outcome := model.NewCompleted(*draft)
	assert.Equal(t, 500.0, outcome.Invoice.Total)
}

func TestParseInvoiceArguments_PartialItem(t *testing.T) {
	draft, err := llm.ParseInvoiceArguments(`{
		"client_name": "Initech",
		"client_email": "",
		"due_date": "",
		"items": [{"description": "Consulting", "quantity": 3}]
	}`)
	require.NoError(t, err)

	require.Len(t, draft.Items, 1)
	item := draft.Items[0]
	assert.Equal(t, "Consulting", item.Description)
	require.NotNil(t, item.Quantity)
	assert.Equal(t, 3.0, *item.Quantity)
	assert.Nil(t, item.Rate)

	outcome := model.NewCompleted(*draft)
	assert.Equal(t, 0.0, outcome.Invoice.Total)
	assert.Equal(t, 3.0, *outcome.Invoice.Items[0].Quantity)
}

func TestParseInvoiceArguments_NullsReadAsBlank(t *testing.T) {
	draft, err := llm.ParseInvoiceArguments(`{
		"client_name": null,
		"client_email": "x@example.com",
		"due_date": null,
		"items": [{"description": null, "quantity": null, "rate": 10}]
	}`)
	require.NoError(t, err)

	assert.Empty(t, draft.ClientName)
	assert.Empty(t, draft.DueDate)
	assert.Empty(t, draft.Items[0].Description)
	assert.Nil(t, draft.Items[0].Quantity)
	require.NotNil(t, draft.Items[0].Rate)
	assert.Equal(t, 10.0, *draft.Items[0].Rate)
}

func TestParseInvoiceArguments_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		arguments string
		field     string
	}{
		{"not json", `{"client_name": "A",`, ""},
		{"empty string", ``, ""},
		{"array instead of object", `[1, 2]`, ""},
		{"missing client_email", `{"client_name":"A","due_date":"2024-01-01","items":[]}`, "client_email"},
		{"missing items", `{"client_name":"A","client_email":"a@b.c","due_date":"2024-01-01"}`, "items"},
		{"items not array", `{"client_name":"A","client_email":"a@b.c","due_date":"2024-01-01","items":"many"}`, "items"},
		{"items null", `{"client_name":"A","client_email":"a@b.c","due_date":"2024-01-01","items":null}`, "items"},
		{"item not object", `{"client_name":"A","client_email":"a@b.c","due_date":"2024-01-01","items":[5]}`, "items[0]"},
		{"quantity as string", `{"client_name":"A","client_email":"a@b.c","due_date":"2024-01-01","items":[{"description":"x","quantity":"two","rate":1}]}`, "items[0]"},
		{"name as number", `{"client_name":42,"client_email":"a@b.c","due_date":"2024-01-01","items":[]}`, "client_name"},
		{"bad due date", `{"client_name":"A","client_email":"a@b.c","due_date":"next friday","items":[]}`, "due_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := llm.ParseInvoiceArguments(tt.arguments)
			assert.Nil(t, draft)
			var target *model.StructuredOutputError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, tt.field, target.Field)
			assert.Equal(t, llm.InvoiceFunctionName, target.Function)
		})
	}
}

func TestExtractor_RejectsEmptyMessage(t *testing.T) {
	stub := &stubCompleter{}
	extractor := llm.NewExtractor(stub)

	for _, msg := range []string{"", "   \n\t"} {
		outcome, err := extractor.Extract(context.Background(), nil, msg)
		assert.Nil(t, outcome)
		var target *model.ValidationError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "message", target.Field)
	}
	assert.Equal(t, 0, stub.calls, "model must not be called for invalid input")
}

func TestExtractor_RejectsUnknownRole(t *testing.T) {
	stub := &stubCompleter{}
	extractor := llm.NewExtractor(stub)

	_, err := extractor.Extract(context.Background(), []model.Turn{{Role: "system", Content: "x"}}, "hi")
	var target *model.ValidationError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "conversationHistory[0].type", target.Field)
	assert.Equal(t, 0, stub.calls)
}

func TestExtractor_SendsSchemaAndMessages(t *testing.T) {
	stub := &stubCompleter{completion: &llm.Completion{Kind: llm.CompletionText, Text: "Who is the client?"}}
	extractor := llm.NewExtractor(stub)

	outcome, err := extractor.Extract(context.Background(), nil, "I need an invoice")
	require.NoError(t, err)

	assert.True(t, outcome.IsClarification())
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, llm.InvoiceFunctionName, stub.fn.Name)
	assert.Equal(t, llm.BuildMessages(nil, "I need an invoice"), stub.messages)
}

// A transcript missing required details is answered in prose by a model
// that follows the instruction; the pipeline must keep that a clarification.
// Whether the model invents details is not detectable here and is an
// accepted gap: only structure and types are guarded.
func TestExtractor_MissingDetailsYieldClarification(t *testing.T) {
	histories := [][]model.Turn{
		nil,
		{{Role: model.RoleUser, Content: "Invoice TechCorp for 10 hours web dev"}},
		{
			{Role: model.RoleUser, Content: "Invoice TechCorp billing@techcorp.com"},
			{Role: model.RoleAssistant, Content: "What is the due date?"},
		},
	}

	for i, history := range histories {
		stub := &stubCompleter{completion: &llm.Completion{Kind: llm.CompletionText, Text: "Could you share the rate?"}}
		outcome, err := llm.NewExtractor(stub).Extract(context.Background(), history, "something")
		require.NoError(t, err, "history %d", i)
		assert.True(t, outcome.IsClarification(), "history %d", i)
		assert.Nil(t, outcome.Invoice, "history %d", i)
	}
}

func TestExtractor_WrapsUntypedCompleterErrors(t *testing.T) {
	stub := &stubCompleter{err: io.ErrUnexpectedEOF}

	_, err := llm.NewExtractor(stub).Extract(context.Background(), nil, "hi")

	var target *model.UpstreamError
	require.ErrorAs(t, err, &target)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestExtractor_NoCompleter(t *testing.T) {
	_, err := llm.NewExtractor(nil).Extract(context.Background(), nil, "hi")

	var target *model.UpstreamError
	require.ErrorAs(t, err, &target)
}

func TestClient_CompletedInvoice(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, toolCallResponse(llm.InvoiceFunctionName, completeArguments))
	extractor := llm.NewExtractor(upstream.client())

	outcome, err := extractor.Extract(context.Background(), nil,
		"Invoice TechCorp billing@techcorp.com due 2024-03-01 for 10 hours at $50/hr web dev")
	require.NoError(t, err)

	require.True(t, outcome.IsCompleted())
	assert.Equal(t, "TechCorp", outcome.Invoice.ClientName)
	assert.Equal(t, "billing@techcorp.com", outcome.Invoice.ClientEmail)
	assert.Equal(t, "2024-03-01", outcome.Invoice.DueDate)
	assert.Equal(t, 500.0, outcome.Invoice.Total)
	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestClient_RequestShape(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, textResponse("stop", "Who is the client?"))
	history := []model.Turn{
		{Role: model.RoleUser, Content: "new invoice"},
		{Role: model.RoleAssistant, Content: "Sure, for whom?"},
	}

	_, err := upstream.client().Complete(context.Background(), llm.BuildMessages(history, "Acme"), llm.InvoiceFunction)
	require.NoError(t, err)

	body := upstream.lastBody
	assert.Equal(t, llm.ModelLlama3_70B, body["model"])
	assert.Equal(t, "auto", body["tool_choice"])

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 4)
	roles := make([]string, 0, len(messages))
	for _, m := range messages {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)

	tools, ok := body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	function := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, llm.InvoiceFunctionName, function["name"])
	assert.Equal(t, "object", function["parameters"].(map[string]any)["type"])
}

func TestClient_Clarification(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, textResponse("stop", "What is the client's email address?"))

	outcome, err := llm.NewExtractor(upstream.client()).Extract(context.Background(), nil, "Invoice TechCorp")
	require.NoError(t, err)

	assert.True(t, outcome.IsClarification())
	assert.Equal(t, "What is the client's email address?", outcome.Message)
}

func TestClient_MalformedArguments(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, toolCallResponse(llm.InvoiceFunctionName, `{"client_name": "TechCorp", "items": [`))

	outcome, err := llm.NewExtractor(upstream.client()).Extract(context.Background(), nil, "Invoice TechCorp")

	assert.Nil(t, outcome)
	var target *model.StructuredOutputError
	assert.ErrorAs(t, err, &target)
}

func TestClient_UnknownFunction(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, toolCallResponse("send_email", `{}`))

	_, err := upstream.client().Complete(context.Background(), llm.BuildMessages(nil, "hi"), llm.InvoiceFunction)

	var target *model.UnrecognizedOutcomeError
	assert.ErrorAs(t, err, &target)
}

func TestClient_UnsupportedFinishReason(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, textResponse("content_filter", ""))

	_, err := upstream.client().Complete(context.Background(), llm.BuildMessages(nil, "hi"), llm.InvoiceFunction)

	var target *model.UnrecognizedOutcomeError
	assert.ErrorAs(t, err, &target)
}

func TestClient_ToolCallsFinishWithoutCalls(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, textResponse("tool_calls", ""))

	_, err := upstream.client().Complete(context.Background(), llm.BuildMessages(nil, "hi"), llm.InvoiceFunction)

	var target *model.UnrecognizedOutcomeError
	assert.ErrorAs(t, err, &target)
}

func TestClient_NoChoices(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)

	_, err := upstream.client().Complete(context.Background(), llm.BuildMessages(nil, "hi"), llm.InvoiceFunction)

	var target *model.UnrecognizedOutcomeError
	assert.ErrorAs(t, err, &target)
}

func TestClient_UpstreamFailureIsNotRetried(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusServiceUnavailable, `{"error": {"message": "overloaded", "type": "server_error"}}`)

	outcome, err := llm.NewExtractor(upstream.client()).Extract(context.Background(), nil, "Invoice TechCorp")

	assert.Nil(t, outcome)
	var target *model.UpstreamError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, http.StatusServiceUnavailable, target.StatusCode)
	assert.Equal(t, llm.ProviderOpenAI, target.Provider)
	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestClient_CanceledContext(t *testing.T) {
	upstream := newFakeUpstream(t, http.StatusOK, textResponse("stop", "hi"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := llm.NewExtractor(upstream.client()).Extract(ctx, nil, "Invoice TechCorp")

	var target *model.UpstreamError
	assert.ErrorAs(t, err, &target)
}

// Benchmark tests

func BenchmarkBuildMessages(b *testing.B) {
	history := make([]model.Turn, 0, 20)
	for i := 0; i < 10; i++ {
		history = append(history,
			model.Turn{Role: model.RoleUser, Content: "line item details"},
			model.Turn{Role: model.RoleAssistant, Content: "what is the rate?"},
		)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		llm.BuildMessages(history, "50 per hour")
	}
}

func BenchmarkParseInvoiceArguments(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = llm.ParseInvoiceArguments(completeArguments)
	}
}
