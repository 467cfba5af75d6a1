package llm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-assistant/internal/llm"
	"github.com/rezonia/invoice-assistant/internal/model"
)

func newModelsServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ListModels(t *testing.T) {
	srv := newModelsServer(t, http.StatusOK, `{
		"object": "list",
		"data": [
			{"id": "llama-3.3-70b-versatile", "object": "model", "created": 1733447754, "owned_by": "Meta"},
			{"id": "gemma2-9b-it", "object": "model", "created": 1693721698, "owned_by": ""}
		]
	}`)
	client := llm.NewClient("test-api-key", llm.WithBaseURL(srv.URL+"/v1"))

	models, err := client.ListModels(context.Background())

	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, llm.ModelInfo{ID: "gemma2-9b-it", OwnedBy: "google", Created: 1693721698}, models[0])
	assert.Equal(t, "Meta", models[1].OwnedBy)
}

func TestClient_ListModelsUpstreamError(t *testing.T) {
	srv := newModelsServer(t, http.StatusUnauthorized, `{"error": {"message": "invalid api key"}}`)
	client := llm.NewClient("bad-key", llm.WithBaseURL(srv.URL+"/v1"))

	_, err := client.ListModels(context.Background())

	require.Error(t, err)
	assert.Equal(t, model.KindUpstream, model.ErrorKind(err))
}

func TestInferOwner(t *testing.T) {
	tests := map[string]string{
		"gpt-4o-mini":            "openai",
		"gemini-2.5-flash":       "google",
		"llama3-70b-8192":        "meta",
		"mixtral-8x7b-32768":     "mistral",
		"qwen-2.5-32b":           "alibaba",
		"deepseek-r1-distill":    "deepseek",
		"whisper-large-v3-turbo": "-",
	}
	for id, want := range tests {
		assert.Equal(t, want, llm.InferOwner(id), id)
	}
}
