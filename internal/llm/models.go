package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rezonia/invoice-assistant/internal/model"
)

// ModelInfo describes one model advertised by an OpenAI-compatible /models endpoint
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
	Created int64  `json:"created"`
}

// ListModels fetches the models the configured endpoint offers, sorted by id.
// Missing owners are inferred from the model id.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	iter := c.client.Models.ListAutoPaging(ctx)

	var models []ModelInfo
	for iter.Next() {
		m := iter.Current()
		owner := m.OwnedBy
		if owner == "" {
			owner = InferOwner(m.ID)
		}
		models = append(models, ModelInfo{ID: m.ID, OwnedBy: owner, Created: m.Created})
	}
	if err := iter.Err(); err != nil {
		return nil, model.NewUpstreamError(ProviderOpenAI, statusCode(err), fmt.Errorf("list models: %w", err))
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].ID < models[j].ID
	})
	return models, nil
}

// InferOwner guesses the vendor of a model from its id
func InferOwner(modelID string) string {
	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "gpt"), strings.Contains(id, "openai"), strings.HasPrefix(id, "o1"):
		return "openai"
	case strings.Contains(id, "gemini"), strings.Contains(id, "gemma"):
		return "google"
	case strings.Contains(id, "llama"):
		return "meta"
	case strings.Contains(id, "mistral"), strings.Contains(id, "mixtral"):
		return "mistral"
	case strings.Contains(id, "qwen"):
		return "alibaba"
	case strings.Contains(id, "deepseek"):
		return "deepseek"
	default:
		return "-"
	}
}
