package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-assistant/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available LLM models from API",
	Long: `Fetch and list the models offered by the configured OpenAI-compatible
endpoint. The chosen model must support function calling.

To use a specific model, set LLM_MODEL or pass --llm-model <model-id>.`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	baseURL := llmBaseURL
	if baseURL == "" {
		baseURL = llm.DefaultBaseURL
	}
	currentModel := llmModel
	if currentModel == "" {
		currentModel = "(default)"
	}
	apiKeyStatus := "Not set"
	if apiKey != "" {
		apiKeyStatus = "Set"
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("  LLM_PROVIDER:  %s\n", providerName())
	fmt.Printf("  LLM_BASE_URL:  %s\n", baseURL)
	fmt.Printf("  LLM_MODEL:     %s\n", currentModel)
	fmt.Printf("  LLM_API_KEY:   %s\n", apiKeyStatus)
	fmt.Println()

	if providerName() == llm.ProviderGemini {
		fmt.Printf("Gemini models are not listed here. Default: %s\n", llm.DefaultGeminiModel)
		return nil
	}
	if apiKey == "" {
		fmt.Println("LLM_API_KEY is required. Set it via environment variable or --api-key flag.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := llm.NewClient(apiKey, llm.WithBaseURL(baseURL))
	models, err := client.ListModels(ctx)
	if err != nil {
		fmt.Printf("Could not fetch models: %v\n", err)
		fmt.Println("Your provider may not support the /models endpoint. You can still set LLM_MODEL directly.")
		return nil
	}
	if len(models) == 0 {
		fmt.Println("No models returned from API.")
		return nil
	}

	fmt.Printf("Available Models (%d):\n\n", len(models))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL ID\tOWNER\tCREATED")
	fmt.Fprintln(w, "--------\t-----\t-------")
	for _, m := range models {
		created := ""
		if m.Created > 0 {
			created = time.Unix(m.Created, 0).UTC().Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.OwnedBy, created)
	}
	return w.Flush()
}
