package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-assistant/internal/llm"
	"github.com/rezonia/invoice-assistant/pkg/logging"
)

var (
	version = "1.0.0"

	// Global flags
	verbose     bool
	logLevel    string
	apiKey      string
	llmProvider string
	llmBaseURL  string
	llmModel    string
)

var rootCmd = &cobra.Command{
	Use:   "invoice-assistant",
	Short: "Create invoices from a conversation",
	Long: `Invoice Assistant turns a free-form conversation into a structured invoice.

Each message goes to a function-calling model together with the transcript so
far. The model either asks a clarifying question or returns the invoice, whose
total is always recomputed from the line items.

Providers:
  - openai: any OpenAI-compatible endpoint (Groq, OpenAI, OpenRouter)
  - gemini: Google Gemini API

Examples:
  # Start the HTTP API
  invoice-assistant serve --api-key <key>

  # Talk to the assistant in the terminal and save the result as PDF
  invoice-assistant chat --pdf invoice.pdf

  # Render a draft saved as JSON
  invoice-assistant render draft.json -o invoice.pdf

  # Apply database migrations
  invoice-assistant migrate --database-url postgres://...`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for the LLM provider (env: LLM_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&llmProvider, "llm-provider", "", "LLM provider: openai or gemini (env: LLM_PROVIDER)")
	rootCmd.PersistentFlags().StringVar(&llmBaseURL, "llm-base-url", "", "LLM API base URL (env: LLM_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&llmModel, "llm-model", "", "LLM model with function calling support (env: LLM_MODEL)")

	// Load from .env and environment variables if not set via flags
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// A missing .env file is fine
	_ = godotenv.Load()

	envFallback(&logLevel, "LOG_LEVEL")
	envFallback(&apiKey, "LLM_API_KEY")
	envFallback(&llmProvider, "LLM_PROVIDER")
	envFallback(&llmBaseURL, "LLM_BASE_URL")
	envFallback(&llmModel, "LLM_MODEL")

	envFallback(&storeBackend, "STORE_BACKEND")
	envFallback(&databaseURL, "DATABASE_URL")
	envFallback(&boltPath, "BOLT_PATH")
	envFallback(&authSecret, "AUTH_JWT_SECRET")

	if verbose && logLevel == "" {
		logLevel = "debug"
	}
}

func envFallback(target *string, key string) {
	if *target == "" {
		*target = os.Getenv(key)
	}
}

func newLogger() *logging.Logger {
	return logging.New(logLevel)
}

// newCompleter builds the configured model backend
func newCompleter(ctx context.Context) (llm.Completer, error) {
	var opts []llm.ClientOption
	if llmBaseURL != "" {
		opts = append(opts, llm.WithBaseURL(llmBaseURL))
	}
	if llmModel != "" {
		opts = append(opts, llm.WithModel(llmModel))
	}
	return llm.NewCompleter(ctx, llmProvider, apiKey, opts...)
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
