package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-assistant/internal/blob"
	"github.com/rezonia/invoice-assistant/internal/server"
	"github.com/rezonia/invoice-assistant/internal/store"
)

const defaultBoltPath = "data/invoices.db"

var (
	serverAddr     string
	serverDebug    bool
	readTimeout    time.Duration
	writeTimeout   time.Duration
	chatTimeout    time.Duration
	storeBackend   string
	databaseURL    string
	boltPath       string
	authSecret     string
	allowedOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for the invoice assistant.

The API provides endpoints for:
  - POST /api/chat                   - Chat turn (clarification or invoice)
  - POST /api/v1/invoices/preview    - Render a draft as PDF
  - GET  /api/v1/invoices            - List saved invoices (bearer token)
  - GET  /api/v1/invoices/summary    - Dashboard statistics (bearer token)
  - GET  /api/v1/profile             - Account profile (bearer token)
  - GET  /metrics                    - Prometheus metrics
  - GET  /health                     - Health check

Storage backends: memory (default), postgres (DATABASE_URL), bolt (BOLT_PATH).
Avatar uploads are enabled when AVATAR_S3_ENDPOINT and AVATAR_S3_BUCKET are set.

Examples:
  # Start server on default port
  invoice-assistant serve --api-key <key>

  # Use Gemini and Postgres
  invoice-assistant serve --llm-provider gemini --store postgres --database-url postgres://...

  # Start in debug mode
  invoice-assistant serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 2*time.Minute, "HTTP write timeout")
	serveCmd.Flags().DurationVar(&chatTimeout, "chat-timeout", server.DefaultChatTimeout, "Deadline for one chat turn including the model call")
	serveCmd.Flags().StringVar(&storeBackend, "store", "", "Storage backend: memory, postgres, bolt (env: STORE_BACKEND)")
	serveCmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection URL (env: DATABASE_URL)")
	serveCmd.Flags().StringVar(&boltPath, "bolt-path", "", "Bolt database file (env: BOLT_PATH, default data/invoices.db)")
	serveCmd.Flags().StringVar(&authSecret, "auth-secret", "", "HS256 secret for bearer tokens (env: AUTH_JWT_SECRET)")
	serveCmd.Flags().StringSliceVar(&allowedOrigins, "allowed-origins", nil, "CORS origins; empty allows any")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger()
	if boltPath == "" {
		boltPath = defaultBoltPath
	}

	repo, err := store.Open(ctx, store.Config{
		Backend:     storeBackend,
		DatabaseURL: databaseURL,
		BoltPath:    boltPath,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repo.Close()

	opts := []server.Option{
		server.WithRepository(repo),
		server.WithLogger(logger),
	}

	if apiKey != "" {
		completer, err := newCompleter(ctx)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithCompleter(completer))
		logger.Info("llm extraction enabled", "provider", providerName())
	} else {
		logger.Warn("llm extraction disabled (no API key)")
	}

	avatarCfg := avatarConfigFromEnv()
	if avatarCfg.Enabled() {
		avatars, err := blob.NewAvatarStore(avatarCfg)
		if err != nil {
			return fmt.Errorf("avatar store: %w", err)
		}
		opts = append(opts, server.WithAvatarUploader(avatars))
		logger.Info("avatar uploads enabled", "bucket", avatarCfg.Bucket)
	}

	if authSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set, invoice and profile routes will reject every request")
	}

	config := &server.Config{
		Address:        serverAddr,
		LLMProvider:    providerName(),
		ChatTimeout:    chatTimeout,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		AuthSecret:     authSecret,
		AllowedOrigins: allowedOrigins,
		Debug:          serverDebug,
	}

	srv := server.NewServer(config, opts...)

	// Stop on SIGINT/SIGTERM and let Run drain in-flight requests
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func providerName() string {
	if llmProvider == "" {
		return "openai"
	}
	return strings.ToLower(llmProvider)
}

func avatarConfigFromEnv() blob.Config {
	useSSL, _ := strconv.ParseBool(os.Getenv("AVATAR_S3_USE_SSL"))
	return blob.Config{
		Endpoint:      os.Getenv("AVATAR_S3_ENDPOINT"),
		Region:        os.Getenv("AVATAR_S3_REGION"),
		AccessKey:     os.Getenv("AVATAR_S3_ACCESS_KEY"),
		SecretKey:     os.Getenv("AVATAR_S3_SECRET_KEY"),
		Bucket:        os.Getenv("AVATAR_S3_BUCKET"),
		UseSSL:        useSSL,
		PublicBaseURL: os.Getenv("AVATAR_S3_PUBLIC_URL"),
	}
}
