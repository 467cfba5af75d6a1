package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoice-assistant/internal/auth"
	"github.com/rezonia/invoice-assistant/internal/llm"
	"github.com/rezonia/invoice-assistant/internal/metrics"
	"github.com/rezonia/invoice-assistant/internal/store"
	"github.com/rezonia/invoice-assistant/pkg/logging"
)

const (
	// DefaultChatTimeout bounds one chat request including the model round trip
	DefaultChatTimeout = 60 * time.Second
	// ShutdownTimeout bounds how long Run waits for in-flight requests
	ShutdownTimeout = 15 * time.Second
)

// Config holds server configuration
type Config struct {
	Address        string
	LLMProvider    string
	ChatTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AuthSecret     string
	AllowedOrigins []string
	Debug          bool
}

// Server represents the HTTP API server
type Server struct {
	config    *Config
	router    *gin.Engine
	extractor *llm.Extractor
	repo      store.Repository
	avatars   AvatarUploader
	logger    *logging.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option customizes the server's collaborators
type Option func(*Server)

// WithCompleter sets the model backend used by the chat endpoint
func WithCompleter(c llm.Completer) Option {
	return func(s *Server) {
		s.extractor = llm.NewExtractor(c)
	}
}

// WithRepository sets the invoice and profile store
func WithRepository(repo store.Repository) Option {
	return func(s *Server) {
		s.repo = repo
	}
}

// WithAvatarUploader enables profile image uploads
func WithAvatarUploader(u AvatarUploader) Option {
	return func(s *Server) {
		s.avatars = u
	}
}

// WithLogger sets the structured logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics sets the metrics collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a new API server. Without a completer the chat endpoint
// answers with an upstream error; without a repository records live in memory.
func NewServer(config *Config, opts ...Option) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.ChatTimeout <= 0 {
		config.ChatTimeout = DefaultChatTimeout
	}

	s := &Server{
		config:    config,
		router:    gin.New(),
		extractor: llm.NewExtractor(nil),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.repo == nil {
		s.repo = store.NewInMemoryRepository()
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger, s.metrics))
	s.router.Use(cors(config.AllowedOrigins))
	if len(config.AllowedOrigins) == 0 {
		s.logger.Warn("no allowed origins configured, CORS accepts any origin including on bearer routes")
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.router.POST("/api/chat", s.handleChat)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/chat", s.handleChat)
		v1.POST("/invoices/preview", s.handlePreviewInvoice)

		protected := v1.Group("", auth.RequireBearer(s.config.AuthSecret))
		{
			protected.POST("/invoices", s.handleCreateInvoice)
			protected.GET("/invoices", s.handleListInvoices)
			protected.GET("/invoices/summary", s.handleSummary)
			protected.GET("/invoices/:id", s.handleGetInvoice)
			protected.PATCH("/invoices/:id", s.handleUpdateInvoice)
			protected.DELETE("/invoices/:id", s.handleDeleteInvoice)
			protected.GET("/invoices/:id/pdf", s.handleInvoicePDF)

			protected.GET("/profile", s.handleGetProfile)
			protected.PUT("/profile", s.handleUpdateProfile)
			protected.POST("/profile/avatar", s.handleUploadAvatar)
		}
	}
}

// Run serves HTTP until ctx is done, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "address", s.config.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}
