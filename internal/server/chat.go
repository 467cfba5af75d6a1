package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoice-assistant/internal/model"
)

const chatFailureMessage = "failed to process chat message"

func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.ObserveChat(model.KindValidation)
		s.respondError(c, model.NewValidationError("body", nil, "binding", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.ChatTimeout)
	defer cancel()

	start := time.Now()
	outcome, err := s.extractor.Extract(ctx, req.Turns(), req.Message)
	if model.ErrorKind(err) != model.KindValidation {
		s.metrics.ObserveModelLatency(s.providerLabel(), time.Since(start).Seconds())
	}
	if err != nil {
		s.metrics.ObserveChat(model.ErrorKind(err))
		s.respondError(c, err)
		return
	}

	s.metrics.ObserveChat(string(outcome.Kind))
	s.requestLog(c).Info("chat handled",
		"outcome", outcome.Kind,
		"history_turns", len(req.ConversationHistory),
	)
	c.JSON(http.StatusOK, NewChatResponse(outcome))
}

func (s *Server) providerLabel() string {
	if s.config.LLMProvider == "" {
		return "openai"
	}
	return s.config.LLMProvider
}

// respondError maps typed errors to status codes. Pipeline failures share a
// generic 500 body; their kind goes to the log only.
func (s *Server) respondError(c *gin.Context, err error) {
	kind := model.ErrorKind(err)
	log := s.requestLog(c)

	switch {
	case kind == model.KindValidation:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrInvoiceNotFound), errors.Is(err, model.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case kind == model.KindUpstream, kind == model.KindStructuredOutput, kind == model.KindUnrecognizedOutcome:
		log.Error("chat pipeline failed", "error_kind", kind, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: chatFailureMessage})
	default:
		log.Error("request failed", "error_kind", kind, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
