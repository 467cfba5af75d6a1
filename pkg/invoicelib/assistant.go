package invoicelib

import (
	"context"
	"io"
	"time"

	"github.com/rezonia/invoice-assistant/internal/llm"
	"github.com/rezonia/invoice-assistant/internal/render"
)

// Options configures the model backend
type Options struct {
	Provider string        // openai (default) or gemini (env: LLM_PROVIDER)
	APIKey   string        // API key (env: LLM_API_KEY)
	BaseURL  string        // Base URL, empty for the provider default (env: LLM_BASE_URL)
	Model    string        // Model id, empty for the provider default (env: LLM_MODEL)
	Timeout  time.Duration // Deadline for one reply, zero for none
}

// DefaultOptions returns default options
func DefaultOptions() Options {
	return Options{
		Provider: llm.ProviderOpenAI,
		Timeout:  llm.DefaultTimeout,
	}
}

// Request is one conversation turn to answer
type Request struct {
	History []Turn
	Message string
}

// Assistant answers conversation turns with a clarification or an invoice
type Assistant struct {
	extractor *llm.Extractor
	timeout   time.Duration
}

// NewAssistant creates an assistant backed by the configured provider
func NewAssistant(ctx context.Context, opts Options) (*Assistant, error) {
	var clientOpts []llm.ClientOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, llm.WithBaseURL(opts.BaseURL))
	}
	if opts.Model != "" {
		clientOpts = append(clientOpts, llm.WithModel(opts.Model))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, llm.WithTimeout(opts.Timeout))
	}

	completer, err := llm.NewCompleter(ctx, opts.Provider, opts.APIKey, clientOpts...)
	if err != nil {
		return nil, err
	}

	a := NewAssistantWithCompleter(completer)
	a.timeout = opts.Timeout
	return a, nil
}

// NewAssistantWithCompleter creates an assistant on top of a custom backend
func NewAssistantWithCompleter(c Completer) *Assistant {
	return &Assistant{extractor: llm.NewExtractor(c)}
}

// Reply answers message given the prior turns. Errors are one of the
// re-exported error types; use ErrorKind to tell them apart.
func (a *Assistant) Reply(ctx context.Context, history []Turn, message string) (*Outcome, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.extractor.Extract(ctx, history, message)
}

// ReplyBatch answers independent conversations concurrently. Results keep
// the request order; a failed request leaves a nil entry and the first
// error is returned.
func (a *Assistant) ReplyBatch(ctx context.Context, requests []Request) ([]*Outcome, error) {
	results := make([]*Outcome, len(requests))
	errCh := make(chan error, len(requests))

	for i, req := range requests {
		go func(idx int, req Request) {
			outcome, err := a.Reply(ctx, req.History, req.Message)
			if err != nil {
				errCh <- err
				return
			}
			results[idx] = outcome
			errCh <- nil
		}(i, req)
	}

	// Wait for all goroutines
	var firstErr error
	for range requests {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}

// RenderPDF writes d as a PDF invoice. The issuer is printed in the header.
func RenderPDF(w io.Writer, d Draft, issuer string) error {
	return render.Render(w, render.FromDraft(d, issuer, time.Now()))
}
