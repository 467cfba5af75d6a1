package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rezonia/invoice-assistant/internal/model"
)

// Completer submits messages plus one function declaration to a model and
// returns its raw response. Implementations make exactly one round trip and
// never retry.
type Completer interface {
	Complete(ctx context.Context, messages []Message, fn FunctionSpec) (*Completion, error)
}

// Extractor runs the chat pipeline: assemble, complete, interpret
type Extractor struct {
	completer Completer
}

// NewExtractor creates a new extractor on top of a completer
func NewExtractor(completer Completer) *Extractor {
	return &Extractor{completer: completer}
}

// Extract validates the input, asks the model once and interprets the answer.
// Errors are one of the typed errors in the model package.
func (e *Extractor) Extract(ctx context.Context, history []model.Turn, message string) (*model.Outcome, error) {
	if strings.TrimSpace(message) == "" {
		return nil, model.NewValidationError("message", nil, "required", "message must not be empty")
	}
	for i, turn := range history {
		if !turn.Role.Valid() {
			field := fmt.Sprintf("conversationHistory[%d].type", i)
			return nil, model.NewValidationError(field, string(turn.Role), "oneof", "must be user or assistant")
		}
	}
	if e == nil || e.completer == nil {
		return nil, model.NewUpstreamError("none", 0, fmt.Errorf("no model provider configured"))
	}

	completion, err := e.completer.Complete(ctx, BuildMessages(history, message), InvoiceFunction)
	if err != nil {
		if model.ErrorKind(err) == model.KindInternal {
			return nil, model.NewUpstreamError("model", 0, err)
		}
		return nil, err
	}

	return Interpret(completion)
}
