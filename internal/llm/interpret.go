package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rezonia/invoice-assistant/internal/model"
)

// CompletionKind tells whether the model answered in prose or called a function
type CompletionKind string

const (
	CompletionText         CompletionKind = "text"
	CompletionFunctionCall CompletionKind = "function_call"
)

// Completion is the raw, provider-neutral model response. Arguments is
// untrusted JSON text.
type Completion struct {
	Kind         CompletionKind
	Text         string
	FunctionName string
	Arguments    string
}

// Interpret turns a completion into an outcome. Function calls are parsed
// strictly and their total is recomputed; text becomes a clarification
// verbatim. Anything else is an UnrecognizedOutcomeError.
func Interpret(c *Completion) (*model.Outcome, error) {
	if c == nil {
		return nil, model.NewUnrecognizedOutcomeError("empty completion")
	}

	switch c.Kind {
	case CompletionFunctionCall:
		if c.FunctionName != InvoiceFunctionName {
			return nil, model.NewUnrecognizedOutcomeError("unexpected function %q", c.FunctionName)
		}
		draft, err := ParseInvoiceArguments(c.Arguments)
		if err != nil {
			return nil, err
		}
		outcome := model.NewCompleted(*draft)
		if !model.Finite(outcome.Invoice.Total) {
			return nil, model.NewStructuredOutputError(InvoiceFunctionName, "items", "line amounts overflow the invoice total", nil)
		}
		return outcome, nil

	case CompletionText:
		return model.NewClarification(c.Text), nil

	default:
		return nil, model.NewUnrecognizedOutcomeError("unknown completion kind %q", c.Kind)
	}
}

type lineItemArguments struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	Rate        *float64 `json:"rate"`
}

var requiredInvoiceKeys = []string{"client_name", "client_email", "due_date", "items"}

// ParseInvoiceArguments decodes create_invoice arguments into a draft.
// Required keys must be present with the declared types; null strings read
// as blank and null numbers stay absent. Any total in the payload is ignored.
func ParseInvoiceArguments(arguments string) (*model.Draft, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(arguments), &raw); err != nil {
		return nil, model.NewStructuredOutputError(InvoiceFunctionName, "", "arguments are not a JSON object", err)
	}

	for _, key := range requiredInvoiceKeys {
		if _, ok := raw[key]; !ok {
			return nil, model.NewStructuredOutputError(InvoiceFunctionName, key, "required field missing", nil)
		}
	}

	draft := &model.Draft{}
	var err error
	if draft.ClientName, err = decodeString(raw, "client_name"); err != nil {
		return nil, err
	}
	if draft.ClientEmail, err = decodeString(raw, "client_email"); err != nil {
		return nil, err
	}
	if draft.DueDate, err = decodeString(raw, "due_date"); err != nil {
		return nil, err
	}
	if draft.DueDate != "" {
		if _, err := time.Parse(model.DateLayout, draft.DueDate); err != nil {
			return nil, model.NewStructuredOutputError(InvoiceFunctionName, "due_date", "must be YYYY-MM-DD", err)
		}
	}

	if bytes.Equal(bytes.TrimSpace(raw["items"]), []byte("null")) {
		return nil, model.NewStructuredOutputError(InvoiceFunctionName, "items", "must be an array", nil)
	}
	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw["items"], &rawItems); err != nil {
		return nil, model.NewStructuredOutputError(InvoiceFunctionName, "items", "must be an array", err)
	}

	draft.Items = make([]model.LineItem, 0, len(rawItems))
	for i, rawItem := range rawItems {
		field := fmt.Sprintf("items[%d]", i)
		if trimmed := bytes.TrimSpace(rawItem); len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, model.NewStructuredOutputError(InvoiceFunctionName, field, "must be an object", nil)
		}
		var item lineItemArguments
		if err := json.Unmarshal(rawItem, &item); err != nil {
			return nil, model.NewStructuredOutputError(InvoiceFunctionName, field, "invalid line item", err)
		}
		li := model.LineItem{Quantity: item.Quantity, Rate: item.Rate}
		if item.Description != nil {
			li.Description = *item.Description
		}
		draft.Items = append(draft.Items, li)
	}

	return draft, nil
}

func decodeString(raw map[string]json.RawMessage, key string) (string, error) {
	var value *string
	if err := json.Unmarshal(raw[key], &value); err != nil {
		return "", model.NewStructuredOutputError(InvoiceFunctionName, key, "must be a string", err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}
