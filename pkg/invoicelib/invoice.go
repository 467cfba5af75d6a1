// Package invoicelib provides a public API for the invoice assistant.
//
// An Assistant takes the conversation so far plus a new user message, asks a
// function-calling model once, and returns either a clarifying question or a
// completed invoice draft whose total is recomputed from its line items.
//
// Example usage:
//
//	assistant, err := invoicelib.NewAssistant(ctx, invoicelib.Options{APIKey: key})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	outcome, err := assistant.Reply(ctx, nil, "Invoice TechCorp for 10 hours at $50/hr")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if outcome.IsCompleted() {
//	    fmt.Println(outcome.Invoice.Total)
//	}
package invoicelib

import (
	"github.com/rezonia/invoice-assistant/internal/llm"
	"github.com/rezonia/invoice-assistant/internal/model"
)

// Re-export core types for public API
type (
	Draft       = model.Draft
	LineItem    = model.LineItem
	Outcome     = model.Outcome
	OutcomeKind = model.OutcomeKind
	Turn        = model.Turn
	Role        = model.Role
)

// Re-export outcome kinds
const (
	OutcomeClarification = model.OutcomeClarification
	OutcomeInvoice       = model.OutcomeInvoice
)

// Re-export conversation roles
const (
	RoleUser      = model.RoleUser
	RoleAssistant = model.RoleAssistant
)

// Re-export error types
type (
	ValidationError          = model.ValidationError
	UpstreamError            = model.UpstreamError
	StructuredOutputError    = model.StructuredOutputError
	UnrecognizedOutcomeError = model.UnrecognizedOutcomeError
)

// Re-export error kinds
const (
	KindValidation          = model.KindValidation
	KindUpstream            = model.KindUpstream
	KindStructuredOutput    = model.KindStructuredOutput
	KindUnrecognizedOutcome = model.KindUnrecognizedOutcome
	KindInternal            = model.KindInternal
)

// Re-export the model backend contract for custom providers
type (
	Completer      = llm.Completer
	Completion     = llm.Completion
	CompletionKind = llm.CompletionKind
	Message        = llm.Message
	FunctionSpec   = llm.FunctionSpec
)

// Re-export completion kinds
const (
	CompletionText         = llm.CompletionText
	CompletionFunctionCall = llm.CompletionFunctionCall
)

// InvoiceFunctionName is the function the model calls with a finished invoice
const InvoiceFunctionName = llm.InvoiceFunctionName

// ErrorKind reports which error kind err belongs to
func ErrorKind(err error) string {
	return model.ErrorKind(err)
}
