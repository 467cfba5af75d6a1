package model

import "fmt"

// OutcomeKind tags which variant of Outcome is populated
type OutcomeKind string

const (
	OutcomeClarification OutcomeKind = "clarification"
	OutcomeInvoice       OutcomeKind = "invoice"
)

// Outcome is the result of one extraction call: either a clarifying
// question or a completed draft, never both.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Invoice *Draft
}

// NewClarification wraps the model's text verbatim. Empty text is allowed.
func NewClarification(message string) *Outcome {
	return &Outcome{Kind: OutcomeClarification, Message: message}
}

// NewCompleted wraps a draft and recomputes its total
func NewCompleted(d Draft) *Outcome {
	d.Recalculate()
	return &Outcome{Kind: OutcomeInvoice, Invoice: &d}
}

// IsClarification reports whether the model asked a follow-up question
func (o *Outcome) IsClarification() bool {
	return o.Kind == OutcomeClarification
}

// IsCompleted reports whether the model produced a draft
func (o *Outcome) IsCompleted() bool {
	return o.Kind == OutcomeInvoice
}

// Validate enforces that exactly one variant is populated
func (o *Outcome) Validate() error {
	switch o.Kind {
	case OutcomeClarification:
		if o.Invoice != nil {
			return fmt.Errorf("clarification outcome carries an invoice")
		}
	case OutcomeInvoice:
		if o.Invoice == nil {
			return fmt.Errorf("invoice outcome without invoice")
		}
		if o.Message != "" {
			return fmt.Errorf("invoice outcome carries a message")
		}
	default:
		return fmt.Errorf("unknown outcome kind %q", o.Kind)
	}
	return nil
}
