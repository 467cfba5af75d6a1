package server

import "github.com/rezonia/invoice-assistant/internal/model"

// HistoryTurn is one prior message of the conversation as the client sends it
type HistoryTurn struct {
	Type    string `json:"type" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// ChatRequest is the body of the chat endpoint
type ChatRequest struct {
	Message             string        `json:"message" binding:"required"`
	ConversationHistory []HistoryTurn `json:"conversationHistory" binding:"omitempty,dive"`
}

// Turns converts the wire history into model turns
func (r ChatRequest) Turns() []model.Turn {
	turns := make([]model.Turn, 0, len(r.ConversationHistory))
	for _, h := range r.ConversationHistory {
		turns = append(turns, model.Turn{Role: model.Role(h.Type), Content: h.Content})
	}
	return turns
}

// ChatResponse is either {"type":"invoice","data":{...}} or
// {"type":"clarification","message":"..."}
type ChatResponse struct {
	Type    model.OutcomeKind `json:"type"`
	Message *string           `json:"message,omitempty"`
	Data    *model.Draft      `json:"data,omitempty"`
}

// NewChatResponse shapes an outcome for the wire. Exactly one of message and
// data is present, and an empty clarification still carries "message".
func NewChatResponse(o *model.Outcome) ChatResponse {
	if o.IsCompleted() {
		return ChatResponse{Type: model.OutcomeInvoice, Data: o.Invoice}
	}
	msg := o.Message
	return ChatResponse{Type: model.OutcomeClarification, Message: &msg}
}

// ProfileRequest carries the editable profile fields
type ProfileRequest struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
	ImageURL string `json:"image_url"`
}

// InvoiceListResponse is the response for the invoice listing
type InvoiceListResponse struct {
	Invoices []model.Invoice `json:"invoices"`
	Count    int             `json:"count"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}
