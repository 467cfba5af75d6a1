package llm

import (
	"encoding/json"
	"fmt"
)

// InvoiceFunctionName is the function the model calls once every required
// invoice detail has been collected.
const InvoiceFunctionName = "create_invoice"

// invoiceFunctionJSON declares the arguments of create_invoice. Every field
// is required at the schema level; whether the model may call the function
// at all is governed by SystemPromptInvoiceAssistant.
const invoiceFunctionJSON = `{
  "name": "create_invoice",
  "description": "Creates a structured invoice from user-provided details.",
  "parameters": {
    "type": "object",
    "properties": {
      "client_name": { "type": "string", "description": "The name of the client." },
      "client_email": { "type": "string", "description": "The email address of the client." },
      "due_date": { "type": "string", "description": "The invoice due date in YYYY-MM-DD format." },
      "items": {
        "type": "array",
        "description": "A list of line items for the invoice.",
        "items": {
          "type": "object",
          "properties": {
            "description": { "type": "string", "description": "Description of the service or product." },
            "quantity": { "type": "number", "description": "Quantity of the item." },
            "rate": { "type": "number", "description": "The price per unit of the item." }
          },
          "required": ["description", "quantity", "rate"]
        }
      }
    },
    "required": ["client_name", "client_email", "due_date", "items"]
  }
}`

// Schema is the subset of JSON Schema the function declaration uses
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// FunctionSpec describes a function the model may call instead of answering in prose
type FunctionSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters"`
}

// InvoiceFunction is decoded once from invoiceFunctionJSON and shared by every call.
// Callers must treat it as read-only.
var InvoiceFunction = mustDecodeFunction(invoiceFunctionJSON)

func mustDecodeFunction(raw string) FunctionSpec {
	var fn FunctionSpec
	if err := json.Unmarshal([]byte(raw), &fn); err != nil {
		panic(fmt.Sprintf("llm: invalid function declaration: %v", err))
	}
	return fn
}

// ParametersMap returns the parameters as a generic JSON object, the form
// OpenAI-compatible SDKs accept.
func (f FunctionSpec) ParametersMap() (map[string]any, error) {
	data, err := json.Marshal(f.Parameters)
	if err != nil {
		return nil, fmt.Errorf("marshal parameters: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal parameters: %w", err)
	}
	return out, nil
}
