package model_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-assistant/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestDraft_Recalculate(t *testing.T) {
	d := model.Draft{
		ClientName:  "TechCorp",
		ClientEmail: "billing@techcorp.com",
		DueDate:     "2024-03-01",
		Items: []model.LineItem{
			{Description: "Design", Quantity: ptr(2), Rate: ptr(50)},
			{Description: "Hosting", Quantity: ptr(1), Rate: ptr(100)},
		},
		Total: 9999, // never trusted
	}

	d.Recalculate()

	assert.Equal(t, 200.0, d.Total)
}

func TestDraft_Recalculate_PartialItem(t *testing.T) {
	d := model.Draft{
		Items: []model.LineItem{
			{Description: "Consulting", Quantity: ptr(3)},
			{Description: "Setup", Quantity: ptr(1), Rate: ptr(40)},
		},
	}

	d.Recalculate()

	assert.Equal(t, 40.0, d.Total)
	// The partial item keeps what was given and stays blank otherwise
	assert.Equal(t, "Consulting", d.Items[0].Description)
	require.NotNil(t, d.Items[0].Quantity)
	assert.Equal(t, 3.0, *d.Items[0].Quantity)
	assert.Nil(t, d.Items[0].Rate)
}

func TestDraft_Recalculate_FloatingPoint(t *testing.T) {
	d := model.Draft{
		Items: []model.LineItem{
			{Description: "A", Quantity: ptr(3), Rate: ptr(0.1)},
			{Description: "B", Quantity: ptr(1), Rate: ptr(0.2)},
		},
	}

	d.Recalculate()

	assert.Equal(t, 0.5, d.Total)
}

func TestDraft_Recalculate_NoItems(t *testing.T) {
	d := model.Draft{Total: 12}
	d.Recalculate()
	assert.Equal(t, 0.0, d.Total)
}

func TestLineItem_Complete(t *testing.T) {
	assert.True(t, model.LineItem{Description: "x", Quantity: ptr(1), Rate: ptr(1)}.Complete())
	assert.False(t, model.LineItem{Description: "x", Quantity: ptr(1)}.Complete())
	assert.False(t, model.LineItem{Description: " ", Quantity: ptr(1), Rate: ptr(1)}.Complete())
}

func TestDraft_Description(t *testing.T) {
	d := model.Draft{Items: []model.LineItem{{Description: "Web dev"}, {Description: "Hosting"}}}
	assert.Equal(t, "Web dev, Hosting", d.Description())
}

func TestNewInvoiceFromDraft(t *testing.T) {
	now := time.Date(2026, 1, 18, 15, 4, 5, 0, time.UTC)
	d := model.Draft{
		ClientName:  "TechCorp",
		ClientEmail: "billing@techcorp.com",
		DueDate:     "2026-02-01",
		Items: []model.LineItem{
			{Description: "Web dev", Quantity: ptr(10), Rate: ptr(50)},
			{Description: "Hosting", Quantity: ptr(1), Rate: ptr(20)},
		},
		Total: 1,
	}

	inv := model.NewInvoiceFromDraft("user-1", d, now)

	assert.Equal(t, "user-1", inv.CreatorID)
	assert.Equal(t, "TechCorp", inv.ClientName)
	assert.Equal(t, "2026-01-18", inv.InvoiceDate)
	assert.Equal(t, 520.0, inv.Amount)
	assert.Equal(t, model.StatusDraft, inv.Status)
	assert.Equal(t, "Web dev, Hosting", inv.Description)
	assert.Len(t, inv.Items, 2)
	assert.Empty(t, inv.ID)
}

func TestInvoice_Draft(t *testing.T) {
	inv := model.Invoice{
		ClientName: "Acme",
		Items:      []model.LineItem{{Description: "A", Quantity: ptr(2), Rate: ptr(25)}},
		Amount:     1,
	}

	d := inv.Draft()

	assert.Equal(t, "Acme", d.ClientName)
	assert.Equal(t, 50.0, d.Total)
}

func TestInvoiceUpdate_Apply(t *testing.T) {
	inv := &model.Invoice{
		ClientEmail: "old@example.com",
		Status:      model.StatusDraft,
		Amount:      10,
	}
	email := "new@example.com"
	status := model.StatusPaid
	items := []model.LineItem{{Description: "A", Quantity: ptr(4), Rate: ptr(12.5)}}

	model.InvoiceUpdate{ClientEmail: &email, Status: &status, Items: &items}.Apply(inv)

	assert.Equal(t, "new@example.com", inv.ClientEmail)
	assert.Equal(t, model.StatusPaid, inv.Status)
	assert.Equal(t, 50.0, inv.Amount)
}

func TestInvoiceUpdate_Validate(t *testing.T) {
	bad := model.Status("archived")
	err := model.InvoiceUpdate{Status: &bad}.Validate()
	var vErr *model.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "status", vErr.Field)

	date := "03/01/2024"
	err = model.InvoiceUpdate{DueDate: &date}.Validate()
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "due_date", vErr.Field)

	ok := "2024-03-01"
	assert.NoError(t, model.InvoiceUpdate{DueDate: &ok}.Validate())

	huge := []model.LineItem{{Description: "x", Quantity: ptr(1e308), Rate: ptr(10)}}
	err = model.InvoiceUpdate{Items: &huge}.Validate()
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items", vErr.Field)
}

func TestCheckItems(t *testing.T) {
	assert.NoError(t, model.CheckItems(nil))
	assert.NoError(t, model.CheckItems([]model.LineItem{{Quantity: ptr(1e150), Rate: ptr(1e150)}}))

	for _, items := range [][]model.LineItem{
		{{Description: "x", Quantity: ptr(1e308), Rate: ptr(10)}},
		{{Description: "x", Quantity: ptr(-1e308), Rate: ptr(10)}},
		{{Quantity: ptr(1.5e308), Rate: ptr(1)}, {Quantity: ptr(1.5e308), Rate: ptr(1)}},
	} {
		var vErr *model.ValidationError
		require.ErrorAs(t, model.CheckItems(items), &vErr)
		assert.Equal(t, "items", vErr.Field)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range model.Statuses {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, model.Status("").Valid())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, model.RoleUser.Valid())
	assert.True(t, model.RoleAssistant.Valid())
	assert.False(t, model.Role("system").Valid())
}

func TestOutcome_Exclusivity(t *testing.T) {
	c := model.NewClarification("What is the client's email?")
	require.NoError(t, c.Validate())
	assert.True(t, c.IsClarification())
	assert.False(t, c.IsCompleted())
	assert.Nil(t, c.Invoice)

	d := model.NewCompleted(model.Draft{Items: []model.LineItem{{Description: "A", Quantity: ptr(10), Rate: ptr(50)}}})
	require.NoError(t, d.Validate())
	assert.True(t, d.IsCompleted())
	assert.Empty(t, d.Message)
	assert.Equal(t, 500.0, d.Invoice.Total)

	assert.Error(t, (&model.Outcome{}).Validate())
	assert.Error(t, (&model.Outcome{Kind: model.OutcomeInvoice}).Validate())
	assert.Error(t, (&model.Outcome{Kind: model.OutcomeClarification, Invoice: &model.Draft{}}).Validate())
}

func TestNewClarification_EmptyText(t *testing.T) {
	c := model.NewClarification("")
	assert.NoError(t, c.Validate())
	assert.Equal(t, "", c.Message)
}

func TestValidationError(t *testing.T) {
	err := model.NewValidationError("message", "", "required", "must not be empty")

	require.Contains(t, err.Error(), "message")
	require.Contains(t, err.Error(), "required")
	require.Contains(t, err.Error(), "must not be empty")
}

func TestStructuredOutputError_WithCause(t *testing.T) {
	cause := assert.AnError
	err := model.NewStructuredOutputError("create_invoice", "items", "must be an array", cause)

	require.Contains(t, err.Error(), "create_invoice")
	require.Contains(t, err.Error(), "items")
	require.ErrorIs(t, err, cause)
}

func TestUpstreamError(t *testing.T) {
	err := model.NewUpstreamError("openai", 503, assert.AnError)

	require.Contains(t, err.Error(), "503")
	require.ErrorIs(t, err, assert.AnError)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{model.NewValidationError("message", nil, "required", "missing"), model.KindValidation},
		{model.NewUpstreamError("openai", 0, assert.AnError), model.KindUpstream},
		{model.NewStructuredOutputError("create_invoice", "", "bad json", nil), model.KindStructuredOutput},
		{model.NewUnrecognizedOutcomeError("no choices"), model.KindUnrecognizedOutcome},
		{fmt.Errorf("wrapped: %w", model.NewUnrecognizedOutcomeError("x")), model.KindUnrecognizedOutcome},
		{errors.New("boom"), model.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, model.ErrorKind(tt.err))
		})
	}
}
