package model

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoice-assistant/internal/decimal"
)

// DateLayout is the calendar date format used for due and invoice dates
const DateLayout = time.DateOnly

// LineItem is one billable unit. Quantity and Rate are nil when the user
// never supplied them; they are never filled in with guesses.
type LineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	Rate        *float64 `json:"rate"`
}

// Amount returns quantity * rate, or zero when either is missing
func (li LineItem) Amount() decimal.Decimal {
	return money.LineAmount(li.Quantity, li.Rate)
}

// Complete reports whether description, quantity and rate are all present
func (li LineItem) Complete() bool {
	return strings.TrimSpace(li.Description) != "" && li.Quantity != nil && li.Rate != nil
}

// Draft is an extracted invoice that has not been persisted yet
type Draft struct {
	ClientName  string     `json:"client_name"`
	ClientEmail string     `json:"client_email"`
	DueDate     string     `json:"due_date"`
	Items       []LineItem `json:"items"`
	Total       float64    `json:"total"`
}

// Recalculate derives Total from the items. Any total carried in from
// elsewhere is discarded.
func (d *Draft) Recalculate() {
	d.Total = money.ToFloat(SumItems(d.Items))
}

// Finite reports whether an amount can be represented on the wire
func Finite(amount float64) bool {
	return !math.IsInf(amount, 0) && !math.IsNaN(amount)
}

// CheckItems rejects line items whose amounts do not fit in a float64 total
func CheckItems(items []LineItem) error {
	if !Finite(money.ToFloat(SumItems(items))) {
		return NewValidationError("items", nil, "range", "line amounts overflow the invoice total")
	}
	return nil
}

// SumItems adds up the line amounts of items
func SumItems(items []LineItem) decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		amounts = append(amounts, item.Amount())
	}
	return money.Sum(amounts)
}

// Description joins the item descriptions the way saved invoices show them
func (d *Draft) Description() string {
	return DescribeItems(d.Items)
}

// DescribeItems joins item descriptions with ", "
func DescribeItems(items []LineItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.Description)
	}
	return strings.Join(parts, ", ")
}

// Status is the lifecycle state of a saved invoice
type Status string

const (
	StatusDraft   Status = "draft"
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Statuses lists every known status in display order
var Statuses = []Status{StatusPaid, StatusPending, StatusOverdue, StatusDraft}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// Invoice is a persisted invoice record
type Invoice struct {
	ID          string     `json:"id"`
	CreatorID   string     `json:"creator_id"`
	ClientName  string     `json:"client_name"`
	ClientEmail string     `json:"client_email"`
	DueDate     string     `json:"due_date"`
	InvoiceDate string     `json:"invoice_date"`
	CreatedAt   time.Time  `json:"created_at"`
	Amount      float64    `json:"amount"`
	Status      Status     `json:"status"`
	Description string     `json:"description"`
	Items       []LineItem `json:"items"`
}

// NewInvoiceFromDraft builds an unsaved draft record owned by creatorID.
// The amount is recomputed from the items.
func NewInvoiceFromDraft(creatorID string, d Draft, now time.Time) *Invoice {
	items := append([]LineItem(nil), d.Items...)
	return &Invoice{
		CreatorID:   creatorID,
		ClientName:  d.ClientName,
		ClientEmail: d.ClientEmail,
		DueDate:     d.DueDate,
		InvoiceDate: now.UTC().Format(DateLayout),
		Amount:      money.ToFloat(SumItems(items)),
		Status:      StatusDraft,
		Description: DescribeItems(items),
		Items:       items,
	}
}

// Draft converts the record back to a renderable draft
func (inv *Invoice) Draft() Draft {
	d := Draft{
		ClientName:  inv.ClientName,
		ClientEmail: inv.ClientEmail,
		DueDate:     inv.DueDate,
		Items:       inv.Items,
	}
	d.Recalculate()
	return d
}

// InvoiceUpdate carries the editable fields of an invoice. Nil fields are left untouched.
type InvoiceUpdate struct {
	ClientName  *string     `json:"client_name"`
	ClientEmail *string     `json:"client_email"`
	DueDate     *string     `json:"due_date"`
	Status      *Status     `json:"status"`
	Description *string     `json:"description"`
	Items       *[]LineItem `json:"items"`
}

// Apply copies the set fields onto inv. Replacing the items recomputes the amount.
func (u InvoiceUpdate) Apply(inv *Invoice) {
	if u.ClientName != nil {
		inv.ClientName = *u.ClientName
	}
	if u.ClientEmail != nil {
		inv.ClientEmail = *u.ClientEmail
	}
	if u.DueDate != nil {
		inv.DueDate = *u.DueDate
	}
	if u.Status != nil {
		inv.Status = *u.Status
	}
	if u.Description != nil {
		inv.Description = *u.Description
	}
	if u.Items != nil {
		inv.Items = append([]LineItem(nil), (*u.Items)...)
		inv.Amount = money.ToFloat(SumItems(inv.Items))
	}
}

// Validate checks the update before it reaches a store
func (u InvoiceUpdate) Validate() error {
	if u.Items != nil {
		if err := CheckItems(*u.Items); err != nil {
			return err
		}
	}
	if u.Status != nil && !u.Status.Valid() {
		return NewValidationError("status", string(*u.Status), "oneof", "unknown invoice status")
	}
	if u.DueDate != nil && *u.DueDate != "" {
		if _, err := time.Parse(DateLayout, *u.DueDate); err != nil {
			return NewValidationError("due_date", *u.DueDate, "date", "must be YYYY-MM-DD")
		}
	}
	return nil
}

// Profile holds the account details shown in settings
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
	ImageURL string `json:"image_url"`
}
