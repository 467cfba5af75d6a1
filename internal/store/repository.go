package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/invoice-assistant/internal/model"
)

// Backends selectable from configuration
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

// Repository persists invoices and profiles. Every invoice operation is
// scoped to the creator; a record owned by someone else reads as not found.
type Repository interface {
	CreateInvoice(ctx context.Context, inv *model.Invoice) (*model.Invoice, error)
	GetInvoice(ctx context.Context, creatorID, id string) (*model.Invoice, error)
	ListInvoices(ctx context.Context, creatorID string, filter ListFilter) ([]model.Invoice, error)
	UpdateInvoice(ctx context.Context, creatorID, id string, update model.InvoiceUpdate) (*model.Invoice, error)
	DeleteInvoice(ctx context.Context, creatorID, id string) error

	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	UpsertProfile(ctx context.Context, profile model.Profile) (*model.Profile, error)

	Close() error
}

// ListFilter narrows an invoice listing. Zero values disable a condition.
// Amount bounds are exclusive; date bounds apply to the invoice date and are inclusive.
type ListFilter struct {
	Status    model.Status
	MinAmount *float64
	MaxAmount *float64
	From      string
	To        string
	Search    string
	Limit     int
}

// Validate checks the filter values before they reach a backend
func (f ListFilter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return model.NewValidationError("status", string(f.Status), "oneof", "unknown invoice status")
	}
	if f.From != "" {
		if _, err := time.Parse(model.DateLayout, f.From); err != nil {
			return model.NewValidationError("from", f.From, "date", "must be YYYY-MM-DD")
		}
	}
	if f.To != "" {
		if _, err := time.Parse(model.DateLayout, f.To); err != nil {
			return model.NewValidationError("to", f.To, "date", "must be YYYY-MM-DD")
		}
	}
	if f.Limit < 0 {
		return model.NewValidationError("limit", f.Limit, "min", "must not be negative")
	}
	return nil
}

// Matches reports whether inv passes every condition of the filter.
// Search is a case-insensitive substring match on id, client email and description.
func (f ListFilter) Matches(inv model.Invoice) bool {
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	if f.MinAmount != nil && inv.Amount <= *f.MinAmount {
		return false
	}
	if f.MaxAmount != nil && inv.Amount >= *f.MaxAmount {
		return false
	}
	// DateLayout strings compare chronologically
	if f.From != "" && inv.InvoiceDate < f.From {
		return false
	}
	if f.To != "" && inv.InvoiceDate > f.To {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(inv.ID), term) &&
			!strings.Contains(strings.ToLower(inv.ClientEmail), term) &&
			!strings.Contains(strings.ToLower(inv.Description), term) {
			return false
		}
	}
	return true
}

// prepareInvoice fills in the server-assigned fields of a new record
func prepareInvoice(inv *model.Invoice, now time.Time) (*model.Invoice, error) {
	if inv == nil {
		return nil, model.NewValidationError("invoice", nil, "required", "invoice is required")
	}
	if strings.TrimSpace(inv.CreatorID) == "" {
		return nil, model.NewValidationError("creator_id", nil, "required", "creator is required")
	}
	out := cloneInvoice(*inv)
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Status == "" {
		out.Status = model.StatusDraft
	}
	if !out.Status.Valid() {
		return nil, model.NewValidationError("status", string(out.Status), "oneof", "unknown invoice status")
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now.UTC()
	}
	if out.InvoiceDate == "" {
		out.InvoiceDate = out.CreatedAt.Format(model.DateLayout)
	}
	return &out, nil
}

// filterInvoices applies the filter, orders newest first and truncates to the limit
func filterInvoices(invoices []model.Invoice, filter ListFilter) []model.Invoice {
	out := make([]model.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if filter.Matches(inv) {
			out = append(out, inv)
		}
	}
	sortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func sortNewestFirst(invoices []model.Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		if !invoices[i].CreatedAt.Equal(invoices[j].CreatedAt) {
			return invoices[i].CreatedAt.After(invoices[j].CreatedAt)
		}
		return invoices[i].ID > invoices[j].ID
	})
}

func cloneInvoice(inv model.Invoice) model.Invoice {
	if inv.Items != nil {
		inv.Items = append([]model.LineItem(nil), inv.Items...)
	}
	return inv
}
