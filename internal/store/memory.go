package store

import (
	"context"
	"sync"
	"time"

	"github.com/rezonia/invoice-assistant/internal/model"
)

// InMemoryRepository keeps records in process memory. Used by tests and
// when no database is configured.
type InMemoryRepository struct {
	mu       sync.RWMutex
	invoices map[string]model.Invoice
	profiles map[string]model.Profile
	now      func() time.Time
}

// NewInMemoryRepository creates an empty repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		invoices: make(map[string]model.Invoice),
		profiles: make(map[string]model.Profile),
		now:      time.Now,
	}
}

func (r *InMemoryRepository) CreateInvoice(_ context.Context, inv *model.Invoice) (*model.Invoice, error) {
	prepared, err := prepareInvoice(inv, r.now())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[prepared.ID] = cloneInvoice(*prepared)
	return prepared, nil
}

func (r *InMemoryRepository) GetInvoice(_ context.Context, creatorID, id string) (*model.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invoices[id]
	if !ok || inv.CreatorID != creatorID {
		return nil, model.ErrInvoiceNotFound
	}
	out := cloneInvoice(inv)
	return &out, nil
}

func (r *InMemoryRepository) ListInvoices(_ context.Context, creatorID string, filter ListFilter) ([]model.Invoice, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	owned := make([]model.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		if inv.CreatorID == creatorID {
			owned = append(owned, cloneInvoice(inv))
		}
	}
	r.mu.RUnlock()

	return filterInvoices(owned, filter), nil
}

func (r *InMemoryRepository) UpdateInvoice(_ context.Context, creatorID, id string, update model.InvoiceUpdate) (*model.Invoice, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invoices[id]
	if !ok || inv.CreatorID != creatorID {
		return nil, model.ErrInvoiceNotFound
	}
	update.Apply(&inv)
	r.invoices[id] = cloneInvoice(inv)
	return &inv, nil
}

func (r *InMemoryRepository) DeleteInvoice(_ context.Context, creatorID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invoices[id]
	if !ok || inv.CreatorID != creatorID {
		return model.ErrInvoiceNotFound
	}
	delete(r.invoices, id)
	return nil
}

func (r *InMemoryRepository) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	return &p, nil
}

func (r *InMemoryRepository) UpsertProfile(_ context.Context, profile model.Profile) (*model.Profile, error) {
	if profile.ID == "" {
		return nil, model.NewValidationError("id", nil, "required", "profile id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.ID] = profile
	return &profile, nil
}

// Close is a no-op
func (r *InMemoryRepository) Close() error {
	return nil
}
