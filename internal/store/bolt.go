package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rezonia/invoice-assistant/internal/model"
)

var (
	invoicesBucket = []byte("invoices")
	profilesBucket = []byte("profiles")
)

// BoltRepository keeps records in a single local bbolt file. Each creator's
// invoices live in their own nested bucket keyed by invoice id.
type BoltRepository struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltRepository opens (or creates) the database file at path
func NewBoltRepository(path string) (*BoltRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("store: bolt path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create bolt dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(invoicesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(profilesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}
	return &BoltRepository{db: db, now: time.Now}, nil
}

// creatorBucket returns the nested invoice bucket of creatorID, or nil when
// the creator has none yet
func creatorBucket(tx *bolt.Tx, creatorID string) *bolt.Bucket {
	return tx.Bucket(invoicesBucket).Bucket([]byte(creatorID))
}

func (r *BoltRepository) CreateInvoice(_ context.Context, inv *model.Invoice) (*model.Invoice, error) {
	prepared, err := prepareInvoice(inv, r.now())
	if err != nil {
		return nil, err
	}
	enc, err := json.Marshal(prepared)
	if err != nil {
		return nil, fmt.Errorf("store: encode invoice: %w", err)
	}
	err = r.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(invoicesBucket).CreateBucketIfNotExists([]byte(prepared.CreatorID))
		if err != nil {
			return err
		}
		return b.Put([]byte(prepared.ID), enc)
	})
	if err != nil {
		return nil, fmt.Errorf("store: put invoice: %w", err)
	}
	return prepared, nil
}

func (r *BoltRepository) GetInvoice(_ context.Context, creatorID, id string) (*model.Invoice, error) {
	var inv *model.Invoice
	err := r.db.View(func(tx *bolt.Tx) error {
		b := creatorBucket(tx, creatorID)
		if b == nil {
			return model.ErrInvoiceNotFound
		}
		v := b.Get([]byte(id))
		if v == nil {
			return model.ErrInvoiceNotFound
		}
		inv = &model.Invoice{}
		return json.Unmarshal(v, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *BoltRepository) ListInvoices(_ context.Context, creatorID string, filter ListFilter) ([]model.Invoice, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var owned []model.Invoice
	err := r.db.View(func(tx *bolt.Tx) error {
		b := creatorBucket(tx, creatorID)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if v == nil {
				return nil
			}
			var inv model.Invoice
			if err := json.Unmarshal(v, &inv); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			if inv.CreatorID != creatorID {
				return nil
			}
			owned = append(owned, inv)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: list invoices: %w", err)
	}
	return filterInvoices(owned, filter), nil
}

func (r *BoltRepository) UpdateInvoice(_ context.Context, creatorID, id string, update model.InvoiceUpdate) (*model.Invoice, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var inv model.Invoice
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := creatorBucket(tx, creatorID)
		if b == nil {
			return model.ErrInvoiceNotFound
		}
		key := []byte(id)
		v := b.Get(key)
		if v == nil {
			return model.ErrInvoiceNotFound
		}
		if err := json.Unmarshal(v, &inv); err != nil {
			return err
		}
		update.Apply(&inv)
		enc, err := json.Marshal(inv)
		if err != nil {
			return err
		}
		return b.Put(key, enc)
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *BoltRepository) DeleteInvoice(_ context.Context, creatorID, id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := creatorBucket(tx, creatorID)
		if b == nil || b.Get([]byte(id)) == nil {
			return model.ErrInvoiceNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (r *BoltRepository) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	var p *model.Profile
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(profilesBucket).Get([]byte(id))
		if v == nil {
			return model.ErrProfileNotFound
		}
		p = &model.Profile{}
		return json.Unmarshal(v, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *BoltRepository) UpsertProfile(_ context.Context, profile model.Profile) (*model.Profile, error) {
	if profile.ID == "" {
		return nil, model.NewValidationError("id", nil, "required", "profile id is required")
	}
	enc, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("store: encode profile: %w", err)
	}
	err = r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(profilesBucket).Put([]byte(profile.ID), enc)
	})
	if err != nil {
		return nil, fmt.Errorf("store: put profile: %w", err)
	}
	return &profile, nil
}

// Close closes the database file
func (r *BoltRepository) Close() error {
	return r.db.Close()
}
