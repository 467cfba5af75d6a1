package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezonia/invoice-assistant/internal/model"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresRepository stores invoices and profiles in Postgres through a pgx pool
type PostgresRepository struct {
	pool pgxQuerier
	now  func() time.Time
}

// NewPostgresRepository connects a pool to databaseURL and verifies it with a ping
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("store: database url required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return newPostgresRepositoryWithPool(pool), nil
}

func newPostgresRepositoryWithPool(pool pgxQuerier) *PostgresRepository {
	if pool == nil {
		panic("store: pgx pool required")
	}
	return &PostgresRepository{pool: pool, now: time.Now}
}

const invoiceColumns = `id::text, creator_id, client_name, client_email,
	COALESCE(to_char(due_date, 'YYYY-MM-DD'), ''), COALESCE(to_char(invoice_date, 'YYYY-MM-DD'), ''),
	created_at, amount::float8, status, description, items`

func (r *PostgresRepository) CreateInvoice(ctx context.Context, inv *model.Invoice) (*model.Invoice, error) {
	prepared, err := prepareInvoice(inv, r.now())
	if err != nil {
		return nil, err
	}
	items, err := encodeItems(prepared.Items)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO invoices (id, creator_id, client_name, client_email, due_date, invoice_date,
			created_at, amount, status, description, items)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::date, NULLIF($6, '')::date, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		prepared.ID, prepared.CreatorID, prepared.ClientName, prepared.ClientEmail,
		prepared.DueDate, prepared.InvoiceDate, prepared.CreatedAt, prepared.Amount,
		string(prepared.Status), prepared.Description, items,
	)
	if err != nil {
		return nil, fmt.Errorf("store: insert invoice: %w", err)
	}
	return prepared, nil
}

func (r *PostgresRepository) GetInvoice(ctx context.Context, creatorID, id string) (*model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id::text = $1 AND creator_id = $2`
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, id, creatorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("store: get invoice: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) ListInvoices(ctx context.Context, creatorID string, filter ListFilter) ([]model.Invoice, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query, args := buildListQuery(creatorID, filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]model.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list invoices: %w", err)
	}
	return invoices, nil
}

// buildListQuery renders the filter as a parameterized WHERE clause
func buildListQuery(creatorID string, filter ListFilter) (string, []any) {
	conditions := []string{"creator_id = $1"}
	args := []any{creatorID}
	add := func(format string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.MinAmount != nil {
		add("amount > $%d", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		add("amount < $%d", *filter.MaxAmount)
	}
	if filter.From != "" {
		add("invoice_date >= $%d::date", filter.From)
	}
	if filter.To != "" {
		add("invoice_date <= $%d::date", filter.To)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		add("(id::text ILIKE $%[1]d OR client_email ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+escapeLike(term)+"%")
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresRepository) UpdateInvoice(ctx context.Context, creatorID, id string, update model.InvoiceUpdate) (*model.Invoice, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	inv, err := r.GetInvoice(ctx, creatorID, id)
	if err != nil {
		return nil, err
	}
	update.Apply(inv)

	items, err := encodeItems(inv.Items)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE invoices
		SET client_name = $1, client_email = $2, due_date = NULLIF($3, '')::date,
			status = $4, description = $5, items = $6, amount = $7
		WHERE id::text = $8 AND creator_id = $9
	`
	ct, err := r.pool.Exec(ctx, query,
		inv.ClientName, inv.ClientEmail, inv.DueDate, string(inv.Status), inv.Description,
		items, inv.Amount, id, creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: update invoice: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, model.ErrInvoiceNotFound
	}
	return inv, nil
}

func (r *PostgresRepository) DeleteInvoice(ctx context.Context, creatorID, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id::text = $1 AND creator_id = $2`, id, creatorID)
	if err != nil {
		return fmt.Errorf("store: delete invoice: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return model.ErrInvoiceNotFound
	}
	return nil
}

func (r *PostgresRepository) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	query := `SELECT id, name, company, phone, image_url FROM profiles WHERE id = $1`
	var p model.Profile
	if err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Company, &p.Phone, &p.ImageURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProfileNotFound
		}
		return nil, fmt.Errorf("store: get profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) UpsertProfile(ctx context.Context, profile model.Profile) (*model.Profile, error) {
	if profile.ID == "" {
		return nil, model.NewValidationError("id", nil, "required", "profile id is required")
	}
	query := `
		INSERT INTO profiles (id, name, company, phone, image_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, company = EXCLUDED.company, phone = EXCLUDED.phone,
			image_url = EXCLUDED.image_url, updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		profile.ID, profile.Name, profile.Company, profile.Phone, profile.ImageURL, r.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: upsert profile: %w", err)
	}
	return &profile, nil
}

// Close releases the pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var (
		inv    model.Invoice
		status string
		items  []byte
	)
	if err := row.Scan(
		&inv.ID, &inv.CreatorID, &inv.ClientName, &inv.ClientEmail, &inv.DueDate, &inv.InvoiceDate,
		&inv.CreatedAt, &inv.Amount, &status, &inv.Description, &items,
	); err != nil {
		return nil, err
	}
	inv.Status = model.Status(status)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &inv.Items); err != nil {
			return nil, fmt.Errorf("decode items of %s: %w", inv.ID, err)
		}
	}
	return &inv, nil
}

func encodeItems(items []model.LineItem) ([]byte, error) {
	if items == nil {
		items = []model.LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("store: encode items: %w", err)
	}
	return b, nil
}
