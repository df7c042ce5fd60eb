package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/resilience"
)

// ============================================================
// Invoices — implements port.InvoiceStore
// ============================================================

type invoiceRow struct {
	ID            int64   `json:"id"`
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	ProductName   string  `json:"product_name"`
	ProductPrice  float64 `json:"product_price"`
	Currency      string  `json:"currency"`
	IssuedAt      string  `json:"issued_at"`
	Status        string  `json:"status"`
	ArtifactRef   string  `json:"artifact_ref"`
}

func (r invoiceRow) toDomain() domain.Invoice {
	issuedAt, _ := time.Parse(time.RFC3339, r.IssuedAt)
	return domain.Invoice{
		ID:            r.ID,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Product: domain.ProductSnapshot{
			Name:     r.ProductName,
			Price:    r.ProductPrice,
			Currency: r.Currency,
		},
		IssuedAt:    issuedAt,
		Status:      domain.InvoiceStatus(r.Status),
		ArtifactRef: r.ArtifactRef,
	}
}

// NextInvoiceID advances the invoice sequence. The Postgres function
// next_invoice_id wraps nextval(), so allocation is serialized in the
// database and safe under concurrent calls from any number of replicas.
func (c *Client) NextInvoiceID(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.NextInvoiceID")
	defer span.End()

	var id int64

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRPC(ctx, "next_invoice_id", map[string]any{})
			if err != nil {
				return err
			}
			if err := json.Unmarshal(body, &id); err != nil {
				return fmt.Errorf("decode sequence value: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return 0, &domain.ErrExternalService{Service: "supabase/invoices", Err: err}
	}
	return id, nil
}

func (c *Client) SaveInvoice(ctx context.Context, inv *domain.Invoice) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveInvoice")
	defer span.End()

	_, err := c.doPost(ctx, "invoices", map[string]any{
		"id":             inv.ID,
		"customer_name":  inv.CustomerName,
		"customer_phone": inv.CustomerPhone,
		"product_name":   inv.Product.Name,
		"product_price":  inv.Product.Price,
		"currency":       inv.Product.Currency,
		"issued_at":      inv.IssuedAt.Format(time.RFC3339),
		"status":         string(inv.Status),
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/invoices", Err: err}
	}
	return nil
}

func (c *Client) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetInvoice")
	defer span.End()

	path := fmt.Sprintf("invoices?id=eq.%d&limit=1", id)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/invoices", Err: err}
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: fmt.Sprint(id)}
	}

	var rows []invoiceRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: fmt.Sprint(id)}
	}
	inv := rows[0].toDomain()
	return &inv, nil
}

func (c *Client) ListInvoices(ctx context.Context, page, pageSize int) ([]domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInvoices")
	defer span.End()

	offset := (page - 1) * pageSize
	path := fmt.Sprintf("invoices?order=id.desc&limit=%d&offset=%d", pageSize, offset)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/invoices", Err: err}
	}
	if body == nil {
		return []domain.Invoice{}, nil
	}

	var rows []invoiceRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode invoices: %w", err)
	}
	invoices := make([]domain.Invoice, 0, len(rows))
	for _, r := range rows {
		invoices = append(invoices, r.toDomain())
	}
	return invoices, nil
}

func (c *Client) SetInvoiceArtifact(ctx context.Context, id int64, ref string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetInvoiceArtifact")
	defer span.End()

	path := fmt.Sprintf("invoices?id=eq.%d", id)
	if _, err := c.doPatch(ctx, path, map[string]any{"artifact_ref": ref}); err != nil {
		return &domain.ErrExternalService{Service: "supabase/invoices", Err: err}
	}
	return nil
}
