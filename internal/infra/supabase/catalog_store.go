package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/resilience"
)

// ============================================================
// Product catalog — implements port.CatalogStore
// ============================================================

type productRow struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Price:       r.Price,
		Currency:    r.Currency,
		Description: r.Description,
	}
}

// ReadCatalog fetches all products. Called on every resolution so admin
// edits are visible on the very next message.
func (c *Client) ReadCatalog(ctx context.Context) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ReadCatalog")
	defer span.End()

	var products []domain.Product

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, "products?order=name.asc")
			if err != nil {
				return err
			}
			if body == nil {
				products = []domain.Product{}
				return nil
			}

			var rows []productRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("decode products: %w", err)
			}
			products = make([]domain.Product, 0, len(rows))
			for _, r := range rows {
				products = append(products, r.toDomain())
			}
			return nil
		})
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/products", Err: err}
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProduct")
	defer span.End()

	path := fmt.Sprintf("products?id=eq.%s&limit=1", url.QueryEscape(id))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/products", Err: err}
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}

	var rows []productRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	p := rows[0].toDomain()
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProduct")
	defer span.End()

	body, err := c.doPost(ctx, "products", map[string]any{
		"name":        p.Name,
		"price":       p.Price,
		"currency":    p.Currency,
		"description": p.Description,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/products", Err: err}
	}

	var rows []productRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created product: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no result from products insert")
	}
	created := rows[0].toDomain()
	return &created, nil
}

func (c *Client) UpdateProductPrice(ctx context.Context, id string, price float64) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProductPrice")
	defer span.End()

	path := fmt.Sprintf("products?id=eq.%s", url.QueryEscape(id))
	body, err := c.doPatch(ctx, path, map[string]any{"price": price})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/products", Err: err}
	}

	var rows []productRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode updated product: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	updated := rows[0].toDomain()
	return &updated, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProduct")
	defer span.End()

	path := fmt.Sprintf("products?id=eq.%s", url.QueryEscape(id))
	if err := c.doDelete(ctx, path); err != nil {
		return &domain.ErrExternalService{Service: "supabase/products", Err: err}
	}
	return nil
}
