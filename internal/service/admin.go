package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/observability"
	"github.com/alhassan/smart-sales-agent-go/internal/port"
)

// InvoiceRerenderer regenerates the document of an issued invoice.
type InvoiceRerenderer interface {
	Rerender(ctx context.Context, id int64) (*domain.Invoice, error)
}

// AdminService backs the dashboard API: catalog management, invoice
// lookup, document downloads, and the ops metrics snapshot.
type AdminService struct {
	catalog   port.CatalogStore
	invoices  port.InvoiceStore
	artifacts port.ArtifactStore
	rerender  InvoiceRerenderer
	metrics   *observability.Metrics
	currency  string
	logger    *zap.Logger
}

func NewAdminService(
	catalog port.CatalogStore,
	invoices port.InvoiceStore,
	artifacts port.ArtifactStore,
	rerender InvoiceRerenderer,
	metrics *observability.Metrics,
	currency string,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		catalog:   catalog,
		invoices:  invoices,
		artifacts: artifacts,
		rerender:  rerender,
		metrics:   metrics,
		currency:  currency,
		logger:    logger,
	}
}

// ============================================================
// Catalog management
// ============================================================

func (s *AdminService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.catalog.ReadCatalog(ctx)
}

// CreateProduct validates and stores a new product. The deployment
// currency is applied when the request leaves it blank.
func (s *AdminService) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if p.Price <= 0 {
		return nil, &domain.ErrValidation{Field: "price", Message: "price must be positive"}
	}
	if p.Currency == "" {
		p.Currency = s.currency
	}

	existing, err := s.catalog.ReadCatalog(ctx)
	if err != nil {
		return nil, &domain.ErrPersistence{Op: "read catalog", Err: err}
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, p.Name) {
			return nil, &domain.ErrValidation{Field: "name", Message: "product name already exists"}
		}
	}

	created, err := s.catalog.CreateProduct(ctx, p)
	if err != nil {
		return nil, &domain.ErrPersistence{Op: "create product", Err: err}
	}
	s.logger.Info("product created",
		zap.String("id", created.ID),
		zap.String("name", created.Name),
		zap.Float64("price", created.Price))
	return created, nil
}

// UpdateProductPrice changes a product's price. Already-issued invoices
// keep their frozen snapshot; only future messages see the new price.
func (s *AdminService) UpdateProductPrice(ctx context.Context, id string, price float64) (*domain.Product, error) {
	if price <= 0 {
		return nil, &domain.ErrValidation{Field: "price", Message: "price must be positive"}
	}
	updated, err := s.catalog.UpdateProductPrice(ctx, id, price)
	if err != nil {
		return nil, err
	}
	s.logger.Info("product price updated",
		zap.String("id", id), zap.Float64("price", price))
	return updated, nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.catalog.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("id", id))
	return nil
}

// ============================================================
// Invoices
// ============================================================

func (s *AdminService) ListInvoices(ctx context.Context, page, pageSize int) ([]domain.Invoice, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.invoices.ListInvoices(ctx, page, pageSize)
}

func (s *AdminService) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.invoices.GetInvoice(ctx, id)
}

// GetInvoiceDocument returns the rendered PDF bytes for an invoice,
// re-rendering on demand when no artifact exists yet.
func (s *AdminService) GetInvoiceDocument(ctx context.Context, id int64) ([]byte, error) {
	inv, err := s.invoices.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.ArtifactRef == "" {
		inv, err = s.rerender.Rerender(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	data, err := s.artifacts.Get(inv.ArtifactRef)
	if err != nil {
		return nil, &domain.ErrRendering{InvoiceID: id, Err: err}
	}
	return data, nil
}

// RerenderInvoice regenerates the document for an invoice from its
// frozen snapshot.
func (s *AdminService) RerenderInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.rerender.Rerender(ctx, id)
}

// GetArtifact serves a stored document by reference (used for the
// public media URL handed to the messaging provider).
func (s *AdminService) GetArtifact(_ context.Context, ref string) ([]byte, error) {
	data, err := s.artifacts.Get(ref)
	if err != nil {
		return nil, &domain.ErrNotFound{Resource: "artifact", ID: ref}
	}
	return data, nil
}

// OpsSnapshot returns the current operational metrics.
func (s *AdminService) OpsSnapshot() *domain.OpsMetrics {
	return s.metrics.GetOpsSnapshot()
}
