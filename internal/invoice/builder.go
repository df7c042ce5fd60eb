// Package invoice issues invoices: id allocation, price-frozen snapshot,
// persistence, and document rendering.
package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/observability"
	"github.com/alhassan/smart-sales-agent-go/internal/port"
)

var tracer = otel.Tracer("smart-sales-agent-go/invoice")

// Builder issues and re-renders invoices. The id comes from the store's
// sequence before anything is written, so two concurrent issuances can
// never share an id; a failed save burns its id, which is an acceptable
// gap.
type Builder struct {
	resolver  port.ProductResolver
	store     port.InvoiceStore
	renderer  port.Renderer
	artifacts port.ArtifactStore
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewBuilder(
	resolver port.ProductResolver,
	store port.InvoiceStore,
	renderer port.Renderer,
	artifacts port.ArtifactStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Builder {
	return &Builder{
		resolver:  resolver,
		store:     store,
		renderer:  renderer,
		artifacts: artifacts,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Issue creates an invoice for customerName over the product referenced
// by productRef. The product's current price is frozen into the invoice
// snapshot; later catalog edits never touch issued invoices.
//
// The invoice counter only advances when both the name and the product
// are valid, so rejected requests leave no trace in the sequence. A
// rendering failure after the invoice row is saved returns the issued
// invoice together with *domain.ErrRendering; the caller can retry the
// document with Rerender without minting a new invoice.
func (b *Builder) Issue(ctx context.Context, customerName, customerPhone, productRef string) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "invoice.Issue")
	defer span.End()

	name := strings.TrimSpace(customerName)
	if name == "" {
		return nil, &domain.ErrInvalidCustomerName{}
	}

	product, err := b.resolver.Resolve(ctx, productRef)
	if err != nil {
		return nil, err
	}

	id, err := b.store.NextInvoiceID(ctx)
	if err != nil {
		b.metrics.IncrInvoice("failed")
		return nil, &domain.ErrPersistence{Op: "allocate invoice id", Err: err}
	}

	inv := &domain.Invoice{
		ID:            id,
		CustomerName:  name,
		CustomerPhone: customerPhone,
		Product: domain.ProductSnapshot{
			Name:     product.Name,
			Price:    product.Price,
			Currency: product.Currency,
		},
		IssuedAt: b.now().UTC(),
		Status:   domain.InvoiceIssued,
	}

	if err := b.store.SaveInvoice(ctx, inv); err != nil {
		b.metrics.IncrInvoice("failed")
		return nil, &domain.ErrPersistence{Op: "save invoice", Err: err}
	}
	b.metrics.IncrInvoice("issued")

	b.logger.Info("invoice issued",
		zap.Int64("invoice_id", inv.ID),
		zap.String("product", inv.Product.Name),
		zap.Float64("price", inv.Product.Price))

	if err := b.renderAndStore(ctx, inv); err != nil {
		// Invoice is already persisted; surface the render failure
		// without rolling anything back.
		b.logger.Error("invoice rendering failed", zap.Int64("invoice_id", inv.ID), zap.Error(err))
		return inv, &domain.ErrRendering{InvoiceID: inv.ID, Err: err}
	}

	return inv, nil
}

// Rerender regenerates the document for an already-issued invoice from
// its frozen snapshot. The id and the stored row are untouched.
func (b *Builder) Rerender(ctx context.Context, id int64) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "invoice.Rerender")
	defer span.End()

	inv, err := b.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.renderAndStore(ctx, inv); err != nil {
		return nil, &domain.ErrRendering{InvoiceID: id, Err: err}
	}
	return inv, nil
}

func (b *Builder) renderAndStore(ctx context.Context, inv *domain.Invoice) error {
	data, err := b.renderer.Render(inv)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	ref, err := b.artifacts.Put(fmt.Sprintf("invoice_%06d.pdf", inv.ID), data)
	if err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}

	inv.ArtifactRef = ref
	if err := b.store.SetInvoiceArtifact(ctx, inv.ID, ref); err != nil {
		return fmt.Errorf("record artifact ref: %w", err)
	}
	return nil
}
