// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations (Supabase, OpenAI, Twilio, in-memory).
package port

import (
	"context"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
)

// CatalogStore reads and manages the product catalog. The conversation
// core uses only ReadCatalog; the mutating methods back the admin API.
type CatalogStore interface {
	ReadCatalog(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error)
	UpdateProductPrice(ctx context.Context, id string, price float64) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ProductResolver maps a free-text product reference to a catalog product.
// Implemented by the catalog resolver; mocked in service tests.
type ProductResolver interface {
	Resolve(ctx context.Context, text string) (*domain.Product, error)
}

// InvoiceStore persists invoices. NextInvoiceID must be strictly
// serialized — no two calls may ever return the same id, even under full
// concurrency (atomic counter in memory, sequence in the database).
type InvoiceStore interface {
	NextInvoiceID(ctx context.Context) (int64, error)
	SaveInvoice(ctx context.Context, inv *domain.Invoice) error
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, page, pageSize int) ([]domain.Invoice, error)
	SetInvoiceArtifact(ctx context.Context, id int64, ref string) error
}

// ChatLogStore records inbound and outbound messages.
type ChatLogStore interface {
	LogMessage(ctx context.Context, entry *domain.ChatLogEntry) error
}

// IntentExtractor calls the external language-understanding service and
// returns its raw JSON output. The classifier treats that output as an
// untrusted oracle: it must pass schema validation before anything
// branches on it.
type IntentExtractor interface {
	Extract(ctx context.Context, message, catalogSummary string) ([]byte, error)
}

// Renderer turns an invoice snapshot into document bytes. Pure: it must
// not mutate the invoice, the catalog, or anything else.
type Renderer interface {
	Render(inv *domain.Invoice) ([]byte, error)
}

// ArtifactStore persists rendered documents and hands back a reference.
type ArtifactStore interface {
	Put(name string, data []byte) (string, error)
	Get(ref string) ([]byte, error)
}

// MessageSender delivers the outbound reply on the messaging channel.
// mediaURL is optional (invoice PDF attachment).
type MessageSender interface {
	SendMessage(ctx context.Context, to, body, mediaURL string) error
}

// Cache provides generic caching with TTL. Used for webhook delivery
// dedup, never for catalog reads: those must stay live.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
