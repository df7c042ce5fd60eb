// Package memstore provides in-memory implementations of the storage
// ports. The default backend for local development and tests; Supabase
// replaces it in production deployments.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
)

// Store keeps the catalog, invoices, and chat log in process memory.
// Invoice ids come from a single atomic counter, never from scanning
// existing rows.
type Store struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	invoices  map[int64]domain.Invoice
	chatLog   []domain.ChatLogEntry
	invoiceID int64
}

func New() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		invoices: make(map[int64]domain.Invoice),
	}
}

// Seed loads an initial catalog. Intended for startup and tests.
func (s *Store) Seed(products []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.products[p.ID] = p
	}
}

// ============================================================
// port.CatalogStore
// ============================================================

func (s *Store) ReadCatalog(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	return &p, nil
}

func (s *Store) CreateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	cp.ID = uuid.NewString()
	s.products[cp.ID] = cp
	return &cp, nil
}

func (s *Store) UpdateProductPrice(_ context.Context, id string, price float64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	p.Price = price
	s.products[id] = p
	return &p, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return &domain.ErrNotFound{Resource: "product", ID: id}
	}
	delete(s.products, id)
	return nil
}

// ============================================================
// port.InvoiceStore
// ============================================================

// NextInvoiceID allocates the next id with a single atomic increment.
func (s *Store) NextInvoiceID(_ context.Context) (int64, error) {
	return atomic.AddInt64(&s.invoiceID, 1), nil
}

func (s *Store) SaveInvoice(_ context.Context, inv *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.ID]; exists {
		// A duplicate id means the allocation discipline was broken
		// somewhere upstream; refuse rather than overwrite.
		return fmt.Errorf("invoice id %d already persisted", inv.ID)
	}
	s.invoices[inv.ID] = *inv
	return nil
}

func (s *Store) GetInvoice(_ context.Context, id int64) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: fmt.Sprint(id)}
	}
	return &inv, nil
}

func (s *Store) ListInvoices(_ context.Context, page, pageSize int) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		all = append(all, inv)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	start := (page - 1) * pageSize
	if start >= len(all) {
		return []domain.Invoice{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (s *Store) SetInvoiceArtifact(_ context.Context, id int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "invoice", ID: fmt.Sprint(id)}
	}
	inv.ArtifactRef = ref
	s.invoices[id] = inv
	return nil
}

// ============================================================
// port.ChatLogStore
// ============================================================

func (s *Store) LogMessage(_ context.Context, entry *domain.ChatLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.chatLog = append(s.chatLog, *entry)
	return nil
}

// ChatLog returns a copy of all logged messages.
func (s *Store) ChatLog() []domain.ChatLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ChatLogEntry(nil), s.chatLog...)
}
