package invoice_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/observability"
	"github.com/alhassan/smart-sales-agent-go/internal/invoice"
)

// --- Mocks ---

type mockResolver struct {
	product *domain.Product
	err     error
}

func (m *mockResolver) Resolve(_ context.Context, _ string) (*domain.Product, error) {
	return m.product, m.err
}

type mockInvoiceStore struct {
	mu       sync.Mutex
	counter  int64
	saved    map[int64]*domain.Invoice
	nextErr  error
	saveErr  error
	refErr   error
	saveHook func(inv *domain.Invoice)
}

func newMockInvoiceStore() *mockInvoiceStore {
	return &mockInvoiceStore{saved: make(map[int64]*domain.Invoice)}
}

func (m *mockInvoiceStore) NextInvoiceID(_ context.Context) (int64, error) {
	if m.nextErr != nil {
		return 0, m.nextErr
	}
	return atomic.AddInt64(&m.counter, 1), nil
}

func (m *mockInvoiceStore) SaveInvoice(_ context.Context, inv *domain.Invoice) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.saved[inv.ID] = &cp
	if m.saveHook != nil {
		m.saveHook(inv)
	}
	return nil
}

func (m *mockInvoiceStore) GetInvoice(_ context.Context, id int64) (*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.saved[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: fmt.Sprint(id)}
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvoiceStore) ListInvoices(_ context.Context, _, _ int) ([]domain.Invoice, error) {
	return nil, nil
}

func (m *mockInvoiceStore) SetInvoiceArtifact(_ context.Context, id int64, ref string) error {
	if m.refErr != nil {
		return m.refErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.saved[id]; ok {
		inv.ArtifactRef = ref
	}
	return nil
}

type mockRenderer struct {
	err   error
	calls int32
}

func (m *mockRenderer) Render(_ *domain.Invoice) ([]byte, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.err != nil {
		return nil, m.err
	}
	return []byte("%PDF-1.4 test"), nil
}

type mockArtifactStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMockArtifactStore() *mockArtifactStore {
	return &mockArtifactStore{data: make(map[string][]byte)}
}

func (m *mockArtifactStore) Put(name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = data
	return name, nil
}

func (m *mockArtifactStore) Get(ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[ref]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func logoProduct() *domain.Product {
	return &domain.Product{ID: "p-1", Name: "Logo Design", Price: 50.0, Currency: "JOD"}
}

func newBuilder(resolver *mockResolver, store *mockInvoiceStore, renderer *mockRenderer, artifacts *mockArtifactStore) *invoice.Builder {
	return invoice.NewBuilder(resolver, store, renderer, artifacts, observability.NewMetrics(), zap.NewNop())
}

// --- Tests ---

func TestIssue_Success(t *testing.T) {
	store := newMockInvoiceStore()
	artifacts := newMockArtifactStore()
	b := newBuilder(&mockResolver{product: logoProduct()}, store, &mockRenderer{}, artifacts)

	inv, err := b.Issue(context.Background(), "Ahmad", "whatsapp:+962790000001", "logo design")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if inv.ID != 1 {
		t.Errorf("expected invoice id 1, got %d", inv.ID)
	}
	if inv.CustomerName != "Ahmad" {
		t.Errorf("expected customer 'Ahmad', got '%s'", inv.CustomerName)
	}
	if inv.Product.Price != 50.0 {
		t.Errorf("expected frozen price 50.0, got %f", inv.Product.Price)
	}
	if inv.Status != domain.InvoiceIssued {
		t.Errorf("expected status issued, got %s", inv.Status)
	}
	if inv.ArtifactRef == "" {
		t.Error("expected artifact ref to be set")
	}
	if _, err := artifacts.Get(inv.ArtifactRef); err != nil {
		t.Errorf("expected stored artifact, got %v", err)
	}
}

func TestIssue_PriceFrozenAgainstCatalogChange(t *testing.T) {
	product := logoProduct()
	resolver := &mockResolver{product: product}
	store := newMockInvoiceStore()
	b := newBuilder(resolver, store, &mockRenderer{}, newMockArtifactStore())

	inv, err := b.Issue(context.Background(), "Ahmad", "", "logo")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Catalog price changes after issuance.
	product.Price = 75.0

	stored, err := store.GetInvoice(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("expected stored invoice, got %v", err)
	}
	if stored.Product.Price != 50.0 {
		t.Errorf("expected frozen price 50.0, got %f", stored.Product.Price)
	}
}

func TestIssue_EmptyCustomerName(t *testing.T) {
	store := newMockInvoiceStore()
	b := newBuilder(&mockResolver{product: logoProduct()}, store, &mockRenderer{}, newMockArtifactStore())

	_, err := b.Issue(context.Background(), "   ", "", "logo")
	var invalid *domain.ErrInvalidCustomerName
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidCustomerName, got %v", err)
	}
	if store.counter != 0 {
		t.Errorf("expected counter untouched, got %d", store.counter)
	}
}

func TestIssue_ProductNotFound(t *testing.T) {
	store := newMockInvoiceStore()
	b := newBuilder(&mockResolver{err: &domain.ErrProductNotFound{Reference: "flying car"}}, store, &mockRenderer{}, newMockArtifactStore())

	_, err := b.Issue(context.Background(), "Ahmad", "", "flying car")
	var notFound *domain.ErrProductNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if store.counter != 0 {
		t.Errorf("expected counter untouched after rejection, got %d", store.counter)
	}
	if len(store.saved) != 0 {
		t.Errorf("expected no invoice persisted, got %d", len(store.saved))
	}
}

func TestIssue_SaveFailure(t *testing.T) {
	store := newMockInvoiceStore()
	store.saveErr = errors.New("connection reset")
	b := newBuilder(&mockResolver{product: logoProduct()}, store, &mockRenderer{}, newMockArtifactStore())

	_, err := b.Issue(context.Background(), "Ahmad", "", "logo")
	var persistence *domain.ErrPersistence
	if !errors.As(err, &persistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestIssue_RenderFailureKeepsInvoice(t *testing.T) {
	store := newMockInvoiceStore()
	b := newBuilder(&mockResolver{product: logoProduct()}, store, &mockRenderer{err: errors.New("font missing")}, newMockArtifactStore())

	inv, err := b.Issue(context.Background(), "Ahmad", "", "logo")
	var rendering *domain.ErrRendering
	if !errors.As(err, &rendering) {
		t.Fatalf("expected ErrRendering, got %v", err)
	}
	if inv == nil {
		t.Fatal("expected issued invoice alongside rendering error")
	}
	if inv.Status != domain.InvoiceIssued {
		t.Errorf("expected status issued, got %s", inv.Status)
	}
	if _, err := store.GetInvoice(context.Background(), inv.ID); err != nil {
		t.Errorf("expected invoice persisted despite render failure, got %v", err)
	}
}

func TestRerender_UsesExistingSnapshot(t *testing.T) {
	store := newMockInvoiceStore()
	renderer := &mockRenderer{err: errors.New("font missing")}
	b := newBuilder(&mockResolver{product: logoProduct()}, store, renderer, newMockArtifactStore())

	inv, _ := b.Issue(context.Background(), "Ahmad", "", "logo")

	renderer.err = nil
	again, err := b.Rerender(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("expected rerender success, got %v", err)
	}
	if again.ID != inv.ID {
		t.Errorf("expected same id %d, got %d", inv.ID, again.ID)
	}
	if store.counter != 1 {
		t.Errorf("expected counter to stay at 1, got %d", store.counter)
	}
	if again.ArtifactRef == "" {
		t.Error("expected artifact ref after rerender")
	}
}

func TestRerender_UnknownInvoice(t *testing.T) {
	b := newBuilder(&mockResolver{product: logoProduct()}, newMockInvoiceStore(), &mockRenderer{}, newMockArtifactStore())

	_, err := b.Rerender(context.Background(), 404)
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIssue_ConcurrentIDsUnique(t *testing.T) {
	store := newMockInvoiceStore()
	b := newBuilder(&mockResolver{product: logoProduct()}, store, &mockRenderer{}, newMockArtifactStore())

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inv, err := b.Issue(context.Background(), fmt.Sprintf("Customer %d", i), "", "logo")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			ids <- inv.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate invoice id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d unique ids, got %d", n, len(seen))
	}
}
