package memstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/memstore"
)

func TestNextInvoiceID_ConcurrentUnique(t *testing.T) {
	store := memstore.New()

	const n = 200
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.NextInvoiceID(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	var max int64
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
		if id > max {
			max = id
		}
	}
	if len(seen) != n {
		t.Fatalf("expected %d unique ids, got %d", n, len(seen))
	}
	if max != n {
		t.Errorf("expected contiguous range up to %d, got max %d", n, max)
	}
}

func TestSaveInvoice_RejectsDuplicateID(t *testing.T) {
	store := memstore.New()

	inv := &domain.Invoice{ID: 1, CustomerName: "Ahmad", Status: domain.InvoiceIssued}
	if err := store.SaveInvoice(context.Background(), inv); err != nil {
		t.Fatalf("expected save success, got %v", err)
	}
	if err := store.SaveInvoice(context.Background(), inv); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestCatalogCRUD(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	created, err := store.CreateProduct(ctx, &domain.Product{Name: "Logo Design", Price: 50, Currency: "JOD"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}

	updated, err := store.UpdateProductPrice(ctx, created.ID, 75)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 75 {
		t.Errorf("expected price 75, got %f", updated.Price)
	}

	products, err := store.ReadCatalog(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(products) != 1 || products[0].Price != 75 {
		t.Errorf("unexpected catalog: %+v", products)
	}

	if err := store.DeleteProduct(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetProduct(ctx, created.ID); err == nil {
		t.Fatal("expected not found after delete")
	}
}

func TestListInvoices_Pagination(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		id, _ := store.NextInvoiceID(ctx)
		if err := store.SaveInvoice(ctx, &domain.Invoice{ID: id, CustomerName: "Ahmad", Status: domain.InvoiceIssued}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	page1, err := store.ListInvoices(ctx, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != 5 {
		t.Errorf("expected newest first, got %+v", page1)
	}

	page3, err := store.ListInvoices(ctx, 3, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page3) != 1 {
		t.Errorf("expected 1 invoice on last page, got %d", len(page3))
	}

	empty, err := store.ListInvoices(ctx, 4, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page, got %d", len(empty))
	}
}
