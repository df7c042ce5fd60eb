package domain

import "time"

// InvoiceStatus tracks the lifecycle of an invoice record.
type InvoiceStatus string

const (
	InvoiceIssued InvoiceStatus = "issued"
	InvoiceFailed InvoiceStatus = "failed"
)

// ProductSnapshot is the frozen copy of the product data captured at
// issuance time. Invoices carry the snapshot, never a reference to the
// live product, so later catalog price edits cannot rewrite history.
type ProductSnapshot struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// Invoice is an issued financial document. The id is a monotonically
// increasing integer allocated by the store, globally unique, never
// reused. The record is immutable after creation except for ArtifactRef,
// which is filled in once the PDF has been rendered and stored (and may
// be refreshed by a re-render without touching anything else).
type Invoice struct {
	ID            int64           `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Product       ProductSnapshot `json:"product"`
	IssuedAt      time.Time       `json:"issued_at"`
	Status        InvoiceStatus   `json:"status"`
	ArtifactRef   string          `json:"artifact_ref,omitempty"`
}
