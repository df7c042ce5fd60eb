package domain

// IntentKind is the classified purpose of a customer message.
type IntentKind string

const (
	// IntentPriceInquiry — the customer is asking what something costs.
	IntentPriceInquiry IntentKind = "price_inquiry"

	// IntentInvoiceRequest — the customer wants an invoice issued.
	IntentInvoiceRequest IntentKind = "invoice_request"

	// IntentUnhandled — anything we cannot (or should not) act on.
	// Also the forced outcome when the language model is unavailable or
	// its output fails validation.
	IntentUnhandled IntentKind = "unhandled"
)

// IntentDecision is the normalized output of the classifier. It is built
// from the language model's raw JSON only after that JSON passes schema
// validation, so downstream code can branch on it safely. Decisions are
// ephemeral — produced per message, never persisted.
type IntentDecision struct {
	Kind             IntentKind `json:"kind"`
	ProductReference string     `json:"product_reference,omitempty"`
	CustomerName     string     `json:"customer_name,omitempty"`

	// Confidence in [0,1] as reported by the model. Decisions below the
	// configured minimum are downgraded to IntentUnhandled before they
	// reach the orchestrator.
	Confidence float64 `json:"confidence"`
}
