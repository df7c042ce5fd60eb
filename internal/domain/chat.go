package domain

import "time"

// InboundMessage is one webhook delivery from the messaging channel.
// MessageSid is the provider's delivery id — used to drop retried
// deliveries of the same message.
type InboundMessage struct {
	Body       string
	From       string
	MessageSid string
}

// Reply is what the orchestrator produces for one inbound message.
// ArtifactRef points at a generated document (invoice PDF) when there
// is one; it is a storage reference, not a public URL.
type Reply struct {
	Text        string
	ArtifactRef string
	Intent      IntentKind
}

// ChatLogEntry is one logged message, incoming or outgoing. Best-effort
// audit trail for the admin side; losing a log line never blocks a reply.
type ChatLogEntry struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	Direction   string    `json:"direction"` // "incoming" | "outgoing"
	Content     string    `json:"content"`
	Intent      string    `json:"intent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OpsMetrics is the snapshot served by GET /v1/metrics/ops for the
// admin dashboard.
type OpsMetrics struct {
	MessagesTotal       int64   `json:"messages_total"`
	InvoicesIssued      int64   `json:"invoices_issued"`
	InvoicesFailed      int64   `json:"invoices_failed"`
	ClassifierFallbacks int64   `json:"classifier_fallbacks"`
	FallbackRate        float64 `json:"fallback_rate"`
	AvgTokensPerMessage float64 `json:"avg_tokens_per_message"`
	EstimatedCostUSD    float64 `json:"estimated_cost_usd"`
	Period              string  `json:"period"`
}
