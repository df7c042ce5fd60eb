package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/catalog"
	"github.com/alhassan/smart-sales-agent-go/internal/classify"
	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/handler"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/artifact"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/cache"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/llm"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/memstore"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/observability"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/pdfgen"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/resilience"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/twilio"
	"github.com/alhassan/smart-sales-agent-go/internal/invoice"
	"github.com/alhassan/smart-sales-agent-go/internal/service"
)

// openAIContent wraps an extraction decision in the chat-completions
// response envelope.
func openAIContent(t *testing.T, decision map[string]any) string {
	t.Helper()
	content, err := json.Marshal(decision)
	if err != nil {
		t.Fatalf("marshal decision: %v", err)
	}
	envelope := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": string(content)}},
		},
		"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 30},
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return string(payload)
}

type env struct {
	router http.Handler
	store  *memstore.Store
	sent   chan url.Values
}

// newEnv wires the whole pipeline against a fake OpenAI and a fake
// Twilio server.
func newEnv(t *testing.T, openAIHandler http.HandlerFunc) *env {
	t.Helper()

	openAIServer := httptest.NewServer(openAIHandler)
	t.Cleanup(openAIServer.Close)

	sent := make(chan url.Values, 4)
	twilioServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sent <- r.PostForm
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"sid":"SM_fake"}`)
	}))
	t.Cleanup(twilioServer.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	resCfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	store := memstore.New()
	store.Seed([]domain.Product{
		{Name: "Logo Design", Price: 50.0, Currency: "JOD"},
		{Name: "Business Cards", Price: 25.0, Currency: "JOD"},
		{Name: "Banner Printing", Price: 15.0, Currency: "JOD"},
	})

	artifacts, err := artifact.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("artifact store: %v", err)
	}

	resolver := catalog.NewResolver(store, 0.55, logger)
	extractor := llm.NewOpenAIExtractor(
		httpClient, openAIServer.URL, "test-key", "gpt-4o-mini",
		resilience.NewCircuitBreaker("openai-it"), resCfg, metrics,
	)
	classifier, err := classify.NewClassifier(extractor, 0.6, metrics, logger)
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	builder := invoice.NewBuilder(resolver, store, pdfgen.NewRenderer("Integration Print Shop"), artifacts, metrics, logger)
	sender := twilio.NewSender(
		httpClient, twilioServer.URL, "AC_test", "token", "whatsapp:+962799999999",
		resilience.NewCircuitBreaker("twilio-it"), resCfg,
	)

	conv := service.NewConversation(service.ConversationOpts{
		Classifier:      classifier,
		Resolver:        resolver,
		Issuer:          builder,
		Catalog:         store,
		ChatLog:         store,
		Sender:          sender,
		Dedup:           cache.New[bool](time.Minute),
		Metrics:         metrics,
		Logger:          logger,
		ClassifyTimeout: 5 * time.Second,
		PublicBaseURL:   "https://agent.example.com",
	})

	adminSvc := service.NewAdminService(store, store, artifacts, builder, metrics, "JOD", logger)
	authSvc := service.NewAuthService("", "it-secret", time.Hour, logger)

	router := handler.NewRouter(handler.Deps{
		Conversation: conv,
		Admin:        adminSvc,
		Auth:         authSvc,
		Metrics:      metrics,
		Bulkhead:     resilience.NewBulkhead(10),
		Logger:       logger,
	})

	return &env{router: router, store: store, sent: sent}
}

func postWebhook(t *testing.T, router http.Handler, body, from, sid string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{}
	form.Set("Body", body)
	form.Set("From", from)
	form.Set("MessageSid", sid)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func productID(t *testing.T, store *memstore.Store, name string) string {
	t.Helper()

	products, err := store.ReadCatalog(context.Background())
	if err != nil {
		t.Fatalf("read catalog: %v", err)
	}
	for _, p := range products {
		if p.Name == name {
			return p.ID
		}
	}
	t.Fatalf("product %q not seeded", name)
	return ""
}

func waitForSent(t *testing.T, sent chan url.Values) url.Values {
	t.Helper()

	select {
	case form := <-sent:
		return form
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the outbound message")
		return nil
	}
}

// TestIntegration_PriceInquiry runs a webhook delivery through
// classification and catalog resolution to the outbound price quote.
func TestIntegration_PriceInquiry(t *testing.T) {
	payload := openAIContent(t, map[string]any{
		"intent":        "price_inquiry",
		"product":       "logo design",
		"customer_name": "",
		"confidence":    0.95,
	})
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, payload)
	})

	rec := postWebhook(t, e.router, "how much is a logo design?", "whatsapp:+962790000001", "SM_price_1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	form := waitForSent(t, e.sent)
	if !strings.Contains(form.Get("Body"), "Logo Design: 50.0 JOD") {
		t.Errorf("expected price quote, got %q", form.Get("Body"))
	}
	if form.Get("To") != "whatsapp:+962790000001" {
		t.Errorf("expected reply to the sender, got %q", form.Get("To"))
	}
	if form.Get("MediaUrl") != "" {
		t.Errorf("price quotes carry no attachment, got %q", form.Get("MediaUrl"))
	}
}

// TestIntegration_InvoiceFlow covers the full happy path: webhook in,
// invoice persisted with a frozen price, PDF attached to the reply.
func TestIntegration_InvoiceFlow(t *testing.T) {
	payload := openAIContent(t, map[string]any{
		"intent":        "invoice_request",
		"product":       "business cards",
		"customer_name": "Ahmad",
		"confidence":    0.92,
	})
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, payload)
	})

	rec := postWebhook(t, e.router, "invoice for business cards, my name is Ahmad", "whatsapp:+962790000002", "SM_inv_1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", rec.Code)
	}

	form := waitForSent(t, e.sent)
	body := form.Get("Body")
	if !strings.Contains(body, "Invoice #1 issued for Ahmad") {
		t.Errorf("expected issued invoice confirmation, got %q", body)
	}
	if !strings.Contains(body, "Business Cards, 25.0 JOD") {
		t.Errorf("expected frozen price in confirmation, got %q", body)
	}
	mediaURL := form.Get("MediaUrl")
	if !strings.HasPrefix(mediaURL, "https://agent.example.com/v1/artifacts/") {
		t.Errorf("expected artifact link, got %q", mediaURL)
	}

	// The stored snapshot must survive later catalog edits.
	ctx := context.Background()
	if _, err := e.store.UpdateProductPrice(ctx, productID(t, e.store, "Business Cards"), 99.0); err != nil {
		t.Fatalf("update price: %v", err)
	}
	inv, err := e.store.GetInvoice(ctx, 1)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if inv.Product.Price != 25.0 {
		t.Errorf("invoice price must stay frozen at 25.0, got %v", inv.Product.Price)
	}
	if inv.Status != "issued" {
		t.Errorf("expected status issued, got %q", inv.Status)
	}
	if inv.ArtifactRef == "" {
		t.Error("expected a rendered artifact reference")
	}
}

// TestIntegration_ClassifierOutage verifies the agent degrades to the
// help reply when the model API is down, with no invoice side effects.
func TestIntegration_ClassifierOutage(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rec := postWebhook(t, e.router, "invoice for a banner please, I'm Lina", "whatsapp:+962790000003", "SM_out_1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack even during an outage, got %d", rec.Code)
	}

	form := waitForSent(t, e.sent)
	if !strings.Contains(form.Get("Body"), "I can help with product prices or invoices") {
		t.Errorf("expected fallback help reply, got %q", form.Get("Body"))
	}

	invoices, err := e.store.ListInvoices(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	if len(invoices) != 0 {
		t.Errorf("outage must not issue invoices, got %d", len(invoices))
	}
}

// TestIntegration_DuplicateDelivery replays the same MessageSid and
// expects exactly one outbound reply.
func TestIntegration_DuplicateDelivery(t *testing.T) {
	payload := openAIContent(t, map[string]any{
		"intent":        "price_inquiry",
		"product":       "banner printing",
		"customer_name": "",
		"confidence":    0.9,
	})
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, payload)
	})

	postWebhook(t, e.router, "banner price?", "whatsapp:+962790000004", "SM_dup_1")
	waitForSent(t, e.sent)

	postWebhook(t, e.router, "banner price?", "whatsapp:+962790000004", "SM_dup_1")

	select {
	case form := <-e.sent:
		t.Errorf("duplicate delivery produced a second send: %q", form.Get("Body"))
	case <-time.After(300 * time.Millisecond):
	}
}
