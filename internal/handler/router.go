// Package handler wires the HTTP surface: the messaging webhook, the
// admin dashboard API, and operational endpoints.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/infra/observability"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/resilience"
	"github.com/alhassan/smart-sales-agent-go/internal/service"
)

var tracer = otel.Tracer("smart-sales-agent-go/handler")

// Deps groups everything the router needs.
type Deps struct {
	Conversation *service.Conversation
	Admin        *service.AdminService
	Auth         *service.AuthService
	Metrics      *observability.Metrics
	Bulkhead     *resilience.Bulkhead
	Logger       *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(d.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Messaging webhook: acks immediately, processes in background.
		r.Post("/webhook/whatsapp", webhookHandler(d.Conversation, d.Bulkhead, d.Logger))

		// Synchronous conversation endpoint for manual testing.
		r.Get("/test/{message}", testMessageHandler(d.Conversation, d.Logger))

		// Rendered documents, fetched by the messaging provider.
		r.Get("/artifacts/{ref}", artifactHandler(d.Admin, d.Logger))

		// Public catalog read.
		r.Get("/products", listProductsHandler(d.Admin, d.Logger))

		// Admin auth.
		r.Post("/admin/login", adminLoginHandler(d.Auth, d.Logger))

		// Protected dashboard API.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, d.Logger))

			r.Post("/products", createProductHandler(d.Admin, d.Logger))
			r.Put("/products/{productId}/price", updatePriceHandler(d.Admin, d.Logger))
			r.Delete("/products/{productId}", deleteProductHandler(d.Admin, d.Logger))

			r.Get("/invoices", listInvoicesHandler(d.Admin, d.Logger))
			r.Get("/invoices/{invoiceId}", getInvoiceHandler(d.Admin, d.Logger))
			r.Get("/invoices/{invoiceId}/pdf", getInvoicePDFHandler(d.Admin, d.Logger))
			r.Post("/invoices/{invoiceId}/render", rerenderInvoiceHandler(d.Admin, d.Logger))

			r.Get("/metrics/ops", opsMetricsHandler(d.Admin))
		})
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
