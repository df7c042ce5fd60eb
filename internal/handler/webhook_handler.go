package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/resilience"
	"github.com/alhassan/smart-sales-agent-go/internal/service"
)

// processTimeout bounds one background message pipeline end to end
// (classification, issuance, send).
const processTimeout = 60 * time.Second

// ============================================================
// Webhook — POST /v1/webhook/whatsapp
// ============================================================

// webhookHandler accepts a provider delivery (form-encoded Body/From/
// MessageSid), acknowledges immediately, and runs the pipeline in the
// background. The provider retries on slow responses, so the ack must
// not wait for the LLM.
func webhookHandler(conv *service.Conversation, bulkhead *resilience.Bulkhead, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/webhook/whatsapp")
		defer span.End()

		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "malformed form body")
			return
		}

		msg := domain.InboundMessage{
			Body:       strings.TrimSpace(r.PostFormValue("Body")),
			From:       strings.TrimSpace(r.PostFormValue("From")),
			MessageSid: strings.TrimSpace(r.PostFormValue("MessageSid")),
		}
		if msg.From == "" {
			writeError(w, http.StatusBadRequest, "missing From")
			return
		}

		deliveryID := uuid.NewString()
		logger.Info("webhook delivery accepted",
			zap.String("delivery_id", deliveryID),
			zap.String("from", msg.From),
			zap.String("message_sid", msg.MessageSid))

		// The request context dies with the ack; processing gets its own.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
			defer cancel()

			if err := bulkhead.Acquire(ctx); err != nil {
				logger.Error("webhook processing slot unavailable",
					zap.String("delivery_id", deliveryID), zap.Error(err))
				return
			}
			defer bulkhead.Release()

			if err := conv.ProcessInbound(ctx, msg); err != nil {
				logger.Error("webhook processing failed",
					zap.String("delivery_id", deliveryID), zap.Error(err))
			}
		}()

		writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
	}
}

// ============================================================
// Test endpoint — GET /v1/test/{message}
// ============================================================

// testMessageHandler runs the conversation synchronously and returns
// the reply. No message is sent anywhere; useful for manual checks.
func testMessageHandler(conv *service.Conversation, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/test/{message}")
		defer span.End()

		raw := chi.URLParam(r, "message")
		message, err := url.PathUnescape(raw)
		if err != nil {
			message = raw
		}
		if strings.TrimSpace(message) == "" {
			writeError(w, http.StatusBadRequest, "empty message")
			return
		}

		reply := conv.Handle(ctx, message, "test:local")
		writeJSON(w, http.StatusOK, map[string]string{
			"reply":        reply.Text,
			"intent":       string(reply.Intent),
			"artifact_ref": reply.ArtifactRef,
		})
	}
}
