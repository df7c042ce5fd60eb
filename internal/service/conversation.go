// Package service holds the application services: the conversation
// orchestrator, admin catalog/invoice operations, and admin auth.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/observability"
	"github.com/alhassan/smart-sales-agent-go/internal/port"
)

var tracer = otel.Tracer("smart-sales-agent-go/service")

// IntentClassifier is what the orchestrator needs from the classifier.
type IntentClassifier interface {
	Classify(ctx context.Context, message, catalogSummary string) domain.IntentDecision
}

// InvoiceIssuer is what the orchestrator needs from the invoice builder.
type InvoiceIssuer interface {
	Issue(ctx context.Context, customerName, customerPhone, productRef string) (*domain.Invoice, error)
}

// Conversation orchestrates a single inbound message end to end. It is
// stateless across messages: every decision is made from the message
// text and the live catalog, never from prior turns.
type Conversation struct {
	classifier      IntentClassifier
	resolver        port.ProductResolver
	issuer          InvoiceIssuer
	catalog         port.CatalogStore
	chatLog         port.ChatLogStore
	sender          port.MessageSender
	dedup           port.Cache[bool]
	metrics         *observability.Metrics
	logger          *zap.Logger
	classifyTimeout time.Duration
	publicBaseURL   string
}

type ConversationOpts struct {
	Classifier      IntentClassifier
	Resolver        port.ProductResolver
	Issuer          InvoiceIssuer
	Catalog         port.CatalogStore
	ChatLog         port.ChatLogStore
	Sender          port.MessageSender
	Dedup           port.Cache[bool]
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	ClassifyTimeout time.Duration
	PublicBaseURL   string
}

func NewConversation(opts ConversationOpts) *Conversation {
	return &Conversation{
		classifier:      opts.Classifier,
		resolver:        opts.Resolver,
		issuer:          opts.Issuer,
		catalog:         opts.Catalog,
		chatLog:         opts.ChatLog,
		sender:          opts.Sender,
		dedup:           opts.Dedup,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		classifyTimeout: opts.ClassifyTimeout,
		publicBaseURL:   strings.TrimRight(opts.PublicBaseURL, "/"),
	}
}

// Handle classifies rawMessage, branches on intent, and produces the
// reply. Business failures (unknown product, missing name, storage or
// rendering trouble) always come back as customer-safe reply text, never
// as an error.
func (c *Conversation) Handle(ctx context.Context, rawMessage, senderID string) domain.Reply {
	ctx, span := tracer.Start(ctx, "service.Handle")
	defer span.End()
	start := time.Now()
	defer func() { c.metrics.RecordRequestDuration("handle_message", time.Since(start)) }()

	summary := c.catalogSummary(ctx)

	classifyCtx, cancel := context.WithTimeout(ctx, c.classifyTimeout)
	decision := c.classifier.Classify(classifyCtx, rawMessage, summary)
	cancel()

	c.metrics.IncrMessage(string(decision.Kind))
	c.logger.Info("message classified",
		zap.String("sender", senderID),
		zap.String("intent", string(decision.Kind)),
		zap.Float64("confidence", decision.Confidence))

	var reply domain.Reply
	switch decision.Kind {
	case domain.IntentPriceInquiry:
		reply = c.replyPrice(ctx, decision)
	case domain.IntentInvoiceRequest:
		reply = c.replyInvoice(ctx, decision, senderID)
	default:
		reply = domain.Reply{Text: "I can help with product prices or invoices. Try \"how much is a logo design?\" or \"invoice for business cards, my name is Ahmad\"."}
	}
	reply.Intent = decision.Kind
	return reply
}

func (c *Conversation) replyPrice(ctx context.Context, decision domain.IntentDecision) domain.Reply {
	if decision.ProductReference != "" {
		product, err := c.resolver.Resolve(ctx, decision.ProductReference)
		if err == nil {
			return domain.Reply{Text: fmt.Sprintf("%s: %s %s. Want an invoice? Just send the product and your name.",
				product.Name, formatPrice(product.Price), product.Currency)}
		}
		var notFound *domain.ErrProductNotFound
		if !errors.As(err, &notFound) {
			c.logger.Error("price lookup failed", zap.Error(err))
			return domain.Reply{Text: "Sorry, I couldn't check prices right now. Please try again in a moment."}
		}
	}
	// No usable reference: enumerate the catalog instead.
	return domain.Reply{Text: c.catalogReply(ctx)}
}

func (c *Conversation) replyInvoice(ctx context.Context, decision domain.IntentDecision, senderID string) domain.Reply {
	inv, err := c.issuer.Issue(ctx, decision.CustomerName, senderID, decision.ProductReference)
	if err != nil {
		var (
			notFound    *domain.ErrProductNotFound
			invalidName *domain.ErrInvalidCustomerName
			rendering   *domain.ErrRendering
		)
		switch {
		case errors.As(err, &notFound):
			return domain.Reply{Text: fmt.Sprintf("I couldn't find \"%s\" in our catalog. Which product did you mean? Send \"prices\" to see everything we offer.", decision.ProductReference)}
		case errors.As(err, &invalidName):
			return domain.Reply{Text: "Happy to prepare an invoice! Who should it be made out to? Please send the product and your name."}
		case errors.As(err, &rendering):
			// The invoice row exists but the document does not; an
			// operator can re-render it, so no invoice is claimed here.
			c.logger.Error("invoice rendering failed, operator follow-up needed",
				zap.Int64("invoice_id", rendering.InvoiceID), zap.Error(err))
			return domain.Reply{Text: "Sorry, something went wrong while preparing your invoice. We're on it, please try again shortly."}
		default:
			c.logger.Error("invoice issuance failed", zap.String("sender", senderID), zap.Error(err))
			return domain.Reply{Text: "Sorry, something went wrong while preparing your invoice. Please try again in a moment."}
		}
	}

	return domain.Reply{
		Text: fmt.Sprintf("Invoice #%d issued for %s: %s, %s %s. Your PDF copy is attached.",
			inv.ID, inv.CustomerName, inv.Product.Name, formatPrice(inv.Product.Price), inv.Product.Currency),
		ArtifactRef: inv.ArtifactRef,
	}
}

// catalogSummary renders the live catalog as grounding context for the
// classifier. A read failure degrades to an empty summary rather than
// failing the message.
func (c *Conversation) catalogSummary(ctx context.Context) string {
	products, err := c.catalog.ReadCatalog(ctx)
	if err != nil {
		c.logger.Warn("catalog summary unavailable", zap.Error(err))
		return ""
	}
	lines := make([]string, 0, len(products))
	for _, p := range products {
		lines = append(lines, fmt.Sprintf("%s: %s %s", p.Name, formatPrice(p.Price), p.Currency))
	}
	return strings.Join(lines, "; ")
}

func (c *Conversation) catalogReply(ctx context.Context) string {
	products, err := c.catalog.ReadCatalog(ctx)
	if err != nil || len(products) == 0 {
		return "Sorry, I couldn't check prices right now. Please try again in a moment."
	}
	var b strings.Builder
	b.WriteString("Here's what we offer:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "%s: %s %s\n", p.Name, formatPrice(p.Price), p.Currency)
	}
	b.WriteString("Ask about any of them or request an invoice.")
	return b.String()
}

// formatPrice renders a price with at least one decimal place, so whole
// amounts read as "50.0" rather than "50".
func formatPrice(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ProcessInbound runs the full webhook pipeline for one delivery: dedup
// by message sid, handle, log both directions, send the outbound reply.
// Chat-log writes for the two directions run concurrently; a log failure
// is reported but never blocks the customer's reply.
func (c *Conversation) ProcessInbound(ctx context.Context, msg domain.InboundMessage) error {
	ctx, span := tracer.Start(ctx, "service.ProcessInbound")
	defer span.End()

	if msg.MessageSid != "" {
		if _, seen := c.dedup.Get(msg.MessageSid); seen {
			c.metrics.IncrCacheHit("dedup")
			c.logger.Info("duplicate delivery skipped", zap.String("message_sid", msg.MessageSid))
			return nil
		}
		c.metrics.IncrCacheMiss("dedup")
		c.dedup.Set(msg.MessageSid, true)
	}

	reply := c.Handle(ctx, msg.Body, msg.From)

	mediaURL := ""
	if reply.ArtifactRef != "" && c.publicBaseURL != "" {
		mediaURL = c.publicBaseURL + "/v1/artifacts/" + reply.ArtifactRef
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.logChat(gctx, msg.From, "incoming", msg.Body, string(reply.Intent))
	})
	g.Go(func() error {
		return c.logChat(gctx, msg.From, "outgoing", reply.Text, string(reply.Intent))
	})
	g.Go(func() error {
		if err := c.sender.SendMessage(gctx, msg.From, reply.Text, mediaURL); err != nil {
			c.metrics.IncrExternalError("twilio")
			return fmt.Errorf("send reply: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (c *Conversation) logChat(ctx context.Context, phone, direction, content, intent string) error {
	entry := &domain.ChatLogEntry{
		PhoneNumber: phone,
		Direction:   direction,
		Content:     content,
		Intent:      intent,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.chatLog.LogMessage(ctx, entry); err != nil {
		c.logger.Warn("chat log write failed",
			zap.String("direction", direction), zap.Error(err))
	}
	// Logging is best effort.
	return nil
}
