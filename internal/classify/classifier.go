// Package classify turns raw customer messages into structured intent
// decisions using an external language model, treating its output as an
// untrusted payload.
package classify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/observability"
	"github.com/alhassan/smart-sales-agent-go/internal/port"
)

var tracer = otel.Tracer("smart-sales-agent-go/classify")

// decisionSchema constrains what the model may hand us. Anything outside
// it (extra intents, confidence out of range, wrong types) is rejected
// wholesale rather than patched up.
const decisionSchema = `{
	"type": "object",
	"required": ["intent", "confidence"],
	"additionalProperties": true,
	"properties": {
		"intent": {
			"type": "string",
			"enum": ["price_inquiry", "invoice_request", "unhandled"]
		},
		"product": {"type": "string"},
		"customer_name": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

type decisionPayload struct {
	Intent       string  `json:"intent"`
	Product      string  `json:"product"`
	CustomerName string  `json:"customer_name"`
	Confidence   float64 `json:"confidence"`
}

// Classifier validates and normalizes extractor output. It never returns
// an error: every failure mode collapses to IntentUnhandled with
// confidence 0 so the conversation keeps moving.
type Classifier struct {
	extractor     port.IntentExtractor
	schema        *gojsonschema.Schema
	minConfidence float64
	metrics       *observability.Metrics
	logger        *zap.Logger
}

func NewClassifier(extractor port.IntentExtractor, minConfidence float64, metrics *observability.Metrics, logger *zap.Logger) (*Classifier, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(decisionSchema))
	if err != nil {
		return nil, err
	}
	return &Classifier{
		extractor:     extractor,
		schema:        schema,
		minConfidence: minConfidence,
		metrics:       metrics,
		logger:        logger,
	}, nil
}

// Classify extracts an intent decision for message. catalogSummary gives
// the model the current product names so it grounds its product field.
func (c *Classifier) Classify(ctx context.Context, message, catalogSummary string) domain.IntentDecision {
	ctx, span := tracer.Start(ctx, "classify.Classify")
	defer span.End()

	raw, err := c.extractor.Extract(ctx, message, catalogSummary)
	if err != nil {
		c.logger.Warn("intent extraction failed", zap.Error(err))
		c.metrics.IncrExternalError("llm")
		return c.fallback()
	}

	payload, err := c.parse(raw)
	if err != nil {
		c.logger.Warn("intent payload rejected",
			zap.Error(err),
			zap.ByteString("raw", truncate(raw, 512)))
		return c.fallback()
	}

	decision := domain.IntentDecision{
		Kind:             domain.IntentKind(payload.Intent),
		ProductReference: strings.TrimSpace(payload.Product),
		CustomerName:     strings.TrimSpace(payload.CustomerName),
		Confidence:       payload.Confidence,
	}

	if decision.Confidence < c.minConfidence {
		c.logger.Info("confidence below threshold, downgrading",
			zap.String("intent", payload.Intent),
			zap.Float64("confidence", payload.Confidence),
			zap.Float64("min_confidence", c.minConfidence))
		decision.Kind = domain.IntentUnhandled
	}

	return decision
}

func (c *Classifier) parse(raw []byte) (*decisionPayload, error) {
	cleaned := stripFences(raw)

	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(cleaned))
	if err != nil {
		return nil, &domain.ErrClassificationUnavailable{Reason: "malformed JSON: " + err.Error()}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}
		return nil, &domain.ErrClassificationUnavailable{Reason: "schema violation: " + strings.Join(reasons, "; ")}
	}

	var payload decisionPayload
	if err := json.Unmarshal(cleaned, &payload); err != nil {
		return nil, &domain.ErrClassificationUnavailable{Reason: "decode: " + err.Error()}
	}
	return &payload, nil
}

func (c *Classifier) fallback() domain.IntentDecision {
	c.metrics.IncrFallback()
	return domain.IntentDecision{Kind: domain.IntentUnhandled, Confidence: 0}
}

// stripFences removes a markdown code fence the model sometimes wraps
// its JSON in ("```json ... ```").
func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return []byte(s)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
