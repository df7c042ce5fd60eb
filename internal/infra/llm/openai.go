// Package llm implements the intent extractor against the OpenAI
// chat-completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/observability"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/resilience"
)

var tracer = otel.Tracer("smart-sales-agent-go/llm")

const systemPrompt = `You are an intent extractor for a print shop's WhatsApp agent.
Given a customer message and the current catalog, respond with ONLY a JSON object:
{"intent": "price_inquiry" | "invoice_request" | "unhandled",
 "product": "<product reference from the message, verbatim, or empty>",
 "customer_name": "<customer name if stated, or empty>",
 "confidence": <0.0-1.0>}
Do not add any other text.`

// OpenAIExtractor calls the chat-completions endpoint and returns the
// model's raw content. Validation happens upstream in the classifier.
type OpenAIExtractor struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	metrics    *observability.Metrics
}

func NewOpenAIExtractor(httpClient *http.Client, baseURL, apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics) *OpenAIExtractor {
	return &OpenAIExtractor{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		cb:         cb,
		cfg:        cfg,
		metrics:    metrics,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Extract sends one extraction request. The raw model content comes
// back unparsed.
func (c *OpenAIExtractor) Extract(ctx context.Context, message, catalogSummary string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "OpenAIExtractor.Extract")
	defer span.End()

	var chatResp chatResponse

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(chatRequest{
				Model: c.model,
				Messages: []chatMessage{
					{Role: "system", Content: systemPrompt},
					{Role: "system", Content: "Current catalog: " + catalogSummary},
					{Role: "user", Content: message},
				},
				Temperature: 0,
			})
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("openai API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&chatResp)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return nil, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "openai", Err: err}
	}

	if len(chatResp.Choices) == 0 {
		return nil, &domain.ErrExternalService{Service: "openai", Err: fmt.Errorf("empty choices")}
	}

	c.metrics.RecordTokens(chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)
	return []byte(chatResp.Choices[0].Message.Content), nil
}
