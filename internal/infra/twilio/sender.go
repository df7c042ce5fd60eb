// Package twilio sends outbound WhatsApp messages through the Twilio
// REST API.
package twilio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/infra/resilience"
)

var tracer = otel.Tracer("smart-sales-agent-go/twilio")

// Sender posts messages to the Twilio Messages endpoint. mediaURL, when
// set, must be publicly reachable by Twilio.
type Sender struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

func NewSender(httpClient *http.Client, baseURL, accountSID, authToken, from string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Sender {
	return &Sender{
		httpClient: httpClient,
		baseURL:    baseURL,
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		cb:         cb,
		cfg:        cfg,
	}
}

// SendMessage delivers body (and optionally a media attachment) to the
// given WhatsApp address.
func (s *Sender) SendMessage(ctx context.Context, to, body, mediaURL string) error {
	ctx, span := tracer.Start(ctx, "Sender.SendMessage")
	defer span.End()

	_, err := s.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, s.cfg, func() error {
			form := url.Values{}
			form.Set("To", to)
			form.Set("From", s.from)
			form.Set("Body", body)
			if mediaURL != "" {
				form.Set("MediaUrl", mediaURL)
			}

			endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.SetBasicAuth(s.accountSID, s.authToken)

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 300 {
				return fmt.Errorf("twilio API returned status %d", resp.StatusCode)
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return nil, nil
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "twilio", Err: err}
	}
	return nil
}
