package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const sendgridURL = "https://api.sendgrid.com/v3/mail/send"

// sendgridSender delivers mail through the SendGrid v3 HTTP API. It is
// stateless per call; the bound http.Client is the only memoized state.
type sendgridSender struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newSendGridSender(cfg Config) *sendgridSender {
	return &sendgridSender{
		apiKey:  cfg.SendGridAPIKey,
		baseURL: sendgridURL,
		client:  &http.Client{Timeout: cfg.SocketTimeout},
	}
}

// apiError is a non-2xx response from the mail API. Body is truncated for
// diagnostics.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("sendgrid API error: status=%d body=%s", e.Status, e.Body)
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridPayload struct {
	Personalizations []struct {
		To []sendgridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendgridAddress `json:"from"`
	Subject string          `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func (s *sendgridSender) Send(ctx context.Context, m Message) error {
	payload := sendgridPayload{
		From:    sendgridAddress{Email: m.From},
		Subject: m.Subject,
	}
	payload.Personalizations = append(payload.Personalizations, struct {
		To []sendgridAddress `json:"to"`
	}{To: []sendgridAddress{{Email: m.To}}})
	payload.Content = append(payload.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{Type: "text/html", Value: m.HTML})

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return &apiError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}

// Verify only checks that an API key is configured; the API has no
// lightweight verify call, so correctness surfaces on the first real send.
func (s *sendgridSender) Verify(_ context.Context) error {
	if s.apiKey == "" {
		return errors.New("sendgrid API key not configured")
	}

	return nil
}

func (s *sendgridSender) Close() error {
	return nil
}

// Retryable classifies API delivery errors: rate limiting (429) and server
// errors (5xx) are transient, as is a request that failed in transit
// without reaching a status code (network-layer). Other client errors,
// cancellation and local failures before the request left are permanent.
func (s *sendgridSender) Retryable(err error) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
