package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LineItem describes one purchasable line shown on the provider's hosted
// checkout page.
type LineItem struct {
	Name       string `json:"name"`
	UnitAmount uint64 `json:"unit_amount"` // cents
	Quantity   int    `json:"quantity"`
}

// SessionRequest is the payload for creating a hosted checkout session.
// Reference is our order's payment_ref; the provider echoes it back in
// webhook events so callbacks can be correlated with orders.
type SessionRequest struct {
	Reference  string     `json:"reference"`
	Currency   string     `json:"currency"`
	LineItems  []LineItem `json:"line_items"`
	SuccessURL string     `json:"success_url"`
	CancelURL  string     `json:"cancel_url"`
}

// Session is the provider's response: an opaque session ID and the URL the
// customer must be redirected to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event is a webhook payload.  Only checkout.completed carries meaning for
// this application; other types are acknowledged and dropped.
type Event struct {
	Type        string `json:"type"`
	Reference   string `json:"payment_ref"`
	AmountCents uint64 `json:"amount_cents"`
	SessionID   string `json:"session_id"`
}

// EventCheckoutCompleted marks a successfully paid checkout session.
const EventCheckoutCompleted = "checkout.completed"

// ParseEvent decodes a webhook body.  Callers must verify the signature
// before trusting the result.
func ParseEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event missing type")
	}
	return ev, nil
}

// Client calls the provider's HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient builds a Client for the given API base URL and secret key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateSession registers a checkout session with the provider and returns
// the redirect target.  Non-2xx responses are returned as errors with a
// short body excerpt for the log.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/checkout/sessions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("payment api read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(body)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return nil, fmt.Errorf("payment api status %d: %s", resp.StatusCode, excerpt)
	}
	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.URL == "" {
		return nil, fmt.Errorf("payment api returned session without url")
	}
	return &s, nil
}
