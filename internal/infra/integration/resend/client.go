package resend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchReceived loads the body and headers of one inbound message.
func (c *Client) FetchReceived(ctx context.Context, id string) (*ReceivedEmail, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("resend: api key not configured")
	}

	endpoint := fmt.Sprintf("%s/emails/receiving/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("read resend response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resend: fetch received email %s: status %d", id, resp.StatusCode)
	}

	var email ReceivedEmail
	if err := json.Unmarshal(body, &email); err != nil {
		return nil, fmt.Errorf("decode received email: %w", err)
	}
	return &email, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}
