package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// WebhookProvider asks an external policy service over HTTP. Request and
// response bodies are a minimal JSON contract; anything but a parseable 2xx
// answer is an error, never an implicit allow.
type WebhookProvider struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhookProvider(url string, token string) *WebhookProvider {
	return &WebhookProvider{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type allowRequest struct {
	UserID   string `json:"user_id"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
}

type allowResponse struct {
	Allow bool `json:"allow"`
}

func (p *WebhookProvider) Allow(ctx context.Context, userID, action, resource string) (bool, error) {
	if p.url == "" {
		return false, errors.New("policy service url not configured")
	}
	raw, err := json.Marshal(allowRequest{UserID: userID, Action: action, Resource: resource})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(raw))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, errors.New("policy service returned non-2xx")
	}
	var out allowResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Allow, nil
}
