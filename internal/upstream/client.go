// Package upstream sends translated request bodies to provider backends
// and returns their responses verbatim. Deciding whether a response is a
// failure is the classifier's job, not this client's.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/core/ports"
)

// Endpoint describes where a provider lives.
type Endpoint struct {
	BaseURL string
	// Version is the anthropic-version header value for Anthropic
	// backends; ignored elsewhere.
	Version string
}

var defaultEndpoints = map[string]Endpoint{
	"openai":     {BaseURL: "https://api.openai.com/v1"},
	"openrouter": {BaseURL: "https://openrouter.ai/api/v1"},
	"deepseek":   {BaseURL: "https://api.deepseek.com/v1"},
	"groq":       {BaseURL: "https://api.groq.com/openai/v1"},
	"anthropic":  {BaseURL: "https://api.anthropic.com", Version: "2023-06-01"},
	"google":     {BaseURL: "https://generativelanguage.googleapis.com"},
}

// Client implements ports.Upstream over plain HTTP. Credentials come from
// the token source per request; a token failure surfaces as a send error,
// which the dispatcher treats like any other fallback trigger.
type Client struct {
	http      *http.Client
	tokens    ports.TokenSource
	endpoints map[string]Endpoint
}

func NewClient(tokens ports.TokenSource, endpoints map[string]Endpoint, timeout time.Duration) *Client {
	merged := make(map[string]Endpoint, len(defaultEndpoints)+len(endpoints))
	for k, v := range defaultEndpoints {
		merged[k] = v
	}
	for k, v := range endpoints {
		key := strings.ToLower(k)
		if v.BaseURL == "" {
			if def, ok := merged[key]; ok {
				v.BaseURL = def.BaseURL
			}
		}
		merged[key] = v
	}

	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		tokens:    tokens,
		endpoints: merged,
	}
}

func (c *Client) Send(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
	endpoint, ok := c.endpoints[strings.ToLower(provider)]
	if !ok || endpoint.BaseURL == "" {
		return nil, fmt.Errorf("no endpoint configured for provider %q", provider)
	}

	token, err := c.tokens.Token(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("acquire token for %s: %w", provider, err)
	}

	url := requestURL(endpoint.BaseURL, provider, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	setAuth(req, provider, token, endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &ports.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

func requestURL(base, provider, model string) string {
	base = strings.TrimRight(base, "/")
	switch domain.FamilyForProvider(provider) {
	case domain.FormatAnthropic:
		return base + "/v1/messages"
	case domain.FormatGoogle:
		return fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, model)
	default:
		return base + "/chat/completions"
	}
}

func setAuth(req *http.Request, provider, token string, endpoint Endpoint) {
	switch domain.FamilyForProvider(provider) {
	case domain.FormatAnthropic:
		req.Header.Set("x-api-key", token)
		version := endpoint.Version
		if version == "" {
			version = "2023-06-01"
		}
		req.Header.Set("anthropic-version", version)
	case domain.FormatGoogle:
		req.Header.Set("x-goog-api-key", token)
	default:
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
