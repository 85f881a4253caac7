package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Params are the per-request sampling knobs. Zero values are omitted from
// the request so the provider's defaults apply.
type Params struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Client is a thin chat-completions client. The zero value is usable;
// provider, key and base URL are resolved from env on each call so the
// process picks up rotated keys without a restart. Model may be empty, in
// which case OPENAI_MODEL/OPENROUTER_MODEL decide.
type Client struct {
	Model string

	// HTTPClient overrides the transport; nil means http.DefaultClient.
	// The caller's context carries the deadline, so no client-level
	// timeout is set here.
	HTTPClient *http.Client
}

// Generate sends one system+user exchange and returns the model's text.
func (c *Client) Generate(ctx context.Context, system, user string, p Params) (string, error) {
	return generateText(ctx, c.httpc(), c.Model, system, user, p)
}

func (c *Client) httpc() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func generateText(ctx context.Context, httpc *http.Client, model, system, user string, p Params) (string, error) {
	cfg, err := resolveAPIConfig(model)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"model": cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	if p.MaxTokens > 0 {
		payload["max_tokens"] = p.MaxTokens
	}
	if p.Temperature > 0 {
		payload["temperature"] = p.Temperature
	}
	if p.TopP > 0 {
		payload["top_p"] = p.TopP
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(cfg.HeaderName, cfg.HeaderPrefix+cfg.APIKey)
	if cfg.Organization != "" {
		req.Header.Set("OpenAI-Organization", cfg.Organization)
	}
	for k, v := range cfg.ExtraHeaders {
		req.Header[k] = []string{v}
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	body := buf.Bytes()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm http %d: %s", resp.StatusCode, truncate(string(body), 800))
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &cc); err != nil {
		return "", err
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
