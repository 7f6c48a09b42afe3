// Package inference talks to local Ollama-compatible vision
// endpoints and turns their JSON responses into author records.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/authorscan/internal/authors"
)

// Request is one page-image extraction call against an endpoint.
type Request struct {
	EndpointURL string
	Model       string
	Prompt      string
	Image       []byte // raw JPEG, base64-encoded on the wire
}

type generateReq struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
	Format string   `json:"format"`
}

type generateResp struct {
	Response string `json:"response"`
}

// Client issues generate calls. Safe for concurrent use.
type Client struct {
	http *http.Client
}

// NewClient returns a client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// ExtractAuthors sends the page image to the endpoint and parses the
// model's answer. A model response that is not valid JSON, or that
// lacks an authors array, yields zero records without an error; only
// transport and HTTP-status failures are errors.
func (c *Client) ExtractAuthors(ctx context.Context, req Request) ([]authors.Record, error) {
	payload := generateReq{
		Model:  req.Model,
		Prompt: req.Prompt,
		Images: []string{base64.StdEncoding.EncodeToString(req.Image)},
		Stream: false,
		Format: "json",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", req.EndpointURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", req.EndpointURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint %s returned status %d", req.EndpointURL, resp.StatusCode)
	}

	var gen generateResp
	if err := json.Unmarshal(raw, &gen); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}

	return parseAuthors(gen.Response, req.EndpointURL), nil
}

// parseAuthors decodes the model's inner JSON. The model is an
// untrusted producer, so every malformed shape degrades to an empty
// list instead of failing the page.
func parseAuthors(response, endpoint string) []authors.Record {
	var outer struct {
		Authors []any `json:"authors"`
	}
	if err := json.Unmarshal([]byte(response), &outer); err != nil {
		log.Warn().Str("endpoint", endpoint).Msg("model response is not valid JSON, treating as no authors")
		return nil
	}
	return authors.FromUntrusted(outer.Authors)
}
