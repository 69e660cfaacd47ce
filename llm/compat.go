package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"mealsuggest"
)

const (
	defaultCompatModelID  = "llama3.1"
	defaultCompatEndpoint = "http://localhost:11434"
)

type CompatOptions struct {
	BaseEndpoint string
	ModelID      string
	Temperature  float32
	TopP         float32
}

// CompatClient is a Backend over an Ollama-style /api/generate endpoint. It
// serves local development and as the second rate-limit pool in front of a
// self-hosted model.
type CompatClient struct {
	httpClient mealsuggest.HTTPClient
	opts       CompatOptions
}

func NewCompatClient(httpClient mealsuggest.HTTPClient, opts CompatOptions) *CompatClient {
	if opts.BaseEndpoint == "" {
		opts.BaseEndpoint = defaultCompatEndpoint
	}
	if opts.ModelID == "" {
		opts.ModelID = defaultCompatModelID
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &CompatClient{
		httpClient: httpClient,
		opts:       opts,
	}
}

type compatWireRequest struct {
	Model   string            `json:"model"`
	System  string            `json:"system,omitempty"`
	Prompt  string            `json:"prompt"`
	Format  string            `json:"format,omitempty"`
	Stream  bool              `json:"stream"`
	Options compatWireOptions `json:"options"`
}

type compatWireOptions struct {
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
}

type compatWireResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *CompatClient) Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error) {
	slog.Info("LLM_CLIENT: compat invoked", "model_id", c.opts.ModelID, "endpoint", c.opts.BaseEndpoint, "prompt_len", len(req.Prompt))

	system := req.System
	constraint, err := schemaInstruction(req.OutputSchema)
	if err != nil {
		return nil, err
	}
	system += constraint

	wireReq := compatWireRequest{
		Model:  c.opts.ModelID,
		System: system,
		Prompt: req.Prompt,
		Stream: false,
		Options: compatWireOptions{
			Temperature: c.opts.Temperature,
			TopP:        c.opts.TopP,
		},
	}
	if req.OutputFormat == "json" || req.OutputSchema != nil {
		wireReq.Format = "json"
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseEndpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		slog.Error("LLM_CLIENT: compat request failed", "error", err, "endpoint", c.opts.BaseEndpoint)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("LLM_CLIENT: compat non-OK status", "status", resp.StatusCode, "body_len", len(respBody))
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.opts.BaseEndpoint)
	}

	var wireResp compatWireResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	slog.Info("LLM_CLIENT: compat succeeded", "model_id", wireResp.Model, "done", wireResp.Done)

	return extractJSON(wireResp.Response)
}
