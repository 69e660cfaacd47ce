// Package llm defines the generation backend port and its adapters. The
// pipeline talks to two independent pools so concurrent calls and retries
// draw from separate rate-limit budgets.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Pool selects which backend pool a call targets.
type Pool string

const (
	PoolA Pool = "pool_a"
	PoolB Pool = "pool_b"
)

// Alternate returns the other pool. Retries go there so a rate-limited pool
// is never hit twice for the same candidate.
func (p Pool) Alternate() Pool {
	if p == PoolA {
		return PoolB
	}
	return PoolA
}

// PoolFor assigns a pool by candidate index: even indexes go to pool A, odd
// to pool B.
func PoolFor(index int) Pool {
	if index%2 == 0 {
		return PoolA
	}
	return PoolB
}

// GenerateRequest is one synchronous structured-generation call.
type GenerateRequest struct {
	Prompt       string
	System       string
	OutputFormat string // always "json" for this pipeline
	TokenBudget  int32
	OutputSchema *jsonschema.Schema
	Pool         Pool
}

// Backend is the generation port. The returned bytes are the model's JSON
// payload; callers own decoding and structural validation.
type Backend interface {
	Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error)
}

// PoolSet routes Generate calls to per-pool clients obtained from a
// ClientPool.
type PoolSet struct {
	clients *ClientPool
}

// NewPoolSet builds a PoolSet over the given client pool. The pool's factory
// must know how to build a client for each Pool key.
func NewPoolSet(clients *ClientPool) *PoolSet {
	return &PoolSet{clients: clients}
}

func (ps *PoolSet) Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error) {
	pool := req.Pool
	if pool == "" {
		pool = PoolA
	}
	client, err := ps.clients.Get(string(pool))
	if err != nil {
		return nil, fmt.Errorf("no client for %s: %w", pool, err)
	}
	return client.Generate(ctx, req)
}

// schemaInstruction renders the output schema as a system-prompt constraint
// for backends without native schema-constrained decoding.
func schemaInstruction(schema *jsonschema.Schema) (string, error) {
	if schema == nil {
		return "", nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to marshal output schema: %w", err)
	}
	return fmt.Sprintf("\n\nYour entire response must be a single JSON object valid against this JSON Schema, with no markdown fences and no commentary:\n%s", string(b)), nil
}

// extractJSON trims the payload to the outermost JSON object or array. Models
// occasionally wrap output in prose or code fences despite instructions.
func extractJSON(text string) (json.RawMessage, error) {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("no JSON payload in response")
	}

	open := text[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}
	end := -1
	for i := len(text) - 1; i > start; i-- {
		if text[i] == closing {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("unterminated JSON payload in response")
	}

	raw := json.RawMessage(text[start : end+1])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("response payload is not valid JSON")
	}
	return raw, nil
}
