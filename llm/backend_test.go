package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolFor(t *testing.T) {
	assert.Equal(t, PoolA, PoolFor(0))
	assert.Equal(t, PoolB, PoolFor(1))
	assert.Equal(t, PoolA, PoolFor(2))
	assert.Equal(t, PoolB, PoolFor(3))
}

func TestPoolAlternate(t *testing.T) {
	assert.Equal(t, PoolB, PoolA.Alternate())
	assert.Equal(t, PoolA, PoolB.Alternate())
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{
			name: "bare object",
			text: `{"names":["a"]}`,
			want: `{"names":["a"]}`,
		},
		{
			name: "fenced object",
			text: "```json\n{\"names\":[\"a\"]}\n```",
			want: `{"names":["a"]}`,
		},
		{
			name: "prose around object",
			text: `Here you go: {"ok":true} hope that helps`,
			want: `{"ok":true}`,
		},
		{
			name: "array payload",
			text: `result: ["x","y"]`,
			want: `["x","y"]`,
		},
		{
			name:    "no payload",
			text:    "sorry, I cannot do that",
			wantErr: true,
		},
		{
			name:    "unterminated",
			text:    `{"names":["a"`,
			wantErr: true,
		},
		{
			name:    "invalid inner JSON",
			text:    `{"names":[}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestSchemaInstruction(t *testing.T) {
	t.Run("nil schema yields nothing", func(t *testing.T) {
		got, err := schemaInstruction(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("schema is embedded verbatim", func(t *testing.T) {
		schema := &jsonschema.Schema{
			Type:     "object",
			Required: []string{"names"},
		}
		got, err := schemaInstruction(schema)
		require.NoError(t, err)
		assert.Contains(t, got, `"required":["names"]`)
		assert.Contains(t, got, "single JSON object")
	})
}

type scriptedBackend struct {
	calls []GenerateRequest
	out   json.RawMessage
	err   error
}

func (s *scriptedBackend) Generate(_ context.Context, req GenerateRequest) (json.RawMessage, error) {
	s.calls = append(s.calls, req)
	return s.out, s.err
}

func TestPoolSetRoutes(t *testing.T) {
	a := &scriptedBackend{out: json.RawMessage(`{"pool":"a"}`)}
	b := &scriptedBackend{out: json.RawMessage(`{"pool":"b"}`)}

	clients := NewClientPool(func(key string) (Backend, error) {
		if key == string(PoolA) {
			return a, nil
		}
		return b, nil
	}, 2, 0)

	ps := NewPoolSet(clients)

	out, err := ps.Generate(context.Background(), GenerateRequest{Prompt: "p", Pool: PoolB})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pool":"b"}`, string(out))
	assert.Len(t, b.calls, 1)
	assert.Empty(t, a.calls)

	// Empty pool defaults to pool A.
	_, err = ps.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Len(t, a.calls, 1)
}
