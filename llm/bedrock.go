package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	// defaultModelID is the default model ID for Bedrock Claude.
	// It's an inference profile ID or ARN, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// Default token budget when the request carries none.
	defaultMaxTokens = 2048

	// Low temperature keeps outputs more deterministic and consistent, which is better for JSON and structured outputs.
	defaultTemperature = 0.2

	// Low top_p keeps outputs more focused and less random, which is better for JSON and structured outputs.
	defaultTopP = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type BedrockOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// BedrockClient is a Backend over the Bedrock Converse API. The output
// schema is enforced by rendering it into the system block; Converse has no
// native constrained decoding.
type BedrockClient struct {
	brc  bedrockRuntimeClient
	opts BedrockOptions
}

func NewBedrockClient(brc bedrockRuntimeClient, opts BedrockOptions) *BedrockClient {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &BedrockClient{
		brc:  brc,
		opts: opts,
	}
}

func (c *BedrockClient) Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error) {
	slog.Info("LLM_CLIENT: Bedrock invoked", "model_id", c.opts.ModelID, "prompt_len", len(req.Prompt))

	system := req.System
	constraint, err := schemaInstruction(req.OutputSchema)
	if err != nil {
		return nil, err
	}
	system += constraint

	var sys []types.SystemContentBlock
	if system != "" {
		sys = append(sys, &types.SystemContentBlockMemberText{Value: system})
	}

	maxTokens := c.opts.MaxTokens
	if req.TokenBudget > 0 {
		maxTokens = req.TokenBudget
	}

	in := &bedrockruntime.ConverseInput{
		ModelId: &c.opts.ModelID,
		System:  sys,
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: req.Prompt},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(maxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("LLM_CLIENT: Bedrock Converse failed", "error", err, "model_id", c.opts.ModelID)
		return nil, err
	}

	slog.Info("LLM_CLIENT: Bedrock Converse succeeded",
		"stop_reason", out.StopReason,
		"latency_ms", aws.ToInt64(out.Metrics.LatencyMs),
		"input_tokens", aws.ToInt32(out.Usage.InputTokens),
		"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
	)

	switch out.StopReason {
	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		text, err := textFromOutput(out)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text: %w", err)
		}
		return extractJSON(text)

	case types.StopReasonMaxTokens:
		return nil, fmt.Errorf("model hit MaxTokens limit; consider increasing the token budget")

	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		return nil, fmt.Errorf("model response blocked by Bedrock safety filters")

	default:
		text, err := textFromOutput(out)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text: %w", err)
		}
		return extractJSON(text)
	}
}

// textFromOutput returns assistant text optimized for structured use:
// 1) If any text block looks like a single JSON object, return the last such block.
// 2) Else, if there's only one text block, return it.
// 3) Else, join all text blocks with '\n'.
func textFromOutput(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil || out.Output == nil {
		return "", nil
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || len(msg.Value.Content) == 0 {
		return "", nil
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}
	if len(texts) == 0 {
		return "", nil
	}

	// Prefer a single JSON object if present (typical for structured output)
	for i := len(texts) - 1; i >= 0; i-- {
		s := strings.TrimSpace(texts[i])
		if len(s) > 1 && s[0] == '{' && s[len(s)-1] == '}' {
			return s, nil
		}
	}

	// Single block fast path
	if len(texts) == 1 {
		return texts[0], nil
	}

	// Join with one allocation
	total := len(texts) - 1 // for newlines
	for _, s := range texts {
		total += len(s)
	}

	var b strings.Builder
	b.Grow(total)

	for i, s := range texts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s)
	}

	return b.String(), nil
}
