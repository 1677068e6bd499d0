package summary

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/adlio/asanadw/internal/errs"
)

const (
	anthropicMaxRetries     = 3
	anthropicInitialBackoff = time.Second
	anthropicMaxTokens      = 1024
)

// AnthropicCollaborator implements Collaborator against the Anthropic
// Messages API directly, grounded on the teacher's haiku.go retry/otel
// wiring (internal/compact/haiku.go).
type AnthropicCollaborator struct {
	client     anthropic.Client
	model      anthropic.Model
	tracer     trace.Tracer
	meter      metric.Meter
	maxRetries int
}

// NewAnthropicCollaborator builds a collaborator for apiKey/model. An empty
// model falls back to Claude 3.5 Haiku, the teacher's default tier.
func NewAnthropicCollaborator(apiKey, model string) (*AnthropicCollaborator, error) {
	if apiKey == "" {
		return nil, errs.New(errs.KindConfig, "ANTHROPIC_API_KEY is required for the anthropic llm_provider")
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicCollaborator{
		client:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:      anthropic.Model(model),
		tracer:     otelTracer(),
		meter:      otelMeter(),
		maxRetries: anthropicMaxRetries,
	}, nil
}

// Generate sends prompt to the Messages API and returns the first text
// block of the reply, retrying transient failures with exponential
// backoff (1s, 2s, 4s).
func (a *AnthropicCollaborator) Generate(ctx context.Context, prompt, schema string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "anthropic.messages.new")
	defer span.End()
	span.SetAttributes(attribute.String("asanadw.summary.model", string(a.model)))

	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := anthropicInitialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		t0 := time.Now()
		message, err := a.client.Messages.New(ctx, params)
		elapsed := time.Since(t0)

		if err == nil {
			a.recordUsage(ctx, message.Usage.InputTokens, message.Usage.OutputTokens, elapsed)
			if len(message.Content) == 0 {
				return "", fmt.Errorf("anthropic: empty response content")
			}
			block := message.Content[0]
			if block.Type != "text" {
				return "", fmt.Errorf("anthropic: unexpected response block type %q", block.Type)
			}
			return block.Text, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !anthropicRetryable(err) {
			span.RecordError(err)
			return "", fmt.Errorf("anthropic: non-retryable error: %w", err)
		}
	}

	span.RecordError(lastErr)
	return "", fmt.Errorf("anthropic: failed after %d attempts: %w", a.maxRetries+1, lastErr)
}

func (a *AnthropicCollaborator) recordUsage(ctx context.Context, inputTokens, outputTokens int64, elapsed time.Duration) {
	if a.meter == nil {
		return
	}
	modelAttr := attribute.String("asanadw.summary.model", string(a.model))
	if c, err := a.meter.Int64Counter("asanadw.summary.input_tokens"); err == nil {
		c.Add(ctx, inputTokens, metric.WithAttributes(modelAttr))
	}
	if c, err := a.meter.Int64Counter("asanadw.summary.output_tokens"); err == nil {
		c.Add(ctx, outputTokens, metric.WithAttributes(modelAttr))
	}
	if h, err := a.meter.Float64Histogram("asanadw.summary.request.duration"); err == nil {
		h.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(modelAttr))
	}
}

func anthropicRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
