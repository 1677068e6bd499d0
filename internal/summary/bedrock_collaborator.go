package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/adlio/asanadw/internal/errs"
)

const (
	bedrockAnthropicVersion = "bedrock-2023-05-31"
	bedrockMaxTokens        = 1024
)

// BedrockCollaborator implements Collaborator against AWS Bedrock's
// Anthropic-compatible InvokeModel API (spec.md §6 "AWS Bedrock by
// default"). AWS credential resolution follows the default provider chain
// (environment, shared config, EC2/ECS role) the way the teacher's
// storage/s3aws.go resolves credentials for its S3 client, adapted here to
// omit static keys since spec.md §6 names only "standard cloud
// credentials", never explicit access keys, as Bedrock's input.
type BedrockCollaborator struct {
	client  *bedrockruntime.Client
	modelID string
	meter   metric.Meter
}

// NewBedrockCollaborator loads the default AWS config for region and
// builds a Bedrock Runtime client targeting modelID (e.g.
// "anthropic.claude-3-5-haiku-20241022-v1:0").
func NewBedrockCollaborator(ctx context.Context, region, modelID string) (*BedrockCollaborator, error) {
	if modelID == "" {
		return nil, errs.New(errs.KindConfig, "llm_model is required for the bedrock llm_provider")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "load AWS config for bedrock", err)
	}
	return &BedrockCollaborator{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
		meter:   otelMeter(),
	}, nil
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type bedrockInvokeRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockInvokeResponse struct {
	Content []bedrockContentBlock `json:"content"`
	Usage   struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// Generate sends prompt to the configured Bedrock model and returns the
// first text content block of the reply.
func (b *BedrockCollaborator) Generate(ctx context.Context, prompt, schema string) (string, error) {
	reqBody, err := json.Marshal(bedrockInvokeRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        bedrockMaxTokens,
		Messages: []bedrockMessage{
			{Role: "user", Content: []bedrockContentBlock{{Type: "text", Text: prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	t0 := time.Now()
	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        reqBody,
	})
	elapsed := time.Since(t0)
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model: %w", err)
	}

	var resp bedrockInvokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock: unmarshal response: %w", err)
	}
	b.recordUsage(ctx, resp.Usage.InputTokens, resp.Usage.OutputTokens, elapsed)

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("bedrock: empty response content")
	}
	return resp.Content[0].Text, nil
}

func (b *BedrockCollaborator) recordUsage(ctx context.Context, inputTokens, outputTokens int64, elapsed time.Duration) {
	if b.meter == nil {
		return
	}
	modelAttr := attribute.String("asanadw.summary.model", b.modelID)
	if c, err := b.meter.Int64Counter("asanadw.summary.input_tokens"); err == nil {
		c.Add(ctx, inputTokens, metric.WithAttributes(modelAttr))
	}
	if c, err := b.meter.Int64Counter("asanadw.summary.output_tokens"); err == nil {
		c.Add(ctx, outputTokens, metric.WithAttributes(modelAttr))
	}
	if h, err := b.meter.Float64Histogram("asanadw.summary.request.duration"); err == nil {
		h.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(modelAttr))
	}
}
