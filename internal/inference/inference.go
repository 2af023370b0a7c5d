// Package inference talks to the OpenAI-compatible model gateway used for
// feedback generation, video analysis, reference judging and embeddings.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/types"
)

// JSONRequest asks for a response constrained by a JSON schema.
type JSONRequest struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

type Generator interface {
	GenerateJSON(ctx context.Context, req JSONRequest) (string, error)
	GenerateText(ctx context.Context, system, user string) (string, error)
}

type VideoAnalyzer interface {
	AnalyzeVideo(ctx context.Context, system, prompt, videoURL string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	VideoModel  string
	EmbedModel  string
	ReadTimeout time.Duration
}

// Client implements Generator, VideoAnalyzer and Embedder against the gateway.
type Client struct {
	oa         openaigo.Client
	model      string
	videoModel string
	embedModel string
	log        *logger.Logger
}

func NewClient(opts Options, log *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" || strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("llm gateway not configured")
	}
	if log == nil {
		log = logger.Discard()
	}
	timeout := opts.ReadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	// Retries are owned by the callers' policies, not the SDK.
	oa := openaigo.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(strings.TrimSpace(opts.APIKey)),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	)

	video := opts.VideoModel
	if video == "" {
		video = opts.Model
	}
	return &Client{
		oa:         oa,
		model:      opts.Model,
		videoModel: video,
		embedModel: opts.EmbedModel,
		log:        log.Component("inference"),
	}, nil
}

func (c *Client) GenerateJSON(ctx context.Context, req JSONRequest) (string, error) {
	params := openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(c.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(req.System),
			openaigo.UserMessage(req.User),
		},
		ResponseFormat: openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openaigo.Bool(true),
				},
			},
		},
	}
	return c.complete(ctx, params)
}

func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	params := openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(c.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(system),
			openaigo.UserMessage(user),
		},
	}
	return c.complete(ctx, params)
}

// AnalyzeVideo sends the recording reference as a media part next to the prompt.
func (c *Client) AnalyzeVideo(ctx context.Context, system, prompt, videoURL string) (string, error) {
	parts := []openaigo.ChatCompletionContentPartUnionParam{
		openaigo.TextContentPart(prompt),
		openaigo.ImageContentPart(openaigo.ChatCompletionContentPartImageImageURLParam{URL: videoURL}),
	}
	params := openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(c.videoModel),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(system),
			openaigo.UserMessage(parts),
		},
	}
	return c.complete(ctx, params)
}

func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	resp, err := c.oa.Embeddings.New(ctx, openaigo.EmbeddingNewParams{
		Model: openaigo.EmbeddingModel(c.embedModel),
		Input: openaigo.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	})
	if err != nil {
		return nil, classify(err)
	}
	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embedding %d missing from response", i)
		}
	}
	return out, nil
}

func (c *Client) complete(ctx context.Context, params openaigo.ChatCompletionNewParams) (string, error) {
	start := time.Now()
	resp, err := c.oa.Chat.Completions.New(ctx, params)
	if err != nil {
		c.log.WithError(err).WithField("model", params.Model).Warn("chat completion failed")
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", types.ErrMalformedResponse)
	}
	c.log.WithField("model", params.Model).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("chat completion done")
	return resp.Choices[0].Message.Content, nil
}

// classify maps throttling to types.ErrRateLimited so retry policies can see it.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openaigo.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", types.ErrRateLimited, err)
	}
	if IsThrottle(err) {
		return fmt.Errorf("%w: %v", types.ErrRateLimited, err)
	}
	return err
}

// IsThrottle reports whether an error message looks like a throttling response.
func IsThrottle(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, types.ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "throttl") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit")
}

var (
	_ Generator     = (*Client)(nil)
	_ VideoAnalyzer = (*Client)(nil)
	_ Embedder      = (*Client)(nil)
	_ Generator     = (*Mock)(nil)
	_ VideoAnalyzer = (*Mock)(nil)
	_ Embedder      = (*Mock)(nil)
)
